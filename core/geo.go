package core

import (
	"math"

	satellite "github.com/joshuaferrara/go-satellite"
)

// Body is the celestial reference frame a munition flies in. The host world
// supplies a fresh Body every tick: Center moves whenever the host shifts its
// floating origin, Rotation is the body's spin angle (radians) at that tick.
type Body struct {
	Center   Vec3
	Radius   float64
	Rotation float64
}

// GeoCoord is a frame-independent position: latitude and longitude in
// radians and altitude in metres above Body.Radius.
type GeoCoord struct {
	satellite.LatLong
	Altitude float64
}

// ToGeo encodes a world position as body-fixed geodetic coordinates.
func (b Body) ToGeo(world Vec3) GeoCoord {
	rel := world.Sub(b.Center)
	fixed := satellite.ECIToECEF(satellite.Vector3{X: rel.X, Y: rel.Y, Z: rel.Z}, b.Rotation)

	r := math.Sqrt(fixed.X*fixed.X + fixed.Y*fixed.Y + fixed.Z*fixed.Z)
	if r == 0 {
		return GeoCoord{Altitude: -b.Radius}
	}
	return GeoCoord{
		LatLong: satellite.LatLong{
			Latitude:  math.Asin(clamp(fixed.Z/r, -1, 1)),
			Longitude: math.Atan2(fixed.Y, fixed.X),
		},
		Altitude: r - b.Radius,
	}
}

// ToWorld decodes geodetic coordinates back into the current world frame.
func (b Body) ToWorld(g GeoCoord) Vec3 {
	r := b.Radius + g.Altitude
	cosLat := math.Cos(g.Latitude)
	fixed := satellite.Vector3{
		X: r * cosLat * math.Cos(g.Longitude),
		Y: r * cosLat * math.Sin(g.Longitude),
		Z: r * math.Sin(g.Latitude),
	}
	inertial := satellite.ECIToECEF(fixed, -b.Rotation)
	return b.Center.Add(Vec3{X: inertial.X, Y: inertial.Y, Z: inertial.Z})
}

// Up returns the local vertical at a world position.
func (b Body) Up(world Vec3) Vec3 {
	up := world.Sub(b.Center).Normalized()
	if up.IsZero() {
		return Vec3{Z: 1}
	}
	return up
}

// Altitude returns the height of a world position above the body's mean
// radius (not above terrain).
func (b Body) Altitude(world Vec3) float64 {
	return world.Sub(b.Center).Norm() - b.Radius
}

// Gravity is standard surface gravity used by ballistic estimates.
const Gravity = 9.80665
