package core

import "math"

// Vec3 is a world-space vector in metres (or metres per second where noted).
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns v × other.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

// SqrNorm returns the squared Euclidean norm.
func (v Vec3) SqrNorm() float64 {
	return v.Dot(v)
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.SqrNorm())
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec3) DistanceTo(other Vec3) float64 {
	return v.Sub(other).Norm()
}

// IsZero reports whether every component is exactly zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Normalized returns the unit vector along v, or the zero vector when v is
// too short to normalise.
func (v Vec3) Normalized() Vec3 {
	n := v.Norm()
	if n < 1e-12 {
		return Vec3{}
	}
	return v.Scale(1 / n)
}

// Project returns the component of v along onto. onto need not be unit length.
func (v Vec3) Project(onto Vec3) Vec3 {
	d := onto.SqrNorm()
	if d < 1e-24 {
		return Vec3{}
	}
	return onto.Scale(v.Dot(onto) / d)
}

// ProjectOnPlane removes the component of v along the plane normal.
func (v Vec3) ProjectOnPlane(normal Vec3) Vec3 {
	return v.Sub(v.Project(normal))
}

// AngleDeg returns the unsigned angle between two vectors in degrees.
// Degenerate inputs yield 0.
func (v Vec3) AngleDeg(other Vec3) float64 {
	d := math.Sqrt(v.SqrNorm() * other.SqrNorm())
	if d < 1e-15 {
		return 0
	}
	c := clamp(v.Dot(other)/d, -1, 1)
	return math.Acos(c) * 180.0 / math.Pi
}

// RotateTowards rotates direction v towards target by at most maxRadians,
// preserving the length of v. It does not overshoot target.
func (v Vec3) RotateTowards(target Vec3, maxRadians float64) Vec3 {
	length := v.Norm()
	from := v.Normalized()
	to := target.Normalized()
	if from.IsZero() || to.IsZero() {
		return v
	}
	angle := math.Acos(clamp(from.Dot(to), -1, 1))
	if angle <= maxRadians || angle < 1e-9 {
		return to.Scale(length)
	}
	axis := from.Cross(to).Normalized()
	if axis.IsZero() {
		// Antiparallel: any perpendicular works.
		axis = from.Cross(Vec3{X: 1}).Normalized()
		if axis.IsZero() {
			axis = from.Cross(Vec3{Y: 1}).Normalized()
		}
	}
	return rodrigues(from, axis, maxRadians).Scale(length)
}

// RotateAround rotates point about pivot around axis by degrees.
func RotateAround(point, pivot, axis Vec3, degrees float64) Vec3 {
	k := axis.Normalized()
	if k.IsZero() {
		return point
	}
	rel := point.Sub(pivot)
	return pivot.Add(rodrigues(rel, k, degrees*math.Pi/180.0))
}

// rodrigues rotates v about unit axis k by theta radians.
func rodrigues(v, k Vec3, theta float64) Vec3 {
	c, s := math.Cos(theta), math.Sin(theta)
	return v.Scale(c).
		Add(k.Cross(v).Scale(s)).
		Add(k.Scale(k.Dot(v) * (1 - c)))
}

// ClampToBoresight keeps a look direction inside the cone of half-angle
// limitDeg around forward. Directions outside the cone are rotated back onto
// its edge.
func ClampToBoresight(look, forward Vec3, limitDeg float64) Vec3 {
	off := forward.AngleDeg(look)
	if off <= limitDeg {
		return look
	}
	return look.RotateTowards(forward, (off-limitDeg)*math.Pi/180.0)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Clamp01 limits x to [0, 1].
func Clamp01(x float64) float64 {
	return clamp(x, 0, 1)
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return clamp(x, lo, hi)
}
