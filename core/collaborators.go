package core

// This file declares the world-facing interfaces the fire-control core
// consumes. The host engine implements them; the core never retains results
// across ticks.

// SensorKind selects which detector physics a query uses.
type SensorKind int

const (
	SensorRadar SensorKind = iota
	SensorHeat
)

func (k SensorKind) String() string {
	switch k {
	case SensorRadar:
		return "radar"
	case SensorHeat:
		return "heat"
	default:
		return "unknown"
	}
}

// ThreatType classifies radar-warning events and radar pings.
type ThreatType int

const (
	ThreatNone ThreatType = iota
	ThreatSearchRadar
	ThreatFireControl
	ThreatMissileLaunch
	ThreatMissileLock
	ThreatTorpedo
)

// DetectorQuery describes one seeker look.
type DetectorQuery struct {
	Sensor    SensorKind
	Origin    Vec3
	Direction Vec3
	// FOVHalfAngle is in degrees.
	FOVHalfAngle float64
	Threshold    float64

	// FOVBias weights candidates from boresight (0) to the FOV edge;
	// VelocityBias weights them by velocity misalignment with Prior (0..180°).
	FOVBias      FloatCurve
	VelocityBias FloatCurve

	// Prior is the seeker's current predicted track so the detector can weigh
	// decoys against it. It may be the sentinel.
	Prior Track

	FrontAspectModifier float64
	Uncaged             bool
}

// Detector is the host's sensor model.
type Detector interface {
	// Query returns the single best-scoring candidate, if any.
	Query(q DetectorQuery) (Track, bool)
	// Scan returns every candidate inside the query cone.
	Scan(q DetectorQuery) []Track
}

// Countermeasures exposes the effect of countermeasures on a contact.
type Countermeasures interface {
	// ChaffFactor is in [0,1]; 1 means no chaff effect.
	ChaffFactor(contactID string) float64
	JammerStrength(contactID string) float64
	RadarSignature(contactID string) float64
	// Obscured reports whether smoke lies on the segment from→to.
	Obscured(from, to Vec3) bool
}

// Part is what a collider resolves to when inspected.
type Part struct {
	VesselID     string
	Position     Vec3
	Velocity     Vec3
	Acceleration Vec3
	Debris       bool
	Ignored      bool
}

// Collider is a single physics shape returned by a collision query.
// Inspect fails when the collider cannot be attributed to a part.
type Collider interface {
	Inspect() (Part, error)
}

// Hit is one collision query result.
type Hit struct {
	Collider Collider
	Point    Vec3
	Distance float64
}

// Collision is the host's synchronous physics query service.
type Collision interface {
	Raycast(origin, direction Vec3, maxDistance float64) []Hit
	OverlapSphere(center Vec3, radius float64) []Hit
}

// Terrain answers altitude and obstacle questions for cruise guidance.
type Terrain interface {
	RadarAltitudeAt(pos Vec3) float64
	Obstructed(origin, direction Vec3, maxDistance float64) bool
}

// Explosive is the munition's warhead.
type Explosive interface {
	Arm()
	Detonate()
}

// RadarFeed is the launching platform's radar data link.
type RadarFeed interface {
	LockedTrack(contactID string) (Track, bool)
}

// RadarWarningSink receives radar-warning emissions from seekers going active.
type RadarWarningSink interface {
	RadarWarning(origin, direction Vec3, fovDeg float64, threat ThreatType)
}

// Illuminator is a laser designator. Spot reports ok only while the
// designator is ground-stabilised, within gimbal limits and on a surface.
type Illuminator interface {
	Spot() (Vec3, bool)
}

// Designator supplies GPS target updates.
type Designator interface {
	CanSeeTarget() bool
	TargetPosition() Vec3
}
