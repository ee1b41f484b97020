package core

import "time"

// ContactClass is the engagement-envelope category of a contact.
type ContactClass int

const (
	ClassUnknown ContactClass = iota
	ClassAir
	ClassGround
	ClassMissile
	ClassUnderwater
)

// Track is a timestamped snapshot of a sensed contact. Tracks are values: a
// seeker produces a new one whenever it has fresher information and hands
// copies to guidance and fuse.
//
// Position is held as GeoCoord so that it survives the host's floating-origin
// shifts; callers re-derive world positions through Position every tick.
type Track struct {
	Geo          GeoCoord
	Velocity     Vec3
	Acceleration Vec3

	SignalStrength float64
	TimeAcquired   time.Duration
	Exists         bool

	Team string
	// SourceID identifies the contact's vessel. Empty for anonymous returns
	// such as flares, which are never subject to chaff distortion.
	SourceID    string
	Class       ContactClass
	DecoyBiased bool
}

// NoTrack returns the canonical no-track sentinel.
func NoTrack() Track {
	return Track{}
}

// NewTrack builds a live track at a world position.
func NewTrack(frame Body, position, velocity, acceleration Vec3, signal float64, now time.Duration) Track {
	return Track{
		Geo:            frame.ToGeo(position),
		Velocity:       velocity,
		Acceleration:   acceleration,
		SignalStrength: signal,
		TimeAcquired:   now,
		Exists:         true,
	}
}

// Position returns the track's world position in the given frame. The
// sentinel always reports the zero vector.
func (t Track) Position(frame Body) Vec3 {
	if !t.Exists {
		return Vec3{}
	}
	return frame.ToWorld(t.Geo)
}

// WithPosition returns a copy of t relocated to a world position.
func (t Track) WithPosition(frame Body, position Vec3) Track {
	t.Geo = frame.ToGeo(position)
	return t
}

// Age returns how long ago the track was acquired. It is never negative.
func (t Track) Age(now time.Duration) time.Duration {
	if now < t.TimeAcquired {
		return 0
	}
	return now - t.TimeAcquired
}

// PredictedPosition extrapolates the track by its velocity over its age.
func (t Track) PredictedPosition(frame Body, now time.Duration) Vec3 {
	if !t.Exists {
		return Vec3{}
	}
	return t.Position(frame).Add(t.Velocity.Scale(t.Age(now).Seconds()))
}

// PredictedPositionWithDecoy is PredictedPosition plus a freshly sampled
// countermeasure distortion.
func (t Track) PredictedPositionWithDecoy(frame Body, env DecoyEnv, chaffEffectivity float64, now time.Duration) Vec3 {
	if !t.Exists {
		return Vec3{}
	}
	return t.PredictedPosition(frame, now).Add(t.Distortion(env, chaffEffectivity))
}

// PositionWithDecoy applies countermeasure distortion to the raw position
// without any velocity lead. It serves callers whose track is already
// integrated forward every tick.
func (t Track) PositionWithDecoy(frame Body, env DecoyEnv, chaffEffectivity float64) Vec3 {
	if !t.Exists {
		return Vec3{}
	}
	return t.Position(frame).Add(t.Distortion(env, chaffEffectivity))
}

// Advance dead-reckons the track forward by dt: position moves by velocity,
// velocity by acceleration, and TimeAcquired moves by dt so that
// PredictedPosition never counts the same interval twice.
func (t Track) Advance(frame Body, dt time.Duration) Track {
	if !t.Exists {
		return t
	}
	s := dt.Seconds()
	t.Geo = frame.ToGeo(t.Position(frame).Add(t.Velocity.Scale(s)))
	t.Velocity = t.Velocity.Add(t.Acceleration.Scale(s))
	t.TimeAcquired += dt
	return t
}

// Equal compares tracks by existence, position and acquisition time only;
// velocity and signal strength do not take part.
func (t Track) Equal(other Track) bool {
	return t.Exists == other.Exists &&
		t.Geo == other.Geo &&
		t.TimeAcquired == other.TimeAcquired
}

// RequireExists checks that t is a live track before it is used somewhere a
// sentinel is a programming error. Debug builds panic; release builds return
// false so the caller can degrade.
func (t Track) RequireExists(op string) bool {
	if t.Exists {
		return true
	}
	invariant(false, "track: "+op+" called on the no-track sentinel")
	return false
}
