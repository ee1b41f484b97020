package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/fire-control/core"
)

// ErrInvalidDefinition is wrapped by every MunitionDefinition validation error.
var ErrInvalidDefinition = errors.New("invalid munition definition")

// AutoDetonationDistance asks the fuse to derive its distance from the
// blast radius and guidance mode.
const AutoDetonationDistance = -1

// MunitionDefinition is the parsed, per-munition configuration handed to the
// engagement controller. Durations are expressed in seconds in JSON.
type MunitionDefinition struct {
	Name      string        `json:"name"`
	Class     WeaponClass   `json:"class"`
	Targeting TargetingMode `json:"targeting"`
	Guidance  GuidanceMode  `json:"guidance"`
	Warhead   WarheadType   `json:"warhead"`

	BlastRadius float64 `json:"blast_radius"`
	// DetonationDistance of 0 selects the contact fuse; -1 resolves it
	// automatically.
	DetonationDistance        float64 `json:"detonation_distance"`
	DetonateAtMinimumDistance bool    `json:"detonate_at_minimum_distance"`

	// MaxOffBoresight is the seeker gimbal half-angle in degrees.
	MaxOffBoresight      float64 `json:"max_off_boresight"`
	MaxStaticLaunchRange float64 `json:"max_static_launch_range"`
	// ChaffEffectivity scales how strongly chaff deceives this munition.
	ChaffEffectivity float64 `json:"chaff_effectivity"`

	InertialGuidance      bool `json:"inertial_guidance"`
	BasicInertialGuidance bool `json:"basic_inertial_guidance"`

	Seeker   SeekerConfig       `json:"seeker"`
	Radar    RadarConfig        `json:"radar"`
	GPS      GPSConfig          `json:"gps"`
	Cruise   CruiseConfig       `json:"cruise"`
	Envelope EngagementEnvelope `json:"envelope"`
}

// SeekerConfig holds parameters shared by the passive/active seekers.
type SeekerConfig struct {
	// LockedFOV is the full locked-sensor field of view in degrees.
	LockedFOV               float64         `json:"locked_fov"`
	FOVBias                 core.FloatCurve `json:"fov_bias"`
	VelocityBias            core.FloatCurve `json:"velocity_bias"`
	HeatThreshold           float64         `json:"heat_threshold"`
	FrontAspectHeatModifier float64         `json:"front_aspect_heat_modifier"`
	Uncaged                 bool            `json:"uncaged"`
	Smoothing               SmoothingConfig `json:"smoothing"`
}

// SmoothingConfig configures the optional alpha-beta track filter.
type SmoothingConfig struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// RadarConfig configures the radar seeker.
type RadarConfig struct {
	ActiveRange float64 `json:"active_range"`
	// LockOnAfterLaunch lets the seeker search for a target after launch.
	LockOnAfterLaunch bool `json:"lock_on_after_launch"`
}

// GPSConfig configures GPS target updates.
type GPSConfig struct {
	// UpdateInterval in seconds: negative disables updates, 0 updates every
	// tick.
	UpdateInterval float64 `json:"update_interval"`
}

// Interval returns the update cadence as a duration.
func (g GPSConfig) Interval() time.Duration {
	return time.Duration(g.UpdateInterval * float64(time.Second))
}

// CruiseConfig configures the cruise flight-phase state machine.
type CruiseConfig struct {
	Altitude       float64 `json:"altitude"`
	Speed          float64 `json:"speed"`
	PredictionTime float64 `json:"prediction_time"`

	Popup         bool    `json:"popup"`
	PopupAltitude float64 `json:"popup_altitude"`
	// PopupAngle in degrees.
	PopupAngle float64 `json:"popup_angle"`
	PopupRange float64 `json:"popup_range"`

	// OrbitCapable variants steer along velocity in vacuum during Terminal.
	OrbitCapable bool `json:"orbit_capable"`
}

// EngagementEnvelope lists which contact classes the seeker may lock.
type EngagementEnvelope struct {
	Air        bool `json:"air"`
	Ground     bool `json:"ground"`
	Missile    bool `json:"missile"`
	Underwater bool `json:"underwater"`
}

// Allows reports whether a contact class is inside the envelope.
func (e EngagementEnvelope) Allows(c core.ContactClass) bool {
	switch c {
	case core.ClassAir:
		return e.Air
	case core.ClassGround:
		return e.Ground
	case core.ClassMissile:
		return e.Missile
	case core.ClassUnderwater:
		return e.Underwater
	default:
		return false
	}
}

// WorldSettings are global tuning values shared by every munition.
type WorldSettings struct {
	// DecoyStrength scales all chaff distortion.
	DecoyStrength float64 `json:"decoy_strength"`
	// SmokeDeflection scales laser aim-point wander under smoke, degrees.
	SmokeDeflection float64 `json:"smoke_deflection"`
}

// DefaultWorldSettings returns the stock global settings.
func DefaultWorldSettings() WorldSettings {
	return WorldSettings{DecoyStrength: 1, SmokeDeflection: 1}
}

// ApplyDefaults fills zero-valued fields with stock values. Fields whose zero
// value is meaningful (DetonationDistance, GPS interval) are left alone.
func (d MunitionDefinition) ApplyDefaults() MunitionDefinition {
	if d.MaxOffBoresight <= 0 {
		d.MaxOffBoresight = 360
	}
	if d.MaxStaticLaunchRange <= 0 {
		d.MaxStaticLaunchRange = 5000
	}
	if d.ChaffEffectivity == 0 {
		d.ChaffEffectivity = 1
	}
	if d.Seeker.LockedFOV <= 0 {
		d.Seeker.LockedFOV = 2.5
	}
	if d.Seeker.HeatThreshold <= 0 {
		d.Seeker.HeatThreshold = 150
	}
	if d.Seeker.FrontAspectHeatModifier == 0 {
		d.Seeker.FrontAspectHeatModifier = 1
	}
	d.Seeker.FOVBias = d.Seeker.FOVBias.Normalize()
	d.Seeker.VelocityBias = d.Seeker.VelocityBias.Normalize()
	if d.Radar.ActiveRange <= 0 {
		d.Radar.ActiveRange = 6000
	}
	if d.Cruise.Altitude <= 0 {
		d.Cruise.Altitude = 500
	}
	if d.Cruise.Speed <= 0 {
		d.Cruise.Speed = 300
	}
	if d.Cruise.PredictionTime <= 0 {
		d.Cruise.PredictionTime = 5
	}
	if d.Envelope == (EngagementEnvelope{}) {
		d.Envelope = EngagementEnvelope{Air: true, Ground: true, Missile: true, Underwater: true}
	}
	return d
}

// Validate checks a definition after defaults have been applied.
func (d MunitionDefinition) Validate() error {
	switch {
	case d.BlastRadius < 0:
		return fmt.Errorf("%w: blast_radius %v is negative", ErrInvalidDefinition, d.BlastRadius)
	case d.DetonationDistance < 0 && d.DetonationDistance != AutoDetonationDistance:
		return fmt.Errorf("%w: detonation_distance %v must be >= 0 or -1", ErrInvalidDefinition, d.DetonationDistance)
	case d.ChaffEffectivity < 0:
		return fmt.Errorf("%w: chaff_effectivity %v is negative", ErrInvalidDefinition, d.ChaffEffectivity)
	case d.Targeting < TargetingNone || d.Targeting > TargetingAntiRad:
		return fmt.Errorf("%w: targeting mode %d", ErrInvalidDefinition, int(d.Targeting))
	case d.Seeker.Smoothing.Alpha < 0 || d.Seeker.Smoothing.Alpha > 1:
		return fmt.Errorf("%w: smoothing alpha %v outside [0,1]", ErrInvalidDefinition, d.Seeker.Smoothing.Alpha)
	case d.Cruise.Popup && d.Cruise.PopupAltitude <= 0:
		return fmt.Errorf("%w: popup enabled without popup_altitude", ErrInvalidDefinition)
	}
	return nil
}

// ResolvedDetonationDistance returns the fuse distance, resolving the
// automatic sentinel: air-to-air munitions use a quarter of the blast
// radius, everything else contact-fuses.
func (d MunitionDefinition) ResolvedDetonationDistance() float64 {
	if d.DetonationDistance != AutoDetonationDistance {
		return d.DetonationDistance
	}
	if d.Guidance.IsAirToAir() {
		return d.BlastRadius * 0.25
	}
	return 0
}
