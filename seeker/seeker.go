// Package seeker implements per-modality target acquisition and track
// maintenance. Each targeting mode is its own type behind the Seeker
// interface; the engagement controller owns exactly one per munition.
package seeker

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/signalsfoundry/fire-control/core"
	"github.com/signalsfoundry/fire-control/internal/logging"
	"github.com/signalsfoundry/fire-control/model"
)

// ErrMissingCollaborator is returned by New when a modality is configured
// without the world interface it cannot work without.
var ErrMissingCollaborator = errors.New("seeker: missing collaborator")

// Input is everything a seeker reads in one tick.
type Input struct {
	Motion core.MotionState
	Frame  core.Body
	// Now is the simulation time of this tick.
	Now time.Duration
	// SinceLaunch is flight time; it drives cadence rules and grace periods.
	SinceLaunch time.Duration
	Detector    core.Detector
}

// Output is a seeker's verdict for one tick.
type Output struct {
	// Track is the seeker's best current track, or the sentinel.
	Track core.Track

	AimPoint           core.Vec3
	TargetVelocity     core.Vec3
	TargetAcceleration core.Vec3

	// Acquired is true while the seeker holds a usable target.
	Acquired bool
	// Coasting is true when AimPoint is a held or dead-reckoned point rather
	// than a fresh return. Acquired and Coasting may both be set.
	Coasting bool

	// Lost is raised once, on the tick the target is dropped.
	Lost bool
	// Abandoned is raised once when the seeker gives up and guidance should
	// treat the shot as a miss.
	Abandoned bool
	// ForceDetonate asks the controller to detonate immediately.
	ForceDetonate bool
	// WentActive is raised once, on the tick an active seeker first emits.
	WentActive bool
}

// HasAim reports whether AimPoint carries a meaningful steering target.
func (o Output) HasAim() bool {
	return o.Acquired || o.Coasting
}

// Seeker is one targeting modality.
type Seeker interface {
	Mode() model.TargetingMode
	Update(in Input) Output
}

// PingReceiver is implemented by seekers that home on radar emissions.
// ReceivePing reports whether the ping was adopted.
type PingReceiver interface {
	ReceivePing(origin core.Vec3, threat core.ThreatType, vesselID string) bool
}

// Retargeter is implemented by seekers that hold a fixed geographic point.
type Retargeter interface {
	Retarget(target core.GeoCoord)
}

// Env holds the optional world collaborators a seeker may use.
type Env struct {
	Countermeasures core.Countermeasures
	RadarFeed       core.RadarFeed
	Warnings        core.RadarWarningSink
	Illuminator     core.Illuminator
	Designator      core.Designator

	// Rand drives decoy distortion sampling. Nil disables distortion.
	Rand *rand.Rand
	// NoiseSeed selects the smoke-deflection noise sequence.
	NoiseSeed uint64

	Log logging.Logger
}

// Config describes the seeker to build.
type Config struct {
	Definition model.MunitionDefinition
	World      model.WorldSettings
	Env        Env
	// Initial is the target designated before launch; it may be the sentinel.
	Initial core.Track
	// VesselID is the munition's own vessel ID, used to address radar pings.
	VesselID string
}

// New builds the seeker for cfg.Definition.Targeting.
func New(cfg Config) (Seeker, error) {
	if cfg.Env.Log == nil {
		cfg.Env.Log = logging.Noop()
	}
	def := cfg.Definition
	switch def.Targeting {
	case model.TargetingNone:
		return unguided{}, nil
	case model.TargetingHeat:
		return newHeat(cfg), nil
	case model.TargetingRadar:
		return newRadar(cfg), nil
	case model.TargetingLaser:
		if cfg.Env.Illuminator == nil {
			return nil, fmt.Errorf("%w: laser seeker needs an illuminator", ErrMissingCollaborator)
		}
		return newLaser(cfg), nil
	case model.TargetingGPS:
		return newGPS(cfg), nil
	case model.TargetingAntiRad:
		return newAntiRad(cfg), nil
	default:
		return nil, fmt.Errorf("%w: targeting mode %v", model.ErrInvalidDefinition, def.Targeting)
	}
}

// unguided never acquires anything.
type unguided struct{}

func (unguided) Mode() model.TargetingMode { return model.TargetingNone }
func (unguided) Update(Input) Output       { return Output{Track: core.NoTrack()} }

func (e Env) decoy(world model.WorldSettings) core.DecoyEnv {
	return core.DecoyEnv{
		Countermeasures: e.Countermeasures,
		Strength:        world.DecoyStrength,
		Rand:            e.Rand,
	}
}
