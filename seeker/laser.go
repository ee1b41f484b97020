package seeker

import (
	"context"
	"time"

	"github.com/signalsfoundry/fire-control/core"
	"github.com/signalsfoundry/fire-control/internal/logging"
	"github.com/signalsfoundry/fire-control/model"
)

const smokeNoiseRate = 0.75

// Laser is a semi-active laser seeker homing on an external designator's
// spot. When the spot is lost it holds the last point, which smoke on the
// line of sight makes wander.
type Laser struct {
	def   model.MunitionDefinition
	world model.WorldSettings
	env   Env
	log   logging.Logger

	acquired  bool
	lastPoint core.Vec3
	lostFor   time.Duration
	done      bool
}

func newLaser(cfg Config) *Laser {
	l := &Laser{
		def:   cfg.Definition,
		world: cfg.World,
		env:   cfg.Env,
		log:   cfg.Env.Log.With(logging.String("seeker", "laser")),
	}
	if spot, ok := l.env.Illuminator.Spot(); ok {
		l.acquired = true
		l.lastPoint = spot
	}
	return l
}

func (l *Laser) Mode() model.TargetingMode { return model.TargetingLaser }

// ceiling is the longest unguided coast before the seeker gives up.
func (l *Laser) ceiling() time.Duration {
	switch {
	case l.def.InertialGuidance:
		return 60 * time.Second
	case l.def.BasicInertialGuidance:
		return 15 * time.Second
	default:
		return 5 * time.Second
	}
}

// Update follows the spot or coasts on the held point.
func (l *Laser) Update(in Input) Output {
	if l.done {
		return Output{Track: core.NoTrack()}
	}
	spot, ok := l.env.Illuminator.Spot()

	if !l.acquired {
		if ok {
			l.acquired = true
			l.lastPoint = spot
			l.lostFor = 0
			return l.output(in, spot, core.Vec3{}, false)
		}
		return l.coastTick(in, Output{Track: core.NoTrack()})
	}

	if ok {
		dt := in.Motion.TickSeconds()
		var vel core.Vec3
		if dt > 0 {
			vel = spot.Sub(l.lastPoint).Scale(1 / dt)
		}
		l.lastPoint = spot
		l.lostFor = 0
		return l.output(in, spot, vel, false)
	}

	out := l.coastTick(in, Output{})
	if out.Abandoned {
		return out
	}
	pos := in.Motion.Position
	if l.env.Countermeasures != nil && l.env.Countermeasures.Obscured(pos, l.lastPoint) {
		t := in.Now.Seconds()
		angle := valueNoise(smokeNoiseRate*t, l.env.NoiseSeed) * l.world.SmokeDeflection
		l.lastPoint = core.RotateAround(l.lastPoint, pos, in.Frame.Up(pos), angle)
	}
	return l.output(in, l.lastPoint, core.Vec3{}, true)
}

// coastTick advances the unguided-coast timer and abandons past the ceiling.
func (l *Laser) coastTick(in Input, out Output) Output {
	l.lostFor += in.Motion.Tick
	if l.lostFor > l.ceiling() {
		l.log.Debug(context.Background(), "laser guidance abandoned",
			logging.Duration("coast", l.lostFor))
		l.done = true
		return Output{Track: core.NoTrack(), Abandoned: true, ForceDetonate: true, Lost: l.acquired}
	}
	return out
}

func (l *Laser) output(in Input, point, vel core.Vec3, coasting bool) Output {
	t := core.NewTrack(in.Frame, point, vel, core.Vec3{}, 0, in.Now)
	return Output{
		Track:          t,
		AimPoint:       point,
		TargetVelocity: vel,
		Acquired:       true,
		Coasting:       coasting,
	}
}
