package seeker

import (
	"context"
	"time"

	"github.com/signalsfoundry/fire-control/core"
	"github.com/signalsfoundry/fire-control/internal/logging"
	"github.com/signalsfoundry/fire-control/model"
)

const antiRadCeiling = 8 * time.Second

// AntiRad is a passive anti-radiation seeker. It never queries the detector;
// radar pings addressed to this munition move the aim point, and without
// fresh pings the lock times out.
type AntiRad struct {
	def      model.MunitionDefinition
	log      logging.Logger
	vesselID string

	target   core.GeoCoord
	hasPoint bool
	acquired bool
	timer    lockTimer

	// Pose from the last update, used to vet pings between ticks.
	updated  bool
	frame    core.Body
	position core.Vec3
	forward  core.Vec3
	now      time.Duration
}

func newAntiRad(cfg Config) *AntiRad {
	a := &AntiRad{
		def:      cfg.Definition,
		log:      cfg.Env.Log.With(logging.String("seeker", "antirad")),
		vesselID: cfg.VesselID,
		timer:    timerStopped,
	}
	if cfg.Initial.Exists {
		a.target = cfg.Initial.Geo
		a.hasPoint = true
		a.acquired = true
	}
	return a
}

func (a *AntiRad) Mode() model.TargetingMode { return model.TargetingAntiRad }

// ReceivePing adopts a ping's origin as the new aim point when it is meant
// for this munition, close to the current aim point and inside boresight.
func (a *AntiRad) ReceivePing(origin core.Vec3, _ core.ThreatType, vesselID string) bool {
	if !a.updated || !a.acquired || vesselID != a.vesselID {
		return false
	}
	aim := a.frame.ToWorld(a.target)
	limit := a.def.MaxStaticLaunchRange / 4
	if origin.Sub(aim).SqrNorm() >= limit*limit {
		return false
	}
	if a.forward.AngleDeg(origin.Sub(a.position)) >= a.def.MaxOffBoresight {
		return false
	}
	a.log.Debug(context.Background(), "radar ping adopted",
		logging.Float64("shift_m", origin.DistanceTo(aim)))
	a.target = a.frame.ToGeo(origin)
	a.timer.reset()
	return true
}

// Update advances the lock timer and reports the held emitter position.
func (a *AntiRad) Update(in Input) Output {
	a.updated = true
	a.frame = in.Frame
	a.position = in.Motion.Position
	a.forward = in.Motion.ForwardDir()
	a.now = in.Now

	var out Output
	if a.acquired {
		a.timer.add(in.Motion.Tick)
		if a.timer.exceeds(antiRadCeiling) {
			a.log.Debug(context.Background(), "anti-radiation lock timed out")
			a.acquired = false
			out.Lost = true
		}
	}
	if !a.hasPoint || !a.acquired {
		out.Track = core.NoTrack()
		return out
	}
	aim := in.Frame.ToWorld(a.target)
	out.Track = core.Track{Geo: a.target, Exists: true, TimeAcquired: a.now}
	out.AimPoint = aim
	out.Acquired = true
	return out
}
