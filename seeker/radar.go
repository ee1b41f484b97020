package seeker

import (
	"context"
	"time"

	"github.com/signalsfoundry/fire-control/core"
	"github.com/signalsfoundry/fire-control/internal/logging"
	"github.com/signalsfoundry/fire-control/model"
)

const (
	// activeBoresightShare is the fraction of the gimbal limit beyond which a
	// semi-active seeker stops relying on the launcher and goes active.
	activeBoresightShare = 0.75

	relockRadius       = 40.0
	loalRelockRadius   = 500.0
	loalAcquireRadius  = 300.0
	loalSearchDistance = 500.0
	loalFOVMultiplier  = 3.0

	// maxRelocks is the number of re-activations tolerated before the seeker
	// abandons the shot.
	maxRelocks = 2

	pitbullGrace = time.Second

	// A searching LOAL seeker only re-scans every few ticks.
	activeSnapshotTicks = 10
)

// Radar is a semi-active/active radar seeker. It rides the launcher's radar
// lock until the target is inside ActiveRange and the boresight cone, then
// goes active and tracks on its own.
type Radar struct {
	def   model.MunitionDefinition
	world model.WorldSettings
	env   Env
	log   logging.Logger

	target        core.Track
	active        bool
	loalSearching bool
	timer         lockTimer
	locks         int
	snapshot      int
	startDir      core.Vec3
	done          bool
}

func newRadar(cfg Config) *Radar {
	loal := cfg.Definition.Radar.LockOnAfterLaunch
	return &Radar{
		def:           cfg.Definition,
		world:         cfg.World,
		env:           cfg.Env,
		log:           cfg.Env.Log.With(logging.String("seeker", "radar")),
		target:        cfg.Initial,
		loalSearching: loal && !cfg.Initial.Exists,
	}
}

func (r *Radar) Mode() model.TargetingMode { return model.TargetingRadar }

// Active reports whether the seeker is self-illuminating.
func (r *Radar) Active() bool { return r.active }

// ceiling is how long the seeker tolerates having no data.
func (r *Radar) ceiling() time.Duration {
	switch {
	case r.def.InertialGuidance && r.def.Radar.LockOnAfterLaunch:
		return 120 * time.Second
	case r.def.InertialGuidance:
		return 30 * time.Second
	case r.def.BasicInertialGuidance:
		return 15 * time.Second
	default:
		return 5 * time.Second
	}
}

// Update runs one radar cycle.
func (r *Radar) Update(in Input) Output {
	if r.done {
		return Output{Track: core.NoTrack()}
	}
	if r.startDir.IsZero() {
		r.startDir = in.Motion.ForwardDir()
	}

	switch {
	case r.target.Exists:
		pos := in.Motion.Position
		predicted := r.target.PredictedPosition(in.Frame, in.Now)
		toTarget := predicted.Sub(pos)
		angle := in.Motion.ForwardDir().AngleDeg(toTarget)
		activeRange := r.def.Radar.ActiveRange

		if !r.active && (toTarget.SqrNorm() > activeRange*activeRange || angle > r.def.MaxOffBoresight*activeBoresightShare) {
			return r.followFeed(in, predicted)
		}
		return r.trackActive(in, predicted, angle)
	case r.loalSearching:
		return r.searchAfterLaunch(in)
	default:
		return Output{Track: core.NoTrack()}
	}
}

// followFeed uses the launcher's lock while out of active range, dead
// reckoning through data-link dropouts until the ceiling.
func (r *Radar) followFeed(in Input, predicted core.Vec3) Output {
	if r.env.RadarFeed == nil {
		r.log.Debug(context.Background(), "semi-active guidance failed: out of range and no data feed")
		return r.lose()
	}
	if t, ok := r.env.RadarFeed.LockedTrack(r.target.SourceID); ok && t.Exists {
		r.target = t
		r.timer.reset()
		return r.acquired(in, false)
	}
	if r.timer.exceeds(r.ceiling()) {
		r.log.Debug(context.Background(), "semi-active guidance failed: launcher lost target")
		return r.lose()
	}
	if time.Duration(r.timer) == 0 {
		r.log.Debug(context.Background(), "semi-active guidance waiting for data")
	}
	r.timer.add(in.Motion.Tick)
	return r.coast(in, predicted)
}

func (r *Radar) trackActive(in Input, predicted core.Vec3, angle float64) Output {
	if angle > r.def.MaxOffBoresight {
		r.log.Debug(context.Background(), "active guidance failed: target outside gimbal limits",
			logging.Float64("off_boresight_deg", angle))
		return r.lose()
	}

	snapshot := r.snapshot > activeSnapshotTicks
	if snapshot {
		r.snapshot = 0
	} else {
		r.snapshot++
	}

	pos := in.Motion.Position
	threshold := relockRadius
	if r.loalSearching {
		threshold = loalRelockRadius
	}

	if !(r.def.Radar.LockOnAfterLaunch && r.loalSearching && !snapshot) {
		query := r.query(in, predicted.Sub(pos), r.def.Seeker.LockedFOV/2)
		for _, c := range scan(in.Detector, query) {
			if !c.Exists || !r.def.Envelope.Allows(c.Class) {
				continue
			}
			if c.PredictedPosition(in.Frame, in.Now).Sub(predicted).SqrNorm() >= threshold*threshold {
				continue
			}
			r.target = c
			r.loalSearching = false
			r.timer.reset()
			out := r.acquired(in, true)
			if !r.active && in.SinceLaunch > pitbullGrace {
				if r.locks == 0 {
					out.WentActive = r.pitbull(in, c)
				} else if r.locks > maxRelocks {
					r.log.Debug(context.Background(), "active guidance failed: too many re-locks",
						logging.Int("locks", r.locks))
					out.Abandoned = true
					r.done = true
				}
				r.locks++
			}
			r.active = true
			return out
		}
	}

	if r.def.Radar.LockOnAfterLaunch {
		r.loalSearching = true
		r.active = false
		r.timer.reset()
		return r.coast(in, predicted)
	}
	r.log.Debug(context.Background(), "active guidance failed: no target locked")
	return r.lose()
}

// searchAfterLaunch scans wide for any in-envelope contact and adopts the one
// closest to boresight. With nothing found it flies out along the launch
// direction.
func (r *Radar) searchAfterLaunch(in Input) Output {
	pos := in.Motion.Position
	forward := in.Motion.ForwardDir()
	query := r.query(in, forward, r.def.Seeker.LockedFOV*loalFOVMultiplier/2)

	var best core.Track
	bestAngle := 360.0
	for _, c := range scan(in.Detector, query) {
		if !c.Exists || !r.def.Envelope.Allows(c.Class) {
			continue
		}
		cp := c.PredictedPosition(in.Frame, in.Now)
		if r.target.Exists && cp.Sub(r.target.PredictedPosition(in.Frame, in.Now)).SqrNorm() >= loalAcquireRadius*loalAcquireRadius {
			continue
		}
		if a := forward.AngleDeg(cp.Sub(pos)); a < bestAngle {
			best, bestAngle = c, a
		}
	}

	if best.Exists {
		r.target = best
		r.loalSearching = false
		r.timer.reset()
		out := r.acquired(in, true)
		if !r.active && in.SinceLaunch > pitbullGrace {
			out.WentActive = r.pitbull(in, best)
		}
		r.active = true
		r.locks++
		return out
	}

	r.timer.add(in.Motion.Tick)
	if r.timer.exceeds(r.ceiling()) {
		r.log.Debug(context.Background(), "lock-on after launch found no target")
		r.loalSearching = false
		r.active = false
		return Output{Track: core.NoTrack()}
	}
	return Output{
		Track:    core.NoTrack(),
		AimPoint: pos.Add(r.startDir.Scale(loalSearchDistance)),
		Acquired: true,
		Coasting: true,
	}
}

func (r *Radar) query(in Input, dir core.Vec3, halfFOV float64) core.DetectorQuery {
	return core.DetectorQuery{
		Sensor:       core.SensorRadar,
		Origin:       in.Motion.Position,
		Direction:    dir,
		FOVHalfAngle: halfFOV,
		FOVBias:      r.def.Seeker.FOVBias,
		VelocityBias: r.def.Seeker.VelocityBias,
		Prior:        r.target,
	}
}

// acquired builds the output for the current target. Active tracking leads
// the aim point by one tick.
func (r *Radar) acquired(in Input, lead bool) Output {
	t := r.target
	if !t.RequireExists("radar acquired") {
		return Output{Track: core.NoTrack()}
	}
	var aim core.Vec3
	if r.def.Class == model.ClassSLW {
		aim = t.PredictedPosition(in.Frame, in.Now)
	} else {
		aim = t.PredictedPositionWithDecoy(in.Frame, r.env.decoy(r.world), r.def.ChaffEffectivity, in.Now)
		t.DecoyBiased = aim != t.PredictedPosition(in.Frame, in.Now)
	}
	if lead {
		aim = aim.Add(t.Velocity.Scale(in.Motion.TickSeconds()))
	}
	return Output{
		Track:              t,
		AimPoint:           aim,
		TargetVelocity:     t.Velocity,
		TargetAcceleration: t.Acceleration,
		Acquired:           true,
	}
}

// coast re-bases the target on its dead-reckoned position at now, so the
// aim point takes only the decoy distortion and no further velocity lead.
func (r *Radar) coast(in Input, predicted core.Vec3) Output {
	if !r.target.RequireExists("radar coast") {
		return Output{Track: core.NoTrack()}
	}
	r.target = r.target.WithPosition(in.Frame, predicted)
	r.target.TimeAcquired = in.Now

	t := r.target
	aim := t.Position(in.Frame)
	if r.def.Class != model.ClassSLW {
		aim = t.PositionWithDecoy(in.Frame, r.env.decoy(r.world), r.def.ChaffEffectivity)
		t.DecoyBiased = aim != t.Position(in.Frame)
	}
	return Output{
		Track:          t,
		AimPoint:       aim,
		TargetVelocity: t.Velocity,
		Acquired:       true,
		Coasting:       true,
	}
}

// pitbull emits the going-active radar warning.
func (r *Radar) pitbull(in Input, t core.Track) bool {
	if !t.RequireExists("radar pitbull") {
		return false
	}
	if r.env.Warnings == nil {
		return true
	}
	threat := core.ThreatMissileLaunch
	if r.def.Class == model.ClassSLW {
		threat = core.ThreatTorpedo
	}
	dir := t.PredictedPosition(in.Frame, in.Now).Sub(in.Motion.Position)
	r.env.Warnings.RadarWarning(in.Motion.Position, dir, r.def.Seeker.LockedFOV, threat)
	r.log.Debug(context.Background(), "radar seeker went active",
		logging.Float64("signal", t.SignalStrength))
	return true
}

func (r *Radar) lose() Output {
	r.target = core.NoTrack()
	r.active = false
	r.loalSearching = false
	return Output{Track: core.NoTrack(), Lost: true}
}

func scan(d core.Detector, q core.DetectorQuery) []core.Track {
	if d == nil {
		return nil
	}
	return d.Scan(q)
}
