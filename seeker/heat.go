package seeker

import (
	"context"
	"time"

	"github.com/signalsfoundry/fire-control/core"
	"github.com/signalsfoundry/fire-control/internal/logging"
	"github.com/signalsfoundry/fire-control/model"
)

const heatLockCeiling = time.Second

// Heat is a passive infrared seeker. Decoy handling belongs to the detector,
// which is handed the predicted track every look.
type Heat struct {
	def model.MunitionDefinition
	log logging.Logger

	timer     lockTimer
	target    core.Track
	predicted core.Track
	filter    core.AlphaBeta
	held      bool
	dead      bool
}

func newHeat(cfg Config) *Heat {
	return &Heat{
		def:    cfg.Definition,
		log:    cfg.Env.Log.With(logging.String("seeker", "heat")),
		timer:  timerStopped,
		target: cfg.Initial,
		held:   cfg.Initial.Exists,
		filter: core.AlphaBeta{
			Alpha: cfg.Definition.Seeker.Smoothing.Alpha,
			Beta:  cfg.Definition.Seeker.Smoothing.Beta,
		},
	}
}

func (h *Heat) Mode() model.TargetingMode { return model.TargetingHeat }

// Update runs one look.
func (h *Heat) Update(in Input) Output {
	if h.dead {
		return Output{Track: core.NoTrack()}
	}
	if !h.timer.started() {
		h.timer.start()
		h.predicted = h.target
	}

	sc := h.def.Seeker
	look := lookDirection(in, h.predicted, h.target, h.def.MaxOffBoresight)

	var out Output
	hit, ok := core.Track{}, false
	if in.Detector != nil {
		hit, ok = in.Detector.Query(core.DetectorQuery{
			Sensor:              core.SensorHeat,
			Origin:              in.Motion.Position,
			Direction:           look,
			FOVHalfAngle:        sc.LockedFOV / 2,
			Threshold:           sc.HeatThreshold,
			FOVBias:             sc.FOVBias,
			VelocityBias:        sc.VelocityBias,
			Prior:               h.predicted,
			FrontAspectModifier: sc.FrontAspectHeatModifier,
			Uncaged:             sc.Uncaged,
		})
	}

	if ok && hit.Exists {
		pos, vel := h.filter.Update(hit.Position(in.Frame), hit.Velocity, in.Motion.TickSeconds())
		if h.filter.Enabled() {
			hit = hit.WithPosition(in.Frame, pos)
			hit.Velocity = vel
		}
		h.target = hit
		h.predicted = hit
		h.held = true
		h.timer.reset()

		out.Acquired = true
		out.Track = hit
		out.AimPoint = pos.Add(vel.Scale(2 * in.Motion.TickSeconds()))
		out.TargetVelocity = vel
		out.TargetAcceleration = hit.Acceleration
	} else {
		h.timer.add(in.Motion.Tick)
		if h.timer.exceeds(heatLockCeiling) {
			h.log.Debug(context.Background(), "heat lock lost",
				logging.Duration("lock_fail", time.Duration(h.timer)))
			h.dead = true
			h.target, h.predicted = core.NoTrack(), core.NoTrack()
			h.filter.Reset()
			return Output{Track: core.NoTrack(), Lost: h.held}
		}
		if h.predicted.Exists {
			out.Coasting = true
			out.Track = h.predicted
			out.AimPoint = h.predicted.Position(in.Frame)
			out.TargetVelocity = h.predicted.Velocity
		} else {
			out.Track = core.NoTrack()
		}
	}

	h.predicted = advancePredicted(in, h.predicted)
	return out
}
