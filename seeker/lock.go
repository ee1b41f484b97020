package seeker

import (
	"time"

	"github.com/signalsfoundry/fire-control/core"
)

// lockTimer accumulates time since the last usable return. Negative means
// the timer has not been started.
type lockTimer time.Duration

const timerStopped lockTimer = -1

func (t lockTimer) started() bool { return t >= 0 }

func (t *lockTimer) start() {
	if *t < 0 {
		*t = 0
	}
}

func (t *lockTimer) reset() { *t = 0 }

func (t *lockTimer) add(d time.Duration) {
	t.start()
	*t += lockTimer(d)
}

func (t lockTimer) exceeds(ceiling time.Duration) bool {
	return time.Duration(t) > ceiling
}

const (
	signalReference = 1400.0 * 1400.0
	minSignalRange  = 300.0 * 300.0
	maxSignalRange  = 6000.0 * 6000.0
)

// signalFactor is the inverse-square range weighting applied to a return's
// apparent strength, saturating inside 300 m and beyond 6 km.
func signalFactor(sqrRange float64) float64 {
	return signalReference / core.Clamp(sqrRange, minSignalRange, maxSignalRange)
}

// lookDirection chooses where to point the seeker: at the predicted track
// when there is one, one tick ahead of a fresh candidate otherwise, and
// along the flight path with nothing to look at. The result never leaves
// the boresight cone.
func lookDirection(in Input, predicted, fresh core.Track, boresightDeg float64) core.Vec3 {
	pos := in.Motion.Position
	var look core.Vec3
	switch {
	case predicted.Exists:
		look = predicted.Position(in.Frame).Sub(pos)
	case fresh.Exists:
		lead := fresh.Velocity.Scale(in.Motion.TickSeconds())
		look = fresh.Position(in.Frame).Add(lead).Sub(pos)
	default:
		look = in.Motion.Velocity
	}
	if look.IsZero() {
		look = in.Motion.ForwardDir()
	}
	return core.ClampToBoresight(look, in.Motion.ForwardDir(), boresightDeg)
}

// advancePredicted dead-reckons the predicted track one tick and rescales its
// signal strength by how much closer it is expected to be next tick.
func advancePredicted(in Input, predicted core.Track) core.Track {
	if !predicted.Exists {
		return predicted
	}
	pos := in.Motion.Position
	dt := in.Motion.TickSeconds()

	current := signalFactor(predicted.Position(in.Frame).Sub(pos).SqrNorm())
	next := predicted.Advance(in.Frame, in.Motion.Tick)
	ownNext := pos.Add(in.Motion.Velocity.Scale(dt))
	future := signalFactor(next.Position(in.Frame).Sub(ownNext).SqrNorm())
	next.SignalStrength *= future / current
	return next
}
