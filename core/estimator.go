package core

// AlphaBeta is a fixed-gain position/velocity estimator whose state is
// carried across ticks. A zero Alpha disables filtering: Update then returns
// the measurement unchanged.
type AlphaBeta struct {
	Alpha float64
	Beta  float64

	pos, vel Vec3
	primed   bool
}

// Enabled reports whether the filter does anything.
func (f *AlphaBeta) Enabled() bool {
	return f != nil && f.Alpha > 0
}

// Reset drops the carried state; the next measurement re-primes the filter.
func (f *AlphaBeta) Reset() {
	f.pos, f.vel, f.primed = Vec3{}, Vec3{}, false
}

// Update folds one measurement taken dt seconds after the previous one and
// returns the filtered position and velocity.
func (f *AlphaBeta) Update(measuredPos, measuredVel Vec3, dt float64) (Vec3, Vec3) {
	if !f.Enabled() || dt <= 0 {
		return measuredPos, measuredVel
	}
	if !f.primed {
		f.pos, f.vel, f.primed = measuredPos, measuredVel, true
		return f.pos, f.vel
	}
	predicted := f.pos.Add(f.vel.Scale(dt))
	residual := measuredPos.Sub(predicted)
	f.pos = predicted.Add(residual.Scale(f.Alpha))
	f.vel = f.vel.Add(residual.Scale(f.Beta / dt))
	return f.pos, f.vel
}
