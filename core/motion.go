package core

import "time"

// MotionState is the munition's own kinematic state for one tick. It is owned
// by the host airframe and treated as read-only by the core.
type MotionState struct {
	Position     Vec3
	Velocity     Vec3
	Acceleration Vec3
	// Forward is the airframe's forward axis; it need not be unit length.
	Forward Vec3

	SimTime time.Duration
	Tick    time.Duration

	// RadarAltitude is the height above terrain directly below.
	RadarAltitude float64
	AtmDensity    float64
}

// TickSeconds returns the fixed tick length in seconds.
func (m MotionState) TickSeconds() float64 {
	return m.Tick.Seconds()
}

// Up returns the local vertical at the munition.
func (m MotionState) Up(frame Body) Vec3 {
	return frame.Up(m.Position)
}

// VerticalSpeed is the velocity component along local up.
func (m MotionState) VerticalSpeed(frame Body) float64 {
	return m.Velocity.Dot(m.Up(frame))
}

// HorizontalVelocity is the velocity with the vertical component removed.
func (m MotionState) HorizontalVelocity(frame Body) Vec3 {
	return m.Velocity.ProjectOnPlane(m.Up(frame))
}

// HorizontalSpeed is the magnitude of HorizontalVelocity.
func (m MotionState) HorizontalSpeed(frame Body) float64 {
	return m.HorizontalVelocity(frame).Norm()
}

// Speed is the magnitude of the velocity.
func (m MotionState) Speed() float64 {
	return m.Velocity.Norm()
}

// FuturePosition extrapolates p + v·t + ½·a·t².
func (m MotionState) FuturePosition(t float64) Vec3 {
	return m.Position.
		Add(m.Velocity.Scale(t)).
		Add(m.Acceleration.Scale(0.5 * t * t))
}

// NextPosition is the position one tick ahead using velocity only.
func (m MotionState) NextPosition() Vec3 {
	return m.Position.Add(m.Velocity.Scale(m.TickSeconds()))
}

// InVacuum reports whether the munition is outside any atmosphere.
func (m MotionState) InVacuum() bool {
	return m.AtmDensity <= 0
}

// ForwardDir returns the unit forward axis, falling back to the velocity
// direction when the airframe did not report one.
func (m MotionState) ForwardDir() Vec3 {
	if f := m.Forward.Normalized(); !f.IsZero() {
		return f
	}
	return m.Velocity.Normalized()
}
