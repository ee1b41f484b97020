package sim

import (
	"math"
	"time"

	"github.com/signalsfoundry/fire-control/core"
)

const gravity = 9.81

// Airframe is a point-mass flight model: it turns at a bounded rate towards
// the steer point and drives its speed towards throttle·MaxSpeed. With the
// throttle closed it glides under gravity.
type Airframe struct {
	cfg AirframeConfig

	Position     core.Vec3
	Velocity     core.Vec3
	Acceleration core.Vec3
}

// NewAirframe releases an airframe at pos with velocity vel.
func NewAirframe(cfg AirframeConfig, pos, vel core.Vec3) Airframe {
	return Airframe{cfg: cfg, Position: pos, Velocity: vel}
}

// Step integrates one tick of length dt.
func (a *Airframe) Step(frame core.Body, steer core.Vec3, throttle float64, dt time.Duration) {
	s := dt.Seconds()
	if s <= 0 {
		return
	}
	prev := a.Velocity
	speed := prev.Norm()

	dir := prev
	if want := steer.Sub(a.Position); !want.IsZero() {
		dir = prev.RotateTowards(want, a.cfg.TurnRate*math.Pi/180*s)
	}
	dir = dir.Normalized()

	if throttle > 0 {
		target := core.Clamp01(throttle) * a.cfg.MaxSpeed
		step := a.cfg.Acceleration * s
		speed = speed + core.Clamp(target-speed, -step, step)
	}
	vel := dir.Scale(speed)
	if throttle <= 0 {
		vel = vel.Sub(frame.Up(a.Position).Scale(gravity * s))
	}

	a.Acceleration = vel.Sub(prev).Scale(1 / s)
	a.Velocity = vel
	a.Position = a.Position.Add(vel.Scale(s))
}
