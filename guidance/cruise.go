package guidance

import (
	"context"
	"math"
	"time"

	"github.com/signalsfoundry/fire-control/core"
	"github.com/signalsfoundry/fire-control/internal/logging"
	"github.com/signalsfoundry/fire-control/model"
)

// PitchDecision is the altitude-hold verdict for one tick.
type PitchDecision int

const (
	PitchHold PitchDecision = iota
	PitchAscent
	PitchDescent
	PitchEmergencyAscent
)

// ThrottleDecision is the speed-hold verdict for one tick.
type ThrottleDecision int

const (
	ThrottleHold ThrottleDecision = iota
	ThrottleIncrease
	ThrottleDecrease
)

const (
	ascentPitchStep     = 0.0055
	descentPitchStep    = 0.0025
	emergencyPitchStart = 1.5
	emergencyPitchStep  = 1.0
	emergencyPitchMax   = 100.0

	// PitchMin and PitchMax bound the pitch command outside emergency ascent.
	PitchMin = -1.5
	PitchMax = 1.5

	throttleStep  = 0.001
	speedHoldBand = 10.0

	// altitudeFloor triggers emergency ascent.
	altitudeFloor = 4.0

	popupInvG  = 1.0 / 10
	invGravity = 1.0 / core.Gravity

	cruiseSteerDistance = 10.0
	popupSteerDistance  = 50.0
)

// Cruise is the cruise-missile flight-phase state machine:
// Ascending → Cruising → (Popup →) Terminal, with Ascending allowed to skip
// straight to Popup or Terminal.
type Cruise struct {
	cfg model.CruiseConfig
	log logging.Logger

	phase         Phase
	pitch         float64
	pitchDecision PitchDecision
	throttle      float64
	throttleDec   ThrottleDecision

	primed              bool
	lastHorizontalSpeed float64
	horizontalDelta     float64
	futureSpeed         float64

	popupCos, popupSin float64
}

// NewCruise returns a cruise state machine in the Ascending phase at full
// throttle.
func NewCruise(cfg model.CruiseConfig, log logging.Logger) *Cruise {
	if log == nil {
		log = logging.Noop()
	}
	rad := cfg.PopupAngle * math.Pi / 180
	return &Cruise{
		cfg:      cfg,
		log:      log.With(logging.String("guidance", "cruise")),
		throttle: 1,
		popupCos: math.Cos(rad),
		popupSin: math.Sin(rad),
	}
}

func (c *Cruise) Mode() model.GuidanceMode           { return model.GuidanceCruise }
func (c *Cruise) Phase() Phase                       { return c.phase }
func (c *Cruise) Pitch() float64                     { return c.pitch }
func (c *Cruise) Throttle() float64                  { return c.throttle }
func (c *Cruise) PitchDecision() PitchDecision       { return c.pitchDecision }
func (c *Cruise) ThrottleDecision() ThrottleDecision { return c.throttleDec }

// ForceTerminal moves the machine to Terminal.
func (c *Cruise) ForceTerminal() { c.setPhase(PhaseTerminal) }

// Steer runs one tick of the state machine.
func (c *Cruise) Steer(in Input) Output {
	m := in.Motion
	if in.SinceLaunch < time.Second {
		return Output{SteerTarget: alongVelocity(m), Throttle: c.throttle}
	}

	up := m.Up(in.Frame)
	planar := in.TargetPosition.Sub(m.Position).ProjectOnPlane(up).Normalized()
	alt := m.RadarAltitude
	c.readTelemetry(in)

	switch c.phase {
	case PhaseAscending:
		c.updateThrottle(in)
		if c.willReachAltitude(in, alt) {
			c.pitch = 0
			c.setPhase(PhaseCruising)
			return Output{SteerTarget: alongVelocity(m), Throttle: c.throttle}
		}
		c.checkTerminal(in, up, alt)
		steer := m.Position.Add(planar.Add(up).Scale(cruiseSteerDistance))
		return Output{SteerTarget: steer, Throttle: c.throttle}

	case PhaseCruising:
		c.updatePitch(in, alt)
		c.updateThrottle(in)
		if c.pitchDecision != PitchEmergencyAscent {
			c.checkTerminal(in, up, alt)
		}
		steer := m.Position.Add(planar.Scale(cruiseSteerDistance)).Add(up.Scale(c.pitch))
		return Output{SteerTarget: steer, Throttle: c.throttle}

	case PhasePopup:
		c.throttle = densityThrottle(m)
		if alt > c.cfg.PopupAltitude {
			c.setPhase(PhaseTerminal)
		}
		dir := planar.Scale(c.popupCos).Add(up.Scale(c.popupSin))
		return Output{SteerTarget: m.Position.Add(dir.Scale(popupSteerDistance)), Throttle: c.throttle}

	default:
		c.throttle = densityThrottle(m)
		if c.cfg.OrbitCapable && m.InVacuum() {
			return Output{SteerTarget: alongVelocity(m), Throttle: c.throttle}
		}
		steer := interceptPoint(m, in.TargetPosition, in.TargetVelocity, groundLeadMinSpeed)
		return Output{SteerTarget: steer, Throttle: c.throttle}
	}
}

func (c *Cruise) setPhase(p Phase) {
	if p <= c.phase {
		return
	}
	c.log.Debug(context.Background(), "cruise phase change",
		logging.String("from", c.phase.String()),
		logging.String("to", p.String()))
	c.phase = p
}

func (c *Cruise) readTelemetry(in Input) {
	hs := in.Motion.HorizontalSpeed(in.Frame)
	if !c.primed {
		c.lastHorizontalSpeed = hs
		c.primed = true
	}
	c.horizontalDelta = hs - c.lastHorizontalSpeed
	c.lastHorizontalSpeed = hs
}

// futureSpeedAt extrapolates horizontal speed t seconds ahead from the
// last tick's change.
func (c *Cruise) futureSpeedAt(in Input, t float64) float64 {
	dt := in.Motion.TickSeconds()
	if dt <= 0 {
		return c.lastHorizontalSpeed
	}
	return c.lastHorizontalSpeed + c.horizontalDelta/dt*t
}

func (c *Cruise) updateThrottle(in Input) {
	c.futureSpeed = c.futureSpeedAt(in, c.cfg.PredictionTime)
	switch {
	case c.futureSpeed > c.cfg.Speed:
		c.throttleDec = ThrottleDecrease
	case math.Abs(c.futureSpeed-c.cfg.Speed) < speedHoldBand:
		c.throttleDec = ThrottleHold
	default:
		c.throttleDec = ThrottleIncrease
	}
	switch c.throttleDec {
	case ThrottleIncrease:
		c.throttle = core.Clamp01(c.throttle + throttleStep)
	case ThrottleDecrease:
		c.throttle = core.Clamp01(c.throttle - throttleStep)
	}
}

func (c *Cruise) updatePitch(in Input, alt float64) {
	m := in.Motion
	horizon := c.cfg.PredictionTime
	futureAlt := c.altitudeAt(in, m.FuturePosition(horizon))

	var d PitchDecision
	switch {
	case alt < altitudeFloor || c.altitudeAt(in, m.FuturePosition(1)) < altitudeFloor:
		d = PitchEmergencyAscent
	case in.Terrain != nil && in.Terrain.Obstructed(m.Position, m.Velocity, m.Speed()*horizon):
		d = PitchEmergencyAscent
	case futureAlt < c.cfg.Altitude || alt < c.cfg.Altitude:
		d = PitchAscent
	case futureAlt > c.cfg.Altitude || alt > c.cfg.Altitude:
		d = PitchDescent
	default:
		d = PitchHold
	}

	switch d {
	case PitchEmergencyAscent:
		if c.pitchDecision == PitchEmergencyAscent {
			c.pitch = core.Clamp(c.pitch+emergencyPitchStep, emergencyPitchStart, emergencyPitchMax)
		} else {
			c.log.Debug(context.Background(), "emergency ascent",
				logging.Float64("altitude", alt),
				logging.Float64("future_altitude", futureAlt))
			c.pitch = emergencyPitchStart
		}
	case PitchAscent:
		c.pitch = core.Clamp(c.pitch+ascentPitchStep, PitchMin, PitchMax)
	case PitchDescent:
		c.pitch = core.Clamp(c.pitch-descentPitchStep, PitchMin, PitchMax)
	}
	c.pitchDecision = d
}

// altitudeAt is the height above terrain at p. Without a terrain model the
// ground is taken to be level with the ground under the munition.
func (c *Cruise) altitudeAt(in Input, p core.Vec3) float64 {
	if in.Terrain != nil {
		return in.Terrain.RadarAltitudeAt(p)
	}
	ground := in.Frame.Altitude(in.Motion.Position) - in.Motion.RadarAltitude
	return in.Frame.Altitude(p) - ground
}

// willReachAltitude reports whether the ballistic apex clears cruise
// altitude.
func (c *Cruise) willReachAltitude(in Input, alt float64) bool {
	apex := alt
	if vs := in.Motion.VerticalSpeed(in.Frame); vs > 0 {
		apex += vs * vs / (2 * core.Gravity)
	}
	return apex > c.cfg.Altitude
}

// checkTerminal decides whether to leave cruise for Popup or Terminal.
func (c *Cruise) checkTerminal(in Input, up core.Vec3, alt float64) bool {
	m := in.Motion
	surface := m.Position.Add(in.TargetPosition.Sub(m.Position).Project(up.Scale(-1)))
	distance := surface.DistanceTo(in.TargetPosition)

	if c.cfg.Popup {
		if distance >= c.cfg.PopupRange+c.futureSpeed*c.cfg.PredictionTime {
			return false
		}
		a := m.ForwardDir().Dot(up)
		climb := c.cfg.PopupAngle*math.Pi/180 - math.Acos(core.Clamp(a, -1, 1))
		c.futureSpeed = c.futureSpeedAt(in, climb*c.lastHorizontalSpeed*popupInvG*invGravity)
		turnDist := c.futureSpeed * c.futureSpeed * popupInvG * invGravity * (c.popupSin - a)
		c.throttle = 1
		if distance < c.cfg.PopupRange+turnDist {
			c.setPhase(PhasePopup)
			return true
		}
		return false
	}

	fall := FreeFallTime(m.VerticalSpeed(in.Frame), core.Gravity, alt)
	if distance < fall*c.lastHorizontalSpeed {
		c.setPhase(PhaseTerminal)
		return true
	}
	return false
}

// densityThrottle scales thrust with air density, keeping a floor so the
// airframe never assumes zero thrust above the atmosphere.
func densityThrottle(m core.MotionState) float64 {
	return core.Clamp(10*m.AtmDensity, 0.01, 1)
}
