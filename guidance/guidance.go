// Package guidance turns the seeker's aim point into a steering target and a
// throttle command. Cruise munitions run a flight-phase state machine; the
// air-to-air and free-fall laws are stateless.
package guidance

import (
	"fmt"
	"math"
	"time"

	"github.com/signalsfoundry/fire-control/core"
	"github.com/signalsfoundry/fire-control/internal/logging"
	"github.com/signalsfoundry/fire-control/model"
)

// Phase is a guidance flight phase. Phases only ever advance.
type Phase int

const (
	PhaseAscending Phase = iota
	PhaseCruising
	PhasePopup
	PhaseTerminal
)

var phaseNames = [...]string{"ascending", "cruising", "popup", "terminal"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Input is one tick of guidance input.
type Input struct {
	Motion      core.MotionState
	Frame       core.Body
	SinceLaunch time.Duration

	// TargetPosition is the seeker's aim point; TargetVelocity the target's
	// velocity estimate.
	TargetPosition core.Vec3
	TargetVelocity core.Vec3

	// Terrain may be nil, in which case the ground is assumed flat at the
	// height implied by the motion state's radar altitude.
	Terrain core.Terrain
}

// Output is the steering command for one tick.
type Output struct {
	SteerTarget core.Vec3
	// Throttle is always within [0, 1].
	Throttle float64
}

// Law is a guidance law bound to one munition.
type Law interface {
	Mode() model.GuidanceMode
	Phase() Phase
	Steer(in Input) Output
	// ForceTerminal jumps straight to the terminal phase. Used when the
	// seeker abandons the shot.
	ForceTerminal()
}

// New builds the guidance law selected by def.Guidance.
func New(def model.MunitionDefinition, log logging.Logger) (Law, error) {
	if log == nil {
		log = logging.Noop()
	}
	switch def.Guidance {
	case model.GuidancePure:
		return &Pursuit{}, nil
	case model.GuidanceLead:
		return &Pursuit{Lead: true}, nil
	case model.GuidanceCruise:
		return NewCruise(def.Cruise, log), nil
	case model.GuidanceBomb:
		return Ballistic{}, nil
	default:
		return nil, fmt.Errorf("%w: guidance mode %v", model.ErrInvalidDefinition, def.Guidance)
	}
}

const (
	// maxLeadTime caps how far ahead an intercept point is projected.
	maxLeadTime = 8.0
	// groundLeadMinSpeed keeps slow munitions from over-leading ground
	// targets.
	groundLeadMinSpeed = 200.0
)

// alongVelocity steers ten seconds down the current flight path.
func alongVelocity(m core.MotionState) core.Vec3 {
	return m.Position.Add(m.Velocity.Scale(10))
}

// interceptPoint projects the target forward by the time the munition needs
// to cover the straight-line distance at max(speed, minSpeed).
func interceptPoint(m core.MotionState, target, targetVel core.Vec3, minSpeed float64) core.Vec3 {
	speed := math.Max(m.Speed(), minSpeed)
	if speed <= 0 {
		return target
	}
	tgo := core.Clamp(target.DistanceTo(m.Position)/speed, 0, maxLeadTime)
	return target.Add(targetVel.Scale(tgo))
}

// FreeFallTime returns the time to fall altitude metres under gravity
// starting with the given vertical speed (positive up). It takes the larger
// root of the fall-time quadratic and returns 0 when there is no real root.
func FreeFallTime(verticalSpeed, gravity, altitude float64) float64 {
	if gravity <= 0 {
		return 0
	}
	vi := -verticalSpeed
	disc := vi*vi + 2*gravity*altitude
	if disc < 0 {
		return 0
	}
	return (-vi + math.Sqrt(disc)) / gravity
}
