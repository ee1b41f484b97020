package guidance

import "github.com/signalsfoundry/fire-control/model"

// Pursuit is air-to-air homing at full throttle. With Lead set it steers at
// the predicted intercept point instead of the target itself.
type Pursuit struct {
	Lead bool
}

func (p *Pursuit) Mode() model.GuidanceMode {
	if p.Lead {
		return model.GuidanceLead
	}
	return model.GuidancePure
}

// Phase is always terminal: pursuit homes from launch.
func (p *Pursuit) Phase() Phase { return PhaseTerminal }

func (p *Pursuit) ForceTerminal() {}

func (p *Pursuit) Steer(in Input) Output {
	target := in.TargetPosition
	if p.Lead {
		target = interceptPoint(in.Motion, target, in.TargetVelocity, 1)
	}
	return Output{SteerTarget: target, Throttle: 1}
}

// Ballistic is an unpowered bomb that steers its fins at the aim point.
type Ballistic struct{}

func (Ballistic) Mode() model.GuidanceMode { return model.GuidanceBomb }
func (Ballistic) Phase() Phase             { return PhaseTerminal }
func (Ballistic) ForceTerminal()           {}

func (Ballistic) Steer(in Input) Output {
	return Output{SteerTarget: in.TargetPosition}
}
