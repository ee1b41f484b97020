package seeker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/fire-control/core"
	"github.com/signalsfoundry/fire-control/model"
)

const laserTick = 100 * time.Millisecond

func newTestLaser(t *testing.T, def model.MunitionDefinition, world model.WorldSettings, env Env) *Laser {
	t.Helper()
	s, err := New(Config{Definition: def, World: world, Env: env})
	require.NoError(t, err)
	l, ok := s.(*Laser)
	require.True(t, ok, "expected *Laser, got %T", s)
	return l
}

func TestLaserRequiresIlluminator(t *testing.T) {
	_, err := New(Config{Definition: definition(model.TargetingLaser)})
	require.ErrorIs(t, err, ErrMissingCollaborator)
}

func TestLaserFollowsSpotVelocity(t *testing.T) {
	ill := &fakeIlluminator{spot: core.Vec3{X: 1000}, ok: true}
	l := newTestLaser(t, definition(model.TargetingLaser), model.DefaultWorldSettings(), Env{Illuminator: ill})

	ill.spot = core.Vec3{X: 1010}
	out := l.Update(input(flight(laserTick, time.Second), time.Second, nil))

	require.True(t, out.Acquired)
	assert.False(t, out.Coasting)
	assert.Equal(t, core.Vec3{X: 1010}, out.AimPoint)
	assert.InDelta(t, 100, out.TargetVelocity.X, 1e-9)
}

func TestLaserHoldsLastPointWhenSpotLost(t *testing.T) {
	ill := &fakeIlluminator{spot: core.Vec3{X: 1000}, ok: true}
	l := newTestLaser(t, definition(model.TargetingLaser), model.DefaultWorldSettings(), Env{Illuminator: ill})

	l.Update(input(flight(laserTick, time.Second), time.Second, nil))
	ill.ok = false
	out := l.Update(input(flight(laserTick, time.Second+laserTick), time.Second, nil))

	require.True(t, out.Acquired)
	assert.True(t, out.Coasting)
	assert.Equal(t, core.Vec3{X: 1000}, out.AimPoint)
	assert.Equal(t, core.Vec3{}, out.TargetVelocity)
}

func TestLaserSmokeDeflectsHeldPoint(t *testing.T) {
	ill := &fakeIlluminator{spot: core.Vec3{X: 1000}, ok: true}
	world := model.WorldSettings{DecoyStrength: 1, SmokeDeflection: 30}
	env := Env{
		Illuminator:     ill,
		Countermeasures: fakeCountermeasures{obscured: true},
		NoiseSeed:       7,
	}
	l := newTestLaser(t, definition(model.TargetingLaser), world, env)
	ill.ok = false

	now := 2 * time.Second
	out := l.Update(input(flight(laserTick, now), now, nil))

	angle := valueNoise(smokeNoiseRate*now.Seconds(), 7) * 30
	want := core.RotateAround(core.Vec3{X: 1000}, core.Vec3{}, testFrame.Up(core.Vec3{}), angle)
	require.True(t, out.Coasting)
	assert.InDelta(t, want.X, out.AimPoint.X, 1e-9)
	assert.InDelta(t, want.Y, out.AimPoint.Y, 1e-9)
	assert.InDelta(t, 1000, out.AimPoint.Norm(), 1e-9, "deflection is a rotation about local up")
}

func TestLaserAbandonsAfterCeiling(t *testing.T) {
	ill := &fakeIlluminator{spot: core.Vec3{X: 1000}, ok: true}
	l := newTestLaser(t, definition(model.TargetingLaser), model.DefaultWorldSettings(), Env{Illuminator: ill})
	ill.ok = false

	now := time.Duration(0)
	for i := 1; i <= 50; i++ {
		now += laserTick
		out := l.Update(input(flight(laserTick, now), now, nil))
		require.False(t, out.Abandoned, "tick %d", i)
		require.True(t, out.Coasting, "tick %d", i)
	}
	now += laserTick
	out := l.Update(input(flight(laserTick, now), now, nil))
	assert.True(t, out.Abandoned)
	assert.True(t, out.ForceDetonate)
	assert.True(t, out.Lost)
	assert.False(t, out.HasAim())

	ill.ok = true
	out = l.Update(input(flight(laserTick, now+laserTick), now+laserTick, nil))
	assert.False(t, out.Acquired, "abandoned seeker stays down")
	assert.False(t, out.Abandoned)
}

func TestLaserAcquiresLateSpot(t *testing.T) {
	ill := &fakeIlluminator{}
	l := newTestLaser(t, definition(model.TargetingLaser), model.DefaultWorldSettings(), Env{Illuminator: ill})

	out := l.Update(input(flight(laserTick, time.Second), time.Second, nil))
	assert.False(t, out.HasAim())

	ill.spot, ill.ok = core.Vec3{X: 800, Y: 50}, true
	out = l.Update(input(flight(laserTick, time.Second+laserTick), time.Second, nil))
	require.True(t, out.Acquired)
	assert.Equal(t, core.Vec3{X: 800, Y: 50}, out.AimPoint)
	assert.Equal(t, core.Vec3{}, out.TargetVelocity)
}

func TestLaserCeilings(t *testing.T) {
	ill := &fakeIlluminator{}
	cases := []struct {
		name            string
		inertial, basic bool
		want            time.Duration
	}{
		{"plain", false, false, 5 * time.Second},
		{"basic inertial", false, true, 15 * time.Second},
		{"inertial", true, false, 60 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := definition(model.TargetingLaser)
			def.InertialGuidance = tc.inertial
			def.BasicInertialGuidance = tc.basic
			l := newTestLaser(t, def, model.DefaultWorldSettings(), Env{Illuminator: ill})
			assert.Equal(t, tc.want, l.ceiling())
		})
	}
}
