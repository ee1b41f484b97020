package seeker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/fire-control/core"
	"github.com/signalsfoundry/fire-control/model"
)

func TestSignalFactorSaturates(t *testing.T) {
	assert.InDelta(t, 1400.0*1400/(300*300), signalFactor(0), 1e-12)
	assert.InDelta(t, 1400.0*1400/(300*300), signalFactor(100*100), 1e-12)
	assert.InDelta(t, 1.96, signalFactor(1000*1000), 1e-12)
	assert.InDelta(t, 1400.0*1400/(6000*6000), signalFactor(1e12), 1e-12)
}

func TestLockTimer(t *testing.T) {
	timer := timerStopped
	assert.False(t, timer.started())
	assert.False(t, timer.exceeds(0), "a stopped timer never expires")

	timer.add(300 * time.Millisecond)
	assert.True(t, timer.started())
	assert.Equal(t, lockTimer(300*time.Millisecond), timer)
	assert.True(t, timer.exceeds(200*time.Millisecond))
	assert.False(t, timer.exceeds(300*time.Millisecond))

	timer.reset()
	assert.Equal(t, lockTimer(0), timer)
	timer.start()
	assert.Equal(t, lockTimer(0), timer, "start keeps a running timer")
}

func TestValueNoise(t *testing.T) {
	distinct := false
	for i := range 200 {
		x := float64(i) * 0.137
		v := valueNoise(x, 42)
		require.GreaterOrEqual(t, v, -1.0)
		require.LessOrEqual(t, v, 1.0)
		require.Equal(t, v, valueNoise(x, 42), "noise must be deterministic")
		if v != valueNoise(x, 43) {
			distinct = true
		}
	}
	assert.True(t, distinct, "different seeds give different sequences")
	assert.Equal(t, lattice(3, 9), valueNoise(3, 9), "lattice points are hit exactly")
}

func TestLookDirectionFallsBackToVelocity(t *testing.T) {
	m := flight(radarTick, time.Second)
	m.Velocity = core.Vec3{X: 200, Y: 10}
	dir := lookDirection(input(m, time.Second, nil), core.NoTrack(), core.NoTrack(), 360)
	assert.Equal(t, m.Velocity, dir)
}

func TestLookDirectionLeadsFreshTrack(t *testing.T) {
	m := flight(radarTick, time.Second)
	fresh := airTrack(core.Vec3{X: 1000}, core.Vec3{Y: 500}, time.Second)
	dir := lookDirection(input(m, time.Second, nil), core.NoTrack(), fresh, 360)
	assert.InDelta(t, 1000, dir.X, 1e-3)
	assert.InDelta(t, 10, dir.Y, 1e-3)
}

func TestAdvancePredictedScalesSignal(t *testing.T) {
	m := flight(time.Second, time.Second)
	predicted := airTrack(core.Vec3{X: 3000}, core.Vec3{}, 0)
	next := advancePredicted(input(m, time.Second, nil), predicted)

	// Closing 300 m on a stationary target one second out.
	want := 50 * signalFactor(2700*2700) / signalFactor(3000*3000)
	assert.InDelta(t, want, next.SignalStrength, 1e-6)
	assert.False(t, advancePredicted(input(m, time.Second, nil), core.NoTrack()).Exists)
}

func TestNewDispatchesOnTargeting(t *testing.T) {
	cases := []struct {
		mode model.TargetingMode
		env  Env
	}{
		{model.TargetingNone, Env{}},
		{model.TargetingRadar, Env{}},
		{model.TargetingHeat, Env{}},
		{model.TargetingLaser, Env{Illuminator: &fakeIlluminator{}}},
		{model.TargetingGPS, Env{}},
		{model.TargetingAntiRad, Env{}},
	}
	for _, tc := range cases {
		t.Run(tc.mode.String(), func(t *testing.T) {
			s, err := New(Config{Definition: definition(tc.mode), Env: tc.env})
			require.NoError(t, err)
			assert.Equal(t, tc.mode, s.Mode())
		})
	}

	_, err := New(Config{Definition: definition(model.TargetingMode(42))})
	require.ErrorIs(t, err, model.ErrInvalidDefinition)
}

func TestUnguidedNeverAcquires(t *testing.T) {
	s, err := New(Config{Definition: definition(model.TargetingNone)})
	require.NoError(t, err)
	out := s.Update(input(flight(radarTick, time.Second), time.Second, &fakeDetector{}))
	assert.False(t, out.HasAim())
	assert.False(t, out.Track.Exists)
}
