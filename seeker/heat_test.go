package seeker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/fire-control/core"
	"github.com/signalsfoundry/fire-control/model"
)

const heatTick = 100 * time.Millisecond

func newTestHeat(t *testing.T, def model.MunitionDefinition, initial core.Track) *Heat {
	t.Helper()
	s, err := New(Config{Definition: def, World: model.DefaultWorldSettings(), Initial: initial})
	require.NoError(t, err)
	h, ok := s.(*Heat)
	require.True(t, ok, "expected *Heat, got %T", s)
	return h
}

func TestHeatLeadsAimByTwoTicks(t *testing.T) {
	def := definition(model.TargetingHeat)
	initial := airTrack(core.Vec3{X: 1000}, core.Vec3{}, 0)
	det := &fakeDetector{best: airTrack(core.Vec3{X: 1000}, core.Vec3{Y: 100}, time.Second), hasBest: true}
	h := newTestHeat(t, def, initial)

	out := h.Update(input(flight(heatTick, time.Second), time.Second, det))

	require.True(t, out.Acquired)
	assert.False(t, out.Coasting)
	assert.InDelta(t, 1000, out.AimPoint.X, 1e-3)
	assert.InDelta(t, 20, out.AimPoint.Y, 1e-3)
	assert.Equal(t, core.Vec3{Y: 100}, out.TargetVelocity)
}

func TestHeatQueryCarriesSeekerSettings(t *testing.T) {
	def := definition(model.TargetingHeat)
	def.Seeker.LockedFOV = 4
	def.Seeker.Uncaged = true
	initial := airTrack(core.Vec3{X: 1000}, core.Vec3{}, 0)
	det := &fakeDetector{}
	h := newTestHeat(t, def, initial)

	h.Update(input(flight(heatTick, time.Second), time.Second, det))

	require.Len(t, det.queries, 1)
	q := det.queries[0]
	assert.Equal(t, core.SensorHeat, q.Sensor)
	assert.InDelta(t, 2, q.FOVHalfAngle, 1e-12)
	assert.Equal(t, def.Seeker.HeatThreshold, q.Threshold)
	assert.True(t, q.Uncaged)
	assert.True(t, q.Prior.Equal(initial), "first look uses the designated track as prior")
	assert.Empty(t, det.scans)
}

func TestHeatLosesLockAfterOneSecond(t *testing.T) {
	def := definition(model.TargetingHeat)
	h := newTestHeat(t, def, airTrack(core.Vec3{X: 1000}, core.Vec3{}, 0))
	det := &fakeDetector{}

	now := time.Duration(0)
	for i := 1; i <= 10; i++ {
		now += heatTick
		out := h.Update(input(flight(heatTick, now), now, det))
		require.False(t, out.Lost, "miss %d", i)
		require.True(t, out.Coasting, "miss %d", i)
		require.True(t, out.Track.Exists)
	}
	now += heatTick
	out := h.Update(input(flight(heatTick, now), now, det))
	assert.True(t, out.Lost)
	assert.False(t, out.Track.Exists)

	// A dead seeker no longer looks.
	det.best, det.hasBest = airTrack(core.Vec3{X: 900}, core.Vec3{}, now), true
	queries := len(det.queries)
	out = h.Update(input(flight(heatTick, now+heatTick), now+heatTick, det))
	assert.False(t, out.Acquired)
	assert.False(t, out.Lost)
	assert.Len(t, det.queries, queries)
}

func TestHeatWithoutTargetNeverReportsLost(t *testing.T) {
	def := definition(model.TargetingHeat)
	h := newTestHeat(t, def, core.NoTrack())
	det := &fakeDetector{}

	now := time.Duration(0)
	for i := 0; i < 15; i++ {
		now += heatTick
		out := h.Update(input(flight(heatTick, now), now, det))
		require.False(t, out.Lost)
		require.False(t, out.HasAim())
	}
}

func TestHeatReacquireResetsTimer(t *testing.T) {
	def := definition(model.TargetingHeat)
	h := newTestHeat(t, def, airTrack(core.Vec3{X: 1000}, core.Vec3{}, 0))
	det := &fakeDetector{}

	now := time.Duration(0)
	step := func() Output {
		now += heatTick
		return h.Update(input(flight(heatTick, now), now, det))
	}
	for range 9 {
		step()
	}
	det.best, det.hasBest = airTrack(core.Vec3{X: 1000}, core.Vec3{}, now), true
	require.True(t, step().Acquired)
	det.hasBest = false
	for i := range 10 {
		require.False(t, step().Lost, "miss %d after reacquisition", i+1)
	}
}

func TestHeatLookIsClampedToBoresight(t *testing.T) {
	def := definition(model.TargetingHeat)
	def.MaxOffBoresight = 30
	det := &fakeDetector{}
	h := newTestHeat(t, def, airTrack(core.Vec3{Y: 1000}, core.Vec3{}, 0))

	h.Update(input(flight(heatTick, time.Second), time.Second, det))

	require.Len(t, det.queries, 1)
	angle := core.Vec3{X: 1}.AngleDeg(det.queries[0].Direction)
	assert.InDelta(t, 30, angle, 1e-6)
}

func TestHeatCoastingTrackPredictsTruePosition(t *testing.T) {
	def := definition(model.TargetingHeat)
	h := newTestHeat(t, def, airTrack(core.Vec3{X: 1000}, core.Vec3{}, 0))
	det := &fakeDetector{best: airTrack(core.Vec3{X: 1000}, core.Vec3{Y: 100}, time.Second), hasBest: true}

	now := time.Second
	require.True(t, h.Update(input(flight(heatTick, now), now, det)).Acquired)

	det.hasBest = false
	var out Output
	for range 5 {
		now += heatTick
		out = h.Update(input(flight(heatTick, now), now, det))
		require.True(t, out.Coasting)
	}

	truth := core.Vec3{X: 1000, Y: 50}
	predicted := out.Track.PredictedPosition(testFrame, now)
	assert.InDelta(t, truth.X, predicted.X, 1e-3)
	assert.InDelta(t, truth.Y, predicted.Y, 1e-3, "coasting must not dead-reckon twice")
	assert.InDelta(t, truth.Y, out.AimPoint.Y, 1e-3)
}
