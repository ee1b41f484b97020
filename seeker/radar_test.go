package seeker

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/fire-control/core"
	"github.com/signalsfoundry/fire-control/model"
)

const radarTick = 20 * time.Millisecond

func newTestRadar(t *testing.T, def model.MunitionDefinition, env Env, initial core.Track) *Radar {
	t.Helper()
	s, err := New(Config{Definition: def, World: model.DefaultWorldSettings(), Env: env, Initial: initial})
	require.NoError(t, err)
	r, ok := s.(*Radar)
	require.True(t, ok, "expected *Radar, got %T", s)
	return r
}

func TestRadarDefersToFeedOutsideActiveRange(t *testing.T) {
	def := definition(model.TargetingRadar)
	feed := &fakeFeed{track: airTrack(core.Vec3{X: 19990}, core.Vec3{}, 0), ok: true}
	warn := &fakeWarnings{}
	det := &fakeDetector{}
	r := newTestRadar(t, def, Env{RadarFeed: feed, Warnings: warn}, airTrack(core.Vec3{X: 20000}, core.Vec3{}, 0))

	out := r.Update(input(flight(radarTick, 2*time.Second), 2*time.Second, det))

	require.True(t, out.Acquired)
	assert.False(t, out.WentActive)
	assert.False(t, r.Active())
	assert.Empty(t, warn.got, "no radar warning before going active")
	assert.Empty(t, det.scans, "seeker must not self-illuminate")
	assert.Equal(t, 1, feed.calls)
	assert.InDelta(t, 19990, out.AimPoint.X, 1e-3)
}

func TestRadarOutOfRangeWithoutFeedIsLost(t *testing.T) {
	def := definition(model.TargetingRadar)
	r := newTestRadar(t, def, Env{}, airTrack(core.Vec3{X: 20000}, core.Vec3{}, 0))

	out := r.Update(input(flight(radarTick, time.Second), time.Second, &fakeDetector{}))
	assert.True(t, out.Lost)
	assert.False(t, out.Acquired)
	assert.False(t, out.Track.Exists)

	out = r.Update(input(flight(radarTick, time.Second+radarTick), time.Second, &fakeDetector{}))
	assert.False(t, out.Lost, "loss is reported once")
}

func TestRadarFeedDropoutDeadReckonsUntilCeiling(t *testing.T) {
	def := definition(model.TargetingRadar)
	feed := &fakeFeed{ok: false}
	r := newTestRadar(t, def, Env{RadarFeed: feed}, airTrack(core.Vec3{X: 20000}, core.Vec3{}, 0))

	now := time.Duration(0)
	for i := 1; i <= 251; i++ {
		now += radarTick
		out := r.Update(input(flight(radarTick, now), now, &fakeDetector{}))
		require.False(t, out.Lost, "tick %d", i)
		require.True(t, out.Coasting, "tick %d", i)
		require.InDelta(t, 20000, out.AimPoint.X, 1e-3)
	}
	now += radarTick
	out := r.Update(input(flight(radarTick, now), now, &fakeDetector{}))
	assert.True(t, out.Lost, "5 s default ceiling exceeded")
}

func TestRadarCeilings(t *testing.T) {
	cases := []struct {
		name                  string
		inertial, basic, loal bool
		want                  time.Duration
	}{
		{"default", false, false, false, 5 * time.Second},
		{"basic inertial", false, true, false, 15 * time.Second},
		{"inertial", true, false, false, 30 * time.Second},
		{"inertial loal", true, true, true, 120 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := definition(model.TargetingRadar)
			def.InertialGuidance = tc.inertial
			def.BasicInertialGuidance = tc.basic
			def.Radar.LockOnAfterLaunch = tc.loal
			r := newTestRadar(t, def, Env{}, core.NoTrack())
			assert.Equal(t, tc.want, r.ceiling())
		})
	}
}

func TestRadarGoesActiveOnceInRange(t *testing.T) {
	def := definition(model.TargetingRadar)
	warn := &fakeWarnings{}
	det := &fakeDetector{candidates: []core.Track{airTrack(core.Vec3{X: 3010}, core.Vec3{}, 0)}}
	r := newTestRadar(t, def, Env{Warnings: warn}, airTrack(core.Vec3{X: 3000}, core.Vec3{}, 0))

	out := r.Update(input(flight(radarTick, 2*time.Second), 2*time.Second, det))
	require.True(t, out.Acquired)
	assert.True(t, out.WentActive)
	assert.True(t, r.Active())
	require.Len(t, warn.got, 1)
	assert.Equal(t, core.ThreatMissileLaunch, warn.got[0].threat)
	assert.Equal(t, def.Seeker.LockedFOV, warn.got[0].fov)
	require.Len(t, det.scans, 1)
	assert.InDelta(t, def.Seeker.LockedFOV/2, det.scans[0].FOVHalfAngle, 1e-12)

	out = r.Update(input(flight(radarTick, 2*time.Second+radarTick), 2*time.Second+radarTick, det))
	assert.True(t, out.Acquired)
	assert.False(t, out.WentActive)
	assert.Len(t, warn.got, 1)
}

func TestRadarSeaSkimmerUsesTorpedoThreat(t *testing.T) {
	def := definition(model.TargetingRadar)
	def.Class = model.ClassSLW
	warn := &fakeWarnings{}
	det := &fakeDetector{candidates: []core.Track{airTrack(core.Vec3{X: 3000}, core.Vec3{}, 0)}}
	r := newTestRadar(t, def, Env{Warnings: warn}, airTrack(core.Vec3{X: 3000}, core.Vec3{}, 0))

	r.Update(input(flight(radarTick, 2*time.Second), 2*time.Second, det))
	require.Len(t, warn.got, 1)
	assert.Equal(t, core.ThreatTorpedo, warn.got[0].threat)
}

func TestRadarNoWarningDuringLaunchGrace(t *testing.T) {
	def := definition(model.TargetingRadar)
	warn := &fakeWarnings{}
	det := &fakeDetector{candidates: []core.Track{airTrack(core.Vec3{X: 3000}, core.Vec3{}, 0)}}
	r := newTestRadar(t, def, Env{Warnings: warn}, airTrack(core.Vec3{X: 3000}, core.Vec3{}, 0))

	out := r.Update(input(flight(radarTick, 500*time.Millisecond), 500*time.Millisecond, det))
	assert.True(t, out.Acquired)
	assert.False(t, out.WentActive)
	assert.True(t, r.Active())
	assert.Empty(t, warn.got)
}

func TestRadarRejectsDistantCandidates(t *testing.T) {
	def := definition(model.TargetingRadar)
	det := &fakeDetector{candidates: []core.Track{airTrack(core.Vec3{X: 3100}, core.Vec3{}, 0)}}
	r := newTestRadar(t, def, Env{}, airTrack(core.Vec3{X: 3000}, core.Vec3{}, 0))

	out := r.Update(input(flight(radarTick, 2*time.Second), 2*time.Second, det))
	assert.True(t, out.Lost, "100 m away is outside the 40 m re-acquisition gate")
}

func TestRadarOutsideGimbalWhileActiveIsLost(t *testing.T) {
	def := definition(model.TargetingRadar)
	def.MaxOffBoresight = 45
	det := &fakeDetector{candidates: []core.Track{airTrack(core.Vec3{X: 3000}, core.Vec3{}, 0)}}
	r := newTestRadar(t, def, Env{}, airTrack(core.Vec3{X: 3000}, core.Vec3{}, 0))

	out := r.Update(input(flight(radarTick, 2*time.Second), 2*time.Second, det))
	require.True(t, out.Acquired)

	turned := flight(radarTick, 2*time.Second+radarTick)
	turned.Forward = core.Vec3{X: -1}
	out = r.Update(input(turned, 2*time.Second, det))
	assert.True(t, out.Lost)
}

func TestRadarAbandonsAfterRepeatedRelocks(t *testing.T) {
	def := definition(model.TargetingRadar)
	def.Radar.LockOnAfterLaunch = true
	warn := &fakeWarnings{}
	candidate := airTrack(core.Vec3{X: 3000}, core.Vec3{}, 0)
	det := &fakeDetector{}
	r := newTestRadar(t, def, Env{Warnings: warn}, candidate)

	present := true
	abandoned := 0
	locks := 0
	now := 2 * time.Second
	for i := 0; i < 200; i++ {
		det.candidates = nil
		if present {
			det.candidates = []core.Track{candidate}
		}
		now += radarTick
		out := r.Update(input(flight(radarTick, now), now, det))
		if out.Abandoned {
			abandoned++
		}
		fresh := out.Acquired && !out.Coasting
		if fresh {
			locks++
		}
		present = !fresh
	}

	assert.Equal(t, 1, abandoned)
	assert.Equal(t, 4, locks, "abandon on the fourth activation")
	assert.Len(t, warn.got, 1, "only the first activation emits a warning")
}

func TestRadarLockOnAfterLaunchPicksSmallestAngle(t *testing.T) {
	def := definition(model.TargetingRadar)
	def.Radar.LockOnAfterLaunch = true
	def.Envelope = model.EngagementEnvelope{Air: true}
	ground := airTrack(core.Vec3{X: 5000}, core.Vec3{}, 0)
	ground.Class = core.ClassGround
	wide := airTrack(core.Vec3{X: 5000, Y: 500}, core.Vec3{}, 0)
	narrow := airTrack(core.Vec3{X: 5000, Y: 100}, core.Vec3{}, 0)
	det := &fakeDetector{candidates: []core.Track{ground, wide, narrow}}
	warn := &fakeWarnings{}
	r := newTestRadar(t, def, Env{Warnings: warn}, core.NoTrack())

	out := r.Update(input(flight(radarTick, 2*time.Second), 2*time.Second, det))

	require.True(t, out.Acquired)
	assert.False(t, out.Coasting)
	assert.True(t, out.WentActive)
	assert.InDelta(t, 100, out.Track.Position(testFrame).Y, 1e-3)
	require.Len(t, det.scans, 1)
	assert.InDelta(t, def.Seeker.LockedFOV*3/2, det.scans[0].FOVHalfAngle, 1e-12)
}

func TestRadarLockOnAfterLaunchSearchesAlongLaunchDirection(t *testing.T) {
	def := definition(model.TargetingRadar)
	def.Radar.LockOnAfterLaunch = true
	r := newTestRadar(t, def, Env{}, core.NoTrack())

	out := r.Update(input(flight(radarTick, time.Second), time.Second, &fakeDetector{}))
	require.True(t, out.HasAim())
	assert.True(t, out.Coasting)
	assert.False(t, out.Track.Exists)
	assert.InDelta(t, 500, out.AimPoint.X, 1e-9)
}

func TestRadarNoLockNoLOALIsIdle(t *testing.T) {
	def := definition(model.TargetingRadar)
	r := newTestRadar(t, def, Env{}, core.NoTrack())
	out := r.Update(input(flight(radarTick, time.Second), time.Second, &fakeDetector{}))
	assert.False(t, out.HasAim())
	assert.False(t, out.Lost)
}

func TestRadarMarksDecoyBiasedAim(t *testing.T) {
	cases := []struct {
		name   string
		chaff  float64
		biased bool
	}{
		{"chaff deceives", 0, true},
		{"no countermeasures", 1, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := Env{
				Countermeasures: fakeCountermeasures{chaff: tc.chaff, sig: 10},
				Rand:            rand.New(rand.NewPCG(7, 8)),
			}
			det := &fakeDetector{candidates: []core.Track{airTrack(core.Vec3{X: 3010}, core.Vec3{}, 0)}}
			r := newTestRadar(t, definition(model.TargetingRadar), env, airTrack(core.Vec3{X: 3000}, core.Vec3{}, 0))

			out := r.Update(input(flight(radarTick, 2*time.Second), 2*time.Second, det))
			require.True(t, out.Acquired)
			assert.Equal(t, tc.biased, out.Track.DecoyBiased)
		})
	}
}

func TestRadarCoastingAimsWithDistortionOnly(t *testing.T) {
	env := Env{
		RadarFeed:       &fakeFeed{ok: false},
		Countermeasures: fakeCountermeasures{chaff: 0, sig: 10},
		Rand:            rand.New(rand.NewPCG(9, 10)),
	}
	r := newTestRadar(t, definition(model.TargetingRadar), env, airTrack(core.Vec3{X: 20000}, core.Vec3{Y: 100}, 0))

	now := time.Second
	out := r.Update(input(flight(radarTick, now), now, &fakeDetector{}))

	require.True(t, out.Coasting)
	assert.True(t, out.Track.DecoyBiased)
	pos := out.Track.Position(testFrame)
	assert.InDelta(t, 100, pos.Y, 1e-3, "track re-based at the dead-reckoned position")
	predicted := out.Track.PredictedPosition(testFrame, now)
	assert.InDelta(t, pos.Y, predicted.Y, 1e-6, "a re-based track carries no further lead")
	assert.NotEqual(t, pos, out.AimPoint, "distortion is applied to the aim point")
}
