package seeker

import (
	"time"

	"github.com/signalsfoundry/fire-control/core"
	"github.com/signalsfoundry/fire-control/model"
)

const earthRadius = 6371000.0

// testFrame puts the world origin on the surface with +Z up.
var testFrame = core.Body{Center: core.Vec3{Z: -earthRadius}, Radius: earthRadius}

type fakeDetector struct {
	best       core.Track
	hasBest    bool
	candidates []core.Track
	queries    []core.DetectorQuery
	scans      []core.DetectorQuery
}

func (d *fakeDetector) Query(q core.DetectorQuery) (core.Track, bool) {
	d.queries = append(d.queries, q)
	return d.best, d.hasBest
}

func (d *fakeDetector) Scan(q core.DetectorQuery) []core.Track {
	d.scans = append(d.scans, q)
	return d.candidates
}

type fakeFeed struct {
	track core.Track
	ok    bool
	calls int
}

func (f *fakeFeed) LockedTrack(string) (core.Track, bool) {
	f.calls++
	return f.track, f.ok
}

type warning struct {
	origin, dir core.Vec3
	fov         float64
	threat      core.ThreatType
}

type fakeWarnings struct{ got []warning }

func (w *fakeWarnings) RadarWarning(origin, dir core.Vec3, fov float64, threat core.ThreatType) {
	w.got = append(w.got, warning{origin, dir, fov, threat})
}

type fakeIlluminator struct {
	spot core.Vec3
	ok   bool
}

func (i *fakeIlluminator) Spot() (core.Vec3, bool) { return i.spot, i.ok }

type fakeCountermeasures struct {
	chaff    float64
	jammer   float64
	sig      float64
	obscured bool
}

func (c fakeCountermeasures) ChaffFactor(string) float64    { return c.chaff }
func (c fakeCountermeasures) JammerStrength(string) float64 { return c.jammer }
func (c fakeCountermeasures) RadarSignature(string) float64 { return c.sig }
func (c fakeCountermeasures) Obscured(_, _ core.Vec3) bool  { return c.obscured }

type fakeDesignator struct {
	visible bool
	pos     core.Vec3
	reads   int
}

func (d *fakeDesignator) CanSeeTarget() bool { return d.visible }
func (d *fakeDesignator) TargetPosition() core.Vec3 {
	d.reads++
	return d.pos
}

// flight returns a munition at the origin flying +X at 300 m/s.
func flight(tick time.Duration, now time.Duration) core.MotionState {
	return core.MotionState{
		Position: core.Vec3{},
		Velocity: core.Vec3{X: 300},
		Forward:  core.Vec3{X: 1},
		SimTime:  now,
		Tick:     tick,
	}
}

func input(m core.MotionState, sinceLaunch time.Duration, d core.Detector) Input {
	return Input{Motion: m, Frame: testFrame, Now: m.SimTime, SinceLaunch: sinceLaunch, Detector: d}
}

func airTrack(pos, vel core.Vec3, now time.Duration) core.Track {
	t := core.NewTrack(testFrame, pos, vel, core.Vec3{}, 50, now)
	t.Class = core.ClassAir
	t.SourceID = "bandit"
	return t
}

func definition(mode model.TargetingMode) model.MunitionDefinition {
	return model.MunitionDefinition{
		Name:               "test",
		Targeting:          mode,
		Guidance:           model.GuidanceLead,
		BlastRadius:        20,
		DetonationDistance: model.AutoDetonationDistance,
	}.ApplyDefaults()
}
