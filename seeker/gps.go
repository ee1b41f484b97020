package seeker

import (
	"github.com/signalsfoundry/fire-control/core"
	"github.com/signalsfoundry/fire-control/model"
)

// GPS holds a fixed geographic point. A designator with eyes on the target
// may refresh it at the configured cadence; an explicit Retarget pins the
// point and stops designator updates.
type GPS struct {
	def model.MunitionDefinition
	env Env

	target   core.GeoCoord
	updated  core.Track
	acquired bool
	pinned   bool
	counter  int
}

func newGPS(cfg Config) *GPS {
	g := &GPS{def: cfg.Definition, env: cfg.Env}
	if cfg.Initial.Exists {
		g.target = cfg.Initial.Geo
		g.updated = cfg.Initial
		g.acquired = true
	}
	return g
}

func (g *GPS) Mode() model.TargetingMode { return model.TargetingGPS }

// Retarget replaces the held point.
func (g *GPS) Retarget(target core.GeoCoord) {
	g.target = target
	g.acquired = true
	g.pinned = true
	g.updated = core.Track{Geo: target, Exists: true, TimeAcquired: g.updated.TimeAcquired}
}

// Update refreshes the point if due and reports it.
func (g *GPS) Update(in Input) Output {
	if g.shouldRefresh(in) {
		pos := g.env.Designator.TargetPosition()
		g.updated = core.NewTrack(in.Frame, pos, core.Vec3{}, core.Vec3{}, 0, in.Now)
		g.target = g.updated.Geo
		g.acquired = true
	}
	if !g.acquired {
		return Output{Track: core.NoTrack()}
	}
	return Output{
		Track:    g.updated,
		AimPoint: in.Frame.ToWorld(g.target),
		Acquired: true,
	}
}

// shouldRefresh applies the update cadence: negative intervals disable
// updates, zero updates every tick, otherwise once per elapsed interval.
func (g *GPS) shouldRefresh(in Input) bool {
	if g.pinned || g.env.Designator == nil {
		return false
	}
	interval := g.def.GPS.Interval()
	if interval < 0 || !g.env.Designator.CanSeeTarget() {
		return false
	}
	if interval == 0 {
		return true
	}
	due := float64(in.SinceLaunch) / float64(interval)
	if due > float64(g.counter) {
		g.counter++
		return true
	}
	return false
}
