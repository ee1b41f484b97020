// Package fuse implements the detonation state machine: safe separation from
// the launcher, cruise, fine-grained proximity checking and detonation.
package fuse

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/signalsfoundry/fire-control/core"
	"github.com/signalsfoundry/fire-control/internal/logging"
	"github.com/signalsfoundry/fire-control/model"
)

// ErrNoCollision is returned by New without a collision service.
var ErrNoCollision = errors.New("fuse: collision service is required")

// Phase is the fuse state. Phases only ever advance.
type Phase int

const (
	PhaseNotSafe Phase = iota
	PhaseCruising
	PhaseCheckingProximity
	PhaseDetonate
)

var phaseNames = [...]string{"not_safe", "cruising", "checking_proximity", "detonate"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

const (
	safetyRadiusFactor = 1.25
	proximityGateScale = 100.0
	contactGrace       = time.Second
	collisionGrace     = 2 * time.Second
	// snapBack is how far behind the hit point the munition is placed before
	// a contact detonation.
	snapBack = 0.5
)

// Config is the per-munition fuse configuration.
type Config struct {
	VesselID       string
	SourceVesselID string

	Class       model.WeaponClass
	BlastRadius float64
	// DetonationDistance is already resolved; 0 selects the contact fuse.
	DetonationDistance        float64
	DetonateAtMinimumDistance bool
	Geometry                  Geometry
}

// ConfigFor derives the fuse configuration from a munition definition.
func ConfigFor(def model.MunitionDefinition, vesselID, sourceVesselID string) Config {
	return Config{
		VesselID:                  vesselID,
		SourceVesselID:            sourceVesselID,
		Class:                     def.Class,
		BlastRadius:               def.BlastRadius,
		DetonationDistance:        def.ResolvedDetonationDistance(),
		DetonateAtMinimumDistance: def.DetonateAtMinimumDistance,
		Geometry:                  GeometryFor(def.Warhead),
	}
}

// Deps are the world services the fuse calls.
type Deps struct {
	Collision core.Collision
	// Explosive is armed on leaving NotSafe. It may be nil.
	Explosive core.Explosive
	Log       logging.Logger
}

// Input is one tick of fuse input.
type Input struct {
	Motion      core.MotionState
	Frame       core.Body
	SinceLaunch time.Duration

	TargetAcquired bool
	TargetPosition core.Vec3
	TargetVelocity core.Vec3
}

// Fuse is one munition's detonation state machine.
type Fuse struct {
	cfg       Config
	collision core.Collision
	explosive core.Explosive
	log       logging.Logger

	phase        Phase
	snapped      bool
	snapPosition core.Vec3
	onTransition func(from, to Phase)
}

// New returns a fuse in the NotSafe phase.
func New(cfg Config, deps Deps) (*Fuse, error) {
	if deps.Collision == nil {
		return nil, ErrNoCollision
	}
	if cfg.Geometry == nil {
		cfg.Geometry = Spherical{}
	}
	if deps.Log == nil {
		deps.Log = logging.Noop()
	}
	return &Fuse{
		cfg:       cfg,
		collision: deps.Collision,
		explosive: deps.Explosive,
		log:       deps.Log.With(logging.String("component", "fuse")),
	}, nil
}

func (f *Fuse) Phase() Phase         { return f.phase }
func (f *Fuse) ShouldDetonate() bool { return f.phase == PhaseDetonate }

// Snap returns the position the munition should be moved to before a contact
// detonation, if the contact fuse fired.
func (f *Fuse) Snap() (core.Vec3, bool) { return f.snapPosition, f.snapped }

// OnTransition registers a callback invoked on every phase change.
func (f *Fuse) OnTransition(fn func(from, to Phase)) { f.onTransition = fn }

// Update advances the state machine by one tick and returns the new phase.
func (f *Fuse) Update(in Input) Phase {
	dt := in.Motion.TickSeconds()
	step := in.Motion.Velocity.Scale(dt)
	futureMissile := in.Motion.Position.Add(step)
	futureTarget := in.TargetPosition.Add(in.TargetVelocity.Scale(dt))
	relative := in.TargetVelocity.Sub(in.Motion.Velocity).Norm() * dt

	switch f.phase {
	case PhaseNotSafe:
		if f.clearOfSource(futureMissile) {
			f.setPhase(PhaseCruising)
			if f.explosive != nil {
				f.explosive.Arm()
			}
		}
	case PhaseCruising:
		if !in.TargetAcquired {
			break
		}
		gate := math.Max(relative, f.cfg.DetonationDistance)
		if futureMissile.Sub(futureTarget).SqrNorm() < proximityGateScale*gate*gate {
			f.setPhase(PhaseCheckingProximity)
		}
	case PhaseCheckingProximity:
		if !in.TargetAcquired {
			break
		}
		if f.cfg.DetonationDistance == 0 {
			f.checkContact(in, step)
		} else {
			f.checkProximity(in, relative)
		}
	}
	return f.phase
}

// OnContact handles a physical collision. A direct hit while checking
// proximity detonates immediately once past the launch grace period.
func (f *Fuse) OnContact(sinceLaunch time.Duration) bool {
	if f.phase != PhaseCheckingProximity || sinceLaunch <= collisionGrace {
		return false
	}
	f.setPhase(PhaseDetonate)
	return true
}

// clearOfSource reports whether nothing of the launching vessel lies inside
// the safety radius around the next-tick position.
func (f *Fuse) clearOfSource(futureMissile core.Vec3) bool {
	var warned bool
	for _, h := range f.collision.OverlapSphere(futureMissile, f.cfg.BlastRadius*safetyRadiusFactor) {
		part, ok := f.inspect(h, &warned)
		if !ok || part.Ignored {
			continue
		}
		if part.VesselID != f.cfg.VesselID && part.VesselID == f.cfg.SourceVesselID {
			return false
		}
	}
	return true
}

// checkContact ray-tests one tick ahead and detonates on the nearest foreign
// part.
func (f *Fuse) checkContact(in Input, step core.Vec3) {
	if f.cfg.Class == model.ClassBomb || in.SinceLaunch <= contactGrace {
		return
	}
	dist := step.Norm()
	if dist == 0 {
		return
	}
	dir := step.Scale(1 / dist)
	hits := f.collision.Raycast(in.Motion.Position, dir, dist)
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })

	var warned bool
	for _, h := range hits {
		part, ok := f.inspect(h, &warned)
		if !ok || part.Ignored {
			continue
		}
		if part.VesselID == f.cfg.SourceVesselID || part.VesselID == f.cfg.VesselID {
			continue
		}
		f.snapPosition = h.Point.Sub(dir.Scale(snapBack))
		f.snapped = true
		f.setPhase(PhaseDetonate)
		return
	}
}

// checkProximity looks for any foreign part inside the detonation sphere.
func (f *Fuse) checkProximity(in Input, relative float64) {
	radius := math.Max(f.cfg.DetonationDistance, relative)
	center := f.cfg.Geometry.Center(GeometryQuery{
		Frame:              in.Frame,
		Position:           in.Motion.Position,
		TargetPosition:     in.TargetPosition,
		DetonationDistance: f.cfg.DetonationDistance,
		BlastRadius:        f.cfg.BlastRadius,
	})

	var warned bool
	for _, h := range f.collision.OverlapSphere(center, radius) {
		part, ok := f.inspect(h, &warned)
		if !ok || part.Ignored || part.Debris {
			continue
		}
		if part.VesselID == f.cfg.VesselID || part.VesselID == f.cfg.SourceVesselID {
			continue
		}
		if f.cfg.DetonateAtMinimumDistance && f.stillClosing(in, part, relative) {
			return
		}
		f.log.Debug(context.Background(), "proximity detonation",
			logging.String("vessel", part.VesselID),
			logging.Float64("radius", radius))
		f.setPhase(PhaseDetonate)
		return
	}
}

// stillClosing reports whether waiting one more tick brings the part closer
// without passing it.
func (f *Fuse) stillClosing(in Input, part core.Part, relative float64) bool {
	dt := in.Motion.TickSeconds()
	current := part.Position.Sub(in.Motion.Position).SqrNorm()
	partNext := part.Position.Add(part.Velocity.Scale(dt)).Add(part.Acceleration.Scale(0.5 * dt * dt))
	predicted := partNext.Sub(in.Motion.FuturePosition(dt)).SqrNorm()
	return current > predicted && current > relative*relative
}

// inspect resolves a hit to its part. Failures, including panics inside the
// collider, drop the hit; the first failure of a query is logged.
func (f *Fuse) inspect(h core.Hit, warned *bool) (part core.Part, ok bool) {
	if h.Collider == nil {
		return core.Part{}, false
	}
	defer func() {
		if r := recover(); r != nil {
			f.warnOnce(warned, fmt.Errorf("collider inspect panicked: %v", r))
			part, ok = core.Part{}, false
		}
	}()
	p, err := h.Collider.Inspect()
	if err != nil {
		f.warnOnce(warned, err)
		return core.Part{}, false
	}
	return p, true
}

func (f *Fuse) warnOnce(warned *bool, err error) {
	if *warned {
		return
	}
	*warned = true
	f.log.Warn(context.Background(), "skipping unresolvable collider", logging.Err(err))
}

func (f *Fuse) setPhase(p Phase) {
	if p <= f.phase {
		return
	}
	from := f.phase
	f.phase = p
	if f.onTransition != nil {
		f.onTransition(from, p)
	}
}
