package sim

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/fire-control/core"
)

// TerrainID is the vessel ID reported for ground hits.
const TerrainID = "terrain"

// MunitionID is the munition's own vessel ID.
const MunitionID = "munition"

const (
	munitionRadius = 1.0
	// seaLevelDensity and scaleHeight give an exponential atmosphere.
	seaLevelDensity = 1.225
	scaleHeight     = 8500.0
	kmToM           = 1000.0
)

var errDetached = errors.New("collider no longer attached to a vessel")

// motionModel positions a vessel at a simulation time.
type motionModel interface {
	state(at time.Duration) (pos, vel core.Vec3)
}

type linearMotion struct {
	origin, velocity core.Vec3
}

func (m linearMotion) state(at time.Duration) (core.Vec3, core.Vec3) {
	return m.origin.Add(m.velocity.Scale(at.Seconds())), m.velocity
}

// orbitalMotion propagates a TLE with SGP4. Positions are body-centred
// inertial, so the world treats its own axes as inertial.
type orbitalMotion struct {
	sat    satellite.Satellite
	epoch  time.Time
	center core.Vec3
}

func newOrbitalMotion(tle [2]string, epoch time.Time, center core.Vec3) orbitalMotion {
	return orbitalMotion{
		sat:    satellite.TLEToSat(tle[0], tle[1], satellite.GravityWGS72),
		epoch:  epoch,
		center: center,
	}
}

// state propagates to the whole second and extrapolates the remainder,
// since SGP4 takes integer seconds.
func (m orbitalMotion) state(at time.Duration) (core.Vec3, core.Vec3) {
	t := m.epoch.Add(at)
	base := t.Truncate(time.Second)
	year, month, day := base.Date()
	hour, min, sec := base.Clock()
	p, v := satellite.Propagate(m.sat, year, int(month), day, hour, min, sec)

	frac := t.Sub(base).Seconds()
	vel := core.Vec3{X: v.X, Y: v.Y, Z: v.Z}.Scale(kmToM)
	pos := core.Vec3{X: p.X, Y: p.Y, Z: p.Z}.Scale(kmToM).Add(vel.Scale(frac))
	return m.center.Add(pos), vel
}

type vessel struct {
	Entity
	motion   motionModel
	position core.Vec3
	velocity core.Vec3
}

// World is the scripted environment. It is safe for concurrent readers of
// Snapshot while a single driver goroutine steps it.
type World struct {
	mu sync.RWMutex

	sc       *Scenario
	frame    core.Body
	now      time.Duration
	target   vessel
	launcher vessel

	munition Airframe

	armed       bool
	detonations int
	detonatedAt time.Duration
	warnings    int
	closest     float64
}

// NewWorld places the launcher, target and munition at their scenario start
// states.
func NewWorld(sc *Scenario) *World {
	w := &World{
		sc:      sc,
		frame:   core.Body{Center: core.Vec3{Z: -sc.BodyRadius}, Radius: sc.BodyRadius},
		closest: math.Inf(1),
	}
	w.frame.Rotation = w.rotationAt(0)
	w.target = w.newVessel(sc.Target)
	w.launcher = w.newVessel(sc.Launcher)
	w.munition = NewAirframe(sc.Airframe, sc.Launch.Position, sc.Launch.Velocity)
	w.updateClosest()
	return w
}

func (w *World) newVessel(e Entity) vessel {
	v := vessel{Entity: e}
	if e.TLE[0] != "" {
		v.motion = newOrbitalMotion(e.TLE, w.sc.Epoch, w.frame.Center)
	} else {
		v.motion = linearMotion{origin: e.Position, velocity: e.Velocity}
	}
	v.position, v.velocity = v.motion.state(0)
	return v
}

// rotationAt is the body spin angle: Greenwich sidereal time at the epoch,
// advancing with simulation time only for rotating bodies.
func (w *World) rotationAt(at time.Duration) float64 {
	t := w.sc.Epoch
	if w.sc.BodyRotating {
		t = t.Add(at)
	}
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	return satellite.ThetaG_JD(jd)
}

// Advance moves the world to now and flies the munition one tick towards
// steer at the given throttle.
func (w *World) Advance(now time.Duration, steer core.Vec3, throttle float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	dt := now - w.now
	w.now = now
	w.frame.Rotation = w.rotationAt(now)
	for _, v := range []*vessel{&w.target, &w.launcher} {
		v.position, v.velocity = v.motion.state(now)
	}
	w.munition.Step(w.frame, steer, throttle, dt)
	w.updateClosest()
}

// Snap moves the munition without changing its velocity.
func (w *World) Snap(pos core.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.munition.Position = pos
	w.updateClosest()
}

func (w *World) updateClosest() {
	if d := w.munition.Position.DistanceTo(w.target.position); d < w.closest {
		w.closest = d
	}
}

// Contact reports whether the munition is touching the target or is at or
// below ground level, and which of the two it hit.
func (w *World) Contact() (contact, ground bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.frame.Altitude(w.munition.Position) <= w.sc.GroundLevel {
		return true, true
	}
	return w.munition.Position.DistanceTo(w.target.position) <= w.target.Radius+munitionRadius, false
}

// Motion reports the munition's state for the current tick.
func (w *World) Motion(tick time.Duration) core.MotionState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	m := w.munition
	alt := w.frame.Altitude(m.Position)
	return core.MotionState{
		Position:      m.Position,
		Velocity:      m.Velocity,
		Acceleration:  m.Acceleration,
		Forward:       m.Velocity.Normalized(),
		SimTime:       w.now,
		Tick:          tick,
		RadarAltitude: alt - w.sc.GroundLevel,
		AtmDensity:    density(alt),
	}
}

// DesignatedTrack is the target as handed to the seeker before launch.
func (w *World) DesignatedTrack() core.Track {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.sc.Launch.Designated {
		return core.NoTrack()
	}
	return w.trackOf(&w.target, 1)
}

func (w *World) trackOf(v *vessel, signal float64) core.Track {
	t := core.NewTrack(w.frame, v.position, v.velocity, core.Vec3{}, signal, w.now)
	t.SourceID = v.ID
	t.Team = v.Team
	t.Class = v.Class
	return t
}

func density(alt float64) float64 {
	if alt > 20*scaleHeight {
		return 0
	}
	return seaLevelDensity * math.Exp(-math.Max(alt, 0)/scaleHeight)
}

// Snapshot is a read-only view of the world for reporting.
type Snapshot struct {
	Now              time.Duration
	MunitionPosition core.Vec3
	MunitionVelocity core.Vec3
	TargetPosition   core.Vec3
	TargetDistance   float64
	ClosestApproach  float64
	Armed            bool
	Detonations      int
	DetonatedAt      time.Duration
	RadarWarnings    int
}

// Snapshot copies the reportable world state.
func (w *World) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Snapshot{
		Now:              w.now,
		MunitionPosition: w.munition.Position,
		MunitionVelocity: w.munition.Velocity,
		TargetPosition:   w.target.position,
		TargetDistance:   w.munition.Position.DistanceTo(w.target.position),
		ClosestApproach:  w.closest,
		Armed:            w.armed,
		Detonations:      w.detonations,
		DetonatedAt:      w.detonatedAt,
		RadarWarnings:    w.warnings,
	}
}

// ---------- engagement.FrameSource ----------

// Body returns the reference body for the current tick.
func (w *World) Body() core.Body {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.frame
}

// ---------- core.Detector ----------

// Query returns the strongest contact in the cone above threshold.
func (w *World) Query(q core.DetectorQuery) (core.Track, bool) {
	best, ok := core.NoTrack(), false
	for _, t := range w.Scan(q) {
		if t.SignalStrength >= q.Threshold && (!ok || t.SignalStrength > best.SignalStrength) {
			best, ok = t, true
		}
	}
	return best, ok
}

// Scan returns every contact inside the query cone with line of sight.
func (w *World) Scan(q core.DetectorQuery) []core.Track {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var out []core.Track
	for _, v := range []*vessel{&w.target, &w.launcher} {
		rel := v.position.Sub(q.Origin)
		off := q.Direction.AngleDeg(rel)
		if off > q.FOVHalfAngle || w.groundBetween(q.Origin, v.position) {
			continue
		}
		signal := w.signal(q, v, rel)
		if q.FOVHalfAngle > 0 {
			signal *= q.FOVBias.Evaluate(off / q.FOVHalfAngle)
		}
		if q.Prior.Exists {
			signal *= q.VelocityBias.Evaluate(q.Prior.Velocity.AngleDeg(v.velocity))
		}
		if signal <= 0 {
			continue
		}
		out = append(out, w.trackOf(v, signal))
	}
	return out
}

// signal is a 1/r² return normalised to one kilometre.
func (w *World) signal(q core.DetectorQuery, v *vessel, rel core.Vec3) float64 {
	r2 := math.Max(rel.SqrNorm(), 100*100) / (kmToM * kmToM)
	switch q.Sensor {
	case core.SensorHeat:
		heat := v.Heat
		// Head-on aspect shows the cooler front of the target.
		if v.velocity.Dot(rel) < 0 && q.FrontAspectModifier > 0 {
			heat *= q.FrontAspectModifier
		}
		return heat / r2
	default:
		sig := 10.0
		if v.ID == w.sc.Target.ID && w.sc.Countermeasures.RadarSignature > 0 {
			sig = w.sc.Countermeasures.RadarSignature
		}
		return sig / r2
	}
}

// ---------- core.Countermeasures ----------

func (w *World) ChaffFactor(id string) float64 {
	if id != w.sc.Target.ID {
		return 1
	}
	return core.Clamp01(w.sc.Countermeasures.ChaffFactor)
}

func (w *World) JammerStrength(id string) float64 {
	if id != w.sc.Target.ID {
		return 0
	}
	return w.sc.Countermeasures.JammerStrength
}

func (w *World) RadarSignature(id string) float64 {
	if id != w.sc.Target.ID || w.sc.Countermeasures.RadarSignature <= 0 {
		return 10
	}
	return w.sc.Countermeasures.RadarSignature
}

// Obscured reports smoke on the line of sight. Smoke hangs around the target.
func (w *World) Obscured(from, to core.Vec3) bool {
	return w.sc.Countermeasures.Smoke
}

// ---------- core.Collision ----------

type vesselCollider struct {
	w  *World
	id string
}

func (c vesselCollider) Inspect() (core.Part, error) {
	c.w.mu.RLock()
	defer c.w.mu.RUnlock()
	switch c.id {
	case TerrainID:
		return core.Part{VesselID: TerrainID}, nil
	case MunitionID:
		m := c.w.munition
		return core.Part{VesselID: MunitionID, Position: m.Position, Velocity: m.Velocity, Acceleration: m.Acceleration}, nil
	case c.w.target.ID:
		return core.Part{VesselID: c.id, Position: c.w.target.position, Velocity: c.w.target.velocity}, nil
	case c.w.launcher.ID:
		return core.Part{VesselID: c.id, Position: c.w.launcher.position, Velocity: c.w.launcher.velocity}, nil
	}
	return core.Part{}, fmt.Errorf("%w: %q", errDetached, c.id)
}

type sphere struct {
	id     string
	center core.Vec3
	radius float64
}

func (w *World) spheres() []sphere {
	return []sphere{
		{MunitionID, w.munition.Position, munitionRadius},
		{w.target.ID, w.target.position, w.target.Radius},
		{w.launcher.ID, w.launcher.position, w.launcher.Radius},
	}
}

// Raycast intersects the ray with every vessel sphere and the ground.
func (w *World) Raycast(origin, dir core.Vec3, maxDistance float64) []core.Hit {
	w.mu.RLock()
	defer w.mu.RUnlock()
	d := dir.Normalized()
	if d.IsZero() {
		return nil
	}

	var hits []core.Hit
	for _, s := range w.spheres() {
		if dist, ok := raySphere(origin, d, s.center, s.radius); ok && dist <= maxDistance {
			hits = append(hits, core.Hit{Collider: vesselCollider{w, s.id}, Point: origin.Add(d.Scale(dist)), Distance: dist})
		}
	}
	if dist, ok := w.rayGround(origin, d, maxDistance); ok {
		hits = append(hits, core.Hit{Collider: vesselCollider{w, TerrainID}, Point: origin.Add(d.Scale(dist)), Distance: dist})
	}
	return hits
}

// OverlapSphere returns every vessel whose sphere touches the query sphere.
func (w *World) OverlapSphere(center core.Vec3, radius float64) []core.Hit {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var hits []core.Hit
	for _, s := range w.spheres() {
		dist := center.DistanceTo(s.center)
		if dist <= radius+s.radius {
			hits = append(hits, core.Hit{Collider: vesselCollider{w, s.id}, Point: s.center, Distance: dist})
		}
	}
	return hits
}

func raySphere(origin, dir, center core.Vec3, radius float64) (float64, bool) {
	oc := origin.Sub(center)
	b := oc.Dot(dir)
	c := oc.SqrNorm() - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	t := -b - math.Sqrt(disc)
	if t < 0 {
		t = -b + math.Sqrt(disc)
	}
	return t, t >= 0
}

// rayGround marches the ray against the ground level. The ground is a sphere
// of radius Radius+GroundLevel.
func (w *World) rayGround(origin, dir core.Vec3, maxDistance float64) (float64, bool) {
	t, ok := raySphere(origin, dir, w.frame.Center, w.frame.Radius+w.sc.GroundLevel)
	if !ok || t > maxDistance {
		return 0, false
	}
	if w.frame.Altitude(origin) < w.sc.GroundLevel {
		return 0, true
	}
	return t, true
}

func (w *World) groundBetween(a, b core.Vec3) bool {
	seg := b.Sub(a)
	dist := seg.Norm()
	if dist == 0 {
		return false
	}
	t, ok := w.rayGround(a, seg.Scale(1/dist), dist)
	// Endpoints resting on the ground do not block.
	return ok && t > 1 && t < dist-1
}

// ---------- core.Terrain ----------

func (w *World) RadarAltitudeAt(pos core.Vec3) float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.frame.Altitude(pos) - w.sc.GroundLevel
}

func (w *World) Obstructed(origin, dir core.Vec3, maxDistance float64) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	d := dir.Normalized()
	if d.IsZero() {
		return false
	}
	_, ok := w.rayGround(origin, d, maxDistance)
	return ok
}

// ---------- core.Explosive ----------

func (w *World) Arm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.armed = true
}

func (w *World) Detonate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.detonations++
	w.detonatedAt = w.now
}

// ---------- core.RadarFeed ----------

// LockedTrack is the launcher's radar lock on the target.
func (w *World) LockedTrack(contactID string) (core.Track, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.sc.LauncherRadar || contactID != w.target.ID || w.groundBetween(w.launcher.position, w.target.position) {
		return core.NoTrack(), false
	}
	return w.trackOf(&w.target, 1), true
}

// ---------- core.RadarWarningSink ----------

func (w *World) RadarWarning(origin, direction core.Vec3, fovDeg float64, threat core.ThreatType) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.warnings++
}

// ---------- core.Illuminator ----------

// Spot is the laser spot on the target while the illuminator has it.
func (w *World) Spot() (core.Vec3, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.sc.Illuminator || w.groundBetween(w.launcher.position, w.target.position) {
		return core.Vec3{}, false
	}
	return w.target.position, true
}

// ---------- core.Designator ----------

func (w *World) CanSeeTarget() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sc.Designator
}

func (w *World) TargetPosition() core.Vec3 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.target.position
}

// EmittingTarget reports the target's position when it is radiating, for
// publishing radar pings.
func (w *World) EmittingTarget() (core.Vec3, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.target.position, w.target.RadarEmitting
}
