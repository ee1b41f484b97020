// Package engagement composes one seeker, one guidance law and one fuse per
// munition and sequences them every simulation tick.
package engagement

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/fire-control/core"
	"github.com/signalsfoundry/fire-control/fuse"
	"github.com/signalsfoundry/fire-control/guidance"
	"github.com/signalsfoundry/fire-control/internal/logging"
	"github.com/signalsfoundry/fire-control/internal/observability"
	"github.com/signalsfoundry/fire-control/model"
	"github.com/signalsfoundry/fire-control/seeker"
)

// ErrMissingDependency is returned by New when a required world service is nil.
var ErrMissingDependency = errors.New("engagement: missing dependency")

// Outcomes reported to MetricsRecorder.EngagementFinished.
const (
	OutcomeDetonated = "detonated"
	OutcomeMissed    = "missed"
	OutcomeExpired   = "expired"
)

// MetricsRecorder receives engagement telemetry. The observability package's
// EngagementCollector satisfies it.
type MetricsRecorder interface {
	ObserveTick(targeting string, d time.Duration)
	SeekerEvent(targeting, event string)
	FuseTransition(phase string)
	EngagementStarted(targeting string)
	EngagementFinished(targeting, outcome string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveTick(string, time.Duration) {}
func (noopMetrics) SeekerEvent(string, string)        {}
func (noopMetrics) FuseTransition(string)             {}
func (noopMetrics) EngagementStarted(string)          {}
func (noopMetrics) EngagementFinished(string, string) {}

// FrameSource supplies the reference body for the current tick.
type FrameSource interface {
	Body() core.Body
}

// StaticFrame is a FrameSource that never moves.
type StaticFrame core.Body

func (f StaticFrame) Body() core.Body { return core.Body(f) }

// Dependencies are the world services and launch facts a controller needs.
// Frame, Collision and Explosive are required.
type Dependencies struct {
	Frame     FrameSource
	Collision core.Collision
	Explosive core.Explosive

	Terrain         core.Terrain
	Countermeasures core.Countermeasures
	RadarFeed       core.RadarFeed
	Warnings        core.RadarWarningSink
	Illuminator     core.Illuminator
	Designator      core.Designator

	// VesselID is the munition's own vessel, SourceVesselID its launcher.
	VesselID       string
	SourceVesselID string
	// LaunchTime is the simulation time the munition left the rail.
	LaunchTime time.Duration
	// Target is the contact designated before launch; it may be the sentinel.
	Target core.Track
}

// Option customises a Controller.
type Option func(*Controller)

// WithLogger sets the base logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(c *Controller) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracer sets the tracer used for per-tick spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Controller) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithID fixes the engagement ID. Random sequences are seeded from the ID,
// so a fixed ID makes a run reproducible.
func WithID(id uuid.UUID) Option {
	return func(c *Controller) { c.id = id }
}

// WithWorldSettings overrides the global tuning values.
func WithWorldSettings(w model.WorldSettings) Option {
	return func(c *Controller) { c.world = w }
}

// GuidanceOutput is the per-tick contract consumed by the airframe.
type GuidanceOutput struct {
	SteerTarget core.Vec3
	// Throttle is in [0,1].
	Throttle float64
	Acquired bool
	// GuidanceActive is false while the munition flies without any aim point
	// or after the seeker has abandoned the shot.
	GuidanceActive bool

	// Snap is where the airframe should place the munition before a contact
	// detonation; valid only when Snapped is set.
	Snap    core.Vec3
	Snapped bool
}

// Controller owns the per-munition engagement state.
type Controller struct {
	id    uuid.UUID
	def   model.MunitionDefinition
	world model.WorldSettings
	deps  Dependencies

	seeker seeker.Seeker
	law    guidance.Law
	fuse   *fuse.Fuse

	log     logging.Logger
	metrics MetricsRecorder
	tracer  trace.Tracer

	targeting string
	hasAim    bool
	aim       core.Vec3
	aimVel    core.Vec3
	acquired  bool
	decoyed   bool
	missed    bool

	detonated bool
	finished  bool
	last      GuidanceOutput
}

// New validates def, builds the seeker, guidance law and fuse, and returns a
// controller ready for its first Update.
func New(def model.MunitionDefinition, deps Dependencies, opts ...Option) (*Controller, error) {
	switch {
	case deps.Frame == nil:
		return nil, fmt.Errorf("%w: frame source", ErrMissingDependency)
	case deps.Collision == nil:
		return nil, fmt.Errorf("%w: collision", ErrMissingDependency)
	case deps.Explosive == nil:
		return nil, fmt.Errorf("%w: explosive", ErrMissingDependency)
	}
	def = def.ApplyDefaults()
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("engagement %q: %w", def.Name, err)
	}

	c := &Controller{
		id:        uuid.New(),
		def:       def,
		world:     model.DefaultWorldSettings(),
		deps:      deps,
		log:       logging.Noop(),
		metrics:   noopMetrics{},
		tracer:    observability.Tracer(),
		targeting: def.Targeting.String(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(
		logging.String("engagement_id", c.id.String()),
		logging.String("munition", def.Name),
		logging.String("targeting", c.targeting),
	)

	hi := binary.BigEndian.Uint64(c.id[:8])
	lo := binary.BigEndian.Uint64(c.id[8:])
	s, err := seeker.New(seeker.Config{
		Definition: def,
		World:      c.world,
		Env: seeker.Env{
			Countermeasures: deps.Countermeasures,
			RadarFeed:       deps.RadarFeed,
			Warnings:        deps.Warnings,
			Illuminator:     deps.Illuminator,
			Designator:      deps.Designator,
			Rand:            rand.New(rand.NewPCG(hi, lo)),
			NoiseSeed:       hi ^ lo,
			Log:             c.log,
		},
		Initial:  deps.Target,
		VesselID: deps.VesselID,
	})
	if err != nil {
		return nil, fmt.Errorf("engagement %q: %w", def.Name, err)
	}
	law, err := guidance.New(def, c.log)
	if err != nil {
		return nil, fmt.Errorf("engagement %q: %w", def.Name, err)
	}
	fz, err := fuse.New(fuse.ConfigFor(def, deps.VesselID, deps.SourceVesselID), fuse.Deps{
		Collision: deps.Collision,
		Explosive: deps.Explosive,
		Log:       c.log,
	})
	if err != nil {
		return nil, fmt.Errorf("engagement %q: %w", def.Name, err)
	}
	fz.OnTransition(func(_, to fuse.Phase) { c.metrics.FuseTransition(to.String()) })

	c.seeker, c.law, c.fuse = s, law, fz
	c.metrics.EngagementStarted(c.targeting)
	c.log.Info(context.Background(), "engagement started",
		logging.String("guidance", def.Guidance.String()),
		logging.Bool("designated", deps.Target.Exists))
	return c, nil
}

func (c *Controller) ID() string                           { return c.id.String() }
func (c *Controller) Definition() model.MunitionDefinition { return c.def }
func (c *Controller) Phase() guidance.Phase                { return c.law.Phase() }
func (c *Controller) FusePhase() fuse.Phase                { return c.fuse.Phase() }
func (c *Controller) ShouldDetonate() bool                 { return c.detonated }

// Missed reports whether the seeker abandoned the shot.
func (c *Controller) Missed() bool { return c.missed }

// Update runs one tick: seeker, then guidance, then fuse. It is a no-op once
// the munition has detonated.
func (c *Controller) Update(ctx context.Context, motion core.MotionState, detector core.Detector, now time.Duration) GuidanceOutput {
	if c.detonated {
		return c.last
	}
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "engagement.Update", trace.WithAttributes(
		attribute.String("engagement.id", c.id.String()),
		attribute.String("engagement.targeting", c.targeting),
		attribute.Int64("sim.time_ms", now.Milliseconds()),
	))
	defer func() {
		span.End()
		c.metrics.ObserveTick(c.targeting, time.Since(start))
	}()

	frame := c.deps.Frame.Body()
	since := now - c.deps.LaunchTime
	if since < 0 {
		since = 0
	}

	look := c.seeker.Update(seeker.Input{
		Motion:      motion,
		Frame:       frame,
		Now:         now,
		SinceLaunch: since,
		Detector:    detector,
	})
	c.recordSeeker(ctx, look)
	if look.HasAim() {
		c.hasAim = true
		c.aim = look.AimPoint
		c.aimVel = look.TargetVelocity
	}
	if look.Abandoned && !c.missed {
		c.missed = true
		c.law.ForceTerminal()
		span.AddEvent("abandoned")
		c.logger(ctx).Info(ctx, "seeker abandoned the shot", logging.Duration("since_launch", since))
	}
	if look.ForceDetonate {
		c.detonate(ctx, span, "seeker forced detonation")
		return c.last
	}

	out := GuidanceOutput{Acquired: look.Acquired}
	if c.hasAim {
		steer := c.law.Steer(guidance.Input{
			Motion:         motion,
			Frame:          frame,
			SinceLaunch:    since,
			TargetPosition: c.aim,
			TargetVelocity: c.aimVel,
			Terrain:        c.deps.Terrain,
		})
		out.SteerTarget = steer.SteerTarget
		out.Throttle = core.Clamp01(steer.Throttle)
		out.GuidanceActive = !c.missed
	} else {
		out.SteerTarget = motion.Position.Add(motion.Velocity)
		out.Throttle = c.coastThrottle()
	}

	c.fuse.Update(fuse.Input{
		Motion:         motion,
		Frame:          frame,
		SinceLaunch:    since,
		TargetAcquired: look.Acquired,
		TargetPosition: look.AimPoint,
		TargetVelocity: look.TargetVelocity,
	})
	out.Snap, out.Snapped = c.fuse.Snap()
	span.SetAttributes(
		attribute.String("guidance.phase", c.law.Phase().String()),
		attribute.String("fuse.phase", c.fuse.Phase().String()),
		attribute.Bool("seeker.acquired", look.Acquired),
		attribute.Bool("seeker.decoy_biased", look.Track.DecoyBiased),
	)
	c.last = out
	if c.fuse.ShouldDetonate() {
		c.detonate(ctx, span, "fuse")
	}
	return out
}

// NotifyRadarPing forwards a radar emission to seekers that home on them and
// reports whether it was adopted.
func (c *Controller) NotifyRadarPing(origin core.Vec3, threat core.ThreatType, vesselID string) bool {
	if c.detonated {
		return false
	}
	r, ok := c.seeker.(seeker.PingReceiver)
	if !ok {
		return false
	}
	adopted := r.ReceivePing(origin, threat, vesselID)
	if adopted {
		c.metrics.SeekerEvent(c.targeting, "ping_adopted")
	}
	return adopted
}

// NotifyContact handles a physical collision reported by the host at now.
func (c *Controller) NotifyContact(now time.Duration) {
	if c.detonated {
		return
	}
	if c.fuse.OnContact(now - c.deps.LaunchTime) {
		c.detonate(context.Background(), nil, "contact")
	}
}

// Retarget moves a fixed-point seeker's target and reports whether the seeker
// supports it.
func (c *Controller) Retarget(target core.GeoCoord) bool {
	r, ok := c.seeker.(seeker.Retargeter)
	if !ok {
		return false
	}
	r.Retarget(target)
	return true
}

// Close reports the outcome of an engagement that ends without detonating.
func (c *Controller) Close() {
	if c.finished {
		return
	}
	outcome := OutcomeExpired
	if c.missed {
		outcome = OutcomeMissed
	}
	c.finish(outcome)
}

func (c *Controller) detonate(ctx context.Context, span trace.Span, reason string) {
	if c.detonated {
		return
	}
	c.detonated = true
	c.deps.Explosive.Detonate()
	if span != nil {
		span.AddEvent("detonate", trace.WithAttributes(attribute.String("reason", reason)))
		span.SetStatus(codes.Ok, reason)
	}
	c.logger(ctx).Info(ctx, "detonated",
		logging.String("reason", reason),
		logging.String("fuse_phase", c.fuse.Phase().String()))
	c.finish(OutcomeDetonated)
}

func (c *Controller) finish(outcome string) {
	c.finished = true
	c.metrics.EngagementFinished(c.targeting, outcome)
}

func (c *Controller) recordSeeker(ctx context.Context, look seeker.Output) {
	if look.Acquired && !c.acquired {
		c.metrics.SeekerEvent(c.targeting, "acquired")
		c.logger(ctx).Debug(ctx, "target acquired")
	}
	c.acquired = look.Acquired
	if look.Track.DecoyBiased && !c.decoyed {
		c.metrics.SeekerEvent(c.targeting, "decoy_biased")
	}
	c.decoyed = look.Track.DecoyBiased
	if look.Lost {
		c.metrics.SeekerEvent(c.targeting, "lost")
		c.logger(ctx).Debug(ctx, "target lost")
	}
	if look.WentActive {
		c.metrics.SeekerEvent(c.targeting, "went_active")
	}
	if look.Abandoned {
		c.metrics.SeekerEvent(c.targeting, "abandoned")
	}
}

// logger prefers the logger carried on ctx, tagged with this engagement,
// over the one the controller was built with.
func (c *Controller) logger(ctx context.Context) logging.Logger {
	l := logging.LoggerFromContext(ctx)
	if l == nil {
		return c.log
	}
	fields := []logging.Field{
		logging.String("munition", c.def.Name),
		logging.String("targeting", c.targeting),
	}
	if logging.EngagementIDFromContext(ctx) == "" {
		fields = append(fields, logging.String("engagement_id", c.id.String()))
	}
	return l.With(fields...)
}

// coastThrottle is the throttle used before any aim point exists.
func (c *Controller) coastThrottle() float64 {
	if c.def.Guidance == model.GuidanceBomb {
		return 0
	}
	return 1
}
