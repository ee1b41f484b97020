package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/fire-control/core"
	"github.com/signalsfoundry/fire-control/engagement"
	"github.com/signalsfoundry/fire-control/internal/logging"
	"github.com/signalsfoundry/fire-control/internal/observability"
	"github.com/signalsfoundry/fire-control/kb"
	"github.com/signalsfoundry/fire-control/timectrl"
)

// OutcomeCrashed is reported when the munition hits the ground or the target
// without the fuse detonating.
const OutcomeCrashed = "crashed"

// Options tune a Run. The zero value paces ticks in real time with no
// logging, metrics or registry; set Mode to timectrl.Accelerated to run as
// fast as possible.
type Options struct {
	Logger  logging.Logger
	Metrics *observability.EngagementCollector
	Tracer  trace.Tracer
	// ID fixes the engagement ID and with it every random sequence.
	ID uuid.UUID
	// KB, when set, receives the engagement registration and status updates
	// and carries radar pings to the controller.
	KB   *kb.KnowledgeBase
	Mode timectrl.Mode
	// OnTick is called after every tick with the guidance output.
	OnTick func(elapsed time.Duration, out engagement.GuidanceOutput)
}

// Result summarises one engagement.
type Result struct {
	EngagementID  string
	Outcome       string
	Ticks         int
	Elapsed       time.Duration
	GuidancePhase string
	FusePhase     string
	// MissDistance is the closest approach to the target centre.
	MissDistance  float64
	FinalDistance float64
	Armed         bool
	Detonations   int
	RadarWarnings int
	PingsAdopted  int
}

// Run flies sc to completion: detonation, ground impact or the scenario
// duration. It honours ctx cancellation between ticks.
func Run(ctx context.Context, sc *Scenario, opts Options) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	world := NewWorld(sc)

	ctrlOpts := []engagement.Option{
		engagement.WithLogger(log),
		engagement.WithWorldSettings(sc.World),
		engagement.WithTracer(opts.Tracer),
	}
	if opts.Metrics != nil {
		ctrlOpts = append(ctrlOpts, engagement.WithMetrics(opts.Metrics))
	}
	if opts.ID != uuid.Nil {
		ctrlOpts = append(ctrlOpts, engagement.WithID(opts.ID))
	}
	ctrl, err := engagement.New(sc.Munition, engagement.Dependencies{
		Frame:           world,
		Collision:       world,
		Explosive:       world,
		Terrain:         world,
		Countermeasures: world,
		RadarFeed:       world,
		Warnings:        world,
		Illuminator:     world,
		Designator:      world,
		VesselID:        MunitionID,
		SourceVesselID:  sc.Launcher.ID,
		Target:          world.DesignatedTrack(),
	}, ctrlOpts...)
	if err != nil {
		return Result{}, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}
	ctx, log = logging.WithEngagementLogger(logging.ContextWithEngagementID(ctx, ctrl.ID()), log)
	ctx = logging.ContextWithLogger(ctx, log)

	res := Result{EngagementID: ctrl.ID()}
	registry := opts.KB
	if registry == nil {
		registry = kb.NewKnowledgeBase()
	}
	if err := registry.Register(kb.Engagement{
		ID:         ctrl.ID(),
		Munition:   sc.Munition.Name,
		Targeting:  sc.Munition.Targeting,
		LauncherID: sc.Launcher.ID,
		VesselID:   MunitionID,
		Status:     kb.StatusInFlight,
	}); err != nil {
		return Result{}, err
	}
	unsubscribe := registry.Subscribe(func(e kb.Event) {
		if e.Type != kb.EventRadarPing {
			return
		}
		live, ok := registry.Get(ctrl.ID())
		if !ok || live.Status != kb.StatusInFlight || e.Ping.VesselID != live.VesselID {
			return
		}
		if ctrl.NotifyRadarPing(e.Ping.Origin, e.Ping.Threat, e.Ping.VesselID) {
			res.PingsAdopted++
		}
	})
	defer unsubscribe()

	var (
		steer    = sc.Launch.Position.Add(sc.Launch.Velocity)
		throttle = 1.0
		done     bool
	)
	tc := timectrl.NewTimeController(sc.Epoch, sc.Tick, opts.Mode)
	var clock timectrl.SimClock = tc
	tc.AddListener(func(time.Time) {
		elapsed := clock.Elapsed()
		world.Advance(elapsed, steer, throttle)
		res.Ticks++
		opts.Metrics.SimTick()

		if contact, ground := world.Contact(); contact {
			ctrl.NotifyContact(elapsed)
			if !ctrl.ShouldDetonate() {
				log.Info(ctx, "munition destroyed on impact", logging.Bool("ground", ground))
				res.Outcome = OutcomeCrashed
			}
			done = true
			return
		}

		if pos, ok := world.EmittingTarget(); ok {
			registry.PublishRadarPing(kb.RadarPing{Origin: pos, Threat: core.ThreatFireControl, VesselID: MunitionID})
		}

		out := ctrl.Update(ctx, world.Motion(sc.Tick), world, elapsed)
		if out.Snapped {
			world.Snap(out.Snap)
		}
		steer, throttle = out.SteerTarget, out.Throttle
		if opts.OnTick != nil {
			opts.OnTick(elapsed, out)
		}
		if ctrl.ShouldDetonate() {
			done = true
		}
	})
	tc.Run(sc.Duration, func() bool { return done || ctx.Err() != nil })

	status := kb.StatusExpired
	switch {
	case ctrl.ShouldDetonate():
		res.Outcome = engagement.OutcomeDetonated
		status = kb.StatusDetonated
	case res.Outcome == OutcomeCrashed || ctrl.Missed():
		ctrl.Close()
		if res.Outcome == "" {
			res.Outcome = engagement.OutcomeMissed
		}
		status = kb.StatusMissed
	default:
		ctrl.Close()
		res.Outcome = engagement.OutcomeExpired
	}
	if err := registry.SetStatus(ctrl.ID(), status); err != nil {
		log.Warn(ctx, "status update failed", logging.Err(err))
	}

	snap := world.Snapshot()
	res.Elapsed = snap.Now
	res.GuidancePhase = ctrl.Phase().String()
	res.FusePhase = ctrl.FusePhase().String()
	res.MissDistance = snap.ClosestApproach
	res.FinalDistance = snap.TargetDistance
	res.Armed = snap.Armed
	res.Detonations = snap.Detonations
	res.RadarWarnings = snap.RadarWarnings

	log.Info(ctx, "engagement finished",
		logging.String("outcome", res.Outcome),
		logging.Int("ticks", res.Ticks),
		logging.Float64("miss_distance_m", res.MissDistance))
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}
