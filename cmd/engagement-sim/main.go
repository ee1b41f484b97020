// Command engagement-sim flies one scripted engagement and prints its result.
// While it runs it serves Prometheus metrics, the engagement registry and a
// gRPC health endpoint.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/signalsfoundry/fire-control/internal/logging"
	"github.com/signalsfoundry/fire-control/internal/observability"
	"github.com/signalsfoundry/fire-control/internal/sim"
	"github.com/signalsfoundry/fire-control/kb"
	"github.com/signalsfoundry/fire-control/timectrl"
)

// Config is the command's resolved configuration.
type Config struct {
	ScenarioPath   string
	ListenAddress  string
	MetricsAddress string
	RealTime       bool
	// Seed fixes the engagement ID; empty picks a random one.
	Seed string
	// Linger keeps the servers up after the engagement ends until the
	// context is cancelled.
	Linger bool
}

func main() {
	cfg := Config{}
	flag.StringVar(&cfg.ScenarioPath, "scenario", "configs/scenarios/air-intercept.json", "Path to a JSON engagement scenario")
	flag.StringVar(&cfg.ListenAddress, "grpc-addr", envOr("FC_GRPC_ADDR", ":50051"), "TCP address for the gRPC health server; empty disables it")
	flag.StringVar(&cfg.MetricsAddress, "metrics-addr", envOr("FC_METRICS_ADDR", ":9090"), "HTTP address for /metrics and /engagements; empty disables it")
	flag.BoolVar(&cfg.RealTime, "realtime", false, "Pace ticks with the wall clock")
	flag.StringVar(&cfg.Seed, "seed", "", "Engagement UUID; fixes every random sequence")
	flag.BoolVar(&cfg.Linger, "linger", false, "Keep serving after the engagement ends until interrupted")
	flag.Parse()

	log := logging.NewFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var lis net.Listener
	if cfg.ListenAddress != "" {
		var err error
		lis, err = net.Listen("tcp", cfg.ListenAddress)
		if err != nil {
			log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.ListenAddress), logging.Err(err))
			os.Exit(1)
		}
	}

	if err := run(ctx, cfg, log, lis, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.Error(ctx, "engagement-sim failed", logging.Err(err))
		os.Exit(1)
	}
}

// run loads the scenario, starts the servers, flies the engagement and
// writes the result as JSON to out. lis may be nil.
func run(ctx context.Context, cfg Config, log logging.Logger, lis net.Listener, out io.Writer) error {
	sc, err := sim.LoadScenarioFile(cfg.ScenarioPath)
	if err != nil {
		return err
	}

	var id uuid.UUID
	if cfg.Seed != "" {
		if id, err = uuid.Parse(cfg.Seed); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewEngagementCollector(nil)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	registry := kb.NewKnowledgeBase()

	metricsSrv := serveMetrics(cfg.MetricsAddress, collector, registry, log)
	defer shutdownHTTP(metricsSrv)

	healthSrv := health.NewServer()
	var server *grpc.Server
	if lis != nil {
		server = grpc.NewServer(
			grpc.StatsHandler(otelgrpc.NewServerHandler()),
			grpc.ChainUnaryInterceptor(collector.UnaryServerInterceptor()),
		)
		healthpb.RegisterHealthServer(server, healthSrv)
		log.Info(ctx, "starting gRPC health server", logging.String("addr", lis.Addr().String()))
		go func() {
			if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				log.Error(ctx, "gRPC server exited", logging.Err(err))
			}
		}()
		defer server.GracefulStop()
	}
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	mode := timectrl.Accelerated
	if cfg.RealTime {
		mode = timectrl.RealTime
	}
	log.Info(ctx, "flying engagement",
		logging.String("scenario", sc.Name),
		logging.String("munition", sc.Munition.Name),
		logging.Duration("tick", sc.Tick))

	res, runErr := sim.Run(ctx, sc, sim.Options{
		Logger:  log,
		Metrics: collector,
		Tracer:  observability.Tracer(),
		ID:      id,
		KB:      registry,
		Mode:    mode,
	})
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if err := writeResult(out, sc.Name, res); err != nil {
		return err
	}

	if cfg.Linger && runErr == nil {
		log.Info(ctx, "engagement finished; serving until interrupted")
		<-ctx.Done()
	}
	healthSrv.Shutdown()
	return runErr
}

type resultJSON struct {
	Scenario      string  `json:"scenario"`
	EngagementID  string  `json:"engagement_id"`
	Outcome       string  `json:"outcome"`
	Ticks         int     `json:"ticks"`
	ElapsedS      float64 `json:"elapsed_s"`
	GuidancePhase string  `json:"guidance_phase"`
	FusePhase     string  `json:"fuse_phase"`
	MissDistance  float64 `json:"miss_distance_m"`
	FinalDistance float64 `json:"final_distance_m"`
	Armed         bool    `json:"armed"`
	RadarWarnings int     `json:"radar_warnings"`
	PingsAdopted  int     `json:"pings_adopted"`
}

func writeResult(w io.Writer, scenario string, res sim.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resultJSON{
		Scenario:      scenario,
		EngagementID:  res.EngagementID,
		Outcome:       res.Outcome,
		Ticks:         res.Ticks,
		ElapsedS:      res.Elapsed.Seconds(),
		GuidancePhase: res.GuidancePhase,
		FusePhase:     res.FusePhase,
		MissDistance:  res.MissDistance,
		FinalDistance: res.FinalDistance,
		Armed:         res.Armed,
		RadarWarnings: res.RadarWarnings,
		PingsAdopted:  res.PingsAdopted,
	})
}

func serveMetrics(addr string, collector *observability.EngagementCollector, registry *kb.KnowledgeBase, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := newMux(collector, registry, log)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

// newMux routes /metrics and the engagement registry endpoints.
func newMux(collector *observability.EngagementCollector, registry *kb.KnowledgeBase, log logging.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.HandleFunc("GET /engagements", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, log, engagementsJSON(registry.List()))
	})
	mux.HandleFunc("GET /engagements/{id}", func(w http.ResponseWriter, r *http.Request) {
		e, ok := registry.Get(r.PathValue("id"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, r, log, toEngagementJSON(e))
	})
	mux.HandleFunc("DELETE /engagements/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := registry.Remove(r.PathValue("id")); err != nil {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, r *http.Request, log logging.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn(r.Context(), "failed to encode response", logging.Err(err))
	}
}

type engagementJSON struct {
	ID         string `json:"id"`
	Munition   string `json:"munition"`
	Targeting  string `json:"targeting"`
	LauncherID string `json:"launcher_id"`
	Status     string `json:"status"`
}

func toEngagementJSON(e kb.Engagement) engagementJSON {
	return engagementJSON{
		ID:         e.ID,
		Munition:   e.Munition,
		Targeting:  e.Targeting.String(),
		LauncherID: e.LauncherID,
		Status:     e.Status.String(),
	}
}

func engagementsJSON(list []kb.Engagement) []engagementJSON {
	out := make([]engagementJSON, 0, len(list))
	for _, e := range list {
		out = append(out, toEngagementJSON(e))
	}
	return out
}

func shutdownHTTP(srv *http.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
