package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// EngagementCollector bundles Prometheus metrics for fire-control engagements
// and the simulator's gRPC surface. It satisfies engagement.MetricsRecorder.
type EngagementCollector struct {
	gatherer prometheus.Gatherer

	TickDurations     *prometheus.HistogramVec
	SeekerEvents      *prometheus.CounterVec
	FuseTransitions   *prometheus.CounterVec
	Outcomes          *prometheus.CounterVec
	ActiveEngagements prometheus.Gauge
	SimTicks          prometheus.Counter

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec
}

// NewEngagementCollector registers engagement metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewEngagementCollector(reg prometheus.Registerer) (*EngagementCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engagement_tick_duration_seconds",
		Help:    "Wall-clock time spent in one engagement controller update.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01},
	}, []string{"targeting"})
	ticks, err := registerHistogramVec(reg, ticks, "engagement_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	seeker, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seeker_events_total",
		Help: "Seeker acquisition events, labeled by targeting mode and event.",
	}, []string{"targeting", "event"}), "seeker_events_total")
	if err != nil {
		return nil, err
	}

	fuse, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fuse_transitions_total",
		Help: "Proximity fuse phase transitions, labeled by the phase entered.",
	}, []string{"phase"}), "fuse_transitions_total")
	if err != nil {
		return nil, err
	}

	outcomes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engagements_total",
		Help: "Finished engagements, labeled by targeting mode and outcome.",
	}, []string{"targeting", "outcome"}), "engagements_total")
	if err != nil {
		return nil, err
	}

	active, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engagements_active",
		Help: "Current number of engagements being ticked.",
	}), "engagements_active")
	if err != nil {
		return nil, err
	}

	simTicks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_ticks_total",
		Help: "Simulation ticks processed by the scenario driver.",
	}), "sim_ticks_total")
	if err != nil {
		return nil, err
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rpc_requests_total",
		Help: "Total number of handled RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "rpc_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rpc_request_duration_seconds",
		Help:    "RPC latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"service", "method"}), "rpc_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &EngagementCollector{
		gatherer:          gatherer,
		TickDurations:     ticks,
		SeekerEvents:      seeker,
		FuseTransitions:   fuse,
		Outcomes:          outcomes,
		ActiveEngagements: active,
		SimTicks:          simTicks,
		RPCRequests:       requests,
		RPCDurations:      durations,
	}, nil
}

// ObserveTick records the duration of one controller update.
func (c *EngagementCollector) ObserveTick(targeting string, d time.Duration) {
	if c == nil || c.TickDurations == nil {
		return
	}
	c.TickDurations.WithLabelValues(targeting).Observe(d.Seconds())
}

// SeekerEvent counts an acquisition event such as "acquired" or "lost".
func (c *EngagementCollector) SeekerEvent(targeting, event string) {
	if c == nil || c.SeekerEvents == nil {
		return
	}
	c.SeekerEvents.WithLabelValues(targeting, event).Inc()
}

// FuseTransition counts a fuse entering phase.
func (c *EngagementCollector) FuseTransition(phase string) {
	if c == nil || c.FuseTransitions == nil {
		return
	}
	c.FuseTransitions.WithLabelValues(phase).Inc()
}

// EngagementStarted bumps the active gauge.
func (c *EngagementCollector) EngagementStarted(string) {
	if c == nil || c.ActiveEngagements == nil {
		return
	}
	c.ActiveEngagements.Inc()
}

// EngagementFinished records the outcome and drops the active gauge.
func (c *EngagementCollector) EngagementFinished(targeting, outcome string) {
	if c == nil {
		return
	}
	if c.Outcomes != nil {
		c.Outcomes.WithLabelValues(targeting, outcome).Inc()
	}
	if c.ActiveEngagements != nil {
		c.ActiveEngagements.Dec()
	}
}

// SimTick counts one driver tick.
func (c *EngagementCollector) SimTick() {
	if c == nil || c.SimTicks == nil {
		return
	}
	c.SimTicks.Inc()
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *EngagementCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		if c.RPCRequests != nil {
			c.RPCRequests.WithLabelValues(service, method, code).Inc()
		}
		if c.RPCDurations != nil {
			c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		}

		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *EngagementCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
