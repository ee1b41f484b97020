package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestEngagementCollectorRecordsLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewEngagementCollector(reg)
	if err != nil {
		t.Fatalf("NewEngagementCollector: %v", err)
	}

	collector.EngagementStarted("heat")
	collector.EngagementStarted("radar")
	collector.SeekerEvent("heat", "acquired")
	collector.FuseTransition("Detonate")
	collector.ObserveTick("heat", 200*time.Microsecond)
	collector.EngagementFinished("heat", "detonated")

	if got := testutil.ToFloat64(collector.ActiveEngagements); got != 1 {
		t.Fatalf("engagements_active = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.SeekerEvents.WithLabelValues("heat", "acquired")); got != 1 {
		t.Fatalf("seeker_events_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.FuseTransitions.WithLabelValues("Detonate")); got != 1 {
		t.Fatalf("fuse_transitions_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.Outcomes.WithLabelValues("heat", "detonated")); got != 1 {
		t.Fatalf("engagements_total = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "engagement_tick_duration_seconds", map[string]string{
		"targeting": "heat",
	}); count != 1 {
		t.Fatalf("engagement_tick_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestNewEngagementCollectorReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewEngagementCollector(reg)
	if err != nil {
		t.Fatalf("first NewEngagementCollector: %v", err)
	}
	second, err := NewEngagementCollector(reg)
	if err != nil {
		t.Fatalf("second NewEngagementCollector: %v", err)
	}
	first.SimTick()
	second.SimTick()
	if got := testutil.ToFloat64(first.SimTicks); got != 2 {
		t.Fatalf("sim_ticks_total = %v, want 2 (collectors should share series)", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *EngagementCollector
	c.ObserveTick("gps", time.Millisecond)
	c.SeekerEvent("gps", "lost")
	c.FuseTransition("Cruising")
	c.EngagementStarted("gps")
	c.EngagementFinished("gps", "missed")
	c.SimTick()
}

func TestUnaryInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewEngagementCollector(reg)
	if err != nil {
		t.Fatalf("NewEngagementCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	_, err = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		time.Sleep(time.Millisecond)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("interceptor handler returned error: %v", err)
	}

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("Health", "Check", "OK")); got != 1 {
		t.Fatalf("rpc_requests_total = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "rpc_request_duration_seconds", map[string]string{
		"service": "Health",
		"method":  "Check",
	}); count != 1 {
		t.Fatalf("rpc_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestUnaryInterceptorRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewEngagementCollector(reg)
	if err != nil {
		t.Fatalf("NewEngagementCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "unknown service")
	})

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("Health", "Check", "NotFound")); got != 1 {
		t.Fatalf("rpc_requests_total error label = %v, want 1", got)
	}
}

func TestSplitMethod(t *testing.T) {
	cases := map[string][2]string{
		"":                             {"unknown", "unknown"},
		"/grpc.health.v1.Health/Check": {"Health", "Check"},
		"Check":                        {"unknown", "unknown"},
		"/Svc/":                        {"Svc", "unknown"},
	}
	for in, want := range cases {
		s, m := SplitMethod(in)
		if s != want[0] || m != want[1] {
			t.Fatalf("SplitMethod(%q) = %q,%q want %q,%q", in, s, m, want[0], want[1])
		}
	}
}

func TestMetricsHandlerExposesEngagementSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewEngagementCollector(reg)
	if err != nil {
		t.Fatalf("NewEngagementCollector: %v", err)
	}
	collector.EngagementStarted("laser")
	collector.SeekerEvent("laser", "acquired")
	collector.FuseTransition("CheckingProximity")
	collector.EngagementFinished("laser", "detonated")
	collector.ObserveTick("laser", time.Microsecond)
	collector.RPCRequests.WithLabelValues("svc", "method", "OK").Inc()
	collector.RPCDurations.WithLabelValues("svc", "method").Observe(0.01)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"engagement_tick_duration_seconds",
		"seeker_events_total",
		"fuse_transitions_total",
		"engagements_total",
		"engagements_active",
		"rpc_requests_total",
		"rpc_request_duration_seconds",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
