package otel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Strob0t/actions-bridge/internal/config"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetricsWithMeter(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetricsWithMeter: %v", err)
	}
	return m, reader
}

func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is %T, not an int64 sum", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestMetricsRecord(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCommand(ctx, "test", "ok", 2*time.Second)
	m.RecordCommand(ctx, "lint", "failed", time.Second)
	m.RecordRejection(ctx, "read", "path escape detected")
	m.RecordGitOp(ctx, "commit", "ok")
	m.RecordFileOp(ctx, "write", "ok")
	m.RecordPullRequest(ctx, "ok")

	tests := map[string]int64{
		"bridge.commands":      2,
		"bridge.rejections":    1,
		"bridge.git.ops":       1,
		"bridge.file.ops":      1,
		"bridge.pull_requests": 1,
	}
	for name, want := range tests {
		if got := sumOf(t, reader, name); got != want {
			t.Errorf("%s = %d, want %d", name, got, want)
		}
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordCommand(ctx, "test", "ok", time.Second)
	m.RecordRejection(ctx, "run", "command not allowed")
	m.RecordGitOp(ctx, "push", "ok")
	m.RecordFileOp(ctx, "read", "ok")
	m.RecordPullRequest(ctx, "failed")
	if err := m.ObserveExec(func() (int64, int64) { return 0, 0 }); err != nil {
		t.Fatal(err)
	}
}

func TestObserveExec(t *testing.T) {
	m, reader := newTestMetrics(t)
	if err := m.ObserveExec(func() (int64, int64) { return 2, 5 }); err != nil {
		t.Fatalf("ObserveExec: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			gauge, ok := md.Data.(metricdata.Gauge[int64])
			if !ok || len(gauge.DataPoints) != 1 {
				continue
			}
			got[md.Name] = gauge.DataPoints[0].Value
		}
	}
	if got["bridge.exec.running"] != 2 || got["bridge.exec.waiting"] != 5 {
		t.Fatalf("unexpected gauges: %v", got)
	}
}

func TestSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx := context.Background()
	_, span := StartCommandSpan(ctx, "test", []string{"make", "test"})
	EndSpan(span, nil)
	_, span = StartGitOpSpan(ctx, "commit")
	EndSpan(span, errors.New("diff too large"))
	_, span = StartFileSpan(ctx, "read", "README.md")
	EndSpan(span, nil)
	_, span = StartPullRequestSpan(ctx, "feature", "main")
	EndSpan(span, nil)

	ended := rec.Ended()
	if len(ended) != 4 {
		t.Fatalf("ended spans = %d, want 4", len(ended))
	}
	names := []string{"command", "git.commit", "file.read", "pull_request"}
	for i, want := range names {
		if ended[i].Name() != want {
			t.Errorf("span[%d] = %q, want %q", i, ended[i].Name(), want)
		}
	}
	if ended[1].Status().Code != codes.Error {
		t.Errorf("failed git op span status = %v", ended[1].Status())
	}
}

func TestHTTPMiddleware(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	h := HTTPMiddleware("actions-bridge")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/health", "/run"} {
		req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("spans = %d, want 1 (health is not traced)", len(ended))
	}
	if ended[0].Name() != "GET /run" {
		t.Errorf("span name = %q", ended[0].Name())
	}
}

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.OTEL{}, "actions-bridge")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestEndpointOptions(t *testing.T) {
	if hasScheme("localhost:4317") {
		t.Error("host:port must not be treated as a URL")
	}
	if !hasScheme("http://collector:4317") {
		t.Error("URL endpoint not detected")
	}
	if n := len(traceOptions(config.OTEL{Endpoint: "localhost:4317", Insecure: true})); n != 2 {
		t.Errorf("trace options = %d, want 2", n)
	}
	if n := len(metricOptions(config.OTEL{Endpoint: "http://collector:4317"})); n != 1 {
		t.Errorf("metric options = %d, want 1", n)
	}
}
