package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "actions-bridge"

// Metrics holds the bridge's metric instruments. A nil *Metrics records nothing.
type Metrics struct {
	Commands        metric.Int64Counter
	CommandDuration metric.Float64Histogram
	Rejections      metric.Int64Counter
	GitOps          metric.Int64Counter
	FileOps         metric.Int64Counter
	PullRequests    metric.Int64Counter

	meter metric.Meter
}

// NewMetrics creates instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithMeter(otel.Meter(meterName))
}

// NewMetricsWithMeter creates instruments on meter.
func NewMetricsWithMeter(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter}
	var err error

	m.Commands, err = meter.Int64Counter("bridge.commands",
		metric.WithDescription("Number of allow-listed commands executed"))
	if err != nil {
		return nil, err
	}

	m.CommandDuration, err = meter.Float64Histogram("bridge.command.duration_seconds",
		metric.WithDescription("Command wall time in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.Rejections, err = meter.Int64Counter("bridge.rejections",
		metric.WithDescription("Requests refused by a guard"))
	if err != nil {
		return nil, err
	}

	m.GitOps, err = meter.Int64Counter("bridge.git.ops",
		metric.WithDescription("Number of git operations"))
	if err != nil {
		return nil, err
	}

	m.FileOps, err = meter.Int64Counter("bridge.file.ops",
		metric.WithDescription("Number of sandboxed file reads and writes"))
	if err != nil {
		return nil, err
	}

	m.PullRequests, err = meter.Int64Counter("bridge.pull_requests",
		metric.WithDescription("Number of pull request attempts"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordCommand counts a finished command and its duration.
func (m *Metrics) RecordCommand(ctx context.Context, name, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("command", name), attribute.String("outcome", outcome))
	m.Commands.Add(ctx, 1, attrs)
	m.CommandDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordRejection counts a guard refusal.
func (m *Metrics) RecordRejection(ctx context.Context, action, reason string) {
	if m == nil {
		return
	}
	m.Rejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("reason", reason),
	))
}

// RecordGitOp counts a git operation.
func (m *Metrics) RecordGitOp(ctx context.Context, op, outcome string) {
	if m == nil {
		return
	}
	m.GitOps.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op), attribute.String("outcome", outcome)))
}

// RecordFileOp counts a file read or write.
func (m *Metrics) RecordFileOp(ctx context.Context, action, outcome string) {
	if m == nil {
		return
	}
	m.FileOps.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action), attribute.String("outcome", outcome)))
}

// RecordPullRequest counts a pull request attempt.
func (m *Metrics) RecordPullRequest(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.PullRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// ObserveExec registers gauges for running and queued processes, read from
// stats at each collection.
func (m *Metrics) ObserveExec(stats func() (running, waiting int64)) error {
	if m == nil {
		return nil
	}
	running, err := m.meter.Int64ObservableGauge("bridge.exec.running",
		metric.WithDescription("Processes currently running"))
	if err != nil {
		return err
	}
	waiting, err := m.meter.Int64ObservableGauge("bridge.exec.waiting",
		metric.WithDescription("Processes waiting for an exec slot"))
	if err != nil {
		return err
	}
	_, err = m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		r, w := stats()
		o.ObserveInt64(running, r)
		o.ObserveInt64(waiting, w)
		return nil
	}, running, waiting)
	return err
}
