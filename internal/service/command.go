package service

import (
	"context"
	"log/slog"
	"slices"
	"time"

	bridgeotel "github.com/Strob0t/actions-bridge/internal/adapter/otel"
	"github.com/Strob0t/actions-bridge/internal/domain/command"
	"github.com/Strob0t/actions-bridge/internal/port/audit"
)

// CommandRunner spawns processes. Run returns the exit code and output tail;
// Capture returns full stdout and fails on a non-zero exit.
type CommandRunner interface {
	Run(ctx context.Context, argv ...string) (*command.Result, error)
	Capture(ctx context.Context, argv ...string) (string, error)
}

// CommandService runs allow-listed commands through a fixed wrapper.
type CommandService struct {
	runner  CommandRunner
	allow   command.AllowList
	wrapper []string
	metrics *bridgeotel.Metrics
	audit   *Auditor
}

// NewCommandService creates a CommandService. The runner is only invoked
// for names in allow, with argv wrapper + [name].
func NewCommandService(runner CommandRunner, allow command.AllowList, wrapper []string, metrics *bridgeotel.Metrics, auditor *Auditor) *CommandService {
	return &CommandService{
		runner:  runner,
		allow:   allow,
		wrapper: slices.Clone(wrapper),
		metrics: metrics,
		audit:   auditor,
	}
}

// Run executes the named command. On timeout the partial result is
// returned together with the error.
func (s *CommandService) Run(ctx context.Context, name string) (*command.Result, error) {
	if err := s.allow.Check(name); err != nil {
		slog.WarnContext(ctx, "command rejected", "command", name, "reason", err.Error())
		s.metrics.RecordRejection(ctx, "run", err.Error())
		s.audit.Record(ctx, "run", name, audit.OutcomeRejected, err.Error())
		return nil, err
	}

	argv := append(slices.Clone(s.wrapper), name)
	spanCtx, span := bridgeotel.StartCommandSpan(ctx, name, argv)
	start := time.Now()
	res, err := s.runner.Run(spanCtx, argv...)
	bridgeotel.EndSpan(span, err)

	outcome := resultOutcome(res, err)
	s.metrics.RecordCommand(ctx, name, outcome, time.Since(start))
	s.audit.Record(ctx, "run", name, outcome, detailOf(err))
	if err != nil {
		slog.WarnContext(ctx, "command did not finish", "command", name, "error", err)
		return res, err
	}

	slog.InfoContext(ctx, "command finished", "command", name, "code", res.Code, "duration", time.Since(start))
	return res, nil
}

// resultOutcome also marks a non-zero exit as failed.
func resultOutcome(res *command.Result, err error) string {
	if err == nil && res != nil && !res.OK {
		return audit.OutcomeFailed
	}
	return outcomeOf(err)
}
