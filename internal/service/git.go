package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	bridgeotel "github.com/Strob0t/actions-bridge/internal/adapter/otel"
	"github.com/Strob0t/actions-bridge/internal/domain/command"
	"github.com/Strob0t/actions-bridge/internal/domain/gitop"
	"github.com/Strob0t/actions-bridge/internal/port/audit"
)

// GitService dispatches validated git operations and guards commits.
type GitService struct {
	runner  CommandRunner
	limits  gitop.Limits
	metrics *bridgeotel.Metrics
	audit   *Auditor
}

// NewGitService creates a GitService.
func NewGitService(runner CommandRunner, limits gitop.Limits, metrics *bridgeotel.Metrics, auditor *Auditor) *GitService {
	return &GitService{runner: runner, limits: limits, metrics: metrics, audit: auditor}
}

// Execute parses {op, args} and runs the operation.
func (s *GitService) Execute(ctx context.Context, opName string, args json.RawMessage) (*command.Result, error) {
	op, err := gitop.Parse(opName, args)
	if err != nil {
		slog.WarnContext(ctx, "git op rejected", "op", opName, "reason", err.Error())
		s.metrics.RecordRejection(ctx, "git", err.Error())
		s.audit.Record(ctx, "git."+auditOpName(opName), "", audit.OutcomeRejected, err.Error())
		return nil, err
	}

	spanCtx, span := bridgeotel.StartGitOpSpan(ctx, op.Kind())
	var res *command.Result
	switch o := op.(type) {
	case gitop.Commit:
		res, err = s.commit(spanCtx, o)
	default:
		res, err = s.runner.Run(spanCtx, gitArgv(op)...)
	}
	bridgeotel.EndSpan(span, err)

	outcome := resultOutcome(res, err)
	if outcome == audit.OutcomeRejected {
		slog.WarnContext(ctx, "commit rejected", "reason", err.Error())
		s.metrics.RecordRejection(ctx, "git", err.Error())
	}
	s.metrics.RecordGitOp(ctx, op.Kind(), outcome)
	s.audit.Record(ctx, "git."+op.Kind(), opTarget(op), outcome, detailOf(err))
	return res, err
}

// commit stages everything, applies the safety gate and commits. A failing
// `git add` is returned as-is and nothing is committed.
func (s *GitService) commit(ctx context.Context, c gitop.Commit) (*command.Result, error) {
	res, err := s.runner.Run(ctx, "git", "add", "-A")
	if err != nil || !res.OK {
		return res, err
	}

	v, err := s.Verdict(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.limits.Check(v); err != nil {
		return nil, err
	}
	return s.runner.Run(ctx, gitArgv(c)...)
}

// Verdict measures the staged diff.
func (s *GitService) Verdict(ctx context.Context) (gitop.Verdict, error) {
	numstat, err := s.runner.Capture(ctx, "git", "diff", "--cached", "--numstat")
	if err != nil {
		return gitop.Verdict{}, fmt.Errorf("staged numstat: %w", err)
	}
	deleted, err := s.runner.Capture(ctx, "git", "diff", "--cached", "--diff-filter=D", "--name-only")
	if err != nil {
		return gitop.Verdict{}, fmt.Errorf("staged deletions: %w", err)
	}
	return gitop.Verdict{
		ChangedLines: gitop.ParseNumstat(numstat),
		DeletedFiles: gitop.CountLines(deleted),
	}, nil
}

func gitArgv(op gitop.Op) []string {
	return append([]string{"git"}, op.Argv()...)
}

func opTarget(op gitop.Op) string {
	switch o := op.(type) {
	case gitop.Branch:
		return o.Name
	case gitop.Push:
		return o.Remote + "/" + o.Branch
	}
	return ""
}

// auditOpName keeps arbitrary client input out of audit action names.
func auditOpName(op string) string {
	switch op {
	case gitop.OpBranch, gitop.OpCommit, gitop.OpPush:
		return op
	}
	return "unknown"
}
