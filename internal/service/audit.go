package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/actions-bridge/internal/domain"
	"github.com/Strob0t/actions-bridge/internal/logger"
	"github.com/Strob0t/actions-bridge/internal/port/audit"
)

// auditTimeout bounds how long a request waits on the audit sink.
const auditTimeout = 2 * time.Second

// Auditor stamps and forwards audit events. Sink failures are logged only.
type Auditor struct {
	sink audit.Sink
	now  func() time.Time
}

// NewAuditor creates an Auditor. A nil sink discards events.
func NewAuditor(sink audit.Sink) *Auditor {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Auditor{sink: sink, now: time.Now}
}

// Record sends one event for action on target.
func (a *Auditor) Record(ctx context.Context, action, target, outcome, detail string) {
	if a == nil {
		return
	}
	ev := audit.Event{
		ID:        uuid.NewString(),
		Time:      a.now().UTC(),
		RequestID: logger.RequestID(ctx),
		Action:    action,
		Target:    target,
		Outcome:   outcome,
		Detail:    detail,
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := a.sink.Record(sendCtx, ev); err != nil {
		slog.WarnContext(ctx, "audit record failed", "action", action, "error", err)
	}
}

// outcomeOf classifies an operation error for audit and metrics.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return audit.OutcomeOK
	case errors.Is(err, domain.ErrTimeout):
		return audit.OutcomeTimeout
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrNotFound):
		return audit.OutcomeRejected
	default:
		return audit.OutcomeFailed
	}
}

func detailOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
