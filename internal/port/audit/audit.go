// Package audit defines the port interface for recording guarded operations.
package audit

import (
	"context"
	"time"
)

// Outcome of a guarded operation.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
	OutcomeTimeout  = "timeout"
)

// Event describes one guarded operation.
type Event struct {
	ID        string    `json:"id"`
	Time      time.Time `json:"time"`
	RequestID string    `json:"request_id,omitempty"`
	Action    string    `json:"action"` // run, read, write, git.<op>, pr
	Target    string    `json:"target"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
}

// Sink receives audit events. Implementations must not block for long; a
// failing sink never fails the operation.
type Sink interface {
	Record(ctx context.Context, ev Event) error
}

// Nop discards all events.
type Nop struct{}

// Record implements Sink.
func (Nop) Record(context.Context, Event) error { return nil }
