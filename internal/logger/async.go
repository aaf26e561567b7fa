package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer allows flushing and stopping the async handler.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// AsyncHandler hands records to background workers over a bounded channel so
// request goroutines never block on stdout. Records are dropped when the
// channel is full.
type AsyncHandler struct {
	inner  slog.Handler
	shared *asyncState
}

type asyncState struct {
	ch      chan asyncRecord
	wg      sync.WaitGroup
	dropped atomic.Int64
	once    sync.Once
}

// asyncRecord keeps the originating context so contextHandler can still read
// the request id after the hand-off.
type asyncRecord struct {
	ctx context.Context
	h   slog.Handler
	rec slog.Record
}

// NewAsyncHandler creates an AsyncHandler with the given channel capacity and worker count.
func NewAsyncHandler(inner slog.Handler, chanSize, workers int) *AsyncHandler {
	if workers < 1 {
		workers = 1
	}
	st := &asyncState{ch: make(chan asyncRecord, chanSize)}
	for i := 0; i < workers; i++ {
		st.wg.Add(1)
		go st.drain()
	}
	return &AsyncHandler{inner: inner, shared: st}
}

func (s *asyncState) drain() {
	defer s.wg.Done()
	for r := range s.ch {
		_ = r.h.Handle(r.ctx, r.rec)
	}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record. Drops if the channel is full.
func (h *AsyncHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	r := asyncRecord{ctx: context.WithoutCancel(ctx), h: h.inner, rec: rec.Clone()}
	select {
	case h.shared.ch <- r:
	default:
		h.shared.dropped.Add(1)
	}
	return nil
}

// WithAttrs returns a handler sharing the same workers but wrapping a new inner handler.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), shared: h.shared}
}

// WithGroup returns a handler sharing the same workers but wrapping a new inner handler.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), shared: h.shared}
}

// DroppedCount returns the number of dropped records.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.shared.dropped.Load()
}

// Close closes the channel and waits for all workers to drain. Safe to call twice.
func (h *AsyncHandler) Close() {
	h.shared.once.Do(func() {
		close(h.shared.ch)
		h.shared.wg.Wait()
	})
}
