package service

import (
	"context"
	"log/slog"

	bridgeotel "github.com/Strob0t/actions-bridge/internal/adapter/otel"
	"github.com/Strob0t/actions-bridge/internal/port/audit"
)

// FileStore reads and writes files under a guarded root.
type FileStore interface {
	Read(path string) (string, error)
	Write(path, content string) error
}

// FileService exposes sandboxed reads and writes.
type FileService struct {
	store   FileStore
	metrics *bridgeotel.Metrics
	audit   *Auditor
}

// NewFileService creates a FileService on store.
func NewFileService(store FileStore, metrics *bridgeotel.Metrics, auditor *Auditor) *FileService {
	return &FileService{store: store, metrics: metrics, audit: auditor}
}

// Read returns the head-truncated content of path.
func (s *FileService) Read(ctx context.Context, path string) (string, error) {
	_, span := bridgeotel.StartFileSpan(ctx, "read", path)
	content, err := s.store.Read(path)
	bridgeotel.EndSpan(span, err)

	s.observe(ctx, "read", path, err)
	return content, err
}

// Write creates or replaces path with content.
func (s *FileService) Write(ctx context.Context, path, content string) error {
	_, span := bridgeotel.StartFileSpan(ctx, "write", path)
	err := s.store.Write(path, content)
	bridgeotel.EndSpan(span, err)

	s.observe(ctx, "write", path, err)
	if err == nil {
		slog.InfoContext(ctx, "file written", "path", path, "bytes", len(content))
	}
	return err
}

func (s *FileService) observe(ctx context.Context, action, path string, err error) {
	outcome := outcomeOf(err)
	if outcome == audit.OutcomeRejected {
		slog.WarnContext(ctx, "file access rejected", "action", action, "path", path, "reason", err.Error())
		s.metrics.RecordRejection(ctx, action, err.Error())
	}
	s.metrics.RecordFileOp(ctx, action, outcome)
	s.audit.Record(ctx, action, path, outcome, detailOf(err))
}
