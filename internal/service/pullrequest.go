package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	bridgeotel "github.com/Strob0t/actions-bridge/internal/adapter/otel"
	"github.com/Strob0t/actions-bridge/internal/domain"
	"github.com/Strob0t/actions-bridge/internal/port/forge"
)

// ErrHeadRequired is returned when a pull request names no head branch.
var ErrHeadRequired = domain.Validationf("head branch required")

// PullRequestInput is a request to open a pull request. Empty optional
// fields take defaults.
type PullRequestInput struct {
	Head  string `json:"head"`
	Base  string `json:"base,omitempty"`
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
}

// PullRequestService opens pull requests for the local repository.
type PullRequestService struct {
	opener       forge.Opener
	repo         forge.RepoIdentity
	defaultTitle string
	defaultBody  string
	metrics      *bridgeotel.Metrics
	audit        *Auditor
}

// NewPullRequestService creates a PullRequestService.
func NewPullRequestService(opener forge.Opener, repo forge.RepoIdentity, defaultTitle, defaultBody string, metrics *bridgeotel.Metrics, auditor *Auditor) *PullRequestService {
	return &PullRequestService{
		opener:       opener,
		repo:         repo,
		defaultTitle: defaultTitle,
		defaultBody:  defaultBody,
		metrics:      metrics,
		audit:        auditor,
	}
}

// Open validates in, fills defaults and opens the pull request. The forge's
// response is returned unchanged.
func (s *PullRequestService) Open(ctx context.Context, in PullRequestInput) (json.RawMessage, error) {
	out, target, err := s.open(ctx, in)
	outcome := outcomeOf(err)
	s.metrics.RecordPullRequest(ctx, outcome)
	s.audit.Record(ctx, "pr", target, outcome, detailOf(err))
	if err != nil {
		slog.WarnContext(ctx, "pull request not opened", "head", in.Head, "error", err)
		return nil, err
	}
	slog.InfoContext(ctx, "pull request opened", "target", target)
	return out, nil
}

func (s *PullRequestService) open(ctx context.Context, in PullRequestInput) (json.RawMessage, string, error) {
	if !s.opener.Configured() {
		return nil, "", forge.ErrNotConfigured
	}
	head := strings.TrimSpace(in.Head)
	if head == "" {
		return nil, "", ErrHeadRequired
	}

	pr := forge.PullRequest{
		Head:  head,
		Base:  strings.TrimSpace(in.Base),
		Title: in.Title,
		Body:  in.Body,
	}
	if pr.Title == "" {
		pr.Title = s.defaultTitle
	}
	if pr.Body == "" {
		pr.Body = s.defaultBody
	}
	var err error
	if pr.Base == "" {
		if pr.Base, err = s.repo.DefaultBranch(ctx); err != nil {
			return nil, "", fmt.Errorf("default branch: %w", err)
		}
	}
	if pr.Slug, err = s.repo.Slug(ctx); err != nil {
		return nil, "", err
	}

	target := fmt.Sprintf("%s %s...%s", pr.Slug, pr.Base, pr.Head)
	spanCtx, span := bridgeotel.StartPullRequestSpan(ctx, pr.Head, pr.Base)
	out, err := s.opener.OpenPullRequest(spanCtx, pr)
	bridgeotel.EndSpan(span, err)
	return out, target, err
}
