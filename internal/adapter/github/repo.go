package github

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Strob0t/actions-bridge/internal/domain"
	"github.com/Strob0t/actions-bridge/internal/port/cache"
)

// FallbackBranch is used when origin/HEAD cannot be resolved.
const FallbackBranch = "main"

// ErrSlugUnparsable is returned when origin is not a GitHub remote.
var ErrSlugUnparsable = &domain.Error{Kind: domain.ErrInternal, Detail: "cannot parse repo slug"}

var slugPattern = regexp.MustCompile(`github\.com[:/](.+?/.+?)(?:\.git)?$`)

// GitCapturer runs git and returns its stdout.
type GitCapturer interface {
	Capture(ctx context.Context, argv ...string) (string, error)
}

// Resolver finds the GitHub slug and default branch of the local checkout.
// Results are cached for ttl.
type Resolver struct {
	git   GitCapturer
	cache cache.Cache
	ttl   time.Duration
	scope string
}

// NewResolver creates a Resolver. c may be nil to disable caching.
func NewResolver(git GitCapturer, c cache.Cache, ttl time.Duration) *Resolver {
	return &Resolver{git: git, cache: c, ttl: ttl}
}

// SetScope namespaces cache keys so resolvers for different checkouts can
// share one cache.
func (r *Resolver) SetScope(scope string) {
	r.scope = scope
}

// ScopeFor derives a cache scope from a checkout's root directory.
func ScopeFor(root string) string {
	sum := sha256.Sum256([]byte(root))
	return hex.EncodeToString(sum[:8])
}

func (r *Resolver) key(name string) string {
	if r.scope == "" {
		return "repo:" + name
	}
	return "repo:" + r.scope + ":" + name
}

// Slug returns owner/repo parsed from the origin remote URL.
func (r *Resolver) Slug(ctx context.Context) (string, error) {
	return cache.GetOrLoad(ctx, r.cache, r.key("slug"), r.ttl, func(ctx context.Context) (string, error) {
		out, err := r.git.Capture(ctx, "git", "remote", "get-url", "origin")
		if err != nil {
			return "", fmt.Errorf("origin url: %w", err)
		}
		slug, ok := ParseSlug(out)
		if !ok {
			return "", ErrSlugUnparsable
		}
		return slug, nil
	})
}

// DefaultBranch returns the branch origin/HEAD points to, or FallbackBranch.
func (r *Resolver) DefaultBranch(ctx context.Context) (string, error) {
	return cache.GetOrLoad(ctx, r.cache, r.key("default-branch"), r.ttl, func(ctx context.Context) (string, error) {
		out, err := r.git.Capture(ctx, "git", "symbolic-ref", "--short", "refs/remotes/origin/HEAD")
		if err != nil {
			return FallbackBranch, nil
		}
		ref := strings.TrimSpace(out)
		if _, branch, ok := strings.Cut(ref, "/"); ok && branch != "" {
			return branch, nil
		}
		if ref == "" {
			return FallbackBranch, nil
		}
		return ref, nil
	})
}

// ParseSlug extracts owner/repo from an HTTPS or SSH GitHub remote URL.
func ParseSlug(url string) (string, bool) {
	m := slugPattern.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return "", false
	}
	return m[1], true
}
