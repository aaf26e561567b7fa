package github

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/actions-bridge/internal/adapter/ristretto"
	"github.com/Strob0t/actions-bridge/internal/domain"
	"github.com/Strob0t/actions-bridge/internal/port/forge"
)

var _ forge.RepoIdentity = (*Resolver)(nil)

// fakeGit answers Capture from a table keyed by the joined argv.
type fakeGit struct {
	out   map[string]string
	calls map[string]int
}

func newFakeGit(out map[string]string) *fakeGit {
	return &fakeGit{out: out, calls: make(map[string]int)}
}

func (f *fakeGit) Capture(_ context.Context, argv ...string) (string, error) {
	key := strings.Join(argv, " ")
	f.calls[key]++
	v, ok := f.out[key]
	if !ok {
		return "", errors.New("exit status 128")
	}
	return v, nil
}

func TestParseSlug(t *testing.T) {
	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://github.com/octo/bridge.git\n", "octo/bridge", true},
		{"https://github.com/octo/bridge", "octo/bridge", true},
		{"git@github.com:octo/bridge.git", "octo/bridge", true},
		{"ssh://git@github.com/octo/bridge.git", "octo/bridge", true},
		{"https://gitlab.com/octo/bridge.git", "", false},
		{"https://github.com/octo", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, ok := ParseSlug(tt.url)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseSlug(%q) = %q, %v; want %q, %v", tt.url, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestResolver_SlugCached(t *testing.T) {
	c, err := ristretto.New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	git := newFakeGit(map[string]string{"git remote get-url origin": "git@github.com:octo/bridge.git\n"})
	r := NewResolver(git, c, time.Minute)

	for i := 0; i < 3; i++ {
		slug, err := r.Slug(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if slug != "octo/bridge" {
			t.Errorf("slug = %q", slug)
		}
	}
	if n := git.calls["git remote get-url origin"]; n != 1 {
		t.Errorf("git called %d times, want 1", n)
	}
}

func TestResolver_ScopesShareOneCache(t *testing.T) {
	c, err := ristretto.New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	a := NewResolver(newFakeGit(map[string]string{"git remote get-url origin": "git@github.com:octo/alpha.git"}), c, time.Minute)
	a.SetScope(ScopeFor("/work/alpha"))
	b := NewResolver(newFakeGit(map[string]string{"git remote get-url origin": "git@github.com:octo/beta.git"}), c, time.Minute)
	b.SetScope(ScopeFor("/work/beta"))

	for _, tt := range []struct {
		r    *Resolver
		want string
	}{{a, "octo/alpha"}, {b, "octo/beta"}, {a, "octo/alpha"}} {
		got, err := tt.r.Slug(context.Background())
		if err != nil || got != tt.want {
			t.Errorf("Slug = %q, %v; want %q", got, err, tt.want)
		}
	}
	if ScopeFor("/work/alpha") == ScopeFor("/work/beta") {
		t.Error("distinct roots must give distinct scopes")
	}
}

func TestResolver_SlugUnparsable(t *testing.T) {
	r := NewResolver(newFakeGit(map[string]string{"git remote get-url origin": "https://example.com/x.git"}), nil, time.Minute)
	_, err := r.Slug(context.Background())
	if !errors.Is(err, domain.ErrInternal) || err.Error() != "cannot parse repo slug" {
		t.Errorf("err = %v", err)
	}
}

func TestResolver_DefaultBranch(t *testing.T) {
	tests := []struct {
		name string
		out  map[string]string
		want string
	}{
		{"origin head", map[string]string{"git symbolic-ref --short refs/remotes/origin/HEAD": "origin/develop\n"}, "develop"},
		{"nested branch", map[string]string{"git symbolic-ref --short refs/remotes/origin/HEAD": "origin/release/v2\n"}, "release/v2"},
		{"unresolved", map[string]string{}, "main"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(newFakeGit(tt.out), nil, time.Minute)
			got, err := r.DefaultBranch(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("DefaultBranch = %q, want %q", got, tt.want)
			}
		})
	}
}

// realGit runs git directly; the executor package is not needed for this check.
type realGit struct{ dir string }

func (g realGit) Capture(ctx context.Context, argv ...string) (string, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = g.dir
	out, err := cmd.Output()
	return string(out), err
}

func TestResolver_RealRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	for _, args := range [][]string{
		{"init"},
		{"remote", "add", "origin", "https://github.com/octo/bridge.git"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %s: %v", args, out, err)
		}
	}

	r := NewResolver(realGit{dir: dir}, nil, time.Minute)
	slug, err := r.Slug(context.Background())
	if err != nil || slug != "octo/bridge" {
		t.Errorf("Slug = %q, %v", slug, err)
	}
	branch, err := r.DefaultBranch(context.Background())
	if err != nil || branch != "main" {
		t.Errorf("DefaultBranch = %q, %v; want fallback main", branch, err)
	}
}
