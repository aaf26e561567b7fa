package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/Strob0t/actions-bridge/internal/domain/command"
	"github.com/Strob0t/actions-bridge/internal/port/audit"
	"github.com/Strob0t/actions-bridge/internal/port/forge"
)

// fakeRunner records every argv and answers from canned tables keyed by the
// joined argv. Unknown Run calls succeed with empty output.
type fakeRunner struct {
	mu       sync.Mutex
	calls    []string
	results  map[string]*command.Result
	errs     map[string]error
	captures map[string]string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		results:  make(map[string]*command.Result),
		errs:     make(map[string]error),
		captures: make(map[string]string),
	}
}

func (f *fakeRunner) Run(_ context.Context, argv ...string) (*command.Result, error) {
	key := strings.Join(argv, " ")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return f.results[key], err
	}
	if res, ok := f.results[key]; ok {
		return res, nil
	}
	return command.NewResult(0, ""), nil
}

func (f *fakeRunner) Capture(_ context.Context, argv ...string) (string, error) {
	key := strings.Join(argv, " ")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return "", err
	}
	return f.captures[key], nil
}

func (f *fakeRunner) called(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == key {
			return true
		}
	}
	return false
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recordingSink keeps audit events in memory.
type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (s *recordingSink) Record(_ context.Context, ev audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) last() audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return audit.Event{}
	}
	return s.events[len(s.events)-1]
}

// fakeOpener is a forge.Opener that records the last pull request.
type fakeOpener struct {
	configured bool
	got        *forge.PullRequest
	resp       json.RawMessage
	err        error
}

func (f *fakeOpener) Configured() bool { return f.configured }

func (f *fakeOpener) OpenPullRequest(_ context.Context, pr forge.PullRequest) (json.RawMessage, error) {
	f.got = &pr
	return f.resp, f.err
}

// fakeRepo is a forge.RepoIdentity with fixed answers.
type fakeRepo struct {
	slug, branch string
	slugErr      error
}

func (f fakeRepo) Slug(context.Context) (string, error)          { return f.slug, f.slugErr }
func (f fakeRepo) DefaultBranch(context.Context) (string, error) { return f.branch, nil }
