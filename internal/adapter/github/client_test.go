package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Strob0t/actions-bridge/internal/domain"
	"github.com/Strob0t/actions-bridge/internal/port/forge"
	"github.com/Strob0t/actions-bridge/internal/resilience"
)

var _ forge.Opener = (*Client)(nil)

func TestOpenPullRequest(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/repos/octo/bridge/pulls" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.github+json" {
			t.Errorf("Accept = %q", got)
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &gotBody); err != nil {
			t.Errorf("body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"number":7,"html_url":"https://github.com/octo/bridge/pull/7"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "tok", 5*time.Second)
	raw, err := c.OpenPullRequest(context.Background(), forge.PullRequest{
		Slug: "octo/bridge", Head: "feature", Base: "main", Title: "t", Body: "b",
	})
	if err != nil {
		t.Fatalf("OpenPullRequest: %v", err)
	}
	if string(raw) != `{"number":7,"html_url":"https://github.com/octo/bridge/pull/7"}` {
		t.Errorf("response not passed through verbatim: %s", raw)
	}

	want := map[string]any{"title": "t", "body": "b", "head": "feature", "base": "main", "maintainer_can_modify": true}
	for k, v := range want {
		if gotBody[k] != v {
			t.Errorf("body[%s] = %v, want %v", k, gotBody[k], v)
		}
	}
}

func TestOpenPullRequest_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Validation Failed"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", 5*time.Second)
	_, err := c.OpenPullRequest(context.Background(), forge.PullRequest{Slug: "o/r", Head: "h", Base: "main"})

	var apiErr *forge.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *forge.APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity {
		t.Errorf("Status = %d", apiErr.Status)
	}
	if apiErr.Error() != `GitHub error: {"message":"Validation Failed"}` {
		t.Errorf("Error() = %q", apiErr.Error())
	}
}

func TestOpenPullRequest_TokenMissing(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", time.Second)
	if c.Configured() {
		t.Error("Configured() = true without a token")
	}
	_, err := c.OpenPullRequest(context.Background(), forge.PullRequest{})
	if !errors.Is(err, domain.ErrInternal) || err.Error() != "GH_TOKEN missing" {
		t.Errorf("err = %v", err)
	}
}

func TestOpenPullRequest_BreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", 5*time.Second)
	c.SetBreaker(resilience.NewBreaker(2, time.Minute, resilience.WithFailurePredicate(CountsAsFailure)))
	pr := forge.PullRequest{Slug: "o/r", Head: "h", Base: "main"}

	for i := 0; i < 2; i++ {
		_, _ = c.OpenPullRequest(context.Background(), pr)
	}
	_, err := c.OpenPullRequest(context.Background(), pr)
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("server calls = %d, want 2", n)
	}
}

func TestOpenPullRequest_ClientErrorsKeepBreakerClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	b := resilience.NewBreaker(1, time.Minute, resilience.WithFailurePredicate(CountsAsFailure))
	c := NewClient(srv.URL, "tok", 5*time.Second)
	c.SetBreaker(b)

	for i := 0; i < 3; i++ {
		_, _ = c.OpenPullRequest(context.Background(), forge.PullRequest{Slug: "o/r", Head: "h", Base: "main"})
	}
	if b.State() != resilience.StateClosed {
		t.Errorf("breaker state = %s, want closed", b.State())
	}
}

func TestCountsAsFailure(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("dial tcp: connection refused"), true},
		{&forge.APIError{Status: 500}, true},
		{&forge.APIError{Status: 503}, true},
		{&forge.APIError{Status: 422}, false},
		{&forge.APIError{Status: 404}, false},
		{fmt.Errorf("wrapped: %w", context.Canceled), false},
	}
	for _, tt := range tests {
		if got := CountsAsFailure(tt.err); got != tt.want {
			t.Errorf("CountsAsFailure(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
