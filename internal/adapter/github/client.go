// Package github opens pull requests through the GitHub REST API and resolves
// the local repository's GitHub identity.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Strob0t/actions-bridge/internal/port/forge"
	"github.com/Strob0t/actions-bridge/internal/resilience"
)

// maxResponseBytes caps how much of a GitHub response is read.
const maxResponseBytes = 4 << 20

// Client talks to the GitHub pulls API.
type Client struct {
	apiURL     string
	token      string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a client for apiURL (e.g. https://api.github.com).
func NewClient(apiURL, token string, timeout time.Duration) *Client {
	return &Client{
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// Configured reports whether a token is available.
func (c *Client) Configured() bool { return c.token != "" }

type createPullRequest struct {
	Title               string `json:"title"`
	Body                string `json:"body"`
	Head                string `json:"head"`
	Base                string `json:"base"`
	MaintainerCanModify bool   `json:"maintainer_can_modify"`
}

// OpenPullRequest creates a pull request and returns GitHub's response body.
// Non-2xx responses are returned as *forge.APIError.
func (c *Client) OpenPullRequest(ctx context.Context, pr forge.PullRequest) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, forge.ErrNotConfigured
	}

	body, err := json.Marshal(createPullRequest{
		Title:               pr.Title,
		Body:                pr.Body,
		Head:                pr.Head,
		Base:                pr.Base,
		MaintainerCanModify: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal pull request: %w", err)
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/repos/"+pr.Slug+"/pulls", body)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("open pull request: response is not JSON")
	}
	return json.RawMessage(data), nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("github request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 300 {
			return &forge.APIError{Status: resp.StatusCode, Body: string(data)}
		}
		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(ctx, call); err != nil {
			return nil, err
		}
		return result, nil
	}
	if err := call(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// CountsAsFailure reports whether err should trip the breaker: transport
// errors and 5xx responses do, client errors from GitHub do not.
func CountsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *forge.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return true
}
