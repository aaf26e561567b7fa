// Package forge defines the port interfaces for the code-hosting collaborator
// that opens pull requests.
package forge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Strob0t/actions-bridge/internal/domain"
)

// ErrNotConfigured is returned when no forge credentials are available.
var ErrNotConfigured = domain.Internal("GH_TOKEN missing")

// PullRequest is the input for opening a pull request.
type PullRequest struct {
	Slug  string // owner/repo
	Head  string
	Base  string
	Title string
	Body  string
}

// APIError is a non-success response from the forge. Status is passed
// through to the bridge client.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub error: %s", e.Body)
}

// Opener opens pull requests. The returned JSON is the forge's response body.
type Opener interface {
	// Configured reports whether credentials are available.
	Configured() bool
	OpenPullRequest(ctx context.Context, pr PullRequest) (json.RawMessage, error)
}

// RepoIdentity resolves facts about the local repository's remote.
type RepoIdentity interface {
	Slug(ctx context.Context) (string, error)
	DefaultBranch(ctx context.Context) (string, error)
}
