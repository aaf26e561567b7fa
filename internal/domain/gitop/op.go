// Package gitop models the git operations the bridge performs and the commit
// safety checks applied before a commit is recorded.
package gitop

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/Strob0t/actions-bridge/internal/domain"
)

// Operation names accepted on the wire.
const (
	OpBranch = "branch"
	OpCommit = "commit"
	OpPush   = "push"
)

// DefaultRemote is used when a push does not name a remote.
const DefaultRemote = "origin"

var (
	// ErrOpNotAllowed is returned for any op outside branch, commit and push.
	ErrOpNotAllowed = &domain.Error{Kind: domain.ErrValidation, Detail: "git op not allowed"}
	// ErrInvalidArgs is returned when args do not decode into the op's shape.
	ErrInvalidArgs = &domain.Error{Kind: domain.ErrValidation, Detail: "invalid git args"}
)

// Op is a validated git operation. Exactly one of Branch, Commit and Push
// implements it.
type Op interface {
	Kind() string
	// Argv returns the git invocation for the op, without the leading "git".
	// For Commit it is the final commit step only.
	Argv() []string
}

// Branch switches to, or creates and switches to, a branch.
type Branch struct {
	Name   string `json:"name"`
	Create bool   `json:"create"`
}

func (Branch) Kind() string { return OpBranch }

func (b Branch) Argv() []string {
	if b.Create {
		return []string{"checkout", "-b", b.Name}
	}
	return []string{"checkout", b.Name}
}

// Commit stages every change and records it with Message.
type Commit struct {
	Message string `json:"message"`
}

func (Commit) Kind() string { return OpCommit }

func (c Commit) Argv() []string { return []string{"commit", "-m", c.Message} }

// Push pushes Branch to Remote.
type Push struct {
	Remote string `json:"remote"`
	Branch string `json:"branch"`
}

func (Push) Kind() string { return OpPush }

func (p Push) Argv() []string { return []string{"push", p.Remote, p.Branch} }

// Parse decodes args for the named op and validates it.
func Parse(op string, args json.RawMessage) (Op, error) {
	switch op {
	case OpBranch:
		var b Branch
		if err := decodeArgs(args, &b); err != nil {
			return nil, err
		}
		if err := refArg("name", b.Name); err != nil {
			return nil, err
		}
		return b, nil
	case OpCommit:
		var c Commit
		if err := decodeArgs(args, &c); err != nil {
			return nil, err
		}
		if strings.TrimSpace(c.Message) == "" {
			return nil, domain.Validationf("message is required")
		}
		return c, nil
	case OpPush:
		var p Push
		if err := decodeArgs(args, &p); err != nil {
			return nil, err
		}
		if p.Remote == "" {
			p.Remote = DefaultRemote
		}
		if err := refArg("remote", p.Remote); err != nil {
			return nil, err
		}
		if err := refArg("branch", p.Branch); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, ErrOpNotAllowed
	}
}

// decodeArgs treats absent or null args as an empty object.
func decodeArgs(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return ErrInvalidArgs
	}
	return nil
}

// refArg rejects empty values and values git would read as an option.
func refArg(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return domain.Validationf("%s is required", field)
	}
	if strings.HasPrefix(v, "-") {
		return domain.Validationf("%s must not start with '-'", field)
	}
	return nil
}
