// Package command defines the allow-list and result shape for bridge commands.
package command

import (
	"slices"
	"unicode/utf8"

	"github.com/Strob0t/actions-bridge/internal/domain"
)

// ErrNotAllowed is returned for command names outside the allow-list.
var ErrNotAllowed = &domain.Error{Kind: domain.ErrValidation, Detail: "command not allowed"}

// DefaultAllowed is the built-in set of runnable command names.
var DefaultAllowed = []string{"test", "lint", "typecheck", "e2e-real"}

// AllowList is a fixed set of command names. Matching is exact and case-sensitive.
type AllowList struct {
	names map[string]struct{}
}

// NewAllowList builds an AllowList from names. Empty names are ignored.
func NewAllowList(names []string) AllowList {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n != "" {
			m[n] = struct{}{}
		}
	}
	return AllowList{names: m}
}

// Allowed reports whether name is in the list.
func (a AllowList) Allowed(name string) bool {
	_, ok := a.names[name]
	return ok
}

// Check returns ErrNotAllowed unless name is in the list.
func (a AllowList) Check(name string) error {
	if !a.Allowed(name) {
		return ErrNotAllowed
	}
	return nil
}

// Names returns the allowed names in sorted order.
func (a AllowList) Names() []string {
	out := make([]string, 0, len(a.names))
	for n := range a.names {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Result is the outcome of a finished process.
type Result struct {
	OK         bool   `json:"ok"`
	Code       int    `json:"code"`
	OutputTail string `json:"output_tail"`
}

// NewResult builds a Result; OK is derived from the exit code.
func NewResult(code int, output string) *Result {
	return &Result{OK: code == 0, Code: code, OutputTail: output}
}

// Tail returns the last n characters of s. Invalid UTF-8 bytes count as one
// character each.
func Tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	i := len(s)
	for count := 0; count < n && i > 0; count++ {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return s[i:]
}

// Head returns the first n characters of s.
func Head(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	i := 0
	for count := 0; count < n && i < len(s); count++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i]
}
