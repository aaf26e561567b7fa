// Package sandbox confines file access to a single directory tree and blocks
// paths that look like secrets or CI configuration.
package sandbox

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Strob0t/actions-bridge/internal/config"
	"github.com/Strob0t/actions-bridge/internal/domain"
	"github.com/Strob0t/actions-bridge/internal/domain/command"
)

var (
	// ErrEscape is returned for paths that resolve outside the root.
	ErrEscape = &domain.Error{Kind: domain.ErrValidation, Detail: "path escape detected"}
	// ErrSensitiveFile is returned when the final path component has a sensitive prefix.
	ErrSensitiveFile = &domain.Error{Kind: domain.ErrValidation, Detail: "sensitive file blocked"}
	// ErrSensitivePath is returned when a directory below the root is sensitive.
	ErrSensitivePath = &domain.Error{Kind: domain.ErrValidation, Detail: "sensitive path blocked"}
	// ErrFileNotFound is returned by Read for anything that is not a regular file.
	ErrFileNotFound = &domain.Error{Kind: domain.ErrNotFound, Detail: "file not found"}
)

// Sandbox resolves caller paths against a canonical root.
type Sandbox struct {
	root           string
	allowSensitive bool
	prefixes       []string
	dirs           []string
	maxReadChars   int
}

// New canonicalizes cfg.Root and returns a Sandbox. The root must exist.
func New(cfg config.Sandbox) (*Sandbox, error) {
	abs, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("sandbox root %q: %w", cfg.Root, err)
	}
	root, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("sandbox root %q: %w", cfg.Root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("sandbox root %q: %w", cfg.Root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sandbox root %q: not a directory", cfg.Root)
	}

	return &Sandbox{
		root:           root,
		allowSensitive: cfg.AllowSensitive,
		prefixes:       cfg.SensitivePrefixes,
		dirs:           cfg.SensitiveDirs,
		maxReadChars:   cfg.MaxReadChars,
	}, nil
}

// Root returns the canonical root directory.
func (s *Sandbox) Root() string { return s.root }

// Resolve maps p to an absolute, symlink-free path inside the root.
// Relative paths are joined to the root; absolute paths are taken as given.
// The target itself does not need to exist.
func (s *Sandbox) Resolve(p string) (string, error) {
	candidate := p
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(s.root, candidate)
	}
	candidate = filepath.Clean(candidate)

	resolved, err := resolveExisting(candidate)
	if err != nil {
		return "", ErrEscape
	}
	if !s.contains(resolved) {
		return "", ErrEscape
	}
	return resolved, nil
}

func (s *Sandbox) contains(abs string) bool {
	return abs == s.root || strings.HasPrefix(abs, s.root+string(filepath.Separator))
}

// resolveExisting evaluates symlinks on the longest existing prefix of path
// and re-appends the missing remainder. A symlink whose target is missing
// cannot be resolved and is reported as an error.
func resolveExisting(path string) (string, error) {
	var rest []string
	cur := path
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			parts := append([]string{resolved}, rest...)
			return filepath.Join(parts...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, syscall.ENOTDIR) {
			return "", err
		}
		if _, lerr := os.Lstat(cur); lerr == nil {
			// cur exists but does not resolve: dangling symlink.
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", err
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = parent
	}
}

// CheckSensitive rejects abs when its name or a directory below the root is
// on the sensitive lists. It is a no-op when sensitive access is allowed.
func (s *Sandbox) CheckSensitive(abs string) error {
	if s.allowSensitive {
		return nil
	}

	name := filepath.Base(abs)
	for _, prefix := range s.prefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return ErrSensitiveFile
		}
	}

	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == "." {
		return nil
	}
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		for _, dir := range s.dirs {
			if seg == dir {
				return ErrSensitivePath
			}
		}
	}
	return nil
}

// Guard resolves p and applies the sensitivity check.
func (s *Sandbox) Guard(p string) (string, error) {
	abs, err := s.Resolve(p)
	if err != nil {
		return "", err
	}
	if err := s.CheckSensitive(abs); err != nil {
		return "", err
	}
	return abs, nil
}

// Read returns the content of the regular file at p, keeping at most the
// configured number of leading characters.
func (s *Sandbox) Read(p string) (string, error) {
	abs, err := s.Guard(p)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return "", ErrFileNotFound
	}

	f, err := os.Open(abs) //nolint:gosec // G304: path confined to the sandbox root
	if err != nil {
		return "", fmt.Errorf("open %s: %w", p, err)
	}
	defer func() { _ = f.Close() }()

	// A UTF-8 character is at most 4 bytes; the extra 4 keep the cut rune whole.
	limit := int64(s.maxReadChars)*4 + 4
	data, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", p, err)
	}
	return command.Head(string(data), s.maxReadChars), nil
}

// Write creates or replaces the file at p, creating parent directories.
func (s *Sandbox) Write(p, content string) error {
	abs, err := s.Guard(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil { //nolint:gosec // G301: repository tree permissions
		return fmt.Errorf("create parent of %s: %w", p, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil { //nolint:gosec // G306: repository tree permissions
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}
