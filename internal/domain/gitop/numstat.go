package gitop

import (
	"strconv"
	"strings"

	"github.com/Strob0t/actions-bridge/internal/domain"
)

var (
	// ErrDiffTooLarge is returned when staged changes exceed MaxDiffLines.
	ErrDiffTooLarge = &domain.Error{Kind: domain.ErrValidation, Detail: "diff too large"}
	// ErrTooManyDeletions is returned when staged deletions exceed MaxDeletes.
	ErrTooManyDeletions = &domain.Error{Kind: domain.ErrValidation, Detail: "too many deletions"}
)

// Limits are the commit safety thresholds. Values equal to a limit pass.
type Limits struct {
	MaxDiffLines int
	MaxDeletes   int
}

// Verdict summarizes a staged diff.
type Verdict struct {
	ChangedLines int
	DeletedFiles int
}

// Check returns ErrDiffTooLarge or ErrTooManyDeletions when v exceeds l.
// The diff size is checked first.
func (l Limits) Check(v Verdict) error {
	if v.ChangedLines > l.MaxDiffLines {
		return ErrDiffTooLarge
	}
	if v.DeletedFiles > l.MaxDeletes {
		return ErrTooManyDeletions
	}
	return nil
}

// ParseNumstat sums added and deleted line counts from `git diff --numstat`
// output. Lines with fewer than two fields contribute nothing; a field that
// is not a number (binary files report "-") counts as zero.
func ParseNumstat(out string) int {
	total := 0
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		total += atoiOrZero(fields[0]) + atoiOrZero(fields[1])
	}
	return total
}

// CountLines returns the number of non-blank lines in out.
func CountLines(out string) int {
	n := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
