// Package executor spawns external processes in the sandbox root with a
// bounded run time, bounded captured output and bounded concurrency.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/Strob0t/actions-bridge/internal/domain"
	"github.com/Strob0t/actions-bridge/internal/domain/command"
)

// waitDelay bounds how long Wait blocks on output pipes after a kill.
const waitDelay = 5 * time.Second

// Options configures a Runner.
type Options struct {
	Dir           string
	Timeout       time.Duration
	MaxOutput     int // characters kept from the tail of stdout+stderr
	MaxConcurrent int
}

// Runner executes argv vectors. It never goes through a shell.
type Runner struct {
	dir       string
	timeout   time.Duration
	maxOutput int
	pool      *Pool
}

// New creates a Runner from opts.
func New(opts Options) *Runner {
	return &Runner{
		dir:       opts.Dir,
		timeout:   opts.Timeout,
		maxOutput: opts.MaxOutput,
		pool:      NewPool(opts.MaxConcurrent),
	}
}

// Stats reports how many processes are running and waiting for a slot.
func (r *Runner) Stats() PoolStats {
	return r.pool.Stats()
}

// Run executes argv and returns its exit code and the tail of stdout followed
// by stderr. A non-zero exit is not an error. When the timeout elapses the
// process group is killed and Run returns the partial result together with a
// *domain.TimeoutError. Cancelling ctx after the process started has no effect.
func (r *Runner) Run(ctx context.Context, argv ...string) (*command.Result, error) {
	// A UTF-8 character is at most 4 bytes; one extra keeps the cut rune out of the tail.
	keep := 4 * (r.maxOutput + 1)
	stdout := newTailBuffer(keep)
	stderr := newTailBuffer(keep)

	code, err := r.exec(ctx, argv, stdout, stderr)
	output := command.Tail(stdout.String()+stderr.String(), r.maxOutput)
	if err != nil {
		var te *domain.TimeoutError
		if errors.As(err, &te) {
			te.Output = output
			return command.NewResult(code, output), te
		}
		return nil, err
	}
	return command.NewResult(code, output), nil
}

// Capture executes argv and returns its complete stdout. A non-zero exit is
// an error carrying the tail of stderr.
func (r *Runner) Capture(ctx context.Context, argv ...string) (string, error) {
	var stdout bytes.Buffer
	stderr := newTailBuffer(4096)

	code, err := r.exec(ctx, argv, &stdout, stderr)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", fmt.Errorf("%s: exit status %d: %s", strings.Join(argv, " "), code, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// exec waits for a pool slot, then runs argv detached from ctx's cancellation.
func (r *Runner) exec(ctx context.Context, argv []string, stdout, stderr io.Writer) (int, error) {
	if len(argv) == 0 || argv[0] == "" {
		return 0, errors.New("executor: empty argv")
	}

	code := -1
	err := r.pool.Run(ctx, func() error {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...) //nolint:gosec // G204: argv built from allow-listed values
		cmd.Dir = r.dir
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		cmd.WaitDelay = waitDelay
		configureProcess(cmd)

		runErr := cmd.Run()
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return &domain.TimeoutError{After: r.timeout}
		}
		if runErr != nil {
			var exitErr *exec.ExitError
			if errors.As(runErr, &exitErr) {
				code = exitErr.ExitCode()
				return nil
			}
			return fmt.Errorf("start %s: %w", argv[0], runErr)
		}
		code = 0
		return nil
	})
	return code, err
}
