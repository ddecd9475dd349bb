package handler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"ahagon/pkg/cmdutil"
)

// maxLoggedOutput bounds how much command output ends up in the log.
const maxLoggedOutput = 4096

// DefaultMaxPending bounds the runs of one command that may be queued or
// running at once, across all repositories.
const DefaultMaxPending = 32

// ErrBusy is returned when a command already has its maximum number of
// runs pending.
var ErrBusy = errors.New("action has too many pending runs")

// Command runs an external command for each delivery. The raw payload is
// written to the command's stdin and delivery metadata is exported as
// AHAGON_* environment variables. Commands run in the background so the
// notifier gets its response immediately; runs for the same repository are
// serialized.
type Command struct {
	parts   []string
	dir     string
	timeout time.Duration
	logger  *slog.Logger
	locks   *repoLocks
	wg      sync.WaitGroup

	maxPending int64
	pending    atomic.Int64
}

// NewCommand parses a shell-quoted command line.
func NewCommand(cmdline, dir string, timeout time.Duration, logger *slog.Logger) (*Command, error) {
	parts, err := cmdutil.ParseCommandString(cmdline)
	if err != nil {
		return nil, err
	}
	return &Command{
		parts:   parts,
		dir:     dir,
		timeout: timeout,
		logger:  logger,
		locks:   newRepoLocks(),

		maxPending: DefaultMaxPending,
	}, nil
}

// SetMaxPending changes the pending run bound. n < 1 is treated as 1.
func (c *Command) SetMaxPending(n int) {
	c.maxPending = int64(max(n, 1))
}

// senderEnv describes the delivery's sender and what the repository
// permits them to do.
func senderEnv(d *Delivery) []string {
	login := d.Payload.String("sender", "login")
	if login == "" {
		return nil
	}
	return []string{
		"AHAGON_SENDER=" + login,
		"AHAGON_SENDER_REVIEWER=" + strconv.FormatBool(d.Repo.IsReviewer(login)),
		"AHAGON_SENDER_TRY=" + strconv.FormatBool(d.Repo.CanTry(login)),
	}
}

// Handle starts the command and returns without waiting for it. It returns
// ErrBusy instead when the pending bound is reached.
func (c *Command) Handle(_ context.Context, d *Delivery) error {
	if c.pending.Add(1) > c.maxPending {
		c.pending.Add(-1)
		return ErrBusy
	}

	env := append(os.Environ(),
		"AHAGON_DELIVERY="+d.ID,
		"AHAGON_SOURCE="+string(d.Source),
		"AHAGON_EVENT="+d.Kind.String(),
		"AHAGON_REPO="+d.Repo.Slug(),
	)
	env = append(env, senderEnv(d)...)
	stdin := bytes.NewReader(d.Payload.Raw)
	secrets := []string{d.Repo.Secret, d.Repo.CIToken}
	slug := d.Repo.Slug()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.pending.Add(-1)

		unlock := c.locks.lock(slug)
		defer unlock()

		result, err := cmdutil.Run(context.Background(), cmdutil.ExecOptions{
			Dir:     c.dir,
			Timeout: c.timeout,
			Env:     env,
			Stdin:   stdin,
		}, c.parts)

		attrs := []any{
			"delivery", d.ID,
			"event", d.Kind,
			"command", cmdutil.FormatCommand(c.parts),
		}
		if result != nil {
			output := cmdutil.SanitizeOutput(result.Output, secrets)
			if len(output) > maxLoggedOutput {
				output = output[:maxLoggedOutput]
			}
			attrs = append(attrs,
				"exit_code", result.ExitCode,
				"duration_ms", result.Duration.Milliseconds(),
				"timed_out", result.TimedOut,
				"output", string(output))
		}

		if err != nil {
			c.logger.Error("action failed", append(attrs, "error", err)...)
			return
		}
		c.logger.Info("action completed", attrs...)
	}()

	return nil
}

// Wait blocks until every started command has exited.
func (c *Command) Wait() {
	c.wg.Wait()
}
