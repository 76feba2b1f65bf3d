package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
)

// CommandRunner runs a diagnostic command and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs commands on the local host. Each run is bounded by
// Timeout, its output is capped at MaxOutput bytes, and at most the
// configured number of commands run at once.
type ExecRunner struct {
	Timeout   time.Duration
	MaxOutput int
	slots     *semaphore.Weighted
}

func NewExecRunner(timeout time.Duration, maxOutput, maxConcurrent int) *ExecRunner {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &ExecRunner{
		Timeout:   timeout,
		MaxOutput: maxOutput,
		slots:     semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	if err := r.slots.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("waiting for a process slot: %w", err)
	}
	defer r.slots.Release(1)

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	stdout := &cappedBuffer{max: r.MaxOutput}
	stderr := &cappedBuffer{max: 4096}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	out := stdout.String()
	if err == nil {
		return out, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return out, fmt.Errorf("%s timed out after %s", name, r.Timeout)
	}
	if msg := strings.TrimSpace(stderr.buf.String()); msg != "" {
		return out, fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return out, fmt.Errorf("%s: %w", name, err)
}

// runFirst tries each command in order and returns the output of the first
// that succeeds.
func runFirst(ctx context.Context, r CommandRunner, candidates ...[]string) (string, error) {
	var errs []error
	for _, c := range candidates {
		out, err := r.Run(ctx, c[0], c[1:]...)
		if err == nil {
			return out, nil
		}
		errs = append(errs, err)
	}
	return "", errors.Join(errs...)
}

// cappedBuffer keeps the first max bytes written and silently drops the
// rest so the child never sees a short write. max <= 0 keeps everything.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int
	truncated int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if b.max <= 0 {
		return b.buf.Write(p)
	}
	room := b.max - b.buf.Len()
	if room <= 0 {
		b.truncated += len(p)
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated += len(p) - room
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	if b.truncated == 0 {
		return b.buf.String()
	}
	return fmt.Sprintf("%s\n[output truncated at %d bytes, %d bytes dropped]", b.buf.String(), b.max, b.truncated)
}
