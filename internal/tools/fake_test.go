package tools

import (
	"context"
	"errors"
	"strings"
	"sync"
)

type fakeResult struct {
	out string
	err error
}

// fakeRunner answers commands from a table keyed by the full command line.
// Unknown commands fail as if the binary were missing.
type fakeRunner struct {
	mu      sync.Mutex
	results map[string]fakeResult
	calls   []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{results: map[string]fakeResult{}}
}

func (f *fakeRunner) on(cmdline, out string, err error) *fakeRunner {
	f.results[cmdline] = fakeResult{out: out, err: err}
	return f
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, line)
	if r, ok := f.results[line]; ok {
		return r.out, r.err
	}
	return "", errors.New(name + ": executable file not found in $PATH")
}

func (f *fakeRunner) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
