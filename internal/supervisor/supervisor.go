// Package supervisor tracks processes started on behalf of callers.
//
// Started processes run in their own session and outlive the request that
// created them. The supervisor reaps each one and records how it ended so
// callers can observe running, exited and killed states.
package supervisor

import (
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// State is the lifecycle stage of a supervised process.
type State string

const (
	StateRunning State = "running"
	StateExited  State = "exited"
	StateKilled  State = "killed"
)

// finished processes kept for status queries
const maxHistory = 256

var (
	ErrLimitReached  = errors.New("too many running processes")
	ErrNotSupervised = errors.New("process is not supervised")
)

// Snapshot is a point-in-time view of a supervised process.
type Snapshot struct {
	PID       int        `json:"pid"`
	Command   string     `json:"command"`
	Args      []string   `json:"args,omitempty"`
	State     State      `json:"state"`
	ExitCode  *int       `json:"exitCode,omitempty"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

type process struct {
	cmd       *exec.Cmd
	snap      Snapshot
	signalled bool
	done      chan struct{}
}

type Supervisor struct {
	mu      sync.Mutex
	procs   map[int]*process
	running int
	max     int
	log     logrus.FieldLogger
}

// New returns a supervisor allowing at most max concurrently running
// processes. max <= 0 disables the limit.
func New(max int, log logrus.FieldLogger) *Supervisor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Supervisor{procs: make(map[int]*process), max: max, log: log}
}

// Start launches name detached from the server and returns immediately.
func (s *Supervisor) Start(name string, args []string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.max > 0 && s.running >= s.max {
		return Snapshot{}, fmt.Errorf("%w (limit %d)", ErrLimitReached, s.max)
	}

	cmd := exec.Command(name, args...)
	cmd.SysProcAttr = detachedAttr()
	if err := cmd.Start(); err != nil {
		return Snapshot{}, err
	}

	p := &process{
		cmd: cmd,
		snap: Snapshot{
			PID:       cmd.Process.Pid,
			Command:   name,
			Args:      append([]string(nil), args...),
			State:     StateRunning,
			StartedAt: time.Now(),
		},
		done: make(chan struct{}),
	}
	s.prune()
	s.procs[p.snap.PID] = p
	s.running++
	go s.wait(p)

	s.log.WithFields(logrus.Fields{"pid": p.snap.PID, "command": name}).Info("process started")
	return p.snap, nil
}

func (s *Supervisor) wait(p *process) {
	err := p.cmd.Wait()
	code := -1
	if p.cmd.ProcessState != nil {
		code = p.cmd.ProcessState.ExitCode()
	}

	s.mu.Lock()
	now := time.Now()
	p.snap.EndedAt = &now
	p.snap.ExitCode = &code
	if p.signalled || code == -1 {
		p.snap.State = StateKilled
	} else {
		p.snap.State = StateExited
	}
	s.running--
	snap := p.snap
	s.mu.Unlock()
	close(p.done)

	entry := s.log.WithFields(logrus.Fields{"pid": snap.PID, "state": snap.State, "exit_code": code})
	if err != nil && snap.State == StateExited {
		entry = entry.WithError(err)
	}
	entry.Info("process ended")
}

// prune drops the oldest finished entries once history grows too large.
// Caller holds s.mu.
func (s *Supervisor) prune() {
	if len(s.procs) < maxHistory {
		return
	}
	var finished []*process
	for _, p := range s.procs {
		if p.snap.State != StateRunning {
			finished = append(finished, p)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].snap.EndedAt.Before(*finished[j].snap.EndedAt)
	})
	for i := 0; i < len(finished) && len(s.procs) >= maxHistory; i++ {
		delete(s.procs, finished[i].snap.PID)
	}
}

// Get returns the snapshot of a supervised pid.
func (s *Supervisor) Get(pid int) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.procs[pid]
	if !ok {
		return Snapshot{}, false
	}
	return p.snap, true
}

// List returns snapshots ordered by pid.
func (s *Supervisor) List() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Snapshot, 0, len(s.procs))
	for _, p := range s.procs {
		out = append(out, p.snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

// Terminate sends SIGTERM to a supervised process without waiting for it
// to exit.
func (s *Supervisor) Terminate(pid int) error {
	s.mu.Lock()
	p, ok := s.procs[pid]
	if !ok {
		s.mu.Unlock()
		return ErrNotSupervised
	}
	if p.snap.State != StateRunning {
		s.mu.Unlock()
		return fmt.Errorf("process %d already %s", pid, p.snap.State)
	}
	p.signalled = true
	s.mu.Unlock()

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal process %d: %w", pid, err)
	}
	return nil
}

// Wait blocks until the supervised pid ends or timeout elapses.
func (s *Supervisor) Wait(pid int, timeout time.Duration) (Snapshot, error) {
	s.mu.Lock()
	p, ok := s.procs[pid]
	s.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrNotSupervised
	}
	select {
	case <-p.done:
	case <-time.After(timeout):
		return Snapshot{}, fmt.Errorf("process %d still running after %s", pid, timeout)
	}
	snap, _ := s.Get(pid)
	return snap, nil
}

// Running reports how many supervised processes have not ended.
func (s *Supervisor) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
