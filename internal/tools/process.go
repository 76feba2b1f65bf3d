package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"

	"termux-mcp/internal/supervisor"
)

var errExecDisabled = errors.New("process execution is disabled")

type processManagement struct {
	runner  CommandRunner
	sup     *supervisor.Supervisor
	enabled bool
}

func (p *processManagement) Invoke(ctx context.Context, args map[string]any) (any, error) {
	data, err := p.run(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("Process management failed: %w", err)
	}
	return data, nil
}

func (p *processManagement) run(ctx context.Context, args map[string]any) (any, error) {
	switch action := stringArg(args, "action"); action {
	case "list":
		out, err := p.runner.Run(ctx, "ps", "aux")
		if err != nil {
			return nil, err
		}
		return map[string]any{"processes": out, "supervised": p.sup.List()}, nil
	case "kill":
		return p.kill(args)
	case "start":
		return p.start(args)
	case "status":
		return p.status(ctx, args)
	default:
		return nil, invalidArgf("unknown action: %s", action)
	}
}

func (p *processManagement) kill(args map[string]any) (any, error) {
	if !p.enabled {
		return nil, errExecDisabled
	}
	pid, err := requirePID(args, "kill")
	if err != nil {
		return nil, err
	}
	if pid == os.Getpid() {
		return nil, invalidArgf("refusing to signal the server process")
	}
	err = p.sup.Terminate(pid)
	if errors.Is(err, supervisor.ErrNotSupervised) {
		err = signalTerm(pid)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"message": fmt.Sprintf("Process %d terminated", pid)}, nil
}

func (p *processManagement) start(args map[string]any) (any, error) {
	if !p.enabled {
		return nil, errExecDisabled
	}
	command := strings.TrimSpace(stringArg(args, "command"))
	if command == "" {
		return nil, invalidArgf("command is required for start operation")
	}
	argv := stringSliceArg(args, "args")
	if len(argv) == 0 && strings.ContainsAny(command, " \t") {
		words, err := shellwords.Parse(command)
		if err != nil {
			return nil, invalidArgf("cannot parse command: %v", err)
		}
		if len(words) == 0 {
			return nil, invalidArgf("command is required for start operation")
		}
		command, argv = words[0], words[1:]
	}
	snap, err := p.sup.Start(command, argv)
	if err != nil {
		return nil, err
	}
	return map[string]any{"message": "Process started: " + command, "pid": snap.PID}, nil
}

func (p *processManagement) status(ctx context.Context, args map[string]any) (any, error) {
	pid, err := requirePID(args, "status")
	if err != nil {
		return nil, err
	}
	if snap, ok := p.sup.Get(pid); ok {
		return map[string]any{"status": string(snap.State), "process": snap}, nil
	}
	out, err := p.runner.Run(ctx, "ps", "-p", strconv.Itoa(pid))
	if err != nil {
		// ps exits non-zero when the pid is gone.
		return map[string]any{"status": "Process not found"}, nil
	}
	return map[string]any{"status": out}, nil
}
