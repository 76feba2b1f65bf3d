// Package tools implements the host operations exposed by the server:
// system information, file operations, process management and network
// diagnostics.
package tools

import (
	"time"

	"github.com/sirupsen/logrus"

	"termux-mcp/internal/config"
	"termux-mcp/internal/registry"
	"termux-mcp/internal/schema"
	"termux-mcp/internal/supervisor"
)

const (
	SystemInfo        = "get_system_info"
	FileOperations    = "file_operations"
	ProcessManagement = "process_management"
	NetworkInfo       = "network_info"
)

// Options carries the dependencies shared by the executors.
type Options struct {
	Guard       *PathGuard
	Runner      CommandRunner
	Supervisor  *supervisor.Supervisor
	MaxFileSize int64
	AllowFS     bool
	AllowExec   bool
	PackageTTL  time.Duration
	Log         logrus.FieldLogger
}

// FromConfig builds Options backed by the local host.
func FromConfig(cfg config.Config, log logrus.FieldLogger) (Options, error) {
	guard, err := NewPathGuard(cfg.AllowedPaths, cfg.RestrictedPaths)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Guard:       guard,
		Runner:      NewExecRunner(cfg.ToolTimeout.Std(), int(cfg.MaxOutput), cfg.MaxConcurrentProcesses),
		Supervisor:  supervisor.New(cfg.MaxConcurrentProcesses, log),
		MaxFileSize: int64(cfg.MaxFileSize),
		AllowFS:     cfg.FileSystemAccess(),
		AllowExec:   cfg.ProcessExecution(),
		PackageTTL:  5 * time.Minute,
		Log:         log,
	}, nil
}

// Register adds the four host operations to reg.
func Register(reg *registry.Registry, opts Options) error {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Runner == nil {
		opts.Runner = NewExecRunner(15*time.Second, 1<<20, 10)
	}
	if opts.Guard == nil {
		opts.Guard = &PathGuard{}
	}
	if opts.Supervisor == nil {
		opts.Supervisor = supervisor.New(0, opts.Log)
	}
	if opts.PackageTTL <= 0 {
		opts.PackageTTL = 5 * time.Minute
	}

	ops := []struct {
		desc registry.Descriptor
		ex   registry.Executor
	}{
		{
			desc: registry.Descriptor{
				Name:        SystemInfo,
				Description: "Get system information",
				InputSchema: schema.Object(
					schema.Prop("detail_level", schema.Str().
						OneOf("basic", "detailed", "full").
						WithDefault("basic").
						Describe("Level of detail to return")),
				),
			},
			ex: &systemInfoTool{
				runner:     opts.Runner,
				packages:   NewCache[int](),
				packageTTL: opts.PackageTTL,
				log:        opts.Log,
			},
		},
		{
			desc: registry.Descriptor{
				Name:        FileOperations,
				Description: "File operations tool",
				InputSchema: schema.Object(
					schema.Prop("operation", schema.Str().
						OneOf("read", "write", "list", "delete", "mkdir").
						AsRequired()),
					schema.Prop("path", schema.Str().AsRequired().Describe("File or directory path")),
					schema.Prop("content", schema.Str().Describe("Content for write operation")),
					schema.Prop("recursive", schema.Bool().WithDefault(false).
						Describe("Delete non-empty directories or create parents")),
				),
			},
			ex: &fileOperations{
				guard:       opts.Guard,
				maxFileSize: opts.MaxFileSize,
				enabled:     opts.AllowFS,
			},
		},
		{
			desc: registry.Descriptor{
				Name:        ProcessManagement,
				Description: "Process management tool",
				InputSchema: schema.Object(
					schema.Prop("action", schema.Str().
						OneOf("list", "kill", "start", "status").
						AsRequired()),
					schema.Prop("pid", schema.Int().Between(1, maxPID).Describe("Process ID for kill or status")),
					schema.Prop("command", schema.Str().Describe("Command to start")),
					schema.Prop("args", schema.ArrayOf(schema.Str()).Describe("Command arguments")),
				),
			},
			ex: &processManagement{
				runner:  opts.Runner,
				sup:     opts.Supervisor,
				enabled: opts.AllowExec,
			},
		},
		{
			desc: registry.Descriptor{
				Name:        NetworkInfo,
				Description: "Network information tool",
				InputSchema: schema.Object(
					schema.Prop("action", schema.Str().
						OneOf("ping", "ports", "connections", "interfaces").
						AsRequired()),
					schema.Prop("target", schema.Str().Describe("Host name or IP for ping")),
					schema.Prop("port", schema.Int().Between(1, 65535).Describe("Filter ports output by port number")),
				),
			},
			ex: &networkInfo{runner: opts.Runner},
		},
	}
	for _, op := range ops {
		if err := reg.Register(op.desc, op.ex); err != nil {
			return err
		}
	}
	return nil
}
