// Command termux-mcp serves host introspection tools over HTTP or MCP stdio.
package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"termux-mcp/internal/config"
	"termux-mcp/internal/dispatch"
	"termux-mcp/internal/logging"
	"termux-mcp/internal/mcpstdio"
	"termux-mcp/internal/metrics"
	"termux-mcp/internal/registry"
	"termux-mcp/internal/server"
	"termux-mcp/internal/tools"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp().ExecuteContext(ctx)
	stop()
	if err != nil {
		logrus.Fatal(err)
	}
}

func newApp() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "termux-mcp",
		Short: "MCP server for Termux host introspection",
		Long: `termux-mcp exposes system information, file operations, process management
and network diagnostics as named tools.

Configuration comes from environment variables, optionally layered over a
TOML file named by CONFIG_FILE.`,
		Version:       config.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveAction,
	}
	cmd.AddCommand(
		newServeCommand(),
		newStdioCommand(),
		newToolsCommand(),
	)
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE:  serveAction,
	}
}

func newStdioCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Serve MCP over stdio",
		Long: `Serve MCP over stdio.

Expected to be executed via an AI agent, not by a human. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: stdioAction,
	}
}

func newToolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool descriptors as JSON",
		Args:  cobra.NoArgs,
		RunE:  toolsAction,
	}
}

type app struct {
	cfg        config.Config
	dispatcher *dispatch.Dispatcher
	logCloser  io.Closer
}

func setup(logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	closer, err := logging.Setup(cfg, logOut)
	if err != nil {
		return nil, err
	}
	log := logrus.StandardLogger()

	opts, err := tools.FromConfig(cfg, log)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	reg := registry.New()
	if err := tools.Register(reg, opts); err != nil {
		_ = closer.Close()
		return nil, err
	}

	metrics.Register()
	d := dispatch.New(reg,
		dispatch.WithLogger(log),
		dispatch.WithObserver(func(tool string, kind dispatch.ErrorKind, elapsed time.Duration) {
			metrics.RecordToolCall(tool, kind.String(), elapsed)
		}),
	)

	log.WithFields(logrus.Fields{
		"env":               cfg.Env,
		"version":           config.Version,
		"fs_access":         opts.AllowFS,
		"process_execution": opts.AllowExec,
	}).Debug("configuration loaded")
	if !opts.AllowFS {
		log.Info("file_operations is disabled; set ALLOW_FS_ACCESS=true to enable it")
	}
	return &app{cfg: cfg, dispatcher: d, logCloser: closer}, nil
}

func serveAction(cmd *cobra.Command, _ []string) error {
	a, err := setup(os.Stderr)
	if err != nil {
		return err
	}
	defer a.logCloser.Close()

	if a.cfg.Token == "" {
		logrus.Warn("MCP_TOKEN not set; /api/mcp endpoints are open")
	}
	srv := server.New(a.cfg, a.dispatcher, logrus.StandardLogger())
	return srv.ListenAndServe(cmd.Context())
}

func stdioAction(cmd *cobra.Command, _ []string) error {
	// stdout carries the protocol.
	a, err := setup(os.Stderr)
	if err != nil {
		return err
	}
	defer a.logCloser.Close()

	logrus.WithField("tools", len(a.dispatcher.ListOperations())).Info("serving MCP over stdio")
	return mcpstdio.Serve(cmd.Context(), a.dispatcher)
}

func toolsAction(cmd *cobra.Command, _ []string) error {
	a, err := setup(io.Discard)
	if err != nil {
		return err
	}
	defer a.logCloser.Close()

	j, err := json.MarshalIndent(a.dispatcher.ListOperations(), "", "    ")
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(append(j, '\n'))
	return err
}
