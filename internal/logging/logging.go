// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"termux-mcp/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup applies level, format and destination from cfg to the standard
// logger. Console output goes to out; when cfg.LogToFile is set the same
// entries are appended to cfg.LogFile. The returned closer releases the file.
func Setup(cfg config.Config, out io.Writer) (io.Closer, error) {
	logger := logrus.StandardLogger()
	return configure(logger, cfg, out)
}

func configure(logger *logrus.Logger, cfg config.Config, out io.Writer) (io.Closer, error) {
	logger.SetLevel(ParseLevel(cfg.LogLevel))
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    true,
		DisableColors:    !cfg.IsDevelopment(),
		QuoteEmptyFields: true,
	})

	if !cfg.LogToFile {
		logger.SetOutput(out)
		return nopCloser{}, nil
	}
	if dir := filepath.Dir(cfg.LogFile); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("log directory %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("log file %s: %w", cfg.LogFile, err)
	}
	logger.SetOutput(io.MultiWriter(out, f))
	return f, nil
}

// ParseLevel maps a configured level name to a logrus level, defaulting to info.
func ParseLevel(raw string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(raw))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
