// Package config loads the server configuration once at startup.
//
// Values come from built-in defaults, then an optional TOML file named by
// CONFIG_FILE, then environment variables. Nothing is reloaded afterwards.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/docker/go-units"
)

const (
	Version = "1.0.0"

	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// ByteSize is a size in bytes that accepts human readable input such as
// "10mb" or "512KiB".
type ByteSize int64

func (b *ByteSize) UnmarshalText(text []byte) error {
	n, err := units.RAMInBytes(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*b = ByteSize(n)
	return nil
}

func (b ByteSize) String() string { return units.BytesSize(float64(b)) }

// Duration accepts Go duration strings or a plain number of milliseconds.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Port           int      `toml:"port"`
	Host           string   `toml:"host"`
	Env            string   `toml:"env"`
	AllowedOrigins []string `toml:"allowed_origins"`

	LogLevel  string `toml:"log_level"`
	LogToFile bool   `toml:"log_to_file"`
	LogFile   string `toml:"log_file"`

	AllowedPaths    []string `toml:"allowed_paths"`
	RestrictedPaths []string `toml:"restricted_paths"`

	MaxConcurrentProcesses int      `toml:"max_concurrent_processes"`
	ToolTimeout            Duration `toml:"tool_timeout"`
	RequestTimeout         Duration `toml:"request_timeout"`
	MaxRequestSize         ByteSize `toml:"max_request_size"`
	MaxFileSize            ByteSize `toml:"max_file_size"`
	MaxOutput              ByteSize `toml:"max_output"`

	// Nil means "follow the environment": enabled in development only.
	AllowFSAccess         *bool `toml:"allow_fs_access"`
	AllowProcessExecution *bool `toml:"allow_process_execution"`

	PublicDir string `toml:"public_dir"`

	// Token, when set, is required as a bearer token on /api/mcp routes.
	Token       string `toml:"token"`
	TLSCertFile string `toml:"tls_cert_file"`
	TLSKeyFile  string `toml:"tls_key_file"`
}

// Default returns the built-in configuration. home is used for the default
// allowed path list.
func Default(home string) Config {
	if home == "" {
		home = "/data/data/com.termux/files/home"
	}
	return Config{
		Port: 3000,
		Host: "0.0.0.0",
		Env:  EnvProduction,
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:8080",
			"http://127.0.0.1:8080",
		},
		LogLevel:               "info",
		LogFile:                "logs/mcp-server.log",
		AllowedPaths:           []string{home, "/storage/emulated/0", "/sdcard"},
		RestrictedPaths:        []string{"/system", "/vendor", "/etc", "/proc", "/dev", "/sys"},
		MaxConcurrentProcesses: 10,
		ToolTimeout:            Duration(15 * time.Second),
		RequestTimeout:         Duration(30 * time.Second),
		MaxRequestSize:         10 * units.MiB,
		MaxFileSize:            50 * units.MiB,
		MaxOutput:              1 * units.MiB,
		PublicDir:              "public",
	}
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads the configuration using getenv for every lookup.
func LoadFrom(getenv func(string) string) (Config, error) {
	cfg := Default(getenv("HOME"))
	if path := strings.TrimSpace(getenv("CONFIG_FILE")); path != "" {
		if err := loadToml(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadToml(path string, cfg *Config) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v := getenv(key); v != "" {
			*dst = splitCSV(v)
		}
	}
	text := func(key string, dst interface{ UnmarshalText([]byte) error }) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}
	boolean := func(key string, dst *bool) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	optBool := func(key string, dst **bool) {
		if strings.TrimSpace(getenv(key)) == "" {
			return
		}
		var b bool
		boolean(key, &b)
		*dst = &b
	}
	integer := func(key string, dst *int) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = i
		}
	}

	integer("PORT", &cfg.Port)
	str("HOST", &cfg.Host)
	str("MCP_ENV", &cfg.Env)
	list("ALLOWED_ORIGINS", &cfg.AllowedOrigins)
	str("LOG_LEVEL", &cfg.LogLevel)
	boolean("LOG_TO_FILE", &cfg.LogToFile)
	str("LOG_FILE", &cfg.LogFile)
	list("ALLOWED_PATHS", &cfg.AllowedPaths)
	list("RESTRICTED_PATHS", &cfg.RestrictedPaths)
	integer("MAX_CONCURRENT_PROCESSES", &cfg.MaxConcurrentProcesses)
	text("TOOL_TIMEOUT", &cfg.ToolTimeout)
	text("REQUEST_TIMEOUT", &cfg.RequestTimeout)
	text("MAX_REQUEST_SIZE", &cfg.MaxRequestSize)
	text("MAX_FILE_SIZE", &cfg.MaxFileSize)
	text("MAX_OUTPUT", &cfg.MaxOutput)
	optBool("ALLOW_FS_ACCESS", &cfg.AllowFSAccess)
	optBool("ALLOW_PROCESS_EXECUTION", &cfg.AllowProcessExecution)
	str("PUBLIC_DIR", &cfg.PublicDir)
	str("MCP_TOKEN", &cfg.Token)
	str("TLS_CERT_FILE", &cfg.TLSCertFile)
	str("TLS_KEY_FILE", &cfg.TLSKeyFile)

	return errors.Join(errs...)
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Env {
	case EnvProduction, EnvDevelopment:
	default:
		return fmt.Errorf("invalid environment %q (want %s or %s)", c.Env, EnvProduction, EnvDevelopment)
	}
	if c.MaxConcurrentProcesses <= 0 {
		return fmt.Errorf("max concurrent processes must be positive, got %d", c.MaxConcurrentProcesses)
	}
	if c.ToolTimeout <= 0 {
		return errors.New("tool timeout must be positive")
	}
	if c.MaxOutput <= 0 || c.MaxFileSize <= 0 || c.MaxRequestSize <= 0 {
		return errors.New("size limits must be positive")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	return nil
}

func (c Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

// FileSystemAccess reports whether file_operations may run.
func (c Config) FileSystemAccess() bool {
	if c.AllowFSAccess != nil {
		return *c.AllowFSAccess
	}
	return c.IsDevelopment()
}

// ProcessExecution reports whether processes may be started or signalled.
func (c Config) ProcessExecution() bool {
	if c.AllowProcessExecution != nil {
		return *c.AllowProcessExecution
	}
	return c.IsDevelopment()
}

// TLS reports whether the HTTP server should terminate TLS itself.
func (c Config) TLS() bool { return c.TLSCertFile != "" && c.TLSKeyFile != "" }

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(raw)
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
