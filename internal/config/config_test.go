package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-units"
	"gotest.tools/v3/assert"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{"HOME": "/home/me"}))
	assert.NilError(t, err)

	assert.Equal(t, cfg.Port, 3000)
	assert.Equal(t, cfg.Addr(), "0.0.0.0:3000")
	assert.Equal(t, cfg.Env, EnvProduction)
	assert.DeepEqual(t, cfg.AllowedPaths, []string{"/home/me", "/storage/emulated/0", "/sdcard"})
	assert.Equal(t, cfg.ToolTimeout.Std(), 15*time.Second)
	assert.Equal(t, int64(cfg.MaxRequestSize), int64(10*units.MiB))
	assert.Assert(t, !cfg.FileSystemAccess())
	assert.Assert(t, !cfg.ProcessExecution())
}

func TestEnvOverrides(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{
		"PORT":                     "3001",
		"HOST":                     "127.0.0.1",
		"MCP_ENV":                  "development",
		"ALLOWED_ORIGINS":          "http://a.test, http://b.test ,",
		"ALLOWED_PATHS":            "/data/a,/data/b",
		"MAX_CONCURRENT_PROCESSES": "3",
		"TOOL_TIMEOUT":             "5000",
		"REQUEST_TIMEOUT":          "45s",
		"MAX_FILE_SIZE":            "2mb",
		"LOG_TO_FILE":              "true",
	}))
	assert.NilError(t, err)

	assert.Equal(t, cfg.Addr(), "127.0.0.1:3001")
	assert.Assert(t, cfg.IsDevelopment())
	assert.DeepEqual(t, cfg.AllowedOrigins, []string{"http://a.test", "http://b.test"})
	assert.DeepEqual(t, cfg.AllowedPaths, []string{"/data/a", "/data/b"})
	assert.Equal(t, cfg.MaxConcurrentProcesses, 3)
	assert.Equal(t, cfg.ToolTimeout.Std(), 5*time.Second)
	assert.Equal(t, cfg.RequestTimeout.Std(), 45*time.Second)
	assert.Equal(t, int64(cfg.MaxFileSize), int64(2*units.MiB))
	assert.Assert(t, cfg.LogToFile)
	assert.Assert(t, cfg.FileSystemAccess())
	assert.Assert(t, cfg.ProcessExecution())
}

func TestExplicitAccessFlagsWinOverEnvironment(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{
		"MCP_ENV":                 "development",
		"ALLOW_FS_ACCESS":         "false",
		"ALLOW_PROCESS_EXECUTION": "false",
	}))
	assert.NilError(t, err)
	assert.Assert(t, !cfg.FileSystemAccess())
	assert.Assert(t, !cfg.ProcessExecution())

	cfg, err = LoadFrom(envMap(map[string]string{"ALLOW_FS_ACCESS": "true"}))
	assert.NilError(t, err)
	assert.Assert(t, cfg.FileSystemAccess())
}

func TestTomlFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcp.toml")
	err := os.WriteFile(path, []byte(`
port = 4000
env = "development"
restricted_paths = ["/secret"]
tool_timeout = "2s"
max_output = "64KiB"
allow_process_execution = false
`), 0o644)
	assert.NilError(t, err)

	cfg, err := LoadFrom(envMap(map[string]string{
		"CONFIG_FILE": path,
		"PORT":        "4100",
	}))
	assert.NilError(t, err)
	assert.Equal(t, cfg.Port, 4100)
	assert.Assert(t, cfg.IsDevelopment())
	assert.DeepEqual(t, cfg.RestrictedPaths, []string{"/secret"})
	assert.Equal(t, cfg.ToolTimeout.Std(), 2*time.Second)
	assert.Equal(t, int64(cfg.MaxOutput), int64(64*units.KiB))
	assert.Assert(t, cfg.FileSystemAccess())
	assert.Assert(t, !cfg.ProcessExecution())
	assert.Equal(t, cfg.LogLevel, "info")
}

func TestInvalidValues(t *testing.T) {
	_, err := LoadFrom(envMap(map[string]string{"PORT": "abc"}))
	assert.ErrorContains(t, err, "PORT")

	_, err = LoadFrom(envMap(map[string]string{"MCP_ENV": "staging"}))
	assert.ErrorContains(t, err, "staging")

	_, err = LoadFrom(envMap(map[string]string{"MAX_FILE_SIZE": "lots"}))
	assert.ErrorContains(t, err, "MAX_FILE_SIZE")

	_, err = LoadFrom(envMap(map[string]string{"CONFIG_FILE": "/nonexistent/mcp.toml"}))
	assert.ErrorContains(t, err, "config load failed")
}

func TestTLSPairAndToken(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{
		"MCP_TOKEN":     "secret",
		"TLS_CERT_FILE": "/etc/mcp/cert.pem",
		"TLS_KEY_FILE":  "/etc/mcp/key.pem",
	}))
	assert.NilError(t, err)
	assert.Equal(t, cfg.Token, "secret")
	assert.Assert(t, cfg.TLS())

	_, err = LoadFrom(envMap(map[string]string{"TLS_CERT_FILE": "/etc/mcp/cert.pem"}))
	assert.ErrorContains(t, err, "must be set together")
}
