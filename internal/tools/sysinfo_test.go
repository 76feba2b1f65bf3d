package tools

import (
	"context"
	"errors"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"gotest.tools/v3/assert"

	"termux-mcp/internal/registry"
)

func newSystemInfo(runner CommandRunner) *systemInfoTool {
	logger, _ := test.NewNullLogger()
	return &systemInfoTool{runner: runner, packages: NewCache[int](), packageTTL: time.Minute, log: logger}
}

func TestSystemInfoBasic(t *testing.T) {
	s := newSystemInfo(newFakeRunner())
	data, err := s.Invoke(context.Background(), nil)
	assert.NilError(t, err)

	info := data.(*systemInfo)
	assert.Equal(t, info.PID, os.Getpid())
	assert.Equal(t, info.Platform, runtime.GOOS)
	assert.Equal(t, info.GoVersion, runtime.Version())
	assert.Assert(t, info.Memory.Sys > 0)
	assert.Assert(t, info.OS == nil)
	assert.Assert(t, info.Termux == nil)
}

func TestSystemInfoDetailed(t *testing.T) {
	s := newSystemInfo(newFakeRunner())
	data, err := s.Invoke(context.Background(), map[string]any{"detail_level": "detailed"})
	assert.NilError(t, err)

	info := data.(*systemInfo)
	assert.Assert(t, info.OS != nil)
	assert.Equal(t, info.OS.CPUs, runtime.NumCPU())
	assert.Assert(t, info.OS.Hostname != "")
	assert.Assert(t, info.Termux == nil)
}

func TestSystemInfoFullCachesPackages(t *testing.T) {
	f := newFakeRunner().on("pkg list-installed", "Listing... Done\nbash/stable 5.2\ncurl/stable 8.5\ngit/stable 2.43\n", nil)
	s := newSystemInfo(f)

	for i := 0; i < 2; i++ {
		data, err := s.Invoke(context.Background(), map[string]any{"detail_level": "full"})
		assert.NilError(t, err)
		info := data.(*systemInfo)
		assert.DeepEqual(t, info.Termux, termuxInfo{Version: termuxVersion, Packages: 3})
	}
	assert.Equal(t, len(f.called()), 1)
}

func TestSystemInfoFullDegradesWithoutPkg(t *testing.T) {
	s := newSystemInfo(newFakeRunner())
	data, err := s.Invoke(context.Background(), map[string]any{"detail_level": "full"})
	assert.NilError(t, err)
	assert.DeepEqual(t, data.(*systemInfo).Termux, termuxError{Error: "Unable to get Termux info"})
}

func TestSystemInfoUnknownLevel(t *testing.T) {
	s := newSystemInfo(newFakeRunner())
	_, err := s.Invoke(context.Background(), map[string]any{"detail_level": "everything"})
	assert.Assert(t, errors.Is(err, registry.ErrInvalidArgument))
}
