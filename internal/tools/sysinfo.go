package tools

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/pbnjay/memory"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	termuxVersion   = "1.0.0"
	packageCacheKey = "pkg:list-installed"
)

var processStarted = time.Now()

type memoryUsage struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"totalAlloc"`
	Sys        uint64 `json:"sys"`
	HeapInuse  uint64 `json:"heapInuse"`
	NumGC      uint32 `json:"numGC"`
}

type cpuUsage struct {
	User   int64 `json:"user"`
	System int64 `json:"system"`
}

type osInfo struct {
	Type             string `json:"type"`
	Release          string `json:"release"`
	Hostname         string `json:"hostname"`
	CPUs             int    `json:"cpus"`
	TotalMemory      uint64 `json:"totalMemory"`
	FreeMemory       uint64 `json:"freeMemory"`
	TotalMemoryHuman string `json:"totalMemoryHuman"`
}

type termuxInfo struct {
	Version  string `json:"version"`
	Packages int    `json:"packages"`
}

type termuxError struct {
	Error string `json:"error"`
}

type systemInfo struct {
	Platform  string      `json:"platform"`
	Arch      string      `json:"arch"`
	GoVersion string      `json:"goVersion"`
	PID       int         `json:"pid"`
	Uptime    float64     `json:"uptime"`
	Memory    memoryUsage `json:"memory"`
	CPUUsage  cpuUsage    `json:"cpuUsage"`
	OS        *osInfo     `json:"os,omitempty"`
	Termux    any         `json:"termux,omitempty"`
}

type systemInfoTool struct {
	runner     CommandRunner
	packages   *Cache[int]
	packageTTL time.Duration
	log        logrus.FieldLogger
}

func (s *systemInfoTool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	level := stringArg(args, "detail_level")
	if level == "" {
		level = "basic"
	}
	switch level {
	case "basic", "detailed", "full":
	default:
		return nil, invalidArgf("unknown detail_level %q", level)
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	user, sys := rusage()
	info := &systemInfo{
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
		GoVersion: runtime.Version(),
		PID:       os.Getpid(),
		Uptime:    time.Since(processStarted).Seconds(),
		Memory: memoryUsage{
			Alloc:      ms.Alloc,
			TotalAlloc: ms.TotalAlloc,
			Sys:        ms.Sys,
			HeapInuse:  ms.HeapInuse,
			NumGC:      ms.NumGC,
		},
		CPUUsage: cpuUsage{User: user.Microseconds(), System: sys.Microseconds()},
	}
	if level == "basic" {
		return info, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o, err := collectOS()
		info.OS = o
		return err
	})
	if level == "full" {
		g.Go(func() error {
			info.Termux = s.termux(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("System info failed: %w", err)
	}
	return info, nil
}

func collectOS() (*osInfo, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}
	sysname, release := uname()
	if sysname == "" {
		sysname = runtime.GOOS
	}
	total := memory.TotalMemory()
	return &osInfo{
		Type:             sysname,
		Release:          release,
		Hostname:         host,
		CPUs:             runtime.NumCPU(),
		TotalMemory:      total,
		FreeMemory:       memory.FreeMemory(),
		TotalMemoryHuman: units.BytesSize(float64(total)),
	}, nil
}

// termux reports the installed package count. Failures degrade into an
// error field instead of failing the call.
func (s *systemInfoTool) termux(ctx context.Context) any {
	if n, ok := s.packages.Get(packageCacheKey); ok {
		return termuxInfo{Version: termuxVersion, Packages: n}
	}
	out, err := s.runner.Run(ctx, "pkg", "list-installed")
	if err != nil {
		s.log.WithError(err).Debug("pkg list-installed failed")
		return termuxError{Error: "Unable to get Termux info"}
	}
	n := countPackages(out)
	s.packages.Set(packageCacheKey, n, s.packageTTL)
	return termuxInfo{Version: termuxVersion, Packages: n}
}

// countPackages counts non-empty lines, skipping the "Listing..." banner
// pkg prints first.
func countPackages(out string) int {
	n := 0
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Listing") {
			continue
		}
		n++
	}
	return n
}
