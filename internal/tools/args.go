package tools

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"termux-mcp/internal/registry"
)

// Argument helpers tolerate the shapes JSON decoding produces: numbers
// arrive as float64, and clients sometimes send numbers or booleans as
// strings. Missing keys yield the zero value.

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		switch s := v.(type) {
		case string:
			return s
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(s)
		}
	}
	return ""
}

func boolArg(args map[string]any, key string, def bool) bool {
	if v, ok := args[key]; ok {
		switch b := v.(type) {
		case bool:
			return b
		case string:
			switch strings.ToLower(strings.TrimSpace(b)) {
			case "true", "1", "yes":
				return true
			case "false", "0", "no":
				return false
			}
		case float64:
			return b != 0
		}
	}
	return def
}

// intArg returns the integer under key and whether one was present.
func intArg(args map[string]any, key string) (int, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func stringSliceArg(args map[string]any, key string) []string {
	if v, ok := args[key]; ok {
		switch s := v.(type) {
		case []string:
			return s
		case []any:
			out := make([]string, 0, len(s))
			for _, item := range s {
				if str, ok := item.(string); ok {
					out = append(out, str)
				}
			}
			return out
		}
	}
	return nil
}

func invalidArgf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", registry.ErrInvalidArgument, fmt.Sprintf(format, a...))
}

// maxPID is the largest value a pid_t can hold. Anything larger would be
// truncated by the kernel and could address a different process or -1.
const maxPID = math.MaxInt32

// requirePID reads a pid argument in [1, maxPID] for the given action.
func requirePID(args map[string]any, action string) (int, error) {
	pid, ok := intArg(args, "pid")
	if !ok {
		return 0, invalidArgf("pid is required for %s operation", action)
	}
	if pid <= 0 || pid > maxPID {
		return 0, invalidArgf("pid out of range: %d", pid)
	}
	return pid, nil
}
