package tools

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

var hostnamePattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9.-]{0,251}[A-Za-z0-9])?$`)

type networkInfo struct {
	runner CommandRunner
}

func (n *networkInfo) Invoke(ctx context.Context, args map[string]any) (any, error) {
	data, err := n.run(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("Network info failed: %w", err)
	}
	return data, nil
}

func (n *networkInfo) run(ctx context.Context, args map[string]any) (any, error) {
	switch action := stringArg(args, "action"); action {
	case "ping":
		target := strings.TrimSpace(stringArg(args, "target"))
		if target == "" {
			return nil, invalidArgf("target is required for ping")
		}
		if !validTarget(target) {
			return nil, invalidArgf("invalid ping target %q", target)
		}
		out, err := n.runner.Run(ctx, "ping", "-c", "4", target)
		if err != nil {
			return nil, err
		}
		return map[string]any{"ping_result": out}, nil
	case "ports":
		out, err := runFirst(ctx, n.runner, []string{"netstat", "-tulpn"}, []string{"ss", "-tulpn"})
		if err != nil {
			return nil, err
		}
		if port, ok := intArg(args, "port"); ok {
			if port < 1 || port > 65535 {
				return nil, invalidArgf("port out of range: %d", port)
			}
			out = filterPort(out, port)
		}
		return map[string]any{"ports": out}, nil
	case "connections":
		out, err := runFirst(ctx, n.runner, []string{"netstat", "-an"}, []string{"ss", "-an"})
		if err != nil {
			return nil, err
		}
		return map[string]any{"connections": out}, nil
	case "interfaces":
		out, err := runFirst(ctx, n.runner, []string{"ip", "addr", "show"}, []string{"ifconfig", "-a"})
		if err != nil {
			return nil, err
		}
		return map[string]any{"interfaces": out}, nil
	default:
		return nil, invalidArgf("unknown action: %s", action)
	}
}

func validTarget(t string) bool {
	if net.ParseIP(t) != nil {
		return true
	}
	return hostnamePattern.MatchString(t) && !strings.Contains(t, "..")
}

// endpointPattern matches an address:port (or BSD address.port) column,
// which every data row of netstat and ss carries and no header line does.
var endpointPattern = regexp.MustCompile(`[:.](\d+|\*)(\s|$)`)

// filterPort keeps the header lines before the first data row and every
// row mentioning the port as a local or remote endpoint (":22" on Linux,
// ".22" on BSD netstat).
func filterPort(out string, port int) string {
	re := regexp.MustCompile(`[:.]` + strconv.Itoa(port) + `(\s|$)`)
	lines := strings.Split(out, "\n")
	kept := make([]string, 0, len(lines))
	inHeader := true
	for _, line := range lines {
		if inHeader && endpointPattern.MatchString(line) {
			inHeader = false
		}
		if inHeader || re.MatchString(line) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
