package tools

import (
	"context"
	"errors"
	"testing"

	"gotest.tools/v3/assert"

	"termux-mcp/internal/registry"
)

const ssOutput = `Netid State  Recv-Q Send-Q Local Address:Port Peer Address:Port
tcp   LISTEN 0      128    0.0.0.0:22         0.0.0.0:*
tcp   LISTEN 0      128    127.0.0.1:3000     0.0.0.0:*
tcp   LISTEN 0      128    [::]:2222          [::]:*`

func TestNetworkPing(t *testing.T) {
	f := newFakeRunner().on("ping -c 4 example.com", "4 packets transmitted", nil)
	n := &networkInfo{runner: f}

	data, err := n.Invoke(context.Background(), map[string]any{"action": "ping", "target": "example.com"})
	assert.NilError(t, err)
	assert.Equal(t, data.(map[string]any)["ping_result"], "4 packets transmitted")
}

func TestNetworkPingRejectsBadTargets(t *testing.T) {
	f := newFakeRunner()
	n := &networkInfo{runner: f}

	for _, target := range []string{"", "example.com; rm -rf /", "-f", "$(id)", "a..b"} {
		_, err := n.Invoke(context.Background(), map[string]any{"action": "ping", "target": target})
		assert.Assert(t, errors.Is(err, registry.ErrInvalidArgument), target)
	}
	assert.Equal(t, len(f.called()), 0)

	assert.Assert(t, validTarget("192.168.1.1"))
	assert.Assert(t, validTarget("::1"))
}

func TestNetworkPortsFallbackAndFilter(t *testing.T) {
	f := newFakeRunner().on("ss -tulpn", ssOutput, nil)
	n := &networkInfo{runner: f}

	data, err := n.Invoke(context.Background(), map[string]any{"action": "ports"})
	assert.NilError(t, err)
	assert.Equal(t, data.(map[string]any)["ports"], ssOutput)

	data, err = n.Invoke(context.Background(), map[string]any{"action": "ports", "port": float64(22)})
	assert.NilError(t, err)
	want := `Netid State  Recv-Q Send-Q Local Address:Port Peer Address:Port
tcp   LISTEN 0      128    0.0.0.0:22         0.0.0.0:*`
	assert.Equal(t, data.(map[string]any)["ports"], want)
}

func TestNetworkPortsFilterKeepsNetstatHeader(t *testing.T) {
	netstat := `Active Internet connections (only servers)
Proto Recv-Q Send-Q Local Address           Foreign Address         State       PID/Program name
tcp        0      0 0.0.0.0:8022            0.0.0.0:*               LISTEN      1234/sshd
tcp        0      0 127.0.0.1:3000          0.0.0.0:*               LISTEN      4321/node
udp        0      0 0.0.0.0:5353            0.0.0.0:*                           987/mdnsd`
	f := newFakeRunner().on("netstat -tulpn", netstat, nil)
	n := &networkInfo{runner: f}

	data, err := n.Invoke(context.Background(), map[string]any{"action": "ports", "port": "3000"})
	assert.NilError(t, err)
	want := `Active Internet connections (only servers)
Proto Recv-Q Send-Q Local Address           Foreign Address         State       PID/Program name
tcp        0      0 127.0.0.1:3000          0.0.0.0:*               LISTEN      4321/node`
	assert.Equal(t, data.(map[string]any)["ports"], want)

	data, err = n.Invoke(context.Background(), map[string]any{"action": "ports", "port": float64(9)})
	assert.NilError(t, err)
	assert.Equal(t, data.(map[string]any)["ports"], `Active Internet connections (only servers)
Proto Recv-Q Send-Q Local Address           Foreign Address         State       PID/Program name`)
}

func TestNetworkInterfacesAndConnections(t *testing.T) {
	f := newFakeRunner().
		on("ifconfig -a", "lo: flags=73<UP,LOOPBACK>", nil).
		on("netstat -an", "Active Internet connections", nil)
	n := &networkInfo{runner: f}

	data, err := n.Invoke(context.Background(), map[string]any{"action": "interfaces"})
	assert.NilError(t, err)
	assert.Equal(t, data.(map[string]any)["interfaces"], "lo: flags=73<UP,LOOPBACK>")

	data, err = n.Invoke(context.Background(), map[string]any{"action": "connections"})
	assert.NilError(t, err)
	assert.Equal(t, data.(map[string]any)["connections"], "Active Internet connections")
}

func TestNetworkFailure(t *testing.T) {
	n := &networkInfo{runner: newFakeRunner()}
	_, err := n.Invoke(context.Background(), map[string]any{"action": "connections"})
	assert.ErrorContains(t, err, "Network info failed: ")
}
