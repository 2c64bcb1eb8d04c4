package statsd

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePrefix(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"  idflow.cli  ": "idflow.cli",
		"..foo..":        "foo",
		".":              "",
		"":               "",
	}
	for input, want := range tests {
		assert.Equal(t, want, sanitizePrefix(input), "input %q", input)
	}
}

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" flow/step ":   "flow_step",
		"foo..bar":      "foo.bar",
		"multi  space":  "multi__space",
		"bad:name|x":    "bad_name_x",
		".leading.dot.": "leading.dot",
	}
	for input, want := range tests {
		assert.Equal(t, want, normalizeMetricName(input), "input %q", input)
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{
		"env":       "prod",
		" service ": " idflow ",
	}
	local := map[string]string{
		"result": " success ",
		"":       "ignored",
		"env":    "stage",
	}

	assert.Equal(t, "|#env:stage,result:success,service:idflow", formatTags(global, local))
	assert.Empty(t, formatTags(nil, nil))
}

func TestCloneTagsReturnsCopy(t *testing.T) {
	t.Parallel()

	original := map[string]string{"env": "prod", "": "ignored"}
	cloned := cloneTags(original)
	cloned["env"] = "stage"

	assert.Equal(t, "prod", original["env"])
	assert.NotContains(t, cloned, "")
}

func TestClientWritesLines(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	client, err := NewClient(context.Background(), Config{
		Enabled:    true,
		Address:    pc.LocalAddr().String(),
		Prefix:     "idflow",
		GlobalTags: map[string]string{"env": "test"},
	})
	require.NoError(t, err)
	defer client.Close()
	require.True(t, client.Enabled())

	client.Count("flow.step_changed", 1, map[string]string{"step": "validating"})
	client.Gauge("flow.step", 1, nil)
	client.Timing("flow.duration", 5500*time.Millisecond, nil)

	want := []string{
		"idflow.flow.step_changed:1|c|#env:test,step:validating",
		"idflow.flow.step:1|g|#env:test",
		"idflow.flow.duration:5500|ms|#env:test",
	}
	buf := make([]byte, 512)
	for _, line := range want {
		require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
		n, _, readErr := pc.ReadFrom(buf)
		require.NoError(t, readErr)
		assert.Equal(t, line, string(buf[:n]))
	}
}

func TestClientEnabledAndClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{conn: clientConn}
	assert.True(t, client.Enabled())

	require.NoError(t, client.Close())
	assert.False(t, client.Enabled())
	require.NoError(t, client.Close(), "Close is idempotent")

	// Writes after Close are dropped silently.
	client.Count("x", 1, nil)

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
	require.NoError(t, nilClient.Close())
	nilClient.Count("x", 1, nil)
}

func TestNewClientDisabled(t *testing.T) {
	t.Parallel()

	client, err := NewClient(context.Background(), Config{Enabled: true, Address: "   "})
	require.NoError(t, err)
	assert.False(t, client.Enabled())

	client, err = NewClient(context.Background(), Config{Enabled: false, Address: "127.0.0.1:8125"})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(context.Background(), Config{Enabled: true, Address: "bad address"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statsd dial")
}
