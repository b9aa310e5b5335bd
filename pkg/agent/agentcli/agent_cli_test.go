package agentcli

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/neuroplastio/neio-split/indicator"
	"github.com/neuroplastio/neio-split/internal/linksvc"
	"github.com/neuroplastio/neio-split/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, configDir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd(configDir)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestDecode(t *testing.T) {
	payload, err := wire.EncodeIndicator(indicator.Start(indicator.Solid(10, 0, 0)))
	require.NoError(t, err)
	frame, err := linksvc.EncodeFrame(linksvc.Frame{Channel: wire.ChannelIndicator, Payload: payload.Bytes()})
	require.NoError(t, err)

	configDir := t.TempDir()
	out, err := execute(t, configDir, "decode", hex.EncodeToString(frame))
	require.NoError(t, err)
	assert.Contains(t, out, "frame: channel=2 urgent=false")
	assert.Contains(t, out, "indicator: start solid(#0a0000)")

	out, err = execute(t, configDir, "decode", hex.EncodeToString(payload.Bytes()))
	require.NoError(t, err)
	assert.Contains(t, out, "indicator: start solid(#0a0000)")

	_, err = execute(t, configDir, "decode", "zz")
	assert.Error(t, err)

	// Standalone commands never touch the configuration directory.
	entries, err := os.ReadDir(configDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReplayAndListPeers(t *testing.T) {
	configDir := t.TempDir()
	config := `
role: half
scanInterval: 1ms
capabilities: {local: true}
indicatorDriver: {type: terminal}
indicators:
  "2": solid(10, 0, 0)
`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "split.yml"), []byte(config), 0644))
	script := filepath.Join(configDir, "script.yml")
	require.NoError(t, os.WriteFile(script, []byte("steps:\n  - layer: 2\n    keys: [4]\n  - layer: 0\n"), 0644))

	out, err := execute(t, configDir, "replay", script)
	require.NoError(t, err)
	assert.Contains(t, out, "solid(#0a0000)")
	assert.Contains(t, out, "off")

	out, err = execute(t, configDir, "list-peers")
	require.NoError(t, err)
	assert.Contains(t, out, "null")
}
