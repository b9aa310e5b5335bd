package agent

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/neuroplastio/neio-split/indicator"
	"github.com/neuroplastio/neio-split/splitapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSplitConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultSplitConfig().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *SplitConfig)
	}{
		{"unknown role", func(c *SplitConfig) { c.Role = "dongle" }},
		{"remote without peer", func(c *SplitConfig) { c.Capabilities.Remote = true }},
		{"zero scan interval", func(c *SplitConfig) { c.ScanInterval = 0 }},
		{"peer without listen", func(c *SplitConfig) { c.Role = RolePeer; c.Link.Listen = "" }},
		{"empty local queue", func(c *SplitConfig) { c.LocalQueue = 0 }},
		{"empty link queue", func(c *SplitConfig) { c.Link.Queue = 0 }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultSplitConfig()
			test.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestMapper(t *testing.T) {
	mapper, err := DefaultSplitConfig().Mapper()
	require.NoError(t, err)
	assert.Equal(t, indicator.DefaultTable(), mapper.Table())

	cfg := DefaultSplitConfig()
	cfg.Indicators = map[string]string{"5": "breathe(red, 1500ms)", "1": "off"}
	mapper, err = cfg.Mapper()
	require.NoError(t, err)
	assert.Equal(t, indicator.Start(indicator.Breathe(indicator.Red, 1500*time.Millisecond)), mapper.Map(&splitapi.State{Layer: 5}))
	assert.Equal(t, indicator.Reset(), mapper.Map(&splitapi.State{Layer: 1}))
	assert.Equal(t, indicator.Reset(), mapper.Map(&splitapi.State{Layer: 2}))

	cfg.Indicators = map[string]string{"x": "solid(1, 2, 3)"}
	_, err = cfg.Mapper()
	assert.Error(t, err)
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"15ms"`), &d))
	assert.Equal(t, Duration(15*time.Millisecond), d)
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"15ms"`, string(b))

	assert.Error(t, json.Unmarshal([]byte(`15`), &d))
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
}
