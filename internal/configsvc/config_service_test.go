package configsvc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testConfig struct {
	Name  string         `json:"name"`
	Queue int            `json:"queue"`
	Table map[string]int `json:"table"`
}

func TestLoadOrInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "split.yml")
	def := testConfig{Name: "left", Queue: 4}

	config, err := LoadOrInit(path, def)
	require.NoError(t, err)
	assert.Equal(t, def, config)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(written), "name: left")

	require.NoError(t, os.WriteFile(path, []byte("name: right\n"), 0644))
	config, err = LoadOrInit(path, def)
	require.NoError(t, err)
	// Missing keys keep their defaults.
	assert.Equal(t, testConfig{Name: "right", Queue: 4}, config)

	require.NoError(t, os.WriteFile(path, []byte("queue: [1"), 0644))
	_, err = Load(path, def)
	assert.Error(t, err)
}

func TestRegisterReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "split.yml")
	require.NoError(t, os.WriteFile(path, []byte("name: left\ntable: {\"1\": 10}\n"), 0644))

	svc := New(zaptest.NewLogger(t))
	_, err := Register(svc, path, testConfig{}, func(testConfig, error) {})
	assert.Error(t, err, "service not started")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Start(ctx)
	<-svc.Ready()

	reloaded := make(chan testConfig, 8)
	config, err := Register(svc, path, testConfig{}, func(config testConfig, err error) {
		if err == nil {
			reloaded <- config
		}
	})
	require.NoError(t, err)
	assert.Equal(t, testConfig{Name: "left", Table: map[string]int{"1": 10}}, config)

	require.NoError(t, os.WriteFile(path, []byte("name: left\ntable: {\"1\": 20}\n"), 0644))
	deadline := time.After(5 * time.Second)
	for {
		select {
		case config := <-reloaded:
			if config.Table["1"] == 20 {
				return
			}
		case <-deadline:
			t.Fatal("config was not reloaded")
		}
	}
}
