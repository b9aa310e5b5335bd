package indicatorsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/neuroplastio/neio-split/indicator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingDriver struct {
	mu      sync.Mutex
	applied []indicator.Command
	fail    bool
	closed  bool
}

func (d *recordingDriver) Apply(cmd indicator.Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return errors.New("driver failure")
	}
	d.applied = append(d.applied, cmd)
	return nil
}

func (d *recordingDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *recordingDriver) commands() []indicator.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]indicator.Command(nil), d.applied...)
}

func TestServiceAppliesChanges(t *testing.T) {
	driver := &recordingDriver{}
	queue := make(chan indicator.Command, 8)
	svc := New(zaptest.NewLogger(t), driver, queue)

	red := indicator.Start(indicator.Solid(10, 0, 0))
	for _, cmd := range []indicator.Command{indicator.Reset(), red, red, indicator.Reset()} {
		queue <- cmd
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Start(ctx)
	}()
	require.Eventually(t, func() bool { return len(driver.commands()) == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, []indicator.Command{indicator.Reset(), red, indicator.Reset()}, driver.commands())

	cancel()
	require.NoError(t, <-done)
	assert.True(t, driver.closed)
	// Already reset, nothing applied on shutdown.
	assert.Len(t, driver.commands(), 3)
}

func TestServiceResetsOnShutdown(t *testing.T) {
	driver := &recordingDriver{}
	queue := make(chan indicator.Command, 1)
	svc := New(zaptest.NewLogger(t), driver, queue)
	blue := indicator.Start(indicator.Solid(0, 0, 10))
	queue <- blue

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Start(ctx)
	}()
	require.Eventually(t, func() bool { return len(driver.commands()) == 1 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []indicator.Command{blue, indicator.Reset()}, driver.commands())
}

func TestServiceRetriesAfterDriverFailure(t *testing.T) {
	driver := &recordingDriver{fail: true}
	svc := New(zaptest.NewLogger(t), driver, nil)
	green := indicator.Start(indicator.Solid(0, 10, 0))
	svc.apply(green)
	driver.fail = false
	svc.apply(green)
	assert.Equal(t, []indicator.Command{green}, driver.commands())
}

func TestTerminalDriver(t *testing.T) {
	var out bytes.Buffer
	r := NewDriverRegistry(DriverProvider{Log: zaptest.NewLogger(t), Out: &out})
	assert.Equal(t, []string{"log", "terminal"}, r.Names())

	driver, err := NewDriver(r, json.RawMessage(`{"type": "terminal", "width": 4}`))
	require.NoError(t, err)
	require.NoError(t, driver.Apply(indicator.Start(indicator.Breathe(indicator.Blue, 1500*time.Millisecond))))
	require.NoError(t, driver.Apply(indicator.Reset()))
	assert.Contains(t, out.String(), "breathe(#00000a, 1.5s)")
	assert.Contains(t, out.String(), "off")

	_, err = NewDriver(r, json.RawMessage(`{"type": "terminal", "width": -1}`))
	assert.Error(t, err)
	_, err = NewDriver(r, json.RawMessage(`{"type": "rgbmatrix"}`))
	assert.Error(t, err)

	driver, err = NewDriver(r, nil)
	require.NoError(t, err)
	assert.NoError(t, driver.Apply(indicator.Reset()))
}

func TestDisplayColor(t *testing.T) {
	assert.Equal(t, indicator.Color{R: 255, G: 255}, displayColor(indicator.Yellow))
	assert.Equal(t, indicator.Color{R: 255, G: 127, B: 0}, displayColor(indicator.Color{R: 10, G: 5}))
	assert.Equal(t, indicator.Color{}, displayColor(indicator.Color{}))
}
