package hidsvc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jochenvg/go-udev"
	"github.com/neuroplastio/neio-split/hidapi"
	"github.com/neuroplastio/neio-split/splitapi"
	"github.com/sstallion/go-hid"
	"go.uber.org/zap"
)

// Source reads boot keyboard reports from a hidraw device, one scan tick at a time.
type Source struct {
	log     *zap.Logger
	info    DeviceInfo
	dev     *hid.Device
	decoder *hidapi.ReportDecoder
	layers  *layerTracker
	layer   uint32
	release func()
	buf     []byte
}

func OpenSource(log *zap.Logger, cfg InputConfig) (*Source, error) {
	layerKeys, err := parseLayerKeys(cfg.LayerKeys)
	if err != nil {
		return nil, err
	}
	info := DeviceInfo{Path: cfg.Path, Name: cfg.Path}
	if cfg.Path == "" {
		info, err = findKeyboard()
		if err != nil {
			return nil, err
		}
	} else if err := hid.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize hidapi: %w", err)
	}
	dev, err := hid.OpenPath(info.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", info.Path, err)
	}
	s := &Source{
		log:     log,
		info:    info,
		dev:     dev,
		decoder: hidapi.NewReportDecoder(map[uint8]hidapi.Layout{0: hidapi.KeyboardLayout}),
		layers:  newLayerTracker(layerKeys),
		release: func() {},
		buf:     make([]byte, 64),
	}
	if cfg.Exclusive {
		release, err := s.acquire()
		if err != nil {
			dev.Close()
			return nil, fmt.Errorf("failed to acquire %s: %w", info.Path, err)
		}
		s.release = release
	}
	log.Info("Opened keyboard", zap.String("path", info.Path), zap.String("name", info.Name), zap.Bool("exclusive", cfg.Exclusive))
	return s, nil
}

// Scan drains the reports received since the previous tick. Only the latest one is kept.
func (s *Source) Scan(ctx context.Context) (*splitapi.State, error) {
	var latest *hidapi.KeyboardReport
	for {
		n, err := s.dev.ReadWithTimeout(s.buf, 0)
		if errors.Is(err, hid.ErrTimeout) || n == 0 {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read report: %w", err)
		}
		report, ok := s.decoder.Decode(s.buf[:n])
		if !ok {
			s.log.Debug("Skipped non-boot report", zap.Int("size", n))
			continue
		}
		keyboard, err := hidapi.KeyboardReportFrom(report)
		if err != nil {
			continue
		}
		latest = &keyboard
	}
	state := &splitapi.State{Layer: s.layer}
	if latest == nil {
		return state, nil
	}
	layer, keyboard := s.layers.update(*latest)
	s.layer = layer
	state.Layer = layer
	if s.layers.changed(keyboard) {
		state.Keyboard = &keyboard
	}
	return state, nil
}

func (s *Source) Close() error {
	s.release()
	return s.dev.Close()
}

// acquire detaches the kernel input nodes created for the keyboard so that key presses only reach
// the split pipeline. The returned function re-attaches them.
func (s *Source) acquire() (func(), error) {
	u := &udev.Udev{}
	hidrawDev := u.NewDeviceFromSubsystemSysname("hidraw", filepath.Base(s.info.Path))
	if hidrawDev == nil {
		return nil, fmt.Errorf("hidraw device %s not found in udev", s.info.Path)
	}
	e := u.NewEnumerate()
	if err := e.AddMatchSubsystem("input"); err != nil {
		return nil, fmt.Errorf("failed to match subsystem: %w", err)
	}
	if err := e.AddMatchParent(hidrawDev.Parent()); err != nil {
		return nil, fmt.Errorf("failed to match parent: %w", err)
	}
	inputs, err := e.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate input devices: %w", err)
	}
	var detached []string
	for _, input := range inputs {
		syspath := input.Syspath()
		if !strings.HasPrefix(filepath.Base(syspath), "event") {
			continue
		}
		if err := os.WriteFile(syspath+"/uevent", []byte("remove"), 0644); err != nil {
			s.log.Error("failed to detach the input", zap.String("syspath", syspath), zap.Error(err))
			continue
		}
		detached = append(detached, syspath)
	}
	return func() {
		for _, syspath := range detached {
			if err := os.WriteFile(syspath+"/uevent", []byte("add"), 0644); err != nil {
				s.log.Error("failed to attach the input", zap.String("syspath", syspath), zap.Error(err))
			}
		}
	}, nil
}
