package indicatorsvc

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/neuroplastio/neio-split/indicator"
	"github.com/neuroplastio/neio-split/pkg/registry"
	"go.uber.org/zap"
)

// DriverProvider holds what drivers may need from the host process.
type DriverProvider struct {
	Log *zap.Logger
	Out io.Writer
}

type DriverRegistry = registry.Registry[Driver, DriverProvider]

func NewDriverRegistry(provider DriverProvider) *DriverRegistry {
	r := registry.NewRegistry[Driver, DriverProvider](provider)
	r.Register("log", newLogDriver)
	r.Register("terminal", newTerminalDriver)
	return r
}

// DriverConfig selects a driver. The whole object is passed to the driver as its configuration.
type DriverConfig struct {
	Type string `json:"type"`
}

func NewDriver(r *DriverRegistry, config json.RawMessage) (Driver, error) {
	cfg := DriverConfig{Type: "log"}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse indicator driver config: %w", err)
		}
	}
	return r.New(cfg.Type, config)
}

type logDriver struct {
	log *zap.Logger
}

func newLogDriver(_ json.RawMessage, p DriverProvider) (Driver, error) {
	return logDriver{log: p.Log.Named("log")}, nil
}

func (d logDriver) Apply(cmd indicator.Command) error {
	d.log.Info("Indicator", zap.Stringer("op", cmd.Op), zap.Stringer("pattern", cmd.Pattern))
	return nil
}

func (d logDriver) Close() error {
	return nil
}

type terminalConfig struct {
	Width int `json:"width"`
}

// terminalDriver draws the indicator as a coloured bar, one line per applied command.
type terminalDriver struct {
	out      io.Writer
	renderer *lipgloss.Renderer
	width    int
}

func newTerminalDriver(config json.RawMessage, p DriverProvider) (Driver, error) {
	cfg := terminalConfig{Width: 8}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &cfg); err != nil {
			return nil, err
		}
	}
	if cfg.Width <= 0 {
		return nil, fmt.Errorf("invalid width: %d", cfg.Width)
	}
	if p.Out == nil {
		return nil, fmt.Errorf("no output")
	}
	return &terminalDriver{
		out:      p.Out,
		renderer: lipgloss.NewRenderer(p.Out),
		width:    cfg.Width,
	}, nil
}

func (d *terminalDriver) Apply(cmd indicator.Command) error {
	style := d.renderer.NewStyle().Width(d.width)
	label := "off"
	if !cmd.IsReset() {
		style = style.Background(lipgloss.Color(displayColor(cmd.Pattern.Color).String()))
		label = cmd.Pattern.String()
	}
	_, err := fmt.Fprintf(d.out, "%s %s\n", style.Render(""), label)
	return err
}

func (d *terminalDriver) Close() error {
	return nil
}

// displayColor scales dim LED colours so that the brightest channel is at full intensity.
func displayColor(c indicator.Color) indicator.Color {
	peak := max(c.R, c.G, c.B)
	if peak == 0 {
		return c
	}
	scale := func(v uint8) uint8 {
		return uint8(uint16(v) * 255 / uint16(peak))
	}
	return indicator.Color{R: scale(c.R), G: scale(c.G), B: scale(c.B)}
}
