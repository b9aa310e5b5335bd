package agent

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/neuroplastio/neio-split/indicator"
	"github.com/neuroplastio/neio-split/indicator/patterndsl"
	"github.com/neuroplastio/neio-split/internal/dispatch"
	"github.com/neuroplastio/neio-split/internal/hidsvc"
)

// Config is given on the command line. It points to the location of split.yml, the user-driven
// configuration file. Live reload only applies to the indicator table of split.yml.
type Config struct {
	DataDir     string `json:"dataDir"`
	SplitConfig string `json:"splitConfig"`
	Debug       bool   `json:"debug"`
}

type Role string

const (
	// RoleHalf scans a keyboard and sends indicator commands, and optionally its reports, to the peer.
	RoleHalf Role = "half"
	// RolePeer accepts links from halves, drives its own indicator and optionally a virtual HID device.
	RolePeer Role = "peer"
)

type SplitConfig struct {
	Role         Role            `json:"role"`
	Name         string          `json:"name"`
	ScanInterval Duration        `json:"scanInterval"`
	Capabilities dispatch.Config `json:"capabilities"`
	// Indicators maps layers to pattern expressions, the built-in table is used when empty.
	Indicators      map[string]string  `json:"indicators"`
	IndicatorDriver json.RawMessage    `json:"indicatorDriver"`
	LocalQueue      int                `json:"localQueue"`
	Link            LinkConfig         `json:"link"`
	Input           hidsvc.InputConfig `json:"input"`
	Uhid            hidsvc.UhidConfig  `json:"uhid"`
}

type LinkConfig struct {
	Listen string `json:"listen"`
	Peer   string `json:"peer"`
	Queue  int    `json:"queue"`
}

func DefaultSplitConfig() SplitConfig {
	return SplitConfig{
		Role:         RoleHalf,
		Name:         "left",
		ScanInterval: Duration(10 * time.Millisecond),
		Capabilities: dispatch.Config{
			Local: true,
		},
		IndicatorDriver: json.RawMessage(`{"type":"log"}`),
		LocalQueue:      4,
		Link: LinkConfig{
			Listen: ":7411",
			Queue:  16,
		},
		Uhid: hidsvc.UhidConfig{
			Name:      "neio-split",
			VendorID:  0x1209,
			ProductID: 0x5701,
		},
	}
}

func (c SplitConfig) Validate() error {
	switch c.Role {
	case RoleHalf:
		if c.Capabilities.Remote && c.Link.Peer == "" {
			return fmt.Errorf("remote capability requires link.peer")
		}
		if c.ScanInterval <= 0 {
			return fmt.Errorf("invalid scan interval: %s", c.ScanInterval)
		}
	case RolePeer:
		if c.Link.Listen == "" {
			return fmt.Errorf("peer role requires link.listen")
		}
	default:
		return fmt.Errorf("unknown role: %q", c.Role)
	}
	if c.LocalQueue < 1 {
		return fmt.Errorf("localQueue must be at least 1")
	}
	if c.Link.Queue < 1 {
		return fmt.Errorf("link.queue must be at least 1")
	}
	return nil
}

func (c SplitConfig) Mapper() (*indicator.Mapper, error) {
	if len(c.Indicators) == 0 {
		return indicator.NewDefaultMapper(), nil
	}
	table, err := patterndsl.ParseTable(c.Indicators)
	if err != nil {
		return nil, fmt.Errorf("failed to parse indicators: %w", err)
	}
	return indicator.NewMapper(table), nil
}

// Duration is a time.Duration written as a string ("10ms") in configuration files.
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}
