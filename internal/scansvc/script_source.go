package scansvc

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/neuroplastio/neio-split/hidapi"
	"github.com/neuroplastio/neio-split/splitapi"
)

// Script is a recorded sequence of ticks, used to replay keyboard activity without hardware.
//
//	loop: false
//	steps:
//	  - layer: 2
//	    keys: [4, 5]
//	    repeat: 3
//	  - mouse: {x: 5, y: -2}
type Script struct {
	Loop  bool   `yaml:"loop"`
	Steps []Step `yaml:"steps"`
}

type Step struct {
	Layer     uint32     `yaml:"layer"`
	Modifiers uint8      `yaml:"modifiers"`
	Keys      []uint8    `yaml:"keys"`
	Mouse     *MouseStep `yaml:"mouse"`
	// Repeat is the number of ticks the step lasts, at least one.
	Repeat int `yaml:"repeat"`
}

type MouseStep struct {
	Buttons uint8 `yaml:"buttons"`
	X       int16 `yaml:"x"`
	Y       int16 `yaml:"y"`
	Wheel   int8  `yaml:"wheel"`
	Pan     int8  `yaml:"pan"`
}

func (m MouseStep) Report() hidapi.MouseReport {
	return hidapi.MouseReport{Buttons: m.Buttons, X: m.X, Y: m.Y, Wheel: m.Wheel, Pan: m.Pan}
}

func ParseScript(data []byte) (Script, error) {
	var script Script
	err := yaml.NewDecoder(bytes.NewReader(data), yaml.DisallowUnknownField()).Decode(&script)
	if err != nil {
		return Script{}, fmt.Errorf("failed to parse script: %w", err)
	}
	if len(script.Steps) == 0 {
		return Script{}, fmt.Errorf("script has no steps")
	}
	return script, nil
}

func ReadScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("failed to read script: %w", err)
	}
	return ParseScript(data)
}

// ScriptSource replays a script one tick at a time. Keyboard reports are only produced when the
// keyboard state differs from the previous tick, mouse reports on every tick of a step that has one.
type ScriptSource struct {
	script Script
	step   int
	tick   int
	last   hidapi.KeyboardReport
}

func NewScriptSource(script Script) *ScriptSource {
	return &ScriptSource{script: script}
}

func (s *ScriptSource) Scan(ctx context.Context) (*splitapi.State, error) {
	if s.step >= len(s.script.Steps) {
		if !s.script.Loop || len(s.script.Steps) == 0 {
			return nil, ErrExhausted
		}
		s.step = 0
	}
	step := s.script.Steps[s.step]
	s.tick++
	if s.tick >= max(step.Repeat, 1) {
		s.step++
		s.tick = 0
	}

	state := &splitapi.State{Layer: step.Layer}
	keyboard := hidapi.KeyboardReport{Modifiers: step.Modifiers, Keys: step.Keys}
	if !keyboard.Report().Equal(s.last.Report()) {
		s.last = keyboard
		state.Keyboard = &keyboard
	}
	if step.Mouse != nil {
		mouse := step.Mouse.Report()
		state.Mouse = &mouse
	}
	return state, nil
}
