// Package splitapi defines the contracts between the keymap engine, the per-tick update hook
// and the link to the other half of a split keyboard.
package splitapi

import (
	"context"
	"fmt"

	"github.com/neuroplastio/neio-split/hidapi"
)

// State is the keyboard state summary produced once per scan tick by the keymap engine.
// Reports are nil when the engine produced none during the tick.
type State struct {
	// Layer is the highest active layer, 0 is the base layer.
	Layer    uint32
	Keyboard *hidapi.KeyboardReport
	Mouse    *hidapi.MouseReport
}

func (s State) String() string {
	str := fmt.Sprintf("State{layer: %d", s.Layer)
	if s.Keyboard != nil {
		str += ", " + s.Keyboard.String()
	}
	if s.Mouse != nil {
		str += ", " + s.Mouse.String()
	}
	return str + "}"
}

// Hook is invoked synchronously once per tick with the freshly computed state.
// The state is borrowed for the duration of the call only.
// The returned value tells the caller whether its own processing of the tick should continue.
type Hook interface {
	OnStateUpdate(ctx context.Context, state *State) bool
}

type HookFunc func(ctx context.Context, state *State) bool

func (f HookFunc) OnStateUpdate(ctx context.Context, state *State) bool {
	return f(ctx, state)
}

// Link is the byte-oriented send primitive to a peer device.
// Send returns once the link has accepted the payload for transmission; delivery is not acknowledged.
// The payload is copied by the link before Send returns.
type Link interface {
	Send(ctx context.Context, channel uint8, payload []byte, urgent bool) error
}

// ReportWriter forwards HID reports received from a peer to the host, e.g. through a virtual HID device.
// The data is a report as sent on the HID wire, prefixed with its report ID.
type ReportWriter interface {
	WriteReport(data []byte) error
}
