package wire

import (
	"fmt"
	"math"

	"github.com/neuroplastio/neio-split/hidapi"
	"github.com/neuroplastio/neio-split/indicator"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	keyboardModifiers protowire.Number = 1
	keyboardKeys      protowire.Number = 2

	mouseButtons protowire.Number = 1
	mouseX       protowire.Number = 2
	mouseY       protowire.Number = 3
	mouseWheel   protowire.Number = 4
	mousePan     protowire.Number = 5

	indicatorOp     protowire.Number = 1
	indicatorKind   protowire.Number = 2
	indicatorRed    protowire.Number = 3
	indicatorGreen  protowire.Number = 4
	indicatorBlue   protowire.Number = 5
	indicatorPeriod protowire.Number = 6
)

// Message is a decoded payload. Exactly one of the bodies is set, matching Kind.
type Message struct {
	Kind      Kind
	Keyboard  *hidapi.KeyboardReport
	Mouse     *hidapi.MouseReport
	Indicator *indicator.Command
}

func (m Message) String() string {
	switch {
	case m.Keyboard != nil:
		return m.Keyboard.String()
	case m.Mouse != nil:
		return m.Mouse.String()
	case m.Indicator != nil:
		return m.Indicator.String()
	}
	return "(empty)"
}

func EncodeKeyboard(r hidapi.KeyboardReport) (Payload, error) {
	body := make([]byte, 0, MaxPayloadSize)
	body = appendVarintField(body, keyboardModifiers, uint64(r.Modifiers))
	if len(r.Keys) > 0 {
		body = protowire.AppendTag(body, keyboardKeys, protowire.BytesType)
		body = protowire.AppendBytes(body, r.Keys)
	}
	return newPayload(fieldKeyboard, body)
}

func EncodeMouse(r hidapi.MouseReport) (Payload, error) {
	body := make([]byte, 0, MaxPayloadSize)
	body = appendVarintField(body, mouseButtons, uint64(r.Buttons))
	body = appendZigZagField(body, mouseX, int64(r.X))
	body = appendZigZagField(body, mouseY, int64(r.Y))
	body = appendZigZagField(body, mouseWheel, int64(r.Wheel))
	body = appendZigZagField(body, mousePan, int64(r.Pan))
	return newPayload(fieldMouse, body)
}

func EncodeIndicator(cmd indicator.Command) (Payload, error) {
	body := make([]byte, 0, MaxPayloadSize)
	body = appendVarintField(body, indicatorOp, uint64(cmd.Op))
	body = appendVarintField(body, indicatorKind, uint64(cmd.Pattern.Kind))
	body = appendVarintField(body, indicatorRed, uint64(cmd.Pattern.Color.R))
	body = appendVarintField(body, indicatorGreen, uint64(cmd.Pattern.Color.G))
	body = appendVarintField(body, indicatorBlue, uint64(cmd.Pattern.Color.B))
	body = appendVarintField(body, indicatorPeriod, uint64(cmd.Pattern.Period))
	return newPayload(fieldIndicator, body)
}

// Encode encodes whichever body the message carries.
func Encode(m Message) (Payload, error) {
	switch {
	case m.Keyboard != nil:
		return EncodeKeyboard(*m.Keyboard)
	case m.Mouse != nil:
		return EncodeMouse(*m.Mouse)
	case m.Indicator != nil:
		return EncodeIndicator(*m.Indicator)
	}
	return Payload{}, ErrEmptyMessage
}

func Decode(data []byte) (Message, error) {
	var (
		msg     Message
		version uint64
		bodies  int
	)
	err := fields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var body []byte
		switch num {
		case fieldVersion:
			return consumeVarint(typ, b, &version)
		case fieldKeyboard, fieldMouse, fieldIndicator:
			n, err := consumeBytes(typ, b, &body)
			if err != nil || n == 0 {
				return n, err
			}
			bodies++
			switch num {
			case fieldKeyboard:
				msg.Kind = KindKeyboard
				msg.Keyboard, err = decodeKeyboard(body)
			case fieldMouse:
				msg.Kind = KindMouse
				msg.Mouse, err = decodeMouse(body)
			case fieldIndicator:
				msg.Kind = KindIndicator
				msg.Indicator, err = decodeIndicator(body)
			}
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return Message{}, fmt.Errorf("failed to decode message: %w", err)
	}
	if version != Version {
		return Message{}, fmt.Errorf("%w: %d", ErrVersion, version)
	}
	switch {
	case bodies == 0:
		return Message{}, ErrEmptyMessage
	case bodies > 1:
		return Message{}, ErrAmbiguousMessage
	}
	return msg, nil
}

func decodeKeyboard(b []byte) (*hidapi.KeyboardReport, error) {
	r := &hidapi.KeyboardReport{}
	err := fields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case keyboardModifiers:
			var v uint64
			n, err := consumeVarint(typ, b, &v)
			r.Modifiers = uint8(v)
			return n, err
		case keyboardKeys:
			var keys []byte
			n, err := consumeBytes(typ, b, &keys)
			if len(keys) > 0 {
				r.Keys = append([]uint8(nil), keys...)
			}
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return nil, fmt.Errorf("keyboard: %w", err)
	}
	return r, nil
}

func decodeMouse(b []byte) (*hidapi.MouseReport, error) {
	r := &hidapi.MouseReport{}
	err := fields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var v uint64
		n, err := consumeVarint(typ, b, &v)
		if err != nil || n == 0 {
			return n, err
		}
		signed := protowire.DecodeZigZag(v)
		switch num {
		case mouseButtons:
			r.Buttons = uint8(v)
		case mouseX:
			r.X = int16(clamp(signed, math.MinInt16, math.MaxInt16))
		case mouseY:
			r.Y = int16(clamp(signed, math.MinInt16, math.MaxInt16))
		case mouseWheel:
			r.Wheel = int8(clamp(signed, math.MinInt8, math.MaxInt8))
		case mousePan:
			r.Pan = int8(clamp(signed, math.MinInt8, math.MaxInt8))
		}
		return n, nil
	})
	if err != nil {
		return nil, fmt.Errorf("mouse: %w", err)
	}
	return r, nil
}

func decodeIndicator(b []byte) (*indicator.Command, error) {
	cmd := &indicator.Command{}
	err := fields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var v uint64
		n, err := consumeVarint(typ, b, &v)
		if err != nil || n == 0 {
			return n, err
		}
		switch num {
		case indicatorOp:
			cmd.Op = indicator.Op(v)
		case indicatorKind:
			cmd.Pattern.Kind = indicator.PatternKind(v)
		case indicatorRed:
			cmd.Pattern.Color.R = uint8(v)
		case indicatorGreen:
			cmd.Pattern.Color.G = uint8(v)
		case indicatorBlue:
			cmd.Pattern.Color.B = uint8(v)
		case indicatorPeriod:
			cmd.Pattern.Period = uint16(v)
		}
		return n, nil
	})
	if err != nil {
		return nil, fmt.Errorf("indicator: %w", err)
	}
	if cmd.Op > indicator.OpStart {
		return nil, fmt.Errorf("indicator: unknown op %d", cmd.Op)
	}
	if cmd.Op == indicator.OpReset {
		cmd.Pattern = indicator.Pattern{}
	}
	return cmd, nil
}

func clamp(v, min, max int64) int64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
