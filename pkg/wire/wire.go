// Package wire encodes the messages exchanged between the two halves of a split keyboard.
//
// Messages use the protobuf wire format without generated code: an envelope carrying the
// protocol version and exactly one of the keyboard, mouse or indicator bodies. Field numbers
// are part of the protocol and must never be reused.
//
//	envelope:  1 version (varint), 2 keyboard (bytes), 3 mouse (bytes), 4 indicator (bytes)
//	keyboard:  1 modifiers (varint), 2 keys (bytes)
//	mouse:     1 buttons (varint), 2 x, 3 y, 4 wheel, 5 pan (zigzag varint)
//	indicator: 1 op, 2 pattern kind, 3 red, 4 green, 5 blue, 6 period ms (varint)
//
// Encoded messages never exceed MaxPayloadSize.
package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	// MaxPayloadSize is the largest payload the split link accepts.
	MaxPayloadSize = 64
	Version        = 1
)

// Link channels.
const (
	ChannelReports   uint8 = 1
	ChannelIndicator uint8 = 2
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindKeyboard
	KindMouse
	KindIndicator
)

func (k Kind) String() string {
	switch k {
	case KindKeyboard:
		return "keyboard"
	case KindMouse:
		return "mouse"
	case KindIndicator:
		return "indicator"
	}
	return "unknown"
}

const (
	fieldVersion   protowire.Number = 1
	fieldKeyboard  protowire.Number = 2
	fieldMouse     protowire.Number = 3
	fieldIndicator protowire.Number = 4
)

var (
	ErrOverflow         = errors.New("message exceeds payload size")
	ErrVersion          = errors.New("unsupported protocol version")
	ErrEmptyMessage     = errors.New("message has no body")
	ErrAmbiguousMessage = errors.New("message has more than one body")
)

// Payload is a fixed-capacity encoded message.
type Payload struct {
	buf [MaxPayloadSize]byte
	n   int
}

func (p *Payload) Bytes() []byte {
	return p.buf[:p.n]
}

func (p *Payload) Len() int {
	return p.n
}

func (p *Payload) String() string {
	return fmt.Sprintf("%x", p.Bytes())
}

func newPayload(field protowire.Number, body []byte) (Payload, error) {
	var p Payload
	b := p.buf[:0]
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, Version)
	b = protowire.AppendTag(b, field, protowire.BytesType)
	b = protowire.AppendBytes(b, body)
	if len(b) > MaxPayloadSize {
		return Payload{}, fmt.Errorf("%w: %d bytes", ErrOverflow, len(b))
	}
	// b still aliases p.buf since it never grew past its capacity
	p.n = len(b)
	return p, nil
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendZigZagField(b []byte, num protowire.Number, v int64) []byte {
	return appendVarintField(b, num, protowire.EncodeZigZag(v))
}

// fields calls fn for every field of a message body, skipping fields of unknown types.
func fields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		n, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if n == 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}

func consumeVarint(typ protowire.Type, b []byte, v *uint64) (int, error) {
	if typ != protowire.VarintType {
		return 0, nil
	}
	value, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*v = value
	return n, nil
}

func consumeBytes(typ protowire.Type, b []byte, v *[]byte) (int, error) {
	if typ != protowire.BytesType {
		return 0, nil
	}
	value, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*v = value
	return n, nil
}
