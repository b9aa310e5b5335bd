// Package linksvc carries wire payloads between the halves of a split keyboard.
package linksvc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/neuroplastio/neio-split/pkg/wire"
)

// Frame layout: [channel][flags][payload...][checksum u32 LE].
// The checksum is the low 32 bits of the xxhash64 of everything before it.
const (
	frameHeaderSize   = 2
	frameChecksumSize = 4
	MaxFrameSize      = frameHeaderSize + wire.MaxPayloadSize + frameChecksumSize
)

const (
	FlagUrgent uint8 = 1 << 0
)

var (
	ErrShortFrame    = errors.New("frame too short")
	ErrFrameTooLarge = errors.New("frame too large")
	ErrChecksum      = errors.New("frame checksum mismatch")
	ErrQueueFull     = errors.New("link send queue full")
	ErrNotConnected  = errors.New("link not connected")
)

type Frame struct {
	Channel uint8
	Flags   uint8
	Payload []byte
}

func (f Frame) Urgent() bool {
	return f.Flags&FlagUrgent != 0
}

func EncodeFrame(f Frame) ([]byte, error) {
	if len(f.Payload) > wire.MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d byte payload", ErrFrameTooLarge, len(f.Payload))
	}
	b := make([]byte, 0, frameHeaderSize+len(f.Payload)+frameChecksumSize)
	b = append(b, f.Channel, f.Flags)
	b = append(b, f.Payload...)
	return binary.LittleEndian.AppendUint32(b, uint32(xxhash.Sum64(b))), nil
}

// DecodeFrame validates the checksum. The returned payload aliases b.
func DecodeFrame(b []byte) (Frame, error) {
	if len(b) < frameHeaderSize+frameChecksumSize {
		return Frame{}, ErrShortFrame
	}
	if len(b) > MaxFrameSize {
		return Frame{}, ErrFrameTooLarge
	}
	body := b[:len(b)-frameChecksumSize]
	if binary.LittleEndian.Uint32(b[len(body):]) != uint32(xxhash.Sum64(body)) {
		return Frame{}, ErrChecksum
	}
	return Frame{
		Channel: body[0],
		Flags:   body[1],
		Payload: body[frameHeaderSize:],
	}, nil
}

func newFrame(channel uint8, payload []byte, urgent bool) ([]byte, error) {
	f := Frame{Channel: channel, Payload: payload}
	if urgent {
		f.Flags |= FlagUrgent
	}
	return EncodeFrame(f)
}

// FrameHandler consumes frames received from a peer. Frames are handled sequentially per connection.
type FrameHandler interface {
	HandleFrame(ctx context.Context, frame Frame)
}

type FrameHandlerFunc func(ctx context.Context, frame Frame)

func (f FrameHandlerFunc) HandleFrame(ctx context.Context, frame Frame) {
	f(ctx, frame)
}
