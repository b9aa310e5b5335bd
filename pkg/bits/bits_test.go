package bits

import (
	"testing"
)

func TestSet(t *testing.T) {
	b := NewZeros(12)
	if b.Len() != 12 || len(b.Bytes()) != 2 {
		t.Fatalf("unexpected size: %d bits, %d bytes", b.Len(), len(b.Bytes()))
	}
	if !b.Set(0) || !b.Set(9) {
		t.Fatal("expected bits to change")
	}
	if b.Set(9) {
		t.Error("setting a set bit reported a change")
	}
	if b.Set(12) {
		t.Error("bit outside the buffer was set")
	}
	if b.String() != "00000001 0010" {
		t.Errorf("unexpected bits: %s", b)
	}
	if !b.IsSet(9) || b.IsSet(8) {
		t.Error("unexpected bit state")
	}
}

func TestEqual(t *testing.T) {
	a := NewZeros(12)
	a.Set(3)
	b := NewZeros(12)
	if a.Equal(b) {
		t.Error("different bits are equal")
	}
	b.Set(3)
	if !a.Equal(b) {
		t.Error("same bits are not equal")
	}
	if NewZeros(12).Equal(NewZeros(16)) {
		t.Error("buffers of different length are equal")
	}
}

func TestConcatScan(t *testing.T) {
	widths := []int{8, 3, 5, 16, 1, 7, 8}
	values := []uint16{0xa5, 0x5, 0x11, 0xbeef, 0x1, 0x3c, 0x00}

	all := New([]byte{}, 0)
	for i, width := range widths {
		field := NewZeros(width)
		for bit := 0; bit < width; bit++ {
			if values[i]&(1<<bit) != 0 {
				field.Set(bit)
			}
		}
		all = ConcatBits(all, field)
	}
	if all.Len() != 48 {
		t.Fatalf("expected 48 bits, got %d", all.Len())
	}

	scanner := NewScanner(all.Bytes())
	for i, width := range widths {
		field := scanner.Next(width)
		if field.Len() != width {
			t.Fatalf("%d: expected %d bits, got %d", i, width, field.Len())
		}
		var value uint16
		for bit := 0; bit < width; bit++ {
			if field.IsSet(bit) {
				value |= 1 << bit
			}
		}
		if value != values[i] {
			t.Errorf("%d: expected %x, got %x", i, values[i], value)
		}
	}
	if next := scanner.Next(8); next.Len() != 0 {
		t.Errorf("expected empty bits after exhaustion, got %s", next)
	}
}
