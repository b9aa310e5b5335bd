// Package indicator maps keyboard state to backlight commands and suppresses repeated ones.
package indicator

import (
	"fmt"
	"math"
	"time"
)

type Op uint8

const (
	// OpReset returns the indicator to its idle (off) appearance.
	OpReset Op = iota
	// OpStart starts rendering a pattern.
	OpStart
)

func (o Op) String() string {
	switch o {
	case OpReset:
		return "reset"
	case OpStart:
		return "start"
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

type PatternKind uint8

const (
	PatternNone PatternKind = iota
	PatternSolid
	PatternBreathe
)

func (k PatternKind) String() string {
	switch k {
	case PatternNone:
		return "none"
	case PatternSolid:
		return "solid"
	case PatternBreathe:
		return "breathe"
	}
	return fmt.Sprintf("pattern(%d)", uint8(k))
}

type Color struct {
	R, G, B uint8
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Pattern is a comparable description of what the indicator renders.
// Period is only meaningful for animated kinds and is expressed in milliseconds.
type Pattern struct {
	Kind   PatternKind
	Color  Color
	Period uint16
}

func Solid(r, g, b uint8) Pattern {
	return Pattern{Kind: PatternSolid, Color: Color{R: r, G: g, B: b}}
}

// Breathe fades the color in and out. The period is truncated to milliseconds and capped at ~65s.
func Breathe(color Color, period time.Duration) Pattern {
	ms := period.Milliseconds()
	if ms > math.MaxUint16 {
		ms = math.MaxUint16
	}
	if ms < 0 {
		ms = 0
	}
	return Pattern{Kind: PatternBreathe, Color: color, Period: uint16(ms)}
}

func (p Pattern) PeriodDuration() time.Duration {
	return time.Duration(p.Period) * time.Millisecond
}

func (p Pattern) String() string {
	switch p.Kind {
	case PatternBreathe:
		return fmt.Sprintf("breathe(%s, %s)", p.Color, p.PeriodDuration())
	case PatternSolid:
		return fmt.Sprintf("solid(%s)", p.Color)
	}
	return p.Kind.String()
}

// Command is the discrete instruction sent to indicator drivers.
// Commands are compared by value, Reset commands never carry a pattern.
type Command struct {
	Op      Op
	Pattern Pattern
}

func Reset() Command {
	return Command{Op: OpReset}
}

func Start(pattern Pattern) Command {
	return Command{Op: OpStart, Pattern: pattern}
}

func (c Command) Equal(other Command) bool {
	return c == other
}

func (c Command) IsReset() bool {
	return c.Op == OpReset
}

func (c Command) String() string {
	if c.Op == OpStart {
		return "start " + c.Pattern.String()
	}
	return c.Op.String()
}
