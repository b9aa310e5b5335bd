// Package patterndsl parses indicator pattern expressions used in the layer table configuration:
//
//	reset
//	solid(10, 0, 0)
//	solid(#0a0a00)
//	solid(light-blue)
//	breathe(red, 1500ms)
package patterndsl

import (
	"fmt"
	"strconv"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/neuroplastio/neio-split/indicator"
)

var namedColors = map[string]indicator.Color{
	"Off":       {},
	"Red":       indicator.Red,
	"Green":     indicator.Green,
	"Blue":      indicator.Blue,
	"Yellow":    indicator.Yellow,
	"Cyan":      {G: 10, B: 10},
	"Magenta":   {R: 10, B: 10},
	"White":     {R: 10, G: 10, B: 10},
	"Orange":    {R: 10, G: 4},
	"Purple":    {R: 5, B: 10},
	"LightBlue": {R: 3, G: 6, B: 10},
}

const defaultBreathePeriod = 2 * time.Second

func ParseExpression(expr string) (Expression, error) {
	result, err := expressionParser.ParseString("", expr)
	if err != nil {
		return Expression{}, err
	}
	return *result, nil
}

// ParsePattern compiles an expression into a pattern. `reset` and `off` yield a pattern of kind
// PatternNone, which the mapper turns into a Reset command.
func ParsePattern(expr string) (indicator.Pattern, error) {
	e, err := ParseExpression(expr)
	if err != nil {
		return indicator.Pattern{}, fmt.Errorf("failed to parse pattern %q: %w", expr, err)
	}
	return Compile(e)
}

func Compile(e Expression) (indicator.Pattern, error) {
	switch e.Name {
	case "reset", "off":
		if len(e.Arguments) > 0 {
			return indicator.Pattern{}, fmt.Errorf("%s takes no arguments", e.Name)
		}
		return indicator.Pattern{Kind: indicator.PatternNone}, nil
	case "solid":
		color, rest, err := compileColor(e.Arguments)
		if err != nil {
			return indicator.Pattern{}, fmt.Errorf("solid: %w", err)
		}
		if len(rest) > 0 {
			return indicator.Pattern{}, fmt.Errorf("solid: unexpected arguments after color")
		}
		return indicator.Pattern{Kind: indicator.PatternSolid, Color: color}, nil
	case "breathe":
		color, rest, err := compileColor(e.Arguments)
		if err != nil {
			return indicator.Pattern{}, fmt.Errorf("breathe: %w", err)
		}
		period := defaultBreathePeriod
		switch {
		case len(rest) == 1 && rest[0].Duration != nil:
			period = time.Duration(*rest[0].Duration)
		case len(rest) > 0:
			return indicator.Pattern{}, fmt.Errorf("breathe: expected a period after color")
		}
		if period <= 0 {
			return indicator.Pattern{}, fmt.Errorf("breathe: period must be positive")
		}
		return indicator.Breathe(color, period), nil
	}
	return indicator.Pattern{}, fmt.Errorf("unknown pattern: %s", e.Name)
}

func compileColor(args []Argument) (indicator.Color, []Argument, error) {
	if len(args) == 0 {
		return indicator.Color{}, nil, fmt.Errorf("missing color")
	}
	first := args[0]
	switch {
	case first.Hex != nil:
		v, err := strconv.ParseUint((*first.Hex)[1:], 16, 32)
		if err != nil {
			return indicator.Color{}, nil, fmt.Errorf("invalid hex color %s: %w", *first.Hex, err)
		}
		return indicator.Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, args[1:], nil
	case first.Ident != nil:
		color, ok := namedColors[strcase.ToCamel(*first.Ident)]
		if !ok {
			return indicator.Color{}, nil, fmt.Errorf("unknown color: %s", *first.Ident)
		}
		return color, args[1:], nil
	case first.Number != nil:
		if len(args) < 3 {
			return indicator.Color{}, nil, fmt.Errorf("expected red, green and blue components")
		}
		var components [3]uint8
		for i := 0; i < 3; i++ {
			if args[i].Number == nil {
				return indicator.Color{}, nil, fmt.Errorf("color component %d is not a number", i)
			}
			n := *args[i].Number
			if n < 0 || n > 255 {
				return indicator.Color{}, nil, fmt.Errorf("color component %d out of range: %d", i, n)
			}
			components[i] = uint8(n)
		}
		return indicator.Color{R: components[0], G: components[1], B: components[2]}, args[3:], nil
	}
	return indicator.Color{}, nil, fmt.Errorf("invalid color argument")
}

// ParseTable compiles a layer table as written in configuration, keyed by decimal layer index.
func ParseTable(entries map[string]string) (indicator.Table, error) {
	table := make(indicator.Table, len(entries))
	for key, expr := range entries {
		layer, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid layer %q: %w", key, err)
		}
		pattern, err := ParsePattern(expr)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", layer, err)
		}
		table[uint32(layer)] = pattern
	}
	return table, nil
}
