package patterndsl

import (
	"testing"
	"time"

	"github.com/neuroplastio/neio-split/indicator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePattern(t *testing.T) {
	type testCase struct {
		input    string
		expected indicator.Pattern
	}

	testCases := []testCase{
		{input: `reset`, expected: indicator.Pattern{Kind: indicator.PatternNone}},
		{input: `off()`, expected: indicator.Pattern{Kind: indicator.PatternNone}},
		{input: `solid(10, 0, 0)`, expected: indicator.Solid(10, 0, 0)},
		{input: `solid( 0,0,10 )`, expected: indicator.Solid(0, 0, 10)},
		{input: `solid(#0a0b0c)`, expected: indicator.Solid(10, 11, 12)},
		{input: `solid(yellow)`, expected: indicator.Solid(10, 10, 0)},
		{input: `solid(light-blue)`, expected: indicator.Solid(3, 6, 10)},
		{input: `solid(light_blue)`, expected: indicator.Solid(3, 6, 10)},
		{input: `breathe(red, 1500ms)`, expected: indicator.Breathe(indicator.Red, 1500*time.Millisecond)},
		{input: `breathe(0, 10, 0, 3s)`, expected: indicator.Breathe(indicator.Green, 3*time.Second)},
		{input: `breathe(blue)`, expected: indicator.Breathe(indicator.Blue, 2*time.Second)},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			actual, err := ParsePattern(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestParsePatternErrors(t *testing.T) {
	inputs := []string{
		``,
		`sparkle(red)`,
		`solid()`,
		`solid(10, 0)`,
		`solid(256, 0, 0)`,
		`solid(chartreuse)`,
		`solid(red, 1s)`,
		`breathe(red, 0s)`,
		`breathe(red, red)`,
		`reset(1)`,
		`solid(10, 0, 0`,
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := ParsePattern(input)
			assert.Error(t, err)
		})
	}
}

func TestParseTable(t *testing.T) {
	table, err := ParseTable(map[string]string{
		"1":  "solid(blue)",
		"5":  "breathe(#ff0000, 1s)",
		"12": "reset",
	})
	require.NoError(t, err)
	assert.Equal(t, indicator.Table{
		1:  indicator.Solid(0, 0, 10),
		5:  indicator.Breathe(indicator.Color{R: 0xff}, time.Second),
		12: {Kind: indicator.PatternNone},
	}, table)

	table, err = ParseTable(map[string]string{"256": "solid(red)"})
	require.NoError(t, err)
	assert.Equal(t, indicator.Table{256: indicator.Solid(10, 0, 0)}, table)
	_, err = ParseTable(map[string]string{"4294967296": "solid(red)"})
	assert.Error(t, err)
	_, err = ParseTable(map[string]string{"-1": "solid(red)"})
	assert.Error(t, err)
	_, err = ParseTable(map[string]string{"layer": "solid(red)"})
	assert.Error(t, err)
	_, err = ParseTable(map[string]string{"2": "solid(nope)"})
	assert.Error(t, err)
}
