package indicator

import (
	"github.com/neuroplastio/neio-split/splitapi"
)

var (
	Blue   = Color{B: 10}
	Red    = Color{R: 10}
	Green  = Color{G: 10}
	Yellow = Color{R: 10, G: 10}
)

// Table maps a layer index to the pattern shown while it is the highest active layer.
type Table map[uint32]Pattern

func DefaultTable() Table {
	return Table{
		1: Pattern{Kind: PatternSolid, Color: Blue},
		2: Pattern{Kind: PatternSolid, Color: Red},
		3: Pattern{Kind: PatternSolid, Color: Green},
		4: Pattern{Kind: PatternSolid, Color: Yellow},
	}
}

// Mapper is a pure lookup from keyboard state to an indicator command.
// It is immutable once created and safe for concurrent use.
type Mapper struct {
	table Table
}

func NewMapper(table Table) *Mapper {
	m := &Mapper{table: make(Table, len(table))}
	for layer, pattern := range table {
		m.table[layer] = pattern
	}
	return m
}

func NewDefaultMapper() *Mapper {
	return NewMapper(DefaultTable())
}

// Map returns the command for the state. Layers without an entry, including the base layer, map to Reset.
func (m *Mapper) Map(state *splitapi.State) Command {
	if state == nil {
		return Reset()
	}
	pattern, ok := m.table[state.Layer]
	if !ok || pattern.Kind == PatternNone {
		return Reset()
	}
	return Start(pattern)
}

func (m *Mapper) Table() Table {
	table := make(Table, len(m.table))
	for layer, pattern := range m.table {
		table[layer] = pattern
	}
	return table
}
