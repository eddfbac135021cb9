package record

import (
	"fmt"
	"slices"
	"strconv"
)

// An IntName pairs a numeric value with its mnemonic.
type IntName struct {
	I uint64
	S string
}

// A Mapping is a one-to-one table between mnemonics and values with lookup
// in both directions. Pairs keep their declaration order.
type Mapping struct {
	pairs   []IntName
	byValue map[uint64]string
	byName  map[string]uint64
}

// NewMapping builds a Mapping, rejecting a repeated name or value.
func NewMapping(pairs ...IntName) (*Mapping, error) {
	m := &Mapping{
		byValue: make(map[uint64]string, len(pairs)),
		byName:  make(map[string]uint64, len(pairs)),
	}
	for _, p := range pairs {
		if err := m.add(p); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustMapping is like NewMapping but panics on a duplicate. It is meant for
// package level tables.
func MustMapping(pairs ...IntName) *Mapping {
	m, err := NewMapping(pairs...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Mapping) add(p IntName) error {
	if _, ok := m.byName[p.S]; ok {
		return fmt.Errorf("duplicate name %s in mapping", p.S)
	}
	if _, ok := m.byValue[p.I]; ok {
		return fmt.Errorf("duplicate value %#x (%s) in mapping", p.I, p.S)
	}
	m.byName[p.S] = p.I
	m.byValue[p.I] = p.S
	m.pairs = append(m.pairs, p)
	return nil
}

func (m *Mapping) Name(v uint64) (string, bool) {
	s, ok := m.byValue[v]
	return s, ok
}

func (m *Mapping) Value(name string) (uint64, bool) {
	v, ok := m.byName[name]
	return v, ok
}

func (m *Mapping) HasValue(v uint64) bool {
	_, ok := m.byValue[v]
	return ok
}

func (m *Mapping) HasName(name string) bool {
	_, ok := m.byName[name]
	return ok
}

func (m *Mapping) Len() int { return len(m.pairs) }

// Pairs returns the table in declaration order.
func (m *Mapping) Pairs() []IntName { return append([]IntName(nil), m.pairs...) }

// StringName returns the mnemonic for v, or v in hex when there is none.
func (m *Mapping) StringName(v uint64) string {
	if s, ok := m.byValue[v]; ok {
		return s
	}
	return "0x" + strconv.FormatUint(v, 16)
}

// Set adds a pair to the table.
func (m *Mapping) Set(name string, v uint64) error {
	return m.add(IntName{I: v, S: name})
}

// Delete removes the pair with the given name.
func (m *Mapping) Delete(name string) bool {
	v, ok := m.byName[name]
	if !ok {
		return false
	}
	delete(m.byName, name)
	delete(m.byValue, v)
	m.pairs = slices.DeleteFunc(m.pairs, func(p IntName) bool { return p.S == name })
	return true
}
