package macho

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/appsworld/go-machview/pkg/record"
	"github.com/appsworld/go-machview/types"
	"github.com/pkg/errors"
)

// A Symbol is one entry of a symbol table.
type Symbol struct {
	Index int
	Strx  uint32
	Type  types.NType
	Sect  uint8
	Desc  types.NDesc
	Value uint64
	// Name is empty, and HasName false, for entries with a zero n_strx.
	Name    string
	HasName bool
}

func (s Symbol) String() string {
	return fmt.Sprintf("%#016x %-24s sect=%d %s", s.Value, s.Type, s.Sect, s.Name)
}

// A SymbolTable holds the entries of one LC_SYMTAB as parallel arrays rather
// than one tree node per entry, since tables reach millions of symbols. Names
// are resolved once against the string table and cached by offset.
type SymbolTable struct {
	strx  []uint32
	typ   []uint8
	sect  []uint8
	desc  []uint16
	value []uint64
	name  []int32 // index into names, -1 for no name

	names   []string
	strings map[uint32]int32
}

func newSymbolTable(n int) *SymbolTable {
	return &SymbolTable{
		strx:    make([]uint32, 0, n),
		typ:     make([]uint8, 0, n),
		sect:    make([]uint8, 0, n),
		desc:    make([]uint16, 0, n),
		value:   make([]uint64, 0, n),
		name:    make([]int32, 0, n),
		strings: make(map[uint32]int32),
	}
}

// add appends a decoded nlist or nlist64 record.
func (t *SymbolTable) add(r *record.Record) {
	t.strx = append(t.strx, r.Uint32("n_strx"))
	t.typ = append(t.typ, uint8(r.Uint("n_type")))
	t.sect = append(t.sect, uint8(r.Uint("n_sect")))
	t.desc = append(t.desc, uint16(r.Uint("n_desc")))
	t.value = append(t.value, r.Uint("n_value"))
	t.name = append(t.name, -1)
}

// addString caches the string at strx of the string table.
func (t *SymbolTable) addString(strx uint32, strtab []byte) error {
	if _, ok := t.strings[strx]; ok {
		return nil
	}
	if int(strx) >= len(strtab) {
		return errors.Errorf("string index %#x beyond %#x byte string table", strx, len(strtab))
	}
	s := strtab[strx:]
	if end := bytes.IndexByte(s, 0); end >= 0 {
		s = s[:end]
	}
	t.strings[strx] = int32(len(t.names))
	t.names = append(t.names, string(s))
	return nil
}

// correlate resolves the name of every entry with a non-zero n_strx.
func (t *SymbolTable) correlate() {
	for i, strx := range t.strx {
		if strx == 0 {
			continue
		}
		if n, ok := t.strings[strx]; ok {
			t.name[i] = n
		}
	}
}

func (t *SymbolTable) Len() int { return len(t.strx) }

// NumStrings returns the number of distinct names referenced by the table.
func (t *SymbolTable) NumStrings() int { return len(t.names) }

// At returns the i-th entry.
func (t *SymbolTable) At(i int) Symbol {
	s := Symbol{
		Index: i,
		Strx:  t.strx[i],
		Type:  types.NType(t.typ[i]),
		Sect:  t.sect[i],
		Desc:  types.NDesc(t.desc[i]),
		Value: t.value[i],
	}
	s.Name, s.HasName = t.Name(i)
	return s
}

// Name returns the resolved name of the i-th entry.
func (t *SymbolTable) Name(i int) (string, bool) {
	if n := t.name[i]; n >= 0 {
		return t.names[n], true
	}
	return "", false
}

// Lookup returns the string at offset strx of the string table, if an entry
// refers to it.
func (t *SymbolTable) Lookup(strx uint32) (string, bool) {
	n, ok := t.strings[strx]
	if !ok {
		return "", false
	}
	return t.names[n], true
}

// Filter returns the indices of the entries whose name contains substr. An
// empty substr matches every entry.
func (t *SymbolTable) Filter(substr string) []int {
	var idx []int
	for i := range t.strx {
		if substr == "" {
			idx = append(idx, i)
			continue
		}
		if name, ok := t.Name(i); ok && strings.Contains(name, substr) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Record rebuilds the i-th entry as an nlist64 record for display.
func (t *SymbolTable) Record(i int) *record.Record {
	r, _ := types.Nlist64.MakeAt(i, record.V{
		"n_strx":  t.strx[i],
		"n_type":  t.typ[i],
		"n_sect":  t.sect[i],
		"n_desc":  t.desc[i],
		"n_value": t.value[i],
	})
	return r
}

// SymbolInfo pages through the symbols of one Mach-O by match index, so a
// viewer never materializes the full set of matches.
type SymbolInfo struct {
	Desc     string
	tables   []*SymbolTable
	sections []*SectionDescriptor
	matches  [][]int
	matched  int
}

// NewSymbolInfo returns a SymbolInfo matching every symbol of m.
func NewSymbolInfo(m *MachO) *SymbolInfo {
	si := &SymbolInfo{
		Desc:     m.Name(),
		tables:   m.SymbolTables(),
		sections: m.Sections(),
	}
	si.Filter("")
	return si
}

func (si *SymbolInfo) NumSymbols() int {
	var n int
	for _, t := range si.tables {
		n += t.Len()
	}
	return n
}

// Filter selects the symbols whose name contains substr and returns how many
// matched.
func (si *SymbolInfo) Filter(substr string) int {
	si.matches = si.matches[:0]
	si.matched = 0
	for _, t := range si.tables {
		idx := t.Filter(substr)
		si.matches = append(si.matches, idx)
		si.matched += len(idx)
	}
	return si.matched
}

func (si *SymbolInfo) NumMatched() int { return si.matched }

// Symbol returns the matchIdx-th match and the "segment, section" it is
// defined in, if any.
func (si *SymbolInfo) Symbol(matchIdx int) (Symbol, string, error) {
	if matchIdx < 0 || matchIdx >= si.matched {
		return Symbol{}, "", errors.Errorf("match %d out of range [0, %d)", matchIdx, si.matched)
	}
	for ti, idx := range si.matches {
		if matchIdx >= len(idx) {
			matchIdx -= len(idx)
			continue
		}
		sym := si.tables[ti].At(idx[matchIdx])
		var where string
		// sections are numbered from 1
		if n := int(sym.Sect); n > 0 && n <= len(si.sections) {
			s := si.sections[n-1]
			where = s.Segment + ", " + s.Name
		}
		return sym, where, nil
	}
	return Symbol{}, "", errors.Errorf("match %d not found", matchIdx)
}

// A StringSection is one __cstring or __objc_methname section.
type StringSection struct {
	Desc    string
	Offset  int64
	Strings []CString
}

// StringInfo pages through the strings of the C string sections of one
// Mach-O by match index.
type StringInfo struct {
	Desc     string
	sections []StringSection
	matches  [][]int
	matched  int
}

// NewStringInfo returns a StringInfo matching every string of m.
func NewStringInfo(m *MachO) *StringInfo {
	si := &StringInfo{Desc: m.Name(), sections: m.StringSections()}
	si.Filter("")
	return si
}

func (si *StringInfo) NumStrings() int {
	var n int
	for _, s := range si.sections {
		n += len(s.Strings)
	}
	return n
}

func (si *StringInfo) Filter(substr string) int {
	si.matches = si.matches[:0]
	si.matched = 0
	for _, s := range si.sections {
		var idx []int
		for i, cs := range s.Strings {
			if strings.Contains(cs.Value, substr) {
				idx = append(idx, i)
			}
		}
		si.matches = append(si.matches, idx)
		si.matched += len(idx)
	}
	return si.matched
}

func (si *StringInfo) NumMatched() int { return si.matched }

// Item returns the matchIdx-th match and the section holding it.
func (si *StringInfo) Item(matchIdx int) (CString, string, error) {
	if matchIdx < 0 || matchIdx >= si.matched {
		return CString{}, "", errors.Errorf("match %d out of range [0, %d)", matchIdx, si.matched)
	}
	for i, idx := range si.matches {
		if matchIdx >= len(idx) {
			matchIdx -= len(idx)
			continue
		}
		return si.sections[i].Strings[idx[matchIdx]], si.sections[i].Desc, nil
	}
	return CString{}, "", errors.Errorf("match %d not found", matchIdx)
}
