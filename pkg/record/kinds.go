package record

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// A Kind validates and renders the value of one field. Both methods see the
// whole record so a field may depend on its siblings.
type Kind interface {
	Validate(r *Record, field string) bool
	Display(r *Record, field string) string
}

// Func adapts a pair of functions to a Kind. A nil ValidateFunc accepts every
// value and a nil DisplayFunc renders like Plain.
type Func struct {
	ValidateFunc func(r *Record, field string) bool
	DisplayFunc  func(r *Record, field string) string
}

func (f Func) Validate(r *Record, field string) bool {
	if f.ValidateFunc == nil {
		return true
	}
	return f.ValidateFunc(r, field)
}

func (f Func) Display(r *Record, field string) string {
	if f.DisplayFunc == nil {
		return Plain.Display(r, field)
	}
	return f.DisplayFunc(r, field)
}

type plainKind struct{}

func (plainKind) Validate(*Record, string) bool { return true }

func (plainKind) Display(r *Record, field string) string {
	v, ok := r.Get(field)
	if !ok {
		return ""
	}
	switch x := v.(type) {
	case []byte:
		return fmt.Sprintf("%x", x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	}
	return fmt.Sprint(v)
}

type hexKind struct{}

func (hexKind) Validate(*Record, string) bool { return true }

func (hexKind) Display(r *Record, field string) string {
	v, _ := r.Get(field)
	switch x := v.(type) {
	case []byte:
		return fmt.Sprintf("%x", x)
	case int64:
		if x < 0 {
			return "-0x" + strconv.FormatUint(uint64(-x), 16)
		}
		return "0x" + strconv.FormatInt(x, 16)
	}
	return "0x" + strconv.FormatUint(r.Uint(field), 16)
}

type unixTimeKind struct{}

func (unixTimeKind) Validate(*Record, string) bool { return true }

func (unixTimeKind) Display(r *Record, field string) string {
	return time.Unix(r.Int(field), 0).UTC().Format("2006-01-02 15:04:05")
}

type cstringKind struct{}

func (cstringKind) Validate(*Record, string) bool { return true }

func (cstringKind) Display(r *Record, field string) string { return r.Str(field) }

var (
	// Plain renders integers in decimal and blobs in hex.
	Plain Kind = plainKind{}
	// Hex renders integers as 0x-prefixed hex.
	Hex Kind = hexKind{}
	// UnixTime renders a time_t as a UTC timestamp.
	UnixTime Kind = unixTimeKind{}
	// CString renders a fixed size name with its NUL padding removed.
	CString Kind = cstringKind{}
)

type magicKind struct {
	magic map[uint64]string
}

// Magic accepts only the listed values and renders their description.
func Magic(magic map[uint64]string) Kind { return magicKind{magic: magic} }

func (k magicKind) Validate(r *Record, field string) bool {
	_, ok := k.magic[r.Uint(field)]
	return ok
}

func (k magicKind) Display(r *Record, field string) string {
	if s, ok := k.magic[r.Uint(field)]; ok {
		return s
	}
	return Hex.Display(r, field)
}

type enumKind struct {
	m      *Mapping
	strict bool
}

// Enum accepts only values present in m and renders their mnemonic.
func Enum(m *Mapping) Kind { return enumKind{m: m, strict: true} }

// Names renders the mnemonic of a value when m has one and hex otherwise. It
// accepts every value.
func Names(m *Mapping) Kind { return enumKind{m: m} }

func (k enumKind) Validate(r *Record, field string) bool {
	return !k.strict || k.m.HasValue(r.Uint(field))
}

func (k enumKind) Display(r *Record, field string) string {
	return k.m.StringName(r.Uint(field))
}

type bitFieldsKind struct {
	bits []IntName
	mask uint64
}

// BitFields builds a flags kind from single-bit values. Every value must be a
// power of two; m already guarantees no two share a bit.
func BitFields(m *Mapping) (Kind, error) {
	bits := m.Pairs()
	var mask uint64
	for _, b := range bits {
		if b.I == 0 || b.I&(b.I-1) != 0 {
			return nil, &BitFieldError{Name: b.S, Value: b.I, Msg: "invalid"}
		}
		mask |= b.I
	}
	slices.SortFunc(bits, func(a, b IntName) int {
		switch {
		case a.I < b.I:
			return -1
		case a.I > b.I:
			return 1
		}
		return 0
	})
	return bitFieldsKind{bits: bits, mask: mask}, nil
}

// MustBitFields is like BitFields but panics on a bad table.
func MustBitFields(m *Mapping) Kind {
	k, err := BitFields(m)
	if err != nil {
		panic(err)
	}
	return k
}

func (k bitFieldsKind) Validate(r *Record, field string) bool {
	return r.Uint(field)&^k.mask == 0
}

func (k bitFieldsKind) Display(r *Record, field string) string {
	v := r.Uint(field)
	var names []string
	for _, b := range k.bits {
		if v&b.I != 0 {
			names = append(names, b.S)
		}
	}
	return strings.Join(names, ",")
}
