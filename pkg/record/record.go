package record

import (
	"encoding/binary"
	"strings"
)

// A Record is one decoded (or constructed) instance of a Layout.
type Record struct {
	layout *Layout
	name   string
	index  int
	vals   []uint64
	blobs  [][]byte
	raw    []byte
}

// A Pair is one field of a record with its raw value: uint64 for unsigned
// fields, int64 for signed ones and []byte for blobs.
type Pair struct {
	Name  string
	Value any
}

func (r *Record) Layout() *Layout { return r.layout }

// Name is the layout name, suffixed with "[i]" for indexed records.
func (r *Record) Name() string { return r.name }

// Index is the instance number of an indexed record, or -1.
func (r *Record) Index() int { return r.index }

// Raw returns the bytes the record was decoded from; nil for made records.
func (r *Record) Raw() []byte { return r.raw }

func (r *Record) Size() int { return r.layout.size }

func (r *Record) Has(name string) bool { return r.layout.Has(name) }

// Uint returns an integer field. Unknown and blob fields read as zero.
func (r *Record) Uint(name string) uint64 {
	i, ok := r.layout.byName[name]
	if !ok {
		return 0
	}
	return r.vals[i]
}

func (r *Record) Uint32(name string) uint32 { return uint32(r.Uint(name)) }

// Int returns an integer field as signed.
func (r *Record) Int(name string) int64 { return int64(r.Uint(name)) }

func (r *Record) Blob(name string) []byte {
	i, ok := r.layout.byName[name]
	if !ok {
		return nil
	}
	return r.blobs[i]
}

// Str returns a blob field as a string with its NUL bytes removed.
func (r *Record) Str(name string) string {
	return strings.ReplaceAll(string(r.Blob(name)), "\x00", "")
}

// Get returns the raw value of a field as reported by Fields.
func (r *Record) Get(name string) (any, bool) {
	i, ok := r.layout.byName[name]
	if !ok {
		return nil, false
	}
	return r.value(i), true
}

func (r *Record) value(i int) any {
	f := r.layout.fields[i].Format
	switch {
	case f.IsBlob():
		return r.blobs[i]
	case f.Signed():
		return int64(r.vals[i])
	}
	return r.vals[i]
}

// Fields returns every field in declaration order.
func (r *Record) Fields() []Pair {
	out := make([]Pair, len(r.layout.fields))
	for i, f := range r.layout.fields {
		out[i] = Pair{Name: f.Name, Value: r.value(i)}
	}
	return out
}

// Displayed returns every field in declaration order with its value
// rendered by the field kind.
func (r *Record) Displayed() []Pair {
	out := make([]Pair, len(r.layout.fields))
	for i, f := range r.layout.fields {
		out[i] = Pair{Name: f.Name, Value: r.Display(f.Name)}
	}
	return out
}

// FieldRange returns the offset and size of the named field within the
// record.
func (r *Record) FieldRange(name string) (int, int, bool) {
	return r.layout.Offset(name)
}

// FieldBytes returns the bytes a decoded field came from.
func (r *Record) FieldBytes(name string) []byte {
	off, size, ok := r.layout.Offset(name)
	if !ok || r.raw == nil {
		return nil
	}
	return r.raw[off : off+size]
}

// Display renders one field through its kind.
func (r *Record) Display(name string) string {
	i, ok := r.layout.byName[name]
	if !ok {
		return ""
	}
	return r.layout.fields[i].Kind.Display(r, name)
}

// String renders the record as "<name: a=b, c=d>".
func (r *Record) String() string {
	var sb strings.Builder
	sb.WriteString("<")
	sb.WriteString(r.name)
	sb.WriteString(": ")
	for i, f := range r.layout.fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Name)
		sb.WriteString("=")
		sb.WriteString(f.Kind.Display(r, f.Name))
	}
	sb.WriteString(">")
	return sb.String()
}

func (r *Record) encode(order binary.ByteOrder) []byte {
	b := make([]byte, r.layout.size)
	for i, f := range r.layout.fields {
		fb := b[r.layout.offsets[i] : r.layout.offsets[i]+f.Format.Size()]
		if f.Format.IsBlob() {
			copy(fb, r.blobs[i])
			continue
		}
		f.Format.encode(order, fb, r.vals[i])
	}
	return b
}
