package record

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"sync"
)

// A Field declares one member of a Layout. A nil Kind is Plain.
type Field struct {
	Name   string
	Format Format
	Kind   Kind
}

// A Layout is the declared shape of a fixed size binary record. Layouts are
// built once at package level and shared.
type Layout struct {
	name    string
	endian  Endian
	fields  []Field
	offsets []int
	byName  map[string]int
	size    int
	indexed bool
	base    int
}

// NewLayout computes field offsets and the record size. Fields are packed
// with no alignment padding. A repeated field name panics.
func NewLayout(name string, endian Endian, fields ...Field) *Layout {
	l := &Layout{
		name:    name,
		endian:  endian,
		fields:  make([]Field, len(fields)),
		offsets: make([]int, len(fields)),
		byName:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if _, dup := l.byName[f.Name]; dup {
			panic(fmt.Sprintf("record %s: duplicate field %s", name, f.Name))
		}
		if f.Kind == nil {
			f.Kind = Plain
		}
		l.fields[i] = f
		l.offsets[i] = l.size
		l.byName[f.Name] = i
		l.size += f.Format.Size()
	}
	return l
}

// Indexed marks records of this layout as numbered: every record decoded or
// made through a Context takes the next value of a per-layout counter.
func (l *Layout) Indexed() *Layout {
	l.indexed = true
	return l
}

// IndexedFrom is Indexed with numbering starting at base.
func (l *Layout) IndexedFrom(base int) *Layout {
	l.indexed = true
	l.base = base
	return l
}

func (l *Layout) Name() string    { return l.name }
func (l *Layout) Endian() Endian  { return l.endian }
func (l *Layout) Size() int       { return l.size }
func (l *Layout) IsIndexed() bool { return l.indexed }
func (l *Layout) Fields() []Field { return append([]Field(nil), l.fields...) }
func (l *Layout) Has(name string) bool {
	_, ok := l.byName[name]
	return ok
}

// Offset returns the offset and size of the named field.
func (l *Layout) Offset(name string) (int, int, bool) {
	i, ok := l.byName[name]
	if !ok {
		return 0, 0, false
	}
	return l.offsets[i], l.fields[i].Format.Size(), true
}

// A Context carries the state shared by the records of one parse: the byte
// order Native layouts resolve to and the instance counters of indexed
// layouts. It is safe for concurrent use.
type Context struct {
	Order binary.ByteOrder

	mu       sync.Mutex
	counters map[*Layout]int
}

func NewContext(order binary.ByteOrder) *Context {
	return &Context{Order: order}
}

func (c *Context) next(l *Layout) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counters == nil {
		c.counters = make(map[*Layout]int)
	}
	i := c.counters[l]
	c.counters[l] = i + 1
	return i
}

// Count returns how many indexed records of l have been created.
func (c *Context) Count(l *Layout) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[l]
}

// Decode decodes b, which must be exactly Size() bytes, using the native
// byte order for Native layouts.
func (l *Layout) Decode(b []byte) (*Record, error) {
	return l.DecodeWith(b, nil)
}

// DecodeWith decodes b with the byte order and counters of ctx. ctx may be
// nil.
func (l *Layout) DecodeWith(b []byte, ctx *Context) (*Record, error) {
	r, err := l.decode(b, ctx)
	if err != nil {
		return nil, err
	}
	l.number(r, ctx)
	return r, nil
}

func (l *Layout) decode(b []byte, ctx *Context) (*Record, error) {
	if len(b) != l.size {
		return nil, &SizeMismatchError{Record: l.name, Expected: l.size, Actual: len(b)}
	}
	order := l.endian.order(ctx)
	r := l.blank()
	r.raw = b
	for i, f := range l.fields {
		fb := b[l.offsets[i] : l.offsets[i]+f.Format.Size()]
		if f.Format.IsBlob() {
			r.blobs[i] = fb
			continue
		}
		r.vals[i] = f.Format.decode(order, fb)
	}
	for i, f := range l.fields {
		if !f.Kind.Validate(r, f.Name) {
			return nil, &InvalidFieldValueError{Record: l.name, Field: f.Name, Value: r.value(i)}
		}
	}
	return r, nil
}

// Matches reports whether the first Size() bytes of b decode as a valid
// record. It does not advance any counter.
func (l *Layout) Matches(b []byte, ctx *Context) bool {
	if len(b) < l.size {
		return false
	}
	_, err := l.decode(b[:l.size], ctx)
	return err == nil
}

// V holds field values by name for Make and Encode.
type V map[string]any

// Make builds a record from named values. Fields not named are zero.
func (l *Layout) Make(vals V) (*Record, error) {
	return l.MakeWith(nil, vals)
}

func (l *Layout) MakeWith(ctx *Context, vals V) (*Record, error) {
	r := l.blank()
	for name, v := range vals {
		i, ok := l.byName[name]
		if !ok {
			return nil, &UnknownFieldError{Record: l.name, Field: name}
		}
		f := l.fields[i]
		if f.Format.IsBlob() {
			b, err := toBlob(v, f.Format.Size())
			if err != nil {
				return nil, fmt.Errorf("%s: field %s: %v", l.name, name, err)
			}
			r.blobs[i] = b
			continue
		}
		u, err := toUint(v)
		if err != nil {
			return nil, fmt.Errorf("%s: field %s: %v", l.name, name, err)
		}
		r.vals[i] = f.Format.truncate(u)
	}
	l.number(r, ctx)
	return r, nil
}

// MakeAt is Make for an indexed record whose number is already known, such
// as its position in an owning array.
func (l *Layout) MakeAt(index int, vals V) (*Record, error) {
	r, err := l.Make(vals)
	if err != nil {
		return nil, err
	}
	if l.indexed {
		r.index = index
		r.name = fmt.Sprintf("%s[%d]", l.name, index)
	}
	return r, nil
}

// Encode packs named values into Size() bytes in the given byte order. A nil
// order uses the layout's own endianness.
func (l *Layout) Encode(order binary.ByteOrder, vals V) ([]byte, error) {
	r, err := l.Make(vals)
	if err != nil {
		return nil, err
	}
	if order == nil {
		order = l.endian.order(nil)
	}
	return r.encode(order), nil
}

func (l *Layout) blank() *Record {
	return &Record{
		layout: l,
		name:   l.name,
		index:  -1,
		vals:   make([]uint64, len(l.fields)),
		blobs:  make([][]byte, len(l.fields)),
	}
}

func (l *Layout) number(r *Record, ctx *Context) {
	if !l.indexed {
		return
	}
	r.index = l.base
	if ctx != nil {
		r.index += ctx.next(l)
	}
	r.name = fmt.Sprintf("%s[%d]", l.name, r.index)
}

func toUint(v any) (uint64, error) {
	switch x := v.(type) {
	case int:
		return uint64(x), nil
	case int8:
		return uint64(x), nil
	case int16:
		return uint64(x), nil
	case int32:
		return uint64(x), nil
	case int64:
		return uint64(x), nil
	case uint:
		return uint64(x), nil
	case uint8:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint32:
		return uint64(x), nil
	case uint64:
		return x, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	}
	// named integer types such as flag and enum types
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), nil
	}
	return 0, fmt.Errorf("cannot use %T as an integer", v)
}

func toBlob(v any, size int) ([]byte, error) {
	var src []byte
	switch x := v.(type) {
	case []byte:
		src = x
	case string:
		src = []byte(x)
	case [16]byte:
		src = x[:]
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Array || rv.Type().Elem().Kind() != reflect.Uint8 {
			return nil, fmt.Errorf("cannot use %T as bytes", v)
		}
		src = make([]byte, rv.Len())
		for i := range src {
			src[i] = byte(rv.Index(i).Uint())
		}
	}
	if len(src) > size {
		return nil, fmt.Errorf("%d bytes do not fit in %d", len(src), size)
	}
	b := make([]byte, size)
	copy(b, src)
	return b, nil
}
