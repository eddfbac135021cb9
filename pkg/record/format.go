package record

import (
	"encoding/binary"
	"fmt"
)

// Endian selects the byte order a layout is decoded with.
type Endian uint8

const (
	// Native layouts take their byte order from the decode Context.
	Native Endian = iota
	Big
	Little
)

func (e Endian) String() string {
	switch e {
	case Big:
		return "big"
	case Little:
		return "little"
	}
	return "native"
}

func (e Endian) order(ctx *Context) binary.ByteOrder {
	switch e {
	case Big:
		return binary.BigEndian
	case Little:
		return binary.LittleEndian
	}
	if ctx != nil && ctx.Order != nil {
		return ctx.Order
	}
	return binary.NativeEndian
}

// A Format is the wire encoding of one field.
type Format struct {
	code byte
	size int
}

var (
	U8  = Format{'B', 1}
	U16 = Format{'H', 2}
	I16 = Format{'h', 2}
	U32 = Format{'I', 4}
	I32 = Format{'i', 4}
	U64 = Format{'Q', 8}
)

// Blob is an opaque run of n bytes such as a fixed size name or a UUID.
func Blob(n int) Format { return Format{'s', n} }

func (f Format) Size() int    { return f.size }
func (f Format) IsBlob() bool { return f.code == 's' }
func (f Format) Signed() bool { return f.code == 'h' || f.code == 'i' }

func (f Format) String() string {
	if f.IsBlob() {
		return fmt.Sprintf("%ds", f.size)
	}
	return string(f.code)
}

// decode reads one integer field. Signed values are sign extended so that
// Record.Int returns them unchanged.
func (f Format) decode(o binary.ByteOrder, b []byte) uint64 {
	switch f.code {
	case 'B':
		return uint64(b[0])
	case 'H':
		return uint64(o.Uint16(b))
	case 'h':
		return uint64(int64(int16(o.Uint16(b))))
	case 'I':
		return uint64(o.Uint32(b))
	case 'i':
		return uint64(int64(int32(o.Uint32(b))))
	case 'Q':
		return o.Uint64(b)
	}
	return 0
}

func (f Format) encode(o binary.ByteOrder, b []byte, v uint64) {
	switch f.code {
	case 'B':
		b[0] = byte(v)
	case 'H', 'h':
		o.PutUint16(b, uint16(v))
	case 'I', 'i':
		o.PutUint32(b, uint32(v))
	case 'Q':
		o.PutUint64(b, v)
	}
}

// truncate masks v to the width of the format, keeping signed values sign
// extended.
func (f Format) truncate(v uint64) uint64 {
	switch f.code {
	case 'B':
		return v & 0xff
	case 'H':
		return v & 0xffff
	case 'h':
		return uint64(int64(int16(v)))
	case 'I':
		return v & 0xffffffff
	case 'i':
		return uint64(int64(int32(v)))
	}
	return v
}
