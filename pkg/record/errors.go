package record

import "fmt"

// SizeMismatchError is returned when the bytes handed to a decoder are not
// exactly the size of the record.
type SizeMismatchError struct {
	Record   string
	Expected int
	Actual   int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("%s: expect %d bytes. got %d", e.Record, e.Expected, e.Actual)
}

// InvalidFieldValueError is returned when a decoded field fails validation.
type InvalidFieldValueError struct {
	Record string
	Field  string
	Value  any
}

func (e *InvalidFieldValueError) Error() string {
	if v, ok := e.Value.(uint64); ok {
		return fmt.Sprintf("%s: invalid value %#x for field %s", e.Record, v, e.Field)
	}
	return fmt.Sprintf("%s: invalid value %v for field %s", e.Record, e.Value, e.Field)
}

// UnknownFieldError is returned when a record is built from a field the
// layout does not declare.
type UnknownFieldError struct {
	Record string
	Field  string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("%s: unknown field %s", e.Record, e.Field)
}

// BitFieldError is returned when a bit field table declares overlapping bits
// or a value that is not a single bit.
type BitFieldError struct {
	Name  string
	Value uint64
	Msg   string
}

func (e *BitFieldError) Error() string {
	return fmt.Sprintf("%s bitfield %s (%#x)", e.Msg, e.Name, e.Value)
}
