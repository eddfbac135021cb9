package byterange

import (
	"fmt"

	"github.com/pkg/errors"
)

// A Range is a half-open interval [Start, Stop) of byte offsets.
type Range struct {
	Start int64
	Stop  int64
}

// NewRange returns the range [start, stop).
func NewRange(start, stop int64) (Range, error) {
	switch {
	case start < 0:
		return Range{}, errors.Wrapf(ErrInvalidRange, "start %d must be non-negative", start)
	case stop < 0:
		return Range{}, errors.Wrapf(ErrInvalidRange, "stop %d must be non-negative", stop)
	case stop < start:
		return Range{}, errors.Wrapf(ErrInvalidRange, "stop %d must not be less than start %d", stop, start)
	}
	return Range{Start: start, Stop: stop}, nil
}

func (r Range) Len() int64 { return r.Stop - r.Start }

// Less reports whether r and o are disjoint and r lies entirely left of o.
func (r Range) Less(o Range) bool { return r.Stop <= o.Start }

// Greater reports whether r and o are disjoint and r lies entirely right of o.
func (r Range) Greater(o Range) bool { return o.Less(r) }

// LessEq reports whether r and o overlap and r starts no later than o.
func (r Range) LessEq(o Range) bool { return r.Start <= o.Start && r.Stop > o.Start }

// GreaterEq reports whether r and o overlap and r starts no earlier than o.
func (r Range) GreaterEq(o Range) bool { return o.LessEq(r) }

// Contains reports whether o lies entirely inside r.
func (r Range) Contains(o Range) bool { return r.Start <= o.Start && r.Stop >= o.Stop }

func (r Range) Equal(o Range) bool { return r.Start == o.Start && r.Stop == o.Stop }

func (r Range) String() string { return fmt.Sprintf("<Range:%d-%d>", r.Start, r.Stop) }
