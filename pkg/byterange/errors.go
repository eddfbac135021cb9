package byterange

import "github.com/pkg/errors"

var (
	// ErrInvalidRange is returned for a range with a negative bound or stop before start.
	ErrInvalidRange = errors.New("invalid range")
	// ErrOutOfBounds is returned when a subrange does not fit inside its parent.
	ErrOutOfBounds = errors.New("subrange out of bounds")
	// ErrOverlap is returned when a new subrange overlaps an existing sibling.
	ErrOverlap = errors.New("subrange overlaps an existing subrange")
	// ErrBoundaryViolation is returned by InsertSubrange when an existing
	// subrange straddles the boundary of the new one.
	ErrBoundaryViolation = errors.New("subrange spans boundary")
	// ErrNoBuffer is returned by Bytes when no buffer is attached to the root.
	ErrNoBuffer = errors.New("no buffer attached to root")
)
