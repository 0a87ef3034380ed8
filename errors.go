package neptune

import "github.com/pkg/errors"

var (
	// ErrTooManyLeaves is returned when an append would push the fill index
	// past the leaf capacity. The buffer is left untouched.
	ErrTooManyLeaves = errors.New("too many leaves")

	// ErrTooManyColumns is the column-stage equivalent of ErrTooManyLeaves.
	ErrTooManyColumns = errors.New("too many columns")

	// ErrBufferTooSmall is returned at build time when the backing buffer
	// cannot hold the full intermediate tree.
	ErrBufferTooSmall = errors.New("tree buffer too small")

	// ErrUnknownBackend is returned for backend selectors this build does
	// not recognize. There is no fallback to a default backend.
	ErrUnknownBackend = errors.New("unknown backend")
)
