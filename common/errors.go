package common

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel causes carried by LoadError. Match them with errors.Is.
var (
	// ErrMissingRoot reports a source scene without a root node.
	ErrMissingRoot = errors.New("source has no root node")

	// ErrMalformedHierarchy reports a node hierarchy that revisits a node.
	ErrMalformedHierarchy = errors.New("node hierarchy is not a tree")

	// ErrNoAnimation reports a source scene without any animation, or a clip selector that matches none.
	ErrNoAnimation = errors.New("source has no animation clip")

	// ErrNoChannels reports a selected animation that animates nothing.
	ErrNoChannels = errors.New("animation has no channels")

	// ErrEmptyTrack reports a keyframe track with zero samples.
	ErrEmptyTrack = errors.New("keyframe track has no samples")

	// ErrNonMonotonicKeys reports keyframe timestamps that are not strictly increasing.
	ErrNonMonotonicKeys = errors.New("keyframe timestamps are not strictly increasing")

	// ErrDuplicateChannel reports two channels that target the same normalized bone name.
	ErrDuplicateChannel = errors.New("duplicate channel for bone")

	// ErrTooManyBones reports a binding index that does not fit in the skinning matrix array.
	ErrTooManyBones = errors.New("bone index exceeds skinning capacity")

	// ErrInvalidDuration reports a clip duration that is not positive.
	ErrInvalidDuration = errors.New("animation duration must be positive")

	// ErrInvalidTicksPerSecond reports a negative tick rate.
	ErrInvalidTicksPerSecond = errors.New("ticks per second must not be negative")
)

// LoadError is returned when source animation data is malformed or incomplete.
// No clip is ever returned together with a LoadError.
type LoadError struct {
	// Source identifies what was being loaded (file path or animation name).
	Source string

	// Err is the underlying cause, usually one of the sentinel errors above.
	Err error
}

// NewLoadError wraps err as a LoadError for the given source, adding context to the message.
//
// Parameters:
//   - source: the file path or animation name being loaded
//   - err: the sentinel or underlying cause
//   - format: printf-style context appended to the cause
//   - args: arguments for format
//
// Returns:
//   - *LoadError: the wrapped load error
func NewLoadError(source string, err error, format string, args ...any) *LoadError {
	if format != "" {
		err = errors.Wrapf(err, format, args...)
	}
	return &LoadError{Source: source, Err: err}
}

func (e *LoadError) Error() string {
	if e.Source == "" {
		return "load animation: " + e.Err.Error()
	}
	return fmt.Sprintf("load animation %q: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Cause lets errors.Cause from github.com/pkg/errors walk through a LoadError.
func (e *LoadError) Cause() error {
	return e.Err
}

// PreconditionError is the panic value raised when a caller breaks an evaluation invariant,
// such as sampling a track outside its keyframe range or writing past the skinning array.
// It is raised with panic and never returned.
type PreconditionError struct {
	// Op names the operation whose precondition failed.
	Op string

	// Detail describes the violated condition.
	Detail string
}

// Preconditionf panics with a PreconditionError built from the format and arguments.
//
// Parameters:
//   - op: the operation name
//   - format: printf-style detail
//   - args: arguments for format
func Preconditionf(op, format string, args ...any) {
	panic(&PreconditionError{Op: op, Detail: fmt.Sprintf(format, args...)})
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition violated in %s: %s", e.Op, e.Detail)
}
