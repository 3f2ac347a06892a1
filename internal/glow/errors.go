package glow

import (
	"errors"
	"fmt"

	"github.com/danmuck/emberctl/internal/protocol/ber"
)

// ErrUnimplementedType is returned, wrapped, for any tag no decoder handles.
var ErrUnimplementedType = ber.ErrUnimplementedType

var (
	ErrMissingNumber           = errors.New("glow: element has no number")
	ErrMissingPath             = errors.New("glow: qualified element has no path")
	ErrMissingContents         = errors.New("glow: element has no contents")
	ErrKindMismatch            = errors.New("glow: element kind mismatch")
	ErrInvocationResultAsChild = errors.New("glow: invocation result is not a valid child")
	ErrInvalidMatrixSignal     = errors.New("glow: invalid matrix signal")
	ErrNonLinearMatrixIDs      = errors.New("glow: non-linear matrix needs targets and sources")
	ErrInvalidPath             = errors.New("glow: invalid path")
	ErrUnknownCommand          = errors.New("glow: unknown command")
	ErrEmptyMessage            = errors.New("glow: empty message")
)

// FieldError reports an unrecognized context tag inside an element.
type FieldError struct {
	Element string
	Tag     byte
}

func (e FieldError) Error() string {
	return fmt.Sprintf("glow: %s: unimplemented field tag 0x%02x", e.Element, e.Tag)
}

func (e FieldError) Unwrap() error {
	return ber.ErrUnimplementedType
}

// SignalError reports a matrix target or source outside the matrix.
type SignalError struct {
	Signal string
	ID     int32
	Reason string
}

func (e SignalError) Error() string {
	return fmt.Sprintf("glow: invalid matrix %s %d: %s", e.Signal, e.ID, e.Reason)
}

func (e SignalError) Unwrap() error {
	return ErrInvalidMatrixSignal
}
