package ber

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated          = errors.New("ber: truncated data")
	ErrIndefiniteLength   = errors.New("ber: indefinite length not supported")
	ErrLengthTooLarge     = errors.New("ber: length too large")
	ErrMultiByteTag       = errors.New("ber: multi-byte tag not supported")
	ErrUnexpectedTag      = errors.New("ber: unexpected tag")
	ErrUnimplementedType  = errors.New("ber: unimplemented type")
	ErrIntegerOverflow    = errors.New("ber: integer overflow")
	ErrInvalidLength      = errors.New("ber: invalid length")
	ErrInvalidReal        = errors.New("ber: invalid real")
	ErrRealOutOfRange     = errors.New("ber: real out of range")
	ErrInvalidOID         = errors.New("ber: invalid relative oid")
	ErrUnbalancedSequence = errors.New("ber: unbalanced sequence")
)

// TagError reports a tag that did not match what the caller required.
type TagError struct {
	Want byte
	Got  byte
}

func (e TagError) Error() string {
	return fmt.Sprintf("ber: unexpected tag: want 0x%02x got 0x%02x", e.Want, e.Got)
}

func (e TagError) Unwrap() error {
	return ErrUnexpectedTag
}

// UnimplementedTypeError reports a tag no decoder is registered for.
type UnimplementedTypeError struct {
	Tag byte
}

func (e UnimplementedTypeError) Error() string {
	return fmt.Sprintf("ber: unimplemented type 0x%02x", e.Tag)
}

func (e UnimplementedTypeError) Unwrap() error {
	return ErrUnimplementedType
}
