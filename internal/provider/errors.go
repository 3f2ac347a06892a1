package provider

import "errors"

var (
	ErrUnknownElement  = errors.New("provider: unknown element")
	ErrKindMismatch    = errors.New("provider: request does not match element kind")
	ErrReadOnly        = errors.New("provider: parameter is not writable")
	ErrNoFunction      = errors.New("provider: no handler registered for function")
	ErrInvalidHandler  = errors.New("provider: handler target is not a function")
	ErrEmptyRequest    = errors.New("provider: request carries no elements")
	ErrNotStreamTarget = errors.New("provider: element has no stream identifier")
)
