package errcode

import (
	"context"
	"errors"

	"icmd-go/drivers/icmd"
)

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Busy           Code = "busy"
	NotReady       Code = "not_ready"
	InvalidPayload Code = "invalid_payload"
	InvalidLayout  Code = "invalid_layout"
	UnknownVerb    Code = "unknown_verb"
	Timeout        Code = "timeout"

	TransportError Code = "transport_error"
	ExportFailed   Code = "export_failed"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap returns nil for a nil err, otherwise an *E carrying the mapped code.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: MapDriverErr(err), Op: op, Msg: err.Error(), Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return MapDriverErr(err)
}

// MapDriverErr maps low-level driver errors to a Code.
func MapDriverErr(err error) Code {
	var te *icmd.TransportError
	switch {
	case err == nil:
		return OK
	case errors.As(err, &te):
		return TransportError
	case errors.Is(err, icmd.ErrInvalidLayout):
		return InvalidLayout
	case errors.Is(err, icmd.ErrUnknownName):
		return InvalidPayload
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout
	}
	return Error
}
