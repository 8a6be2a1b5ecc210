// Package errcode defines NineDoor's closed error taxonomy
// and a structured error type carrying the context every layer needs
// to emit a stable Rerror and a bounded audit line.
package errcode

import (
	"errors"
	"fmt"
)

// Code is one of the seven wire-visible error kinds. The set is
// closed: no layer may invent a new one, and no error ever reaches
// the wire as an opaque string.
type Code string

const (
	Permission Code = "Permission"
	NotFound Code = "NotFound"
	Busy Code = "Busy"
	Invalid Code = "Invalid"
	TooBig Code = "TooBig"
	Closed Code = "Closed"
	RateLimited Code = "RateLimited"
)

// Error is the structured error carried internally; only its Code
// crosses the wire (as Rerror), never Msg or Inner.
type Error struct {
	Op string // operation that failed, e.g. "walk", "cas-commit"
	Path string // namespace path, if applicable
	Role string // session role, if applicable
	Code Code
	Msg string
	Inner error
}

func (e *Error) Error() string {
	if e.Op == "" && e.Path == "" {
		return fmt.Sprintf("ninedoor: %s", e.msg())
	}
	if e.Path != "" {
		return fmt.Sprintf("ninedoor: %s op=%s path=%s", e.msg(), e.Op, e.Path)
	}
	return fmt.Sprintf("ninedoor: %s op=%s", e.msg(), e.Op)
}

func (e *Error) msg() string {
	if e.Msg != "" {
		return e.Msg
	}
	return string(e.Code)
}

// Unwrap supports errors.Is/As against Inner.
func (e *Error) Unwrap() error { return e.Inner }

// Is supports comparison against a bare Code or another *Error by Code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if c, ok := target.(Code); ok {
		return e.Code == c
	}
	var te *Error
	if errors.As(target, &te) {
		return e.Code == te.Code
	}
	return false
}

// Error lets a bare Code satisfy the error interface, so callers can
// write `return errcode.NotFound` in the common case.
func (c Code) Error() string { return string(c) }

// New builds a structured error for the given operation.
func New(op string, code Code, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewPath builds a structured error scoped to a namespace path.
func NewPath(op, path string, code Code, msg string) *Error {
	return &Error{Op: op, Path: path, Code: code, Msg: msg}
}

// Wrap attaches an operation name to an existing error, preserving its
// Code if it is already a *Error, and otherwise classifying it Invalid.
func Wrap(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	var e *Error
	if errors.As(inner, &e) {
		return &Error{Op: op, Path: e.Path, Role: e.Role, Code: e.Code, Msg: e.Msg, Inner: e.Inner}
	}
	if c, ok := inner.(Code); ok {
		return &Error{Op: op, Code: c, Msg: string(c)}
	}
	return &Error{Op: op, Code: Invalid, Msg: inner.Error(), Inner: inner}
}

// CodeOf extracts the Code from any error produced by this package,
// defaulting to Invalid for unrecognized errors (never a free-text
// wire error).
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	if c, ok := err.(Code); ok {
		return c
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Invalid
}

// Is reports whether err carries the given Code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
