package fastmcp

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a dispatch failed. It is carried on the
// DispatchResult so transport layers can map failures without string
// matching.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	// ErrorNotFound: no tool/resource/prompt registered under the name.
	ErrorNotFound
	// ErrorBinding: a required argument was missing or uncoercible.
	ErrorBinding
	// ErrorDenied: a pre-hook denied the dispatch.
	ErrorDenied
	// ErrorHook: a hook failed under the strict failure mode.
	ErrorHook
	// ErrorHandler: the handler returned an error or panicked.
	ErrorHandler
	// ErrorMarshal: the return value could not be serialized.
	ErrorMarshal
	// ErrorTimeout: the caller's deadline expired before the handler
	// resolved.
	ErrorTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "none"
	case ErrorNotFound:
		return "not_found"
	case ErrorBinding:
		return "binding"
	case ErrorDenied:
		return "denied"
	case ErrorHook:
		return "hook"
	case ErrorHandler:
		return "handler"
	case ErrorMarshal:
		return "marshal"
	case ErrorTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ScanError indicates a malformed registration discovered while building the
// server descriptor. It is fatal: construction fails rather than running with
// a partial descriptor.
type ScanError struct {
	Entity string // e.g. `tool "add"`
	Reason string
	Err    error
}

func (e *ScanError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scan %s: %s: %v", e.Entity, e.Reason, e.Err)
	}
	return fmt.Sprintf("scan %s: %s", e.Entity, e.Reason)
}

func (e *ScanError) Unwrap() error { return e.Err }

func scanErrorf(entity, format string, a ...any) *ScanError {
	return &ScanError{Entity: entity, Reason: fmt.Sprintf(format, a...)}
}

// BindingError indicates a call-time argument could not be bound to the
// handler's declared parameter list. Dispatch recovers it into a failed
// DispatchResult; it never crashes the process.
type BindingError struct {
	Tool   string
	Param  string
	Reason string
	Err    error
}

func (e *BindingError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("bind %s.%s: %s", e.Tool, e.Param, e.Reason)
	}
	return fmt.Sprintf("bind %s: %s", e.Tool, e.Reason)
}

func (e *BindingError) Unwrap() error { return e.Err }

// MarshalError indicates a handler return value could not be serialized.
type MarshalError struct {
	Tool string
	Err  error
}

func (e *MarshalError) Error() string {
	return fmt.Sprintf("marshal result of %s: %v", e.Tool, e.Err)
}

func (e *MarshalError) Unwrap() error { return e.Err }

// ErrInvalidCursor indicates a pagination cursor that could not be decoded.
var ErrInvalidCursor = errors.New("fastmcp: invalid pagination cursor")
