package hooks

import (
	"errors"
	"fmt"
)

// ErrUnsafeHook indicates a candidate hook failed signature validation
// because a parameter type would permit reflective escalation. Registration
// call sites should log and skip the hook rather than abort construction.
var ErrUnsafeHook = errors.New("hooks: unsafe hook signature")

// DeniedError indicates a pre-hook denied the dispatch before the handler
// ran. The message is surfaced to the caller as the dispatch error.
type DeniedError struct {
	Tool    string
	Message string
}

func (e *DeniedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("dispatch of %s denied by hook", e.Tool)
	}
	return fmt.Sprintf("dispatch of %s denied: %s", e.Tool, e.Message)
}

// ExecutionError indicates a hook failed under FailureStrict.
type ExecutionError struct {
	Tool  string
	Phase Phase
	Hook  string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s-hook %s failed for %s: %v", e.Phase, e.Hook, e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
