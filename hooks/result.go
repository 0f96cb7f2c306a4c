package hooks

// Status is the short-circuit outcome of a hook.
type Status int

const (
	// StatusAllow lets dispatch continue unchanged.
	StatusAllow Status = iota
	// StatusDeny aborts dispatch before the handler runs (pre phase only).
	StatusDeny
	// StatusModify replaces the arguments map (pre) or the result (post).
	StatusModify
)

// Result is an optional return value from a hook expressing a control
// outcome. Hooks that only observe may return nothing.
type Result struct {
	status    Status
	message   string
	args      map[string]any
	result    any
	hasArgs   bool
	hasResult bool
}

// Allow returns a no-op passthrough result.
func Allow() *Result {
	return &Result{status: StatusAllow}
}

// Deny aborts the dispatch; message becomes the dispatch error text.
func Deny(message string) *Result {
	return &Result{status: StatusDeny, message: message}
}

// ModifyArguments replaces the in-flight arguments map before the handler
// runs. Only meaningful from a pre-hook.
func ModifyArguments(args map[string]any) *Result {
	return &Result{status: StatusModify, args: args, hasArgs: true}
}

// ModifyResult replaces the handler's resolved result before marshalling.
// Only meaningful from a post-hook.
func ModifyResult(v any) *Result {
	return &Result{status: StatusModify, result: v, hasResult: true}
}

// Status reports the control outcome.
func (r *Result) Status() Status { return r.status }

// Message is the deny message, empty otherwise.
func (r *Result) Message() string { return r.message }
