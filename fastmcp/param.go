package fastmcp

import "reflect"

// ParamSpec carries the client-visible metadata for one handler parameter.
// The declared Go type is taken from the handler signature at registration
// time; everything else comes from the Param builder.
type ParamSpec struct {
	Name        string
	Description string
	Examples    []string
	Constraints string
	Hints       string
	Default     any
	Optional    bool

	typ reflect.Type // filled during registration
}

// required reports whether the parameter must be present in CallArguments.
// A declared default implies optional.
func (p *ParamSpec) required() bool {
	return !p.Optional && p.Default == nil
}

// ParamOption configures a ParamSpec.
type ParamOption func(*ParamSpec)

// Param declares metadata for one handler parameter. Params are matched to
// the handler's non-injected parameters positionally, in declaration order.
func Param(name string, opts ...ParamOption) ParamSpec {
	p := ParamSpec{Name: name}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// ParamDescription sets the human-readable description.
func ParamDescription(desc string) ParamOption {
	return func(p *ParamSpec) { p.Description = desc }
}

// ParamExamples attaches example values. Examples are folded into the
// property description; the schema dialect does not permit an examples
// keyword.
func ParamExamples(examples ...string) ParamOption {
	return func(p *ParamSpec) { p.Examples = examples }
}

// ParamConstraints attaches free-form constraint text, folded into the
// property description.
func ParamConstraints(text string) ParamOption {
	return func(p *ParamSpec) { p.Constraints = text }
}

// ParamHints attaches guidance for the calling agent, folded into the
// property description.
func ParamHints(text string) ParamOption {
	return func(p *ParamSpec) { p.Hints = text }
}

// ParamDefault sets the value substituted when the argument is absent. A
// parameter with a default is not listed in the schema's required array.
func ParamDefault(v any) ParamOption {
	return func(p *ParamSpec) { p.Default = v }
}

// ParamOptional marks the parameter non-required without supplying a
// default; the zero value is bound when the argument is absent.
func ParamOptional() ParamOption {
	return func(p *ParamSpec) { p.Optional = true }
}
