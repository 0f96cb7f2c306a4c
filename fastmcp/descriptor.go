package fastmcp

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/tersePrompts/fastMCP4J-sub002/mcp"
)

// ServerDescriptor is the complete, immutable description of a server built
// from registrations: identity, instructions, and the ordered tool, resource
// and prompt descriptors. It is created once at build time and treated as
// read-only for the server's lifetime, so concurrent reads need no locking.
type ServerDescriptor struct {
	Info         mcp.ImplementationInfo
	Instructions string
	Icons        []mcp.Icon
	Tools        []*ToolDescriptor
	Resources    []*ResourceDescriptor
	Prompts      []*PromptDescriptor
}

// ToolDescriptor pairs a tool's client-visible metadata with its compiled
// handler binding. Immutable after registration.
type ToolDescriptor struct {
	Name        string
	Description string
	Async       bool
	Progress    bool
	Icons       []mcp.Icon

	bind *binding
}

// Tool renders the wire-level descriptor including the derived input schema.
func (d *ToolDescriptor) Tool() mcp.Tool {
	return mcp.Tool{
		Name:        d.Name,
		Description: d.Description,
		InputSchema: d.bind.schema,
		Icons:       d.Icons,
	}
}

// InputSchema returns the derived input schema. The schema is computed once
// at registration from static signature metadata and never changes.
func (d *ToolDescriptor) InputSchema() mcp.ToolInputSchema { return d.bind.schema }

// ResourceDescriptor describes one addressable resource and its handler.
type ResourceDescriptor struct {
	URI         string
	Name        string
	Description string
	MimeType    string
	Async       bool
	Icons       []mcp.Icon

	bind *binding
}

// Resource renders the wire-level descriptor.
func (d *ResourceDescriptor) Resource() mcp.Resource {
	return mcp.Resource{
		URI:         d.URI,
		Name:        d.Name,
		Description: d.Description,
		MimeType:    d.MimeType,
		Icons:       d.Icons,
	}
}

// PromptDescriptor describes one prompt template and its handler.
type PromptDescriptor struct {
	Name        string
	Description string
	Async       bool
	Icons       []mcp.Icon

	bind *binding
}

// Prompt renders the wire-level descriptor. Prompt arguments are derived
// from the handler's declared parameters.
func (d *PromptDescriptor) Prompt() mcp.Prompt {
	var args []mcp.PromptArgument
	for i := range d.bind.params {
		p := &d.bind.params[i]
		args = append(args, mcp.PromptArgument{
			Name:        p.Name,
			Description: p.Description,
			Required:    p.required(),
		})
	}
	return mcp.Prompt{
		Name:        d.Name,
		Description: d.Description,
		Arguments:   args,
		Icons:       d.Icons,
	}
}

// --- handler binding ---

type inKind int

const (
	inParam inKind = iota
	inCtx          // context.Context, supplied by the pipeline
	inReqCtx       // *RequestContext, supplied by the pipeline
)

type inSlot struct {
	kind  inKind
	param int // index into params when kind == inParam
}

// binding is the compiled form of one handler: the reflected function, the
// positional plan mapping declared parameters (and injected slots) to call
// arguments, and the memoized input schema.
type binding struct {
	fn     reflect.Value
	in     []inSlot
	params []ParamSpec
	retVal int // index of the value return, -1 when absent
	retErr int // index of the error return, -1 when absent
	schema mcp.ToolInputSchema
}

var (
	ctxType    = reflect.TypeOf((*context.Context)(nil)).Elem()
	reqCtxType = reflect.TypeOf((*RequestContext)(nil))
	errorType  = reflect.TypeOf((*error)(nil)).Elem()
)

// compileBinding validates the handler signature against the declared
// parameter list and derives the input schema. All failures are *ScanError:
// broken registrations must fail at build time, not at call time.
func compileBinding(entity string, fn any, params []ParamSpec) (*binding, error) {
	if fn == nil {
		return nil, scanErrorf(entity, "nil handler")
	}
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		return nil, scanErrorf(entity, "handler is %s, want func", ft.Kind())
	}
	if ft.IsVariadic() {
		return nil, scanErrorf(entity, "variadic handlers are not supported")
	}

	b := &binding{fn: fv, retVal: -1, retErr: -1}

	// Map handler inputs to declared params, skipping injected slots.
	next := 0
	for i := 0; i < ft.NumIn(); i++ {
		in := ft.In(i)
		switch in {
		case ctxType:
			b.in = append(b.in, inSlot{kind: inCtx})
			continue
		case reqCtxType:
			b.in = append(b.in, inSlot{kind: inReqCtx})
			continue
		}
		if next >= len(params) {
			return nil, scanErrorf(entity, "handler declares %d bindable parameters but only %d Param specs were given", bindableIn(ft), len(params))
		}
		p := params[next]
		if p.Name == "" {
			return nil, scanErrorf(entity, "parameter %d has an empty name", next)
		}
		p.typ = in
		b.params = append(b.params, p)
		b.in = append(b.in, inSlot{kind: inParam, param: next})
		next++
	}
	if next != len(params) {
		return nil, scanErrorf(entity, "%d Param specs given but handler declares %d bindable parameters", len(params), next)
	}
	for i := range b.params {
		for j := i + 1; j < len(b.params); j++ {
			if b.params[i].Name == b.params[j].Name {
				return nil, scanErrorf(entity, "duplicate parameter name %q", b.params[i].Name)
			}
		}
	}

	// Return shape: (), (error), (T) or (T, error).
	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			b.retErr = 0
		} else {
			b.retVal = 0
		}
	case 2:
		if ft.Out(1) != errorType {
			return nil, scanErrorf(entity, "second return value must be error, got %s", ft.Out(1))
		}
		b.retVal = 0
		b.retErr = 1
	default:
		return nil, scanErrorf(entity, "handler returns %d values, want at most 2", ft.NumOut())
	}

	schema, err := generateSchema(entity, b.params)
	if err != nil {
		return nil, err
	}
	b.schema = schema
	return b, nil
}

func bindableIn(ft reflect.Type) int {
	n := 0
	for i := 0; i < ft.NumIn(); i++ {
		if in := ft.In(i); in != ctxType && in != reqCtxType {
			n++
		}
	}
	return n
}

// call invokes the bound handler with the prepared positional arguments,
// recovering panics into errors so a misbehaving handler cannot take down
// the dispatcher.
func (b *binding) call(args []reflect.Value) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = fmt.Errorf("handler panicked: %v", p)
		}
	}()
	out := b.fn.Call(args)
	if b.retErr >= 0 && !out[b.retErr].IsNil() {
		return nil, out[b.retErr].Interface().(error)
	}
	if b.retVal >= 0 {
		return out[b.retVal].Interface(), nil
	}
	return nil, nil
}

// funcName derives a default registration name from the handler's symbol
// name: package path and method-value suffixes are stripped.
func funcName(fn any) string {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return ""
	}
	rf := runtime.FuncForPC(fv.Pointer())
	if rf == nil {
		return ""
	}
	name := rf.Name()
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	return name
}
