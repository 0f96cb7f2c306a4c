package fastmcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

// Caps on inbound arguments, mirroring the limits the schema dialect's
// consumers enforce. Oversized payloads fail binding rather than exhausting
// the process.
const (
	maxArgumentCount = 50
	maxArgumentSize  = 1 << 20 // bytes of a single string argument
)

// bindArguments converts the untyped CallArguments map into the positional
// argument list the handler expects. The produced slice matches the
// handler's declared parameter order exactly, regardless of map iteration
// order. Injected slots (context.Context, *RequestContext) are filled by the
// pipeline and never looked up in the map.
func bindArguments(ctx context.Context, b *binding, tool string, args map[string]any, rc *RequestContext) ([]reflect.Value, error) {
	if len(args) > maxArgumentCount {
		return nil, &BindingError{
			Tool:   tool,
			Reason: fmt.Sprintf("too many arguments: %d exceeds maximum of %d", len(args), maxArgumentCount),
		}
	}

	ft := b.fn.Type()
	bound := make([]reflect.Value, len(b.in))
	for i, slot := range b.in {
		switch slot.kind {
		case inCtx:
			bound[i] = reflect.ValueOf(ctx)
			continue
		case inReqCtx:
			bound[i] = reflect.ValueOf(rc)
			continue
		}

		p := &b.params[slot.param]
		raw, ok := args[p.Name]
		if !ok || raw == nil {
			switch {
			case p.Default != nil:
				v, err := coerceValue(p.Default, ft.In(i))
				if err != nil {
					return nil, &BindingError{Tool: tool, Param: p.Name, Reason: "default value does not fit declared type", Err: err}
				}
				bound[i] = v
			case p.Optional:
				bound[i] = reflect.Zero(ft.In(i))
			default:
				return nil, &BindingError{Tool: tool, Param: p.Name, Reason: "missing required argument"}
			}
			continue
		}

		if s, isStr := raw.(string); isStr && len(s) > maxArgumentSize {
			return nil, &BindingError{
				Tool:  tool,
				Param: p.Name,
				Reason: fmt.Sprintf("argument exceeds maximum size of %d bytes", maxArgumentSize),
			}
		}

		v, err := coerceValue(raw, ft.In(i))
		if err != nil {
			return nil, &BindingError{Tool: tool, Param: p.Name, Reason: "uncoercible argument", Err: err}
		}
		bound[i] = v
	}
	return bound, nil
}

// coerceValue converts one transport-native value (string, number, bool,
// list, map, nil) into the declared parameter type. Numbers arrive as
// float64 or json.Number from JSON decoding; integral targets reject
// fractional input. Composite targets go through a JSON round-trip, the Go
// analogue of the original's mapper-based conversion.
func coerceValue(raw any, target reflect.Type) (reflect.Value, error) {
	rv := reflect.ValueOf(raw)
	if rv.Type() == target {
		return rv, nil
	}
	if rv.Type().AssignableTo(target) {
		out := reflect.New(target).Elem()
		out.Set(rv)
		return out, nil
	}

	switch target.Kind() {
	case reflect.String:
		if s, ok := raw.(string); ok {
			return reflect.ValueOf(s).Convert(target), nil
		}
	case reflect.Bool:
		if bv, ok := raw.(bool); ok {
			return reflect.ValueOf(bv).Convert(target), nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, ok, err := numericValue(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		if ok {
			if f != math.Trunc(f) {
				return reflect.Value{}, fmt.Errorf("value %v is not integral", raw)
			}
			out := reflect.New(target).Elem()
			out.SetInt(int64(f))
			return out, nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f, ok, err := numericValue(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		if ok {
			if f != math.Trunc(f) || f < 0 {
				return reflect.Value{}, fmt.Errorf("value %v does not fit %s", raw, target)
			}
			out := reflect.New(target).Elem()
			out.SetUint(uint64(f))
			return out, nil
		}
	case reflect.Float32, reflect.Float64:
		f, ok, err := numericValue(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		if ok {
			out := reflect.New(target).Elem()
			out.SetFloat(f)
			return out, nil
		}
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Pointer, reflect.Interface:
		return jsonRoundTrip(raw, target)
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", raw, target)
}

// numericValue extracts a float64 from the JSON-native numeric encodings.
func numericValue(raw any) (float64, bool, error) {
	switch n := raw.(type) {
	case float64:
		return n, true, nil
	case float32:
		return float64(n), true, nil
	case int:
		return float64(n), true, nil
	case int32:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false, fmt.Errorf("malformed number %q: %w", n.String(), err)
		}
		return f, true, nil
	default:
		return 0, false, nil
	}
}

func jsonRoundTrip(raw any, target reflect.Type) (reflect.Value, error) {
	buf, err := json.Marshal(raw)
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(target)
	if err := json.Unmarshal(buf, out.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return out.Elem(), nil
}
