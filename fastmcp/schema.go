package fastmcp

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/tersePrompts/fastMCP4J-sub002/mcp"
)

// typeSchemaCache memoizes per-type property schemas. Schema derivation is a
// pure function of static type metadata, so entries never invalidate.
var typeSchemaCache sync.Map // reflect.Type -> mcp.SchemaProperty

// generateSchema derives the input schema for a declared parameter list.
// Every non-injected parameter becomes one property; names of parameters
// without a default or optional marker are collected into the root-level
// required array. Property-level required is never emitted: the simplified
// SchemaProperty shape cannot express it.
func generateSchema(entity string, params []ParamSpec) (mcp.ToolInputSchema, error) {
	schema := mcp.ToolInputSchema{
		Type:       "object",
		Properties: make(map[string]mcp.SchemaProperty, len(params)),
	}
	for i := range params {
		p := &params[i]
		prop, err := typeSchema(p.typ)
		if err != nil {
			return mcp.ToolInputSchema{}, &ScanError{
				Entity: entity,
				Reason: "parameter " + p.Name + " has an unmappable type",
				Err:    err,
			}
		}
		prop.Description = decorateDescription(p)
		if p.Default != nil {
			prop.Default = p.Default
		}
		schema.Properties[p.Name] = prop
		if p.required() {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return schema, nil
}

// decorateDescription folds examples, constraints and hints into the
// property description. Only a fixed, versioned keyword set is permitted by
// the target schema dialect; anything else would be rejected by strictly
// validating clients.
func decorateDescription(p *ParamSpec) string {
	var sb strings.Builder
	sb.WriteString(p.Description)
	if len(p.Examples) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("Examples: ")
		sb.WriteString(strings.Join(p.Examples, ", "))
	}
	if p.Constraints != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("Constraints: ")
		sb.WriteString(p.Constraints)
	}
	if p.Hints != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("Hints: ")
		sb.WriteString(p.Hints)
	}
	return sb.String()
}

// typeSchema maps a declared Go type to a property schema. Primitives map
// directly, slices and maps recurse, and structs are reflected through
// invopop/jsonschema and down-converted to the simplified shape.
func typeSchema(t reflect.Type) (mcp.SchemaProperty, error) {
	if cached, ok := typeSchemaCache.Load(t); ok {
		return cached.(mcp.SchemaProperty), nil
	}
	prop, err := buildTypeSchema(t)
	if err != nil {
		return mcp.SchemaProperty{}, err
	}
	typeSchemaCache.Store(t, prop)
	return prop, nil
}

func buildTypeSchema(t reflect.Type) (mcp.SchemaProperty, error) {
	if t == nil {
		return mcp.SchemaProperty{}, &unsupportedTypeError{typ: "<nil>"}
	}
	if t.Kind() == reflect.Pointer {
		return buildTypeSchema(t.Elem())
	}
	if t == reflect.TypeOf(json.Number("")) {
		return mcp.SchemaProperty{Type: "number"}, nil
	}

	switch t.Kind() {
	case reflect.String:
		return mcp.SchemaProperty{Type: "string"}, nil
	case reflect.Bool:
		return mcp.SchemaProperty{Type: "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return mcp.SchemaProperty{Type: "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return mcp.SchemaProperty{Type: "number"}, nil
	case reflect.Slice, reflect.Array:
		item, err := typeSchema(t.Elem())
		if err != nil {
			return mcp.SchemaProperty{}, err
		}
		return mcp.SchemaProperty{Type: "array", Items: &item}, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return mcp.SchemaProperty{}, &unsupportedTypeError{typ: t.String()}
		}
		// Value shapes are not constrained in the simplified dialect.
		return mcp.SchemaProperty{Type: "object"}, nil
	case reflect.Struct:
		return reflectStructSchema(t), nil
	case reflect.Interface:
		if t.NumMethod() == 0 {
			// any: unconstrained.
			return mcp.SchemaProperty{}, nil
		}
		return mcp.SchemaProperty{}, &unsupportedTypeError{typ: t.String()}
	default:
		// chan, func, unsafe.Pointer, uintptr, complex kinds.
		return mcp.SchemaProperty{}, &unsupportedTypeError{typ: t.String()}
	}
}

// reflectStructSchema reflects a struct type via invopop/jsonschema with
// inline definitions and the struct expanded at the root, then down-converts
// to the simplified property shape.
func reflectStructSchema(t reflect.Type) mcp.SchemaProperty {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.ReflectFromType(t)
	prop := toProperty(s)
	if prop.Type == "" {
		prop.Type = "object"
	}
	return prop
}

// toProperty recursively maps a jsonschema.Schema node to the simplified
// SchemaProperty. The dialect forbids property-level required, so the
// reflected Required lists below the root are intentionally dropped.
func toProperty(s *jsonschema.Schema) mcp.SchemaProperty {
	if s == nil {
		return mcp.SchemaProperty{}
	}
	p := mcp.SchemaProperty{
		Type:        s.Type,
		Description: s.Description,
	}
	if len(s.Enum) > 0 {
		p.Enum = s.Enum
	}
	if s.Type == "array" && s.Items != nil {
		item := toProperty(s.Items)
		p.Items = &item
	}
	if s.Properties != nil {
		m := make(map[string]mcp.SchemaProperty, s.Properties.Len())
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			m[el.Key] = toProperty(el.Value)
		}
		p.Properties = m
	}
	return p
}

type unsupportedTypeError struct{ typ string }

func (e *unsupportedTypeError) Error() string {
	return "unsupported parameter type " + e.typ
}
