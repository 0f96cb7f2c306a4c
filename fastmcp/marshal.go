package fastmcp

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tersePrompts/fastMCP4J-sub002/mcp"
)

// DispatchResult is the normalized output of one dispatch. Every call,
// success or failure, resolves to one of these; the dispatch boundary never
// surfaces a raw error.
type DispatchResult struct {
	Success bool
	// Content is the textual representation of the handler's return value:
	// the value itself for strings and primitives, its JSON serialization
	// for structured values, empty for nil.
	Content string
	// Structured holds the original structured value when Content carries a
	// serialization, for callers that want the typed form.
	Structured any
	// ErrorKind and ErrorMessage are populated when Success is false.
	ErrorKind    ErrorKind
	ErrorMessage string
}

// ToCallToolResult renders the transport envelope.
func (r DispatchResult) ToCallToolResult() *mcp.CallToolResult {
	if !r.Success {
		return &mcp.CallToolResult{
			Content: []mcp.ContentBlock{mcp.TextContent(r.ErrorMessage)},
			IsError: true,
		}
	}
	out := &mcp.CallToolResult{Content: []mcp.ContentBlock{}}
	if r.Content != "" {
		out.Content = append(out.Content, mcp.TextContent(r.Content))
	}
	if m, ok := r.Structured.(map[string]any); ok {
		out.StructuredContent = m
	}
	return out
}

func failedResult(kind ErrorKind, msg string) DispatchResult {
	return DispatchResult{ErrorKind: kind, ErrorMessage: msg}
}

// marshalResult converts a resolved handler value into a success
// DispatchResult. The marshaller never interprets the value semantically:
// nil means empty content, primitives become their textual representation,
// and everything else is serialized structurally. Serialization failures
// (unsupported or cyclic values) surface as *MarshalError.
func marshalResult(tool string, value any) (DispatchResult, error) {
	if value == nil {
		return DispatchResult{Success: true}, nil
	}
	switch v := value.(type) {
	case string:
		return DispatchResult{Success: true, Content: v}, nil
	case bool:
		return DispatchResult{Success: true, Content: strconv.FormatBool(v)}, nil
	case int:
		return DispatchResult{Success: true, Content: strconv.Itoa(v)}, nil
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return DispatchResult{Success: true, Content: fmt.Sprintf("%d", v)}, nil
	case float32:
		return DispatchResult{Success: true, Content: strconv.FormatFloat(float64(v), 'g', -1, 32)}, nil
	case float64:
		return DispatchResult{Success: true, Content: strconv.FormatFloat(v, 'g', -1, 64)}, nil
	case json.Number:
		return DispatchResult{Success: true, Content: v.String()}, nil
	default:
		buf, err := json.Marshal(value)
		if err != nil {
			return DispatchResult{}, &MarshalError{Tool: tool, Err: err}
		}
		return DispatchResult{Success: true, Content: string(buf), Structured: structuredForm(value, buf)}, nil
	}
}

// structuredForm normalizes a structured value to map form when possible so
// the transport can attach it as structuredContent.
func structuredForm(value any, encoded []byte) any {
	if m, ok := value.(map[string]any); ok {
		return m
	}
	var m map[string]any
	if err := json.Unmarshal(encoded, &m); err == nil {
		return m
	}
	return value
}
