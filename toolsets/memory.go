package toolsets

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/tersePrompts/fastMCP4J-sub002/fastmcp"
	"github.com/tersePrompts/fastMCP4J-sub002/storage"
)

const (
	memoryKeyPrefix = "toolset:memory:"
	memoryMaxLines  = 100000
)

// MemorySet contributes a file-like memory store: agents create, read, edit
// and reorganize named documents that persist across dispatches. Documents
// are stored per session through the configured storage backend.
type MemorySet struct {
	store storage.Interface
}

// NewMemorySet builds the memory toolset over a storage backend.
func NewMemorySet(store storage.Interface) *MemorySet {
	return &MemorySet{store: store}
}

func (m *MemorySet) Name() string { return "memory" }

func (m *MemorySet) Tools() []fastmcp.ToolDef {
	return []fastmcp.ToolDef{
		{
			Name: "memory_create",
			Fn:   m.create,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Create a memory document at the given path"),
				fastmcp.WithParams(
					fastmcp.Param("path",
						fastmcp.ParamDescription("Document path, e.g. 'notes/design.md'"),
						fastmcp.ParamConstraints("Must not already exist"),
					),
					fastmcp.Param("content", fastmcp.ParamDescription("Initial document content")),
				),
			},
		},
		{
			Name: "memory_read",
			Fn:   m.read,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Read a memory document, optionally a line range, with line numbers"),
				fastmcp.WithParams(
					fastmcp.Param("path", fastmcp.ParamDescription("Document path")),
					fastmcp.Param("start_line",
						fastmcp.ParamDescription("First line to read, 1-indexed. 0 reads from the start."),
						fastmcp.ParamDefault(0),
					),
					fastmcp.Param("end_line",
						fastmcp.ParamDescription("Last line to read, inclusive. 0 reads to the end."),
						fastmcp.ParamDefault(0),
					),
				),
			},
		},
		{
			Name: "memory_replace",
			Fn:   m.replace,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Replace text in a memory document. The old text must appear exactly once."),
				fastmcp.WithParams(
					fastmcp.Param("path", fastmcp.ParamDescription("Document path")),
					fastmcp.Param("old_str",
						fastmcp.ParamDescription("Text to replace"),
						fastmcp.ParamConstraints("Must appear exactly once in the document"),
					),
					fastmcp.Param("new_str", fastmcp.ParamDescription("Replacement text")),
				),
			},
		},
		{
			Name: "memory_insert",
			Fn:   m.insert,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Insert text after the given line of a memory document"),
				fastmcp.WithParams(
					fastmcp.Param("path", fastmcp.ParamDescription("Document path")),
					fastmcp.Param("insert_line",
						fastmcp.ParamDescription("Line to insert after, 1-indexed. 0 inserts before the first line."),
					),
					fastmcp.Param("text", fastmcp.ParamDescription("Text to insert")),
				),
			},
		},
		{
			Name: "memory_delete",
			Fn:   m.delete,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Delete a memory document"),
				fastmcp.WithParams(
					fastmcp.Param("path", fastmcp.ParamDescription("Document path")),
				),
			},
		},
		{
			Name: "memory_rename",
			Fn:   m.rename,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Rename or move a memory document"),
				fastmcp.WithParams(
					fastmcp.Param("old_path", fastmcp.ParamDescription("Current document path")),
					fastmcp.Param("new_path",
						fastmcp.ParamDescription("New document path"),
						fastmcp.ParamConstraints("Must not already exist"),
					),
				),
			},
		},
		{
			Name: "memory_list",
			Fn:   m.list,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("List memory documents, optionally under a path prefix"),
				fastmcp.WithParams(
					fastmcp.Param("prefix",
						fastmcp.ParamDescription("Path prefix to list under. Empty lists everything."),
						fastmcp.ParamOptional(),
					),
				),
			},
		},
	}
}

func (m *MemorySet) create(ctx context.Context, rc *fastmcp.RequestContext, docPath, content string) (string, error) {
	p, err := cleanMemoryPath(docPath)
	if err != nil {
		return "", err
	}
	existing, err := m.load(ctx, rc, p)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", fmt.Errorf("memory document already exists: %s", p)
	}
	if err := m.save(ctx, rc, p, content); err != nil {
		return "", err
	}
	return fmt.Sprintf("Created %s (%d bytes)", p, len(content)), nil
}

func (m *MemorySet) read(ctx context.Context, rc *fastmcp.RequestContext, docPath string, startLine, endLine int) (string, error) {
	p, err := cleanMemoryPath(docPath)
	if err != nil {
		return "", err
	}
	content, err := m.mustLoad(ctx, rc, p)
	if err != nil {
		return "", err
	}
	lines := strings.Split(content, "\n")
	if len(lines) > memoryMaxLines {
		return "", fmt.Errorf("document %s exceeds %d lines", p, memoryMaxLines)
	}
	start, end := 1, len(lines)
	if startLine > 0 {
		start = startLine
	}
	if endLine > 0 && endLine < end {
		end = endLine
	}
	if start > len(lines) {
		return "", fmt.Errorf("start_line %d past end of %s (%d lines)", start, p, len(lines))
	}
	var sb strings.Builder
	for i := start; i <= end; i++ {
		fmt.Fprintf(&sb, "%6d\t%s\n", i, lines[i-1])
	}
	return sb.String(), nil
}

func (m *MemorySet) replace(ctx context.Context, rc *fastmcp.RequestContext, docPath, oldStr, newStr string) (string, error) {
	p, err := cleanMemoryPath(docPath)
	if err != nil {
		return "", err
	}
	content, err := m.mustLoad(ctx, rc, p)
	if err != nil {
		return "", err
	}
	switch n := strings.Count(content, oldStr); {
	case oldStr == "":
		return "", fmt.Errorf("old_str cannot be empty")
	case n == 0:
		return "", fmt.Errorf("text not found in %s", p)
	case n > 1:
		return "", fmt.Errorf("text appears %d times in %s, must be unique", n, p)
	}
	if err := m.save(ctx, rc, p, strings.Replace(content, oldStr, newStr, 1)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Replaced text in %s", p), nil
}

func (m *MemorySet) insert(ctx context.Context, rc *fastmcp.RequestContext, docPath string, insertLine int, text string) (string, error) {
	p, err := cleanMemoryPath(docPath)
	if err != nil {
		return "", err
	}
	content, err := m.mustLoad(ctx, rc, p)
	if err != nil {
		return "", err
	}
	lines := strings.Split(content, "\n")
	if insertLine < 0 || insertLine > len(lines) {
		return "", fmt.Errorf("insert_line %d out of range for %s (%d lines)", insertLine, p, len(lines))
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:insertLine]...)
	out = append(out, text)
	out = append(out, lines[insertLine:]...)
	if err := m.save(ctx, rc, p, strings.Join(out, "\n")); err != nil {
		return "", err
	}
	return fmt.Sprintf("Inserted text at line %d of %s", insertLine, p), nil
}

func (m *MemorySet) delete(ctx context.Context, rc *fastmcp.RequestContext, docPath string) (string, error) {
	p, err := cleanMemoryPath(docPath)
	if err != nil {
		return "", err
	}
	if _, err := m.mustLoad(ctx, rc, p); err != nil {
		return "", err
	}
	key := memoryKeyPrefix + p
	if err := m.store.Delete(ctx, storage.WithSession(rc.SessionID()), storage.WithKey(key)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Deleted %s", p), nil
}

func (m *MemorySet) rename(ctx context.Context, rc *fastmcp.RequestContext, oldPath, newPath string) (string, error) {
	from, err := cleanMemoryPath(oldPath)
	if err != nil {
		return "", err
	}
	to, err := cleanMemoryPath(newPath)
	if err != nil {
		return "", err
	}
	content, err := m.mustLoad(ctx, rc, from)
	if err != nil {
		return "", err
	}
	if existing, err := m.load(ctx, rc, to); err != nil {
		return "", err
	} else if existing != nil {
		return "", fmt.Errorf("memory document already exists: %s", to)
	}
	if err := m.save(ctx, rc, to, content); err != nil {
		return "", err
	}
	if err := m.store.Delete(ctx, storage.WithSession(rc.SessionID()), storage.WithKey(memoryKeyPrefix+from)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Renamed %s -> %s", from, to), nil
}

func (m *MemorySet) list(ctx context.Context, rc *fastmcp.RequestContext, prefix string) (string, error) {
	keys, err := m.store.Keys(ctx, memoryKeyPrefix+strings.TrimPrefix(prefix, "/"), storage.WithSession(rc.SessionID()))
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "No memory documents found.", nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d memory document(s):\n", len(keys))
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %s\n", strings.TrimPrefix(k, memoryKeyPrefix))
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// load returns the raw document or nil when absent.
func (m *MemorySet) load(ctx context.Context, rc *fastmcp.RequestContext, p string) (*string, error) {
	item, err := m.store.Get(ctx, memoryKeyPrefix+p, storage.WithSession(rc.SessionID()))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	s := string(item.Data)
	return &s, nil
}

func (m *MemorySet) mustLoad(ctx context.Context, rc *fastmcp.RequestContext, p string) (string, error) {
	content, err := m.load(ctx, rc, p)
	if err != nil {
		return "", err
	}
	if content == nil {
		return "", fmt.Errorf("memory document not found: %s", p)
	}
	return *content, nil
}

func (m *MemorySet) save(ctx context.Context, rc *fastmcp.RequestContext, p, content string) error {
	return m.store.Set(ctx, memoryKeyPrefix+p, []byte(content), storage.WithSession(rc.SessionID()))
}

// cleanMemoryPath normalizes a document path and rejects traversal.
func cleanMemoryPath(p string) (string, error) {
	p = strings.TrimPrefix(strings.TrimSpace(p), "/")
	if p == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid path: %s", p)
	}
	return cleaned, nil
}
