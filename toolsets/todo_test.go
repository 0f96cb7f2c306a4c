package toolsets

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/tersePrompts/fastMCP4J-sub002/fastmcp"
	"github.com/tersePrompts/fastMCP4J-sub002/storage/memory"
)

var todoIDRe = regexp.MustCompile(`\(ID: ([0-9a-f-]{8})\)`)

func newTodoServer(t *testing.T) *fastmcp.Server {
	t.Helper()
	srv, err := fastmcp.NewServer("test", "0.0.1", fastmcp.WithSessionStore(memory.New()))
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.AddToolset(NewTodoSet()); err != nil {
		t.Fatal(err)
	}
	return srv
}

func callTool(t *testing.T, srv *fastmcp.Server, session, tool string, args map[string]any) fastmcp.DispatchResult {
	t.Helper()
	return srv.DispatchSession(context.Background(), session, tool, args).Await(context.Background())
}

func mustCall(t *testing.T, srv *fastmcp.Server, session, tool string, args map[string]any) string {
	t.Helper()
	res := callTool(t, srv, session, tool, args)
	if !res.Success {
		t.Fatalf("%s failed: %s", tool, res.ErrorMessage)
	}
	return res.Content
}

func addTodo(t *testing.T, srv *fastmcp.Server, session, task string) string {
	t.Helper()
	out := mustCall(t, srv, session, "todo_add", map[string]any{"task": task})
	m := todoIDRe.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no ID in %q", out)
	}
	return m[1]
}

func TestTodoAddAndList(t *testing.T) {
	srv := newTodoServer(t)
	addTodo(t, srv, "s1", "write tests")
	addTodo(t, srv, "s1", "fix bug")

	out := mustCall(t, srv, "s1", "todo_list", map[string]any{})
	if !strings.Contains(out, "write tests") || !strings.Contains(out, "fix bug") {
		t.Errorf("list output missing tasks: %q", out)
	}
	if !strings.Contains(out, "2 pending, 0 in progress, 0 completed") {
		t.Errorf("summary wrong: %q", out)
	}
}

func TestTodoAddRejectsBlankTask(t *testing.T) {
	srv := newTodoServer(t)
	res := callTool(t, srv, "s1", "todo_add", map[string]any{"task": "   "})
	if res.Success {
		t.Fatal("blank task accepted")
	}
	if res.ErrorKind != fastmcp.ErrorHandler {
		t.Errorf("kind = %v", res.ErrorKind)
	}
}

func TestTodoUpdateAndFilter(t *testing.T) {
	srv := newTodoServer(t)
	id := addTodo(t, srv, "s1", "task one")
	addTodo(t, srv, "s1", "task two")

	out := mustCall(t, srv, "s1", "todo_update", map[string]any{"id": id, "status": "done"})
	if !strings.Contains(out, "pending -> completed") {
		t.Errorf("update output = %q", out)
	}

	out = mustCall(t, srv, "s1", "todo_list", map[string]any{"status": "completed"})
	if !strings.Contains(out, "task one") || strings.Contains(out, "task two") {
		t.Errorf("filtered list = %q", out)
	}
}

func TestTodoUpdateUnknownID(t *testing.T) {
	srv := newTodoServer(t)
	res := callTool(t, srv, "s1", "todo_update", map[string]any{"id": "nope1234", "status": "completed"})
	if res.Success || !strings.Contains(res.ErrorMessage, "todo not found") {
		t.Errorf("res = %+v", res)
	}
}

func TestTodoInvalidStatus(t *testing.T) {
	srv := newTodoServer(t)
	id := addTodo(t, srv, "s1", "task")
	res := callTool(t, srv, "s1", "todo_update", map[string]any{"id": id, "status": "wontfix"})
	if res.Success || !strings.Contains(res.ErrorMessage, "invalid status") {
		t.Errorf("res = %+v", res)
	}
}

func TestTodoDelete(t *testing.T) {
	srv := newTodoServer(t)
	id := addTodo(t, srv, "s1", "disposable")
	mustCall(t, srv, "s1", "todo_delete", map[string]any{"id": id})

	out := mustCall(t, srv, "s1", "todo_list", map[string]any{})
	if out != "No todos found." {
		t.Errorf("list after delete = %q", out)
	}
}

func TestTodoClearCompleted(t *testing.T) {
	srv := newTodoServer(t)
	done := addTodo(t, srv, "s1", "finished work")
	addTodo(t, srv, "s1", "open work")
	mustCall(t, srv, "s1", "todo_update", map[string]any{"id": done, "status": "completed"})

	out := mustCall(t, srv, "s1", "todo_clear_completed", map[string]any{})
	if !strings.Contains(out, "Cleared 1 completed") {
		t.Errorf("clear output = %q", out)
	}
	out = mustCall(t, srv, "s1", "todo_clear_completed", map[string]any{})
	if out != "No completed todos to clear." {
		t.Errorf("second clear = %q", out)
	}
}

func TestTodoSessionIsolation(t *testing.T) {
	srv := newTodoServer(t)
	addTodo(t, srv, "alice", "alice's task")

	out := mustCall(t, srv, "bob", "todo_list", map[string]any{})
	if out != "No todos found." {
		t.Errorf("bob sees alice's todos: %q", out)
	}
}
