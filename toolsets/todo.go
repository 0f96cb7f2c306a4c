package toolsets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tersePrompts/fastMCP4J-sub002/fastmcp"
)

// Todo statuses accepted by the todo tools.
const (
	TodoPending    = "pending"
	TodoInProgress = "in_progress"
	TodoCompleted  = "completed"
)

// todoItem is one tracked task. The list is stored as session state, so each
// client session sees its own todos.
type todoItem struct {
	ID        string    `json:"id"`
	Task      string    `json:"task"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

const todoStateKey = "toolset:todo"

// TodoSet contributes task-tracking tools: add, list, update, delete and
// clear_completed. State lives in the server's session store.
type TodoSet struct{}

// NewTodoSet builds the todo toolset.
func NewTodoSet() *TodoSet { return &TodoSet{} }

func (t *TodoSet) Name() string { return "todo" }

func (t *TodoSet) Tools() []fastmcp.ToolDef {
	return []fastmcp.ToolDef{
		{
			Name: "todo_add",
			Fn:   t.add,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Add a new todo item to the list"),
				fastmcp.WithParams(
					fastmcp.Param("task",
						fastmcp.ParamDescription("The task description to add"),
						fastmcp.ParamExamples("Implement authentication", "Write tests for user module"),
						fastmcp.ParamConstraints("Cannot be empty or blank"),
					),
				),
			},
		},
		{
			Name: "todo_list",
			Fn:   t.list,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("List all todos, optionally filtered by status"),
				fastmcp.WithParams(
					fastmcp.Param("status",
						fastmcp.ParamDescription("Filter by status: 'pending', 'in_progress', or 'completed'. Leave empty for all."),
						fastmcp.ParamExamples("pending", "completed"),
						fastmcp.ParamOptional(),
					),
				),
			},
		},
		{
			Name: "todo_update",
			Fn:   t.update,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Update the status of an existing todo item"),
				fastmcp.WithParams(
					fastmcp.Param("id",
						fastmcp.ParamDescription("The ID of the todo to update"),
						fastmcp.ParamExamples("abc12345"),
					),
					fastmcp.Param("status",
						fastmcp.ParamDescription("The new status: 'pending', 'in_progress', or 'completed'"),
						fastmcp.ParamConstraints("Must be a valid status value"),
					),
				),
			},
		},
		{
			Name: "todo_delete",
			Fn:   t.delete,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Delete a todo item by ID"),
				fastmcp.WithParams(
					fastmcp.Param("id", fastmcp.ParamDescription("The ID of the todo to delete")),
				),
			},
		},
		{
			Name: "todo_clear_completed",
			Fn:   t.clearCompleted,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Delete all todos that are marked as completed"),
			},
		},
	}
}

func (t *TodoSet) add(ctx context.Context, rc *fastmcp.RequestContext, task string) (string, error) {
	if strings.TrimSpace(task) == "" {
		return "", fmt.Errorf("task cannot be empty")
	}
	items, err := loadTodos(ctx, rc)
	if err != nil {
		return "", err
	}
	item := todoItem{
		ID:        uuid.NewString()[:8],
		Task:      task,
		Status:    TodoPending,
		CreatedAt: time.Now().UTC(),
	}
	items = append(items, item)
	if err := rc.SetState(ctx, todoStateKey, items); err != nil {
		return "", err
	}
	return fmt.Sprintf("Added todo (ID: %s): %s", item.ID, task), nil
}

func (t *TodoSet) list(ctx context.Context, rc *fastmcp.RequestContext, status string) (string, error) {
	filter, err := parseTodoStatus(status)
	if err != nil {
		return "", err
	}
	items, err := loadTodos(ctx, rc)
	if err != nil {
		return "", err
	}

	var shown []todoItem
	for _, it := range items {
		if filter == "" || it.Status == filter {
			shown = append(shown, it)
		}
	}
	if len(shown) == 0 {
		if filter != "" {
			return fmt.Sprintf("No %s todos found.", filter), nil
		}
		return "No todos found.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Todo List (%d shown, %d total)\n", len(shown), len(items))
	for _, it := range shown {
		fmt.Fprintf(&sb, "[%s] %-11s %s\n", it.ID, it.Status, it.Task)
	}
	counts := map[string]int{}
	for _, it := range items {
		counts[it.Status]++
	}
	fmt.Fprintf(&sb, "Summary: %d pending, %d in progress, %d completed",
		counts[TodoPending], counts[TodoInProgress], counts[TodoCompleted])
	return sb.String(), nil
}

func (t *TodoSet) update(ctx context.Context, rc *fastmcp.RequestContext, id, status string) (string, error) {
	next, err := parseTodoStatus(status)
	if err != nil {
		return "", err
	}
	if next == "" {
		return "", fmt.Errorf("invalid status: %q, use: pending, in_progress, completed", status)
	}
	items, err := loadTodos(ctx, rc)
	if err != nil {
		return "", err
	}
	for i := range items {
		if items[i].ID == id {
			prev := items[i].Status
			items[i].Status = next
			if err := rc.SetState(ctx, todoStateKey, items); err != nil {
				return "", err
			}
			return fmt.Sprintf("Updated todo %s: %s -> %s", id, prev, next), nil
		}
	}
	return "", fmt.Errorf("todo not found with ID: %s", id)
}

func (t *TodoSet) delete(ctx context.Context, rc *fastmcp.RequestContext, id string) (string, error) {
	items, err := loadTodos(ctx, rc)
	if err != nil {
		return "", err
	}
	for i := range items {
		if items[i].ID == id {
			task := items[i].Task
			items = append(items[:i], items[i+1:]...)
			if err := rc.SetState(ctx, todoStateKey, items); err != nil {
				return "", err
			}
			return fmt.Sprintf("Deleted todo (ID: %s): %s", id, task), nil
		}
	}
	return "", fmt.Errorf("todo not found with ID: %s", id)
}

func (t *TodoSet) clearCompleted(ctx context.Context, rc *fastmcp.RequestContext) (string, error) {
	items, err := loadTodos(ctx, rc)
	if err != nil {
		return "", err
	}
	kept := items[:0]
	cleared := 0
	for _, it := range items {
		if it.Status == TodoCompleted {
			cleared++
			continue
		}
		kept = append(kept, it)
	}
	if cleared == 0 {
		return "No completed todos to clear.", nil
	}
	if err := rc.SetState(ctx, todoStateKey, kept); err != nil {
		return "", err
	}
	return fmt.Sprintf("Cleared %d completed todo(s).", cleared), nil
}

func loadTodos(ctx context.Context, rc *fastmcp.RequestContext) ([]todoItem, error) {
	var items []todoItem
	if _, err := rc.GetState(ctx, todoStateKey, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func parseTodoStatus(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "pending":
		return TodoPending, nil
	case "in_progress":
		return TodoInProgress, nil
	case "completed", "complete", "done":
		return TodoCompleted, nil
	default:
		return "", fmt.Errorf("invalid status: %q, use: pending, in_progress, completed", s)
	}
}
