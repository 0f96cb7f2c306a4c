package toolsets

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tersePrompts/fastMCP4J-sub002/fastmcp"
)

// Task statuses accepted by the planner tools.
const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"
	TaskFailed     = "failed"
	TaskBlocked    = "blocked"
)

// planTask is one node in a plan's task tree.
type planTask struct {
	ID           string
	Title        string
	Description  string
	Status       string
	Dependencies []string
	Subtasks     []*planTask
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type plan struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Tasks       []*planTask
}

// PlannerSet contributes hierarchical planning tools: create plans, grow a
// task tree under them, track statuses and ask for the next runnable task.
// Plans are process-local and shared across sessions.
type PlannerSet struct {
	mu    sync.Mutex
	plans map[string]*plan
	order []string
}

// NewPlannerSet builds an empty planner toolset.
func NewPlannerSet() *PlannerSet {
	return &PlannerSet{plans: make(map[string]*plan)}
}

func (p *PlannerSet) Name() string { return "planner" }

func (p *PlannerSet) Tools() []fastmcp.ToolDef {
	return []fastmcp.ToolDef{
		{
			Name: "plan_create",
			Fn:   p.create,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Create a new plan"),
				fastmcp.WithParams(
					fastmcp.Param("name", fastmcp.ParamDescription("Plan name")),
					fastmcp.Param("description",
						fastmcp.ParamDescription("What the plan achieves"),
						fastmcp.ParamOptional(),
					),
				),
			},
		},
		{
			Name: "plan_add_task",
			Fn:   p.addTask,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Add a task to a plan, optionally as a subtask of an existing task"),
				fastmcp.WithParams(
					fastmcp.Param("plan_id", fastmcp.ParamDescription("The plan to add to")),
					fastmcp.Param("title", fastmcp.ParamDescription("Short task title")),
					fastmcp.Param("description",
						fastmcp.ParamDescription("Task details"),
						fastmcp.ParamOptional(),
					),
					fastmcp.Param("parent_id",
						fastmcp.ParamDescription("Parent task ID. Empty adds a root task."),
						fastmcp.ParamOptional(),
					),
					fastmcp.Param("depends_on",
						fastmcp.ParamDescription("Task IDs that must complete before this one may start"),
						fastmcp.ParamOptional(),
					),
				),
			},
		},
		{
			Name: "plan_update_task",
			Fn:   p.updateTask,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Update a task's status"),
				fastmcp.WithParams(
					fastmcp.Param("plan_id", fastmcp.ParamDescription("The plan containing the task")),
					fastmcp.Param("task_id", fastmcp.ParamDescription("The task to update")),
					fastmcp.Param("status",
						fastmcp.ParamDescription("New status: 'pending', 'in_progress', 'completed', 'failed' or 'blocked'"),
						fastmcp.ParamConstraints("Must be a valid status value"),
					),
				),
			},
		},
		{
			Name: "plan_next_task",
			Fn:   p.nextTask,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Return the next pending task whose dependencies are all completed"),
				fastmcp.WithParams(
					fastmcp.Param("plan_id", fastmcp.ParamDescription("The plan to inspect")),
				),
			},
		},
		{
			Name: "plan_show",
			Fn:   p.show,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Show a plan's full task tree with statuses"),
				fastmcp.WithParams(
					fastmcp.Param("plan_id", fastmcp.ParamDescription("The plan to show")),
				),
			},
		},
		{
			Name: "plan_list",
			Fn:   p.list,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("List all plans with task counts"),
			},
		},
		{
			Name: "plan_delete",
			Fn:   p.deletePlan,
			Options: []fastmcp.ToolOption{
				fastmcp.WithDescription("Delete a plan and all of its tasks"),
				fastmcp.WithParams(
					fastmcp.Param("plan_id", fastmcp.ParamDescription("The plan to delete")),
				),
			},
		},
	}
}

func (p *PlannerSet) create(name, description string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("plan name cannot be empty")
	}
	now := time.Now().UTC()
	pl := &plan{
		ID:          uuid.NewString()[:8],
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.mu.Lock()
	p.plans[pl.ID] = pl
	p.order = append(p.order, pl.ID)
	p.mu.Unlock()
	return fmt.Sprintf("Created plan %s: %s", pl.ID, name), nil
}

func (p *PlannerSet) addTask(planID, title, description, parentID, dependsOn string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("task title cannot be empty")
	}
	now := time.Now().UTC()
	task := &planTask{
		ID:          uuid.NewString()[:8],
		Title:       title,
		Description: description,
		Status:      TaskPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, dep := range strings.Split(dependsOn, ",") {
		if dep = strings.TrimSpace(dep); dep != "" {
			task.Dependencies = append(task.Dependencies, dep)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	pl, ok := p.plans[planID]
	if !ok {
		return "", fmt.Errorf("plan not found: %s", planID)
	}
	for _, dep := range task.Dependencies {
		if findTask(pl.Tasks, dep) == nil {
			return "", fmt.Errorf("dependency not found in plan %s: %s", planID, dep)
		}
	}
	if parentID == "" {
		pl.Tasks = append(pl.Tasks, task)
	} else {
		parent := findTask(pl.Tasks, parentID)
		if parent == nil {
			return "", fmt.Errorf("parent task not found: %s", parentID)
		}
		parent.Subtasks = append(parent.Subtasks, task)
	}
	pl.UpdatedAt = now
	return fmt.Sprintf("Added task %s to plan %s: %s", task.ID, planID, title), nil
}

func (p *PlannerSet) updateTask(planID, taskID, status string) (string, error) {
	next, err := parseTaskStatus(status)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	pl, ok := p.plans[planID]
	if !ok {
		return "", fmt.Errorf("plan not found: %s", planID)
	}
	task := findTask(pl.Tasks, taskID)
	if task == nil {
		return "", fmt.Errorf("task not found in plan %s: %s", planID, taskID)
	}
	prev := task.Status
	task.Status = next
	task.UpdatedAt = time.Now().UTC()
	pl.UpdatedAt = task.UpdatedAt
	return fmt.Sprintf("Updated task %s: %s -> %s", taskID, prev, next), nil
}

func (p *PlannerSet) nextTask(planID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pl, ok := p.plans[planID]
	if !ok {
		return "", fmt.Errorf("plan not found: %s", planID)
	}
	task := nextRunnable(pl, pl.Tasks)
	if task == nil {
		return "No runnable tasks: everything is completed, blocked or waiting on dependencies.", nil
	}
	if task.Description != "" {
		return fmt.Sprintf("Next task %s: %s\n%s", task.ID, task.Title, task.Description), nil
	}
	return fmt.Sprintf("Next task %s: %s", task.ID, task.Title), nil
}

func (p *PlannerSet) show(planID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pl, ok := p.plans[planID]
	if !ok {
		return "", fmt.Errorf("plan not found: %s", planID)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Plan %s: %s\n", pl.ID, pl.Name)
	if pl.Description != "" {
		fmt.Fprintf(&sb, "%s\n", pl.Description)
	}
	if len(pl.Tasks) == 0 {
		sb.WriteString("(no tasks)")
		return sb.String(), nil
	}
	writeTaskTree(&sb, pl.Tasks, 0)
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (p *PlannerSet) list() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.order) == 0 {
		return "No plans found.", nil
	}
	var sb strings.Builder
	for _, id := range p.order {
		pl := p.plans[id]
		if pl == nil {
			continue
		}
		total, done := countTasks(pl.Tasks)
		fmt.Fprintf(&sb, "[%s] %s (%d/%d tasks completed)\n", pl.ID, pl.Name, done, total)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (p *PlannerSet) deletePlan(planID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pl, ok := p.plans[planID]
	if !ok {
		return "", fmt.Errorf("plan not found: %s", planID)
	}
	delete(p.plans, planID)
	for i, id := range p.order {
		if id == planID {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return fmt.Sprintf("Deleted plan %s: %s", planID, pl.Name), nil
}

func findTask(tasks []*planTask, id string) *planTask {
	for _, t := range tasks {
		if t.ID == id {
			return t
		}
		if found := findTask(t.Subtasks, id); found != nil {
			return found
		}
	}
	return nil
}

// nextRunnable walks the tree depth-first and returns the first pending task
// whose dependencies have all completed.
func nextRunnable(pl *plan, tasks []*planTask) *planTask {
	for _, t := range tasks {
		if t.Status == TaskPending && depsCompleted(pl, t) {
			return t
		}
		if found := nextRunnable(pl, t.Subtasks); found != nil {
			return found
		}
	}
	return nil
}

func depsCompleted(pl *plan, t *planTask) bool {
	for _, dep := range t.Dependencies {
		d := findTask(pl.Tasks, dep)
		if d == nil || d.Status != TaskCompleted {
			return false
		}
	}
	return true
}

func countTasks(tasks []*planTask) (total, completed int) {
	for _, t := range tasks {
		total++
		if t.Status == TaskCompleted {
			completed++
		}
		st, sc := countTasks(t.Subtasks)
		total += st
		completed += sc
	}
	return total, completed
}

func writeTaskTree(sb *strings.Builder, tasks []*planTask, depth int) {
	for _, t := range tasks {
		fmt.Fprintf(sb, "%s[%s] %-11s %s\n", strings.Repeat("  ", depth), t.ID, t.Status, t.Title)
		writeTaskTree(sb, t.Subtasks, depth+1)
	}
}

func parseTaskStatus(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return TaskPending, nil
	case "in_progress":
		return TaskInProgress, nil
	case "completed", "complete", "done":
		return TaskCompleted, nil
	case "failed":
		return TaskFailed, nil
	case "blocked":
		return TaskBlocked, nil
	default:
		return "", fmt.Errorf("invalid status: %q, use: pending, in_progress, completed, failed, blocked", s)
	}
}
