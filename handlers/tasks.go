// ABOUTME: Task and activity MCP tool handlers
// ABOUTME: Implements add_task, complete_task, find_tasks, and log_activity tools
package handlers

import (
	"context"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/store"
)

type TaskHandlers struct {
	gw store.Gateway
}

func NewTaskHandlers(gw store.Gateway) *TaskHandlers {
	return &TaskHandlers{gw: gw}
}

type AddTaskInput struct {
	Title         string `json:"title" jsonschema:"Task title (required)"`
	Description   string `json:"description,omitempty" jsonschema:"Task details"`
	DueDate       string `json:"due_date,omitempty" jsonschema:"Due date in ISO 8601 format"`
	Priority      string `json:"priority,omitempty" jsonschema:"Priority: low, medium, high (default medium)"`
	ClientID      string `json:"client_id,omitempty" jsonschema:"Attach to this client"`
	LeadID        string `json:"lead_id,omitempty" jsonschema:"Attach to this lead"`
	OpportunityID string `json:"opportunity_id,omitempty" jsonschema:"Attach to this opportunity"`
}

func (h *TaskHandlers) AddTask(ctx context.Context, request *mcp.CallToolRequest, input AddTaskInput) (*mcp.CallToolResult, TaskOutput, error) {
	due, err := parseTime("due_date", input.DueDate)
	if err != nil {
		return nil, TaskOutput{}, err
	}
	clientID, leadID, oppID, err := reference(input.ClientID, input.LeadID, input.OpportunityID)
	if err != nil {
		return nil, TaskOutput{}, err
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	task, err := createEntity(ctx, h.gw, store.TableTasks, models.Task{
		Title:         input.Title,
		Description:   input.Description,
		DueDate:       due,
		Priority:      priority,
		Status:        models.TaskStatusPending,
		ClientID:      clientID,
		LeadID:        leadID,
		OpportunityID: oppID,
	})
	if err != nil {
		return nil, TaskOutput{}, err
	}
	return nil, taskToOutput(task), nil
}

type CompleteTaskInput struct {
	ID string `json:"id" jsonschema:"Task ID (required)"`
}

func (h *TaskHandlers) CompleteTask(ctx context.Context, request *mcp.CallToolRequest, input CompleteTaskInput) (*mcp.CallToolResult, TaskOutput, error) {
	current, err := getEntity[models.Task](ctx, h.gw, store.TableTasks, input.ID)
	if err != nil {
		return nil, TaskOutput{}, err
	}
	task, err := updateEntity(ctx, h.gw, store.TableTasks, current, store.Row{"status": models.TaskStatusCompleted})
	if err != nil {
		return nil, TaskOutput{}, err
	}
	return nil, taskToOutput(task), nil
}

type FindTasksInput struct {
	Status   string `json:"status,omitempty" jsonschema:"Filter by status: pending, in-progress, completed"`
	Priority string `json:"priority,omitempty" jsonschema:"Filter by priority"`
	Open     bool   `json:"open,omitempty" jsonschema:"Only tasks that are not completed"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum results to return (default 10)"`
}

type FindTasksOutput struct {
	Tasks []TaskOutput `json:"tasks"`
	Count int          `json:"count"`
}

// FindTasks returns matching tasks soonest-due first; tasks without a due date come last.
func (h *TaskHandlers) FindTasks(ctx context.Context, request *mcp.CallToolRequest, input FindTasksInput) (*mcp.CallToolResult, FindTasksOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	tasks, err := listEntities[models.Task](ctx, h.gw, store.TableTasks)
	if err != nil {
		return nil, FindTasksOutput{}, err
	}

	kept := tasks[:0]
	for _, t := range tasks {
		switch {
		case input.Status != "" && t.Status != input.Status:
			continue
		case input.Priority != "" && t.Priority != input.Priority:
			continue
		case input.Open && t.Status == models.TaskStatusCompleted:
			continue
		}
		kept = append(kept, t)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i].DueDate, kept[j].DueDate
		if a == nil || b == nil {
			return a != nil
		}
		return a.Before(*b)
	})
	if len(kept) > limit {
		kept = kept[:limit]
	}

	out := FindTasksOutput{Tasks: make([]TaskOutput, 0, len(kept))}
	for _, t := range kept {
		out.Tasks = append(out.Tasks, taskToOutput(t))
	}
	out.Count = len(out.Tasks)
	return nil, out, nil
}

type LogActivityInput struct {
	Type          string `json:"type" jsonschema:"Activity type: call, email, meeting, task, note (required)"`
	Title         string `json:"title" jsonschema:"Short summary (required)"`
	Description   string `json:"description,omitempty" jsonschema:"Details"`
	Priority      string `json:"priority,omitempty" jsonschema:"Priority: low, medium, high"`
	Completed     *bool  `json:"completed,omitempty" jsonschema:"Whether the activity is done (default true)"`
	ClientID      string `json:"client_id,omitempty" jsonschema:"Attach to this client"`
	LeadID        string `json:"lead_id,omitempty" jsonschema:"Attach to this lead"`
	OpportunityID string `json:"opportunity_id,omitempty" jsonschema:"Attach to this opportunity"`
}

func (h *TaskHandlers) LogActivity(ctx context.Context, request *mcp.CallToolRequest, input LogActivityInput) (*mcp.CallToolResult, ActivityOutput, error) {
	clientID, leadID, oppID, err := reference(input.ClientID, input.LeadID, input.OpportunityID)
	if err != nil {
		return nil, ActivityOutput{}, err
	}

	completed := true
	if input.Completed != nil {
		completed = *input.Completed
	}

	activity, err := createEntity(ctx, h.gw, store.TableActivities, models.Activity{
		Type:          input.Type,
		Title:         input.Title,
		Description:   input.Description,
		Priority:      input.Priority,
		Completed:     completed,
		ClientID:      clientID,
		LeadID:        leadID,
		OpportunityID: oppID,
	})
	if err != nil {
		return nil, ActivityOutput{}, err
	}
	return nil, activityToOutput(activity), nil
}
