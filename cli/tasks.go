// ABOUTME: Task and activity CLI commands
// ABOUTME: Add and complete tasks, list what is due, and log activities
package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/harperreed/crmdesk/handlers"
)

// AddTaskCommand creates a task.
func AddTaskCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet("add-task")
	title := fs.String("title", "", "Task title (required)")
	description := fs.String("description", "", "Details")
	due := fs.String("due", "", "Due date (YYYY-MM-DD or RFC3339)")
	priority := fs.String("priority", "", "Priority: low, medium, high")
	clientID := fs.String("client", "", "Attach to client ID")
	leadID := fs.String("lead", "", "Attach to lead ID")
	oppID := fs.String("opportunity", "", "Attach to opportunity ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *title == "" {
		return fmt.Errorf("--title is required")
	}

	_, task, err := handlers.NewTaskHandlers(app.Cache).AddTask(ctx, nil, handlers.AddTaskInput{
		Title:         *title,
		Description:   *description,
		DueDate:       *due,
		Priority:      *priority,
		ClientID:      *clientID,
		LeadID:        *leadID,
		OpportunityID: *oppID,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(app.out(), "✓ Task created: %s (ID: %s, priority: %s)\n", task.Title, task.ID, task.Priority)
	return nil
}

// ListTasksCommand shows tasks, soonest due first.
func ListTasksCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet("list-tasks")
	status := fs.String("status", "", "Filter by status")
	priority := fs.String("priority", "", "Filter by priority")
	all := fs.Bool("all", false, "Include completed tasks")
	limit := fs.Int("limit", 50, "Maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, found, err := handlers.NewTaskHandlers(app.Cache).FindTasks(ctx, nil, handlers.FindTasksInput{
		Status:   *status,
		Priority: *priority,
		Open:     !*all && *status == "",
		Limit:    *limit,
	})
	if err != nil {
		return err
	}

	out := app.out()
	if found.Count == 0 {
		fmt.Fprintln(out, "No tasks found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TITLE\tDUE\tPRIORITY\tSTATUS\tID")
	_, _ = fmt.Fprintln(w, "-----\t---\t--------\t------\t--")
	for _, t := range found.Tasks {
		due := "-"
		if t.DueDate != nil {
			due = (*t.DueDate)[:10]
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", truncate(t.Title, 40), due, t.Priority, t.Status, t.ID)
	}
	return w.Flush()
}

// CompleteTaskCommand marks a task completed.
func CompleteTaskCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet("complete-task")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireArg(fs, "task ID")
	if err != nil {
		return err
	}

	_, task, err := handlers.NewTaskHandlers(app.Cache).CompleteTask(ctx, nil, handlers.CompleteTaskInput{ID: id})
	if err != nil {
		return err
	}
	fmt.Fprintf(app.out(), "✓ Task completed: %s\n", task.Title)
	return nil
}

// LogActivityCommand records a call, email, meeting, task, or note.
func LogActivityCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet("log-activity")
	kind := fs.String("type", "note", "Activity type: call, email, meeting, task, note")
	title := fs.String("title", "", "Short summary (required)")
	description := fs.String("description", "", "Details")
	priority := fs.String("priority", "", "Priority: low, medium, high")
	pending := fs.Bool("pending", false, "Log as not yet completed")
	clientID := fs.String("client", "", "Attach to client ID")
	leadID := fs.String("lead", "", "Attach to lead ID")
	oppID := fs.String("opportunity", "", "Attach to opportunity ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *title == "" {
		return fmt.Errorf("--title is required")
	}

	completed := !*pending
	_, activity, err := handlers.NewTaskHandlers(app.Cache).LogActivity(ctx, nil, handlers.LogActivityInput{
		Type:          *kind,
		Title:         *title,
		Description:   *description,
		Priority:      *priority,
		Completed:     &completed,
		ClientID:      *clientID,
		LeadID:        *leadID,
		OpportunityID: *oppID,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(app.out(), "✓ Logged %s: %s (ID: %s)\n", activity.Type, activity.Title, activity.ID)
	return nil
}
