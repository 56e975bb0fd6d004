// ABOUTME: Tool output shapes shared by every MCP handler
// ABOUTME: Timestamps are rendered as RFC 3339 strings
package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/workflow"
)

const defaultLimit = 10

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func parseTime(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		if d, derr := time.Parse("2006-01-02", value); derr == nil {
			return &d, nil
		}
		return nil, fmt.Errorf("invalid %s format (use ISO 8601/RFC3339): %w", name, err)
	}
	return &t, nil
}

// matches reports whether any field contains query, case-insensitively.
func matches(query string, fields ...string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

type ClientOutput struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Company     string   `json:"company,omitempty"`
	Status      string   `json:"status"`
	Value       float64  `json:"value"`
	Tags        []string `json:"tags,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	Source      string   `json:"source,omitempty"`
	LastContact *string  `json:"last_contact,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

func clientToOutput(c models.Client) ClientOutput {
	return ClientOutput{
		ID:          c.ID,
		Name:        c.Name,
		Email:       c.Email,
		Phone:       c.Phone,
		Company:     c.Company,
		Status:      c.Status,
		Value:       c.Value,
		Tags:        c.Tags,
		Notes:       c.Notes,
		Source:      c.Source,
		LastContact: formatTimePtr(c.LastContact),
		CreatedAt:   formatTime(c.CreatedAt),
		UpdatedAt:   formatTime(c.UpdatedAt),
	}
}

type LeadOutput struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email,omitempty"`
	Phone     string  `json:"phone,omitempty"`
	Company   string  `json:"company,omitempty"`
	Source    string  `json:"source,omitempty"`
	Status    string  `json:"status"`
	Score     int     `json:"score"`
	Value     float64 `json:"value"`
	Notes     string  `json:"notes,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func leadToOutput(l models.Lead) LeadOutput {
	return LeadOutput{
		ID:        l.ID,
		Name:      l.Name,
		Email:     l.Email,
		Phone:     l.Phone,
		Company:   l.Company,
		Source:    l.Source,
		Status:    l.Status,
		Score:     l.Score,
		Value:     l.Value,
		Notes:     l.Notes,
		CreatedAt: formatTime(l.CreatedAt),
		UpdatedAt: formatTime(l.UpdatedAt),
	}
}

type OpportunityOutput struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	ClientID          string   `json:"client_id"`
	Value             float64  `json:"value"`
	Stage             string   `json:"stage"`
	Probability       int      `json:"probability"`
	ExpectedCloseDate *string  `json:"expected_close_date,omitempty"`
	Description       string   `json:"description,omitempty"`
	Products          []string `json:"products,omitempty"`
	Competitors       []string `json:"competitors,omitempty"`
	NextSteps         string   `json:"next_steps,omitempty"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}

func opportunityToOutput(o models.Opportunity) OpportunityOutput {
	return OpportunityOutput{
		ID:                o.ID,
		Title:             o.Title,
		ClientID:          o.ClientID,
		Value:             o.Value,
		Stage:             o.Stage,
		Probability:       o.Probability,
		ExpectedCloseDate: formatTimePtr(o.ExpectedCloseDate),
		Description:       o.Description,
		Products:          o.Products,
		Competitors:       o.Competitors,
		NextSteps:         o.NextSteps,
		CreatedAt:         formatTime(o.CreatedAt),
		UpdatedAt:         formatTime(o.UpdatedAt),
	}
}

type TaskOutput struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	DueDate       *string `json:"due_date,omitempty"`
	Priority      string  `json:"priority"`
	Status        string  `json:"status"`
	ClientID      *string `json:"client_id,omitempty"`
	LeadID        *string `json:"lead_id,omitempty"`
	OpportunityID *string `json:"opportunity_id,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

func taskToOutput(t models.Task) TaskOutput {
	return TaskOutput{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		DueDate:       formatTimePtr(t.DueDate),
		Priority:      t.Priority,
		Status:        t.Status,
		ClientID:      t.ClientID,
		LeadID:        t.LeadID,
		OpportunityID: t.OpportunityID,
		CreatedAt:     formatTime(t.CreatedAt),
		UpdatedAt:     formatTime(t.UpdatedAt),
	}
}

type ActivityOutput struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	Completed     bool    `json:"completed"`
	Priority      string  `json:"priority,omitempty"`
	ClientID      *string `json:"client_id,omitempty"`
	LeadID        *string `json:"lead_id,omitempty"`
	OpportunityID *string `json:"opportunity_id,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func activityToOutput(a models.Activity) ActivityOutput {
	return ActivityOutput{
		ID:            a.ID,
		Type:          a.Type,
		Title:         a.Title,
		Description:   a.Description,
		Completed:     a.Completed,
		Priority:      a.Priority,
		ClientID:      a.ClientID,
		LeadID:        a.LeadID,
		OpportunityID: a.OpportunityID,
		CreatedAt:     formatTime(a.CreatedAt),
	}
}

type StepOutput struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type RunOutput struct {
	ID                  string       `json:"id"`
	Transition          string       `json:"transition"`
	LeadID              string       `json:"lead_id"`
	ClientID            string       `json:"client_id,omitempty"`
	StartedAt           string       `json:"started_at"`
	Steps               []StepOutput `json:"steps"`
	Warnings            []string     `json:"warnings,omitempty"`
	NeedsReconciliation bool         `json:"needs_reconciliation"`
}

func runToOutput(r workflow.Run) RunOutput {
	steps := make([]StepOutput, 0, len(r.Steps))
	for _, s := range r.Steps {
		steps = append(steps, StepOutput{Name: s.Name, Status: string(s.Status), Error: s.Error})
	}
	return RunOutput{
		ID:                  r.ID,
		Transition:          string(r.Transition),
		LeadID:              r.LeadID,
		ClientID:            r.ClientID,
		StartedAt:           formatTime(r.StartedAt),
		Steps:               steps,
		Warnings:            r.Warnings,
		NeedsReconciliation: r.NeedsReconciliation,
	}
}

type TransitionOutput struct {
	Success             bool            `json:"success"`
	Lead                *LeadOutput     `json:"lead,omitempty"`
	Client              *ClientOutput   `json:"client,omitempty"`
	Audit               *ActivityOutput `json:"audit,omitempty"`
	Warnings            []string        `json:"warnings,omitempty"`
	NeedsReconciliation bool            `json:"needs_reconciliation"`
	RunID               string          `json:"run_id"`
}

// OutcomeToOutput flattens a workflow outcome for display.
func OutcomeToOutput(o *workflow.Outcome) TransitionOutput {
	out := TransitionOutput{
		Success:             o.Success,
		Warnings:            o.Warnings,
		NeedsReconciliation: o.NeedsReconciliation,
		RunID:               o.Run.ID,
	}
	if o.Lead != nil {
		l := leadToOutput(*o.Lead)
		out.Lead = &l
	}
	if o.Client != nil {
		c := clientToOutput(*o.Client)
		out.Client = &c
	}
	if o.Audit != nil {
		a := activityToOutput(*o.Audit)
		out.Audit = &a
	}
	return out
}

type FeedItemOutput struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Icon        string   `json:"icon"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Timestamp   string   `json:"timestamp"`
	RelatedTo   string   `json:"related_to,omitempty"`
	RelatedID   string   `json:"related_id,omitempty"`
	RelatedType string   `json:"related_type,omitempty"`
	Value       *float64 `json:"value,omitempty"`
	Status      string   `json:"status,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Completed   *bool    `json:"completed,omitempty"`
}

func feedItemToOutput(it feed.Item) FeedItemOutput {
	return FeedItemOutput{
		ID:          it.ID,
		Type:        string(it.Kind),
		Icon:        it.Kind.Style().Icon,
		Title:       it.Title,
		Description: it.Description,
		Timestamp:   formatTime(it.Timestamp),
		RelatedTo:   it.RelatedTo,
		RelatedID:   it.RelatedID,
		RelatedType: string(it.RelatedType),
		Value:       it.Value,
		Status:      it.Status,
		Priority:    it.Priority,
		Completed:   it.Completed,
	}
}
