// ABOUTME: Lead MCP tool handlers
// ABOUTME: Implements lead capture, search, and the qualify/convert/lost workflow tools
package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/store"
	"github.com/harperreed/crmdesk/workflow"
)

type LeadHandlers struct {
	gw     store.Gateway
	engine *workflow.Engine
}

func NewLeadHandlers(gw store.Gateway, engine *workflow.Engine) *LeadHandlers {
	return &LeadHandlers{gw: gw, engine: engine}
}

type AddLeadInput struct {
	Name    string  `json:"name" jsonschema:"Lead name (required)"`
	Email   string  `json:"email,omitempty" jsonschema:"Email address"`
	Phone   string  `json:"phone,omitempty" jsonschema:"Phone number"`
	Company string  `json:"company,omitempty" jsonschema:"Company name"`
	Source  string  `json:"source,omitempty" jsonschema:"Lead source, e.g. website or referral"`
	Value   float64 `json:"value,omitempty" jsonschema:"Estimated value in dollars"`
	Notes   string  `json:"notes,omitempty" jsonschema:"Notes about the lead"`
}

func (h *LeadHandlers) AddLead(ctx context.Context, request *mcp.CallToolRequest, input AddLeadInput) (*mcp.CallToolResult, LeadOutput, error) {
	lead, err := createEntity(ctx, h.gw, store.TableLeads, models.Lead{
		Name:    input.Name,
		Email:   input.Email,
		Phone:   input.Phone,
		Company: input.Company,
		Source:  input.Source,
		Status:  models.LeadStatusNew,
		Value:   input.Value,
		Notes:   input.Notes,
	})
	if err != nil {
		return nil, LeadOutput{}, err
	}
	return nil, leadToOutput(lead), nil
}

type FindLeadsInput struct {
	Query  string `json:"query,omitempty" jsonschema:"Search by name, email, or company"`
	Status string `json:"status,omitempty" jsonschema:"Filter by status: new, contacted, qualified, converted, lost"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum results to return (default 10)"`
}

type FindLeadsOutput struct {
	Leads []LeadOutput `json:"leads"`
	Count int          `json:"count"`
}

func (h *LeadHandlers) FindLeads(ctx context.Context, request *mcp.CallToolRequest, input FindLeadsInput) (*mcp.CallToolResult, FindLeadsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	leads, err := listEntities[models.Lead](ctx, h.gw, store.TableLeads)
	if err != nil {
		return nil, FindLeadsOutput{}, err
	}

	out := FindLeadsOutput{Leads: []LeadOutput{}}
	for _, l := range leads {
		if input.Status != "" && l.Status != input.Status {
			continue
		}
		if !matches(input.Query, l.Name, l.Email, l.Company) {
			continue
		}
		out.Leads = append(out.Leads, leadToOutput(l))
		if len(out.Leads) == limit {
			break
		}
	}
	out.Count = len(out.Leads)
	return nil, out, nil
}

type QualifyLeadInput struct {
	LeadID string `json:"lead_id" jsonschema:"Lead ID (required)"`
	Score  int    `json:"score" jsonschema:"Qualification score from 0 to 100"`
	Notes  string `json:"notes,omitempty" jsonschema:"Qualification notes; replaces the lead's notes"`
}

// transitionResult keeps the outcome visible to the caller even when the transition failed part way.
func transitionResult(outcome *workflow.Outcome, err error) (*mcp.CallToolResult, TransitionOutput, error) {
	if outcome == nil {
		return nil, TransitionOutput{}, err
	}
	out := OutcomeToOutput(outcome)
	if err != nil && errors.Is(err, workflow.ErrNeedsReconciliation) {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{
				Text: fmt.Sprintf("%v (run %s is pending reconciliation)", err, out.RunID),
			}},
		}, out, nil
	}
	return nil, out, err
}

func (h *LeadHandlers) QualifyLead(ctx context.Context, request *mcp.CallToolRequest, input QualifyLeadInput) (*mcp.CallToolResult, TransitionOutput, error) {
	if input.LeadID == "" {
		return nil, TransitionOutput{}, fmt.Errorf("lead_id is required")
	}
	if input.Score < 0 || input.Score > 100 {
		return nil, TransitionOutput{}, fmt.Errorf("score must be between 0 and 100")
	}
	return transitionResult(h.engine.QualifyLead(ctx, input.LeadID, input.Score, input.Notes))
}

type ConvertLeadInput struct {
	LeadID string `json:"lead_id" jsonschema:"Lead ID (required)"`
}

func (h *LeadHandlers) ConvertLead(ctx context.Context, request *mcp.CallToolRequest, input ConvertLeadInput) (*mcp.CallToolResult, TransitionOutput, error) {
	lead, err := getEntity[models.Lead](ctx, h.gw, store.TableLeads, input.LeadID)
	if err != nil {
		return nil, TransitionOutput{}, err
	}
	return transitionResult(h.engine.ConvertLeadToClient(ctx, lead))
}

type MarkLeadLostInput struct {
	LeadID string `json:"lead_id" jsonschema:"Lead ID (required)"`
	Reason string `json:"reason" jsonschema:"Why the lead was lost (required)"`
}

func (h *LeadHandlers) MarkLeadLost(ctx context.Context, request *mcp.CallToolRequest, input MarkLeadLostInput) (*mcp.CallToolResult, TransitionOutput, error) {
	if input.LeadID == "" {
		return nil, TransitionOutput{}, fmt.Errorf("lead_id is required")
	}
	if input.Reason == "" {
		return nil, TransitionOutput{}, fmt.Errorf("reason is required")
	}
	return transitionResult(h.engine.MarkLeadAsLost(ctx, input.LeadID, input.Reason))
}

type PendingReconciliationsInput struct{}

type PendingReconciliationsOutput struct {
	Runs  []RunOutput `json:"runs"`
	Count int         `json:"count"`
}

func (h *LeadHandlers) PendingReconciliations(ctx context.Context, request *mcp.CallToolRequest, input PendingReconciliationsInput) (*mcp.CallToolResult, PendingReconciliationsOutput, error) {
	out := PendingReconciliationsOutput{Runs: []RunOutput{}}
	for _, run := range h.engine.Pending() {
		out.Runs = append(out.Runs, runToOutput(run))
	}
	out.Count = len(out.Runs)
	return nil, out, nil
}

type ResolveReconciliationInput struct {
	RunID string `json:"run_id" jsonschema:"Workflow run ID (required)"`
}

type ResolveReconciliationOutput struct {
	RunID    string `json:"run_id"`
	Resolved bool   `json:"resolved"`
}

func (h *LeadHandlers) ResolveReconciliation(ctx context.Context, request *mcp.CallToolRequest, input ResolveReconciliationInput) (*mcp.CallToolResult, ResolveReconciliationOutput, error) {
	if input.RunID == "" {
		return nil, ResolveReconciliationOutput{}, fmt.Errorf("run_id is required")
	}
	if err := h.engine.Resolve(input.RunID); err != nil {
		return nil, ResolveReconciliationOutput{}, err
	}
	return nil, ResolveReconciliationOutput{RunID: input.RunID, Resolved: true}, nil
}
