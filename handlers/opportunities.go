// ABOUTME: Opportunity MCP tool handlers
// ABOUTME: Implements add_opportunity, find_opportunities, and update_opportunity tools
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/store"
)

type OpportunityHandlers struct {
	gw store.Gateway
}

func NewOpportunityHandlers(gw store.Gateway) *OpportunityHandlers {
	return &OpportunityHandlers{gw: gw}
}

type AddOpportunityInput struct {
	Title             string   `json:"title" jsonschema:"Opportunity title (required)"`
	ClientID          string   `json:"client_id" jsonschema:"ID of the client this opportunity belongs to (required)"`
	Value             float64  `json:"value,omitempty" jsonschema:"Deal value in dollars"`
	Stage             string   `json:"stage,omitempty" jsonschema:"Stage: prospecting, qualification, proposal, negotiation, closed-won, closed-lost"`
	Probability       int      `json:"probability,omitempty" jsonschema:"Win probability from 0 to 100"`
	ExpectedCloseDate string   `json:"expected_close_date,omitempty" jsonschema:"Expected close date in ISO 8601 format"`
	Description       string   `json:"description,omitempty" jsonschema:"Description"`
	Products          []string `json:"products,omitempty" jsonschema:"Products involved"`
	NextSteps         string   `json:"next_steps,omitempty" jsonschema:"Next steps"`
}

func (h *OpportunityHandlers) AddOpportunity(ctx context.Context, request *mcp.CallToolRequest, input AddOpportunityInput) (*mcp.CallToolResult, OpportunityOutput, error) {
	if input.ClientID == "" {
		return nil, OpportunityOutput{}, fmt.Errorf("client_id is required")
	}
	if _, err := getEntity[models.Client](ctx, h.gw, store.TableClients, input.ClientID); err != nil {
		return nil, OpportunityOutput{}, err
	}

	closeDate, err := parseTime("expected_close_date", input.ExpectedCloseDate)
	if err != nil {
		return nil, OpportunityOutput{}, err
	}

	stage := input.Stage
	if stage == "" {
		stage = models.StageProspecting
	}

	opp, err := createEntity(ctx, h.gw, store.TableOpportunities, models.Opportunity{
		Title:             input.Title,
		ClientID:          input.ClientID,
		Value:             input.Value,
		Stage:             stage,
		Probability:       input.Probability,
		ExpectedCloseDate: closeDate,
		Description:       input.Description,
		Products:          input.Products,
		NextSteps:         input.NextSteps,
	})
	if err != nil {
		return nil, OpportunityOutput{}, err
	}
	return nil, opportunityToOutput(opp), nil
}

type FindOpportunitiesInput struct {
	Query    string `json:"query,omitempty" jsonschema:"Search by title or description"`
	ClientID string `json:"client_id,omitempty" jsonschema:"Only opportunities for this client"`
	Stage    string `json:"stage,omitempty" jsonschema:"Filter by stage"`
	OpenOnly bool   `json:"open_only,omitempty" jsonschema:"Exclude closed-won and closed-lost"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum results to return (default 10)"`
}

type FindOpportunitiesOutput struct {
	Opportunities []OpportunityOutput `json:"opportunities"`
	Count         int                 `json:"count"`
	TotalValue    float64             `json:"total_value"`
}

func (h *OpportunityHandlers) FindOpportunities(ctx context.Context, request *mcp.CallToolRequest, input FindOpportunitiesInput) (*mcp.CallToolResult, FindOpportunitiesOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	opps, err := listEntities[models.Opportunity](ctx, h.gw, store.TableOpportunities)
	if err != nil {
		return nil, FindOpportunitiesOutput{}, err
	}

	out := FindOpportunitiesOutput{Opportunities: []OpportunityOutput{}}
	for _, o := range opps {
		switch {
		case input.ClientID != "" && o.ClientID != input.ClientID:
			continue
		case input.Stage != "" && o.Stage != input.Stage:
			continue
		case input.OpenOnly && models.IsClosedStage(o.Stage):
			continue
		case !matches(input.Query, o.Title, o.Description):
			continue
		}
		out.Opportunities = append(out.Opportunities, opportunityToOutput(o))
		out.TotalValue += o.Value
		if len(out.Opportunities) == limit {
			break
		}
	}
	out.Count = len(out.Opportunities)
	return nil, out, nil
}

type UpdateOpportunityInput struct {
	ID                string   `json:"id" jsonschema:"Opportunity ID (required)"`
	Title             string   `json:"title,omitempty" jsonschema:"Updated title"`
	Stage             string   `json:"stage,omitempty" jsonschema:"Updated stage"`
	Value             *float64 `json:"value,omitempty" jsonschema:"Updated value in dollars"`
	Probability       *int     `json:"probability,omitempty" jsonschema:"Updated win probability"`
	ExpectedCloseDate string   `json:"expected_close_date,omitempty" jsonschema:"Updated expected close date in ISO 8601 format"`
	NextSteps         string   `json:"next_steps,omitempty" jsonschema:"Updated next steps"`
}

func (h *OpportunityHandlers) UpdateOpportunity(ctx context.Context, request *mcp.CallToolRequest, input UpdateOpportunityInput) (*mcp.CallToolResult, OpportunityOutput, error) {
	current, err := getEntity[models.Opportunity](ctx, h.gw, store.TableOpportunities, input.ID)
	if err != nil {
		return nil, OpportunityOutput{}, err
	}

	fields := store.Row{}
	if input.Title != "" {
		fields["title"] = input.Title
	}
	if input.Stage != "" {
		fields["stage"] = input.Stage
	}
	if input.Value != nil {
		fields["value"] = *input.Value
	}
	if input.Probability != nil {
		fields["probability"] = *input.Probability
	}
	if input.NextSteps != "" {
		fields["next_steps"] = input.NextSteps
	}
	closeDate, err := parseTime("expected_close_date", input.ExpectedCloseDate)
	if err != nil {
		return nil, OpportunityOutput{}, err
	}
	if closeDate != nil {
		fields["expected_close_date"] = closeDate.Format(time.RFC3339)
	}
	if len(fields) == 0 {
		return nil, OpportunityOutput{}, fmt.Errorf("no fields to update")
	}

	opp, err := updateEntity(ctx, h.gw, store.TableOpportunities, current, fields)
	if err != nil {
		return nil, OpportunityOutput{}, err
	}
	return nil, opportunityToOutput(opp), nil
}
