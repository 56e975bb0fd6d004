// ABOUTME: Activity feed MCP tool handler
// ABOUTME: Implements activity_feed with kind, related type, and text filters
package handlers

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/store"
)

type FeedHandlers struct {
	cache *store.Cache
	opts  feed.Options
}

func NewFeedHandlers(cache *store.Cache, opts feed.Options) *FeedHandlers {
	return &FeedHandlers{cache: cache, opts: opts}
}

type ActivityFeedInput struct {
	Types       []string `json:"types,omitempty" jsonschema:"Only these item types, e.g. call, lead_created, deal_closed"`
	RelatedType string   `json:"related_type,omitempty" jsonschema:"Only items about a client, lead, or opportunity"`
	Query       string   `json:"query,omitempty" jsonschema:"Text to match in title, description, or related name"`
	Limit       int      `json:"limit,omitempty" jsonschema:"Maximum items to return (default from config)"`
}

type FeedStatsOutput struct {
	Today          int     `json:"today"`
	TasksCompleted int     `json:"tasks_completed"`
	NewLeads       int     `json:"new_leads"`
	DealsClosed    int     `json:"deals_closed"`
	TotalValue     float64 `json:"total_value"`
}

type ActivityFeedOutput struct {
	Items []FeedItemOutput `json:"items"`
	Stats FeedStatsOutput  `json:"stats"`
}

func (h *FeedHandlers) ActivityFeed(ctx context.Context, request *mcp.CallToolRequest, input ActivityFeedInput) (*mcp.CallToolResult, ActivityFeedOutput, error) {
	filter := feed.Filter{Query: input.Query}
	for _, t := range input.Types {
		kind, err := feed.ParseKind(t)
		if err != nil {
			return nil, ActivityFeedOutput{}, err
		}
		filter.Kinds = append(filter.Kinds, kind)
	}
	switch rt := models.RelatedType(input.RelatedType); rt {
	case "", models.RelatedClient, models.RelatedLead, models.RelatedOpportunity:
		filter.RelatedType = rt
	default:
		return nil, ActivityFeedOutput{}, fmt.Errorf("invalid related_type: %s (valid: client, lead, opportunity)", input.RelatedType)
	}

	opts := h.opts
	if input.Limit > 0 {
		opts.Limit = input.Limit
	}

	f := feed.BuildFiltered(feed.SnapshotOf(h.cache), opts, filter)

	out := ActivityFeedOutput{
		Items: make([]FeedItemOutput, 0, len(f.Items)),
		Stats: FeedStatsOutput(f.Stats),
	}
	for _, it := range f.Items {
		out.Items = append(out.Items, feedItemToOutput(it))
	}
	return nil, out, nil
}
