// ABOUTME: GraphViz visualization MCP handlers
// ABOUTME: Provides generate_graph tool for agents
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/store"
	"github.com/harperreed/crmdesk/viz"
)

type VizHandlers struct {
	cache *store.Cache
}

func NewVizHandlers(cache *store.Cache) *VizHandlers {
	return &VizHandlers{cache: cache}
}

type GenerateGraphInput struct {
	Type     string `json:"type" jsonschema:"Graph type: funnel, pipeline, or account"`
	EntityID string `json:"entity_id,omitempty" jsonschema:"Client ID (required for account)"`
}

type GenerateGraphOutput struct {
	GraphType string `json:"graph_type"`
	DOTSource string `json:"dot_source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *VizHandlers) GenerateGraph(ctx context.Context, request *mcp.CallToolRequest, input GenerateGraphInput) (*mcp.CallToolResult, GenerateGraphOutput, error) {
	if input.Type == "" {
		return nil, GenerateGraphOutput{}, fmt.Errorf("type is required")
	}

	generator := viz.NewGraphGenerator(feed.SnapshotOf(h.cache))
	var dot string
	var err error

	switch input.Type {
	case "funnel":
		dot, err = generator.GenerateFunnelGraph(ctx)
	case "pipeline":
		dot, err = generator.GeneratePipelineGraph(ctx)
	case "account":
		if input.EntityID == "" {
			return nil, GenerateGraphOutput{}, fmt.Errorf("entity_id required for account graph")
		}
		dot, err = generator.GenerateAccountGraph(ctx, input.EntityID)
	default:
		return nil, GenerateGraphOutput{}, fmt.Errorf("unknown graph type: %s (valid types: funnel, pipeline, account)", input.Type)
	}

	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	return nil, GenerateGraphOutput{
		GraphType: input.Type,
		DOTSource: dot,
		NodeCount: strings.Count(dot, "[label="),
		EdgeCount: strings.Count(dot, "->"),
	}, nil
}
