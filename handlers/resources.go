// ABOUTME: MCP resource handlers for exposing CRM data
// ABOUTME: Provides read-only access to clients, leads, opportunities, the feed, and pending reconciliations
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/store"
	"github.com/harperreed/crmdesk/workflow"
)

// ResourceURIs lists the fixed resources the server advertises.
var ResourceURIs = []string{
	"crm://clients",
	"crm://leads",
	"crm://opportunities",
	"crm://feed",
	"crm://reconciliations",
}

type ResourceHandlers struct {
	cache  *store.Cache
	engine *workflow.Engine
	opts   feed.Options
}

func NewResourceHandlers(cache *store.Cache, engine *workflow.Engine, opts feed.Options) *ResourceHandlers {
	return &ResourceHandlers{cache: cache, engine: engine, opts: opts}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, "crm://") {
		return nil, fmt.Errorf("invalid URI scheme: expected crm://")
	}

	parts := strings.Split(strings.TrimPrefix(uri, "crm://"), "/")

	var payload interface{}
	switch parts[0] {
	case "clients":
		if len(parts) > 1 {
			return h.readOne(uri, store.TableClients, parts[1])
		}
		payload = h.cache.Clients.Items()
	case "leads":
		if len(parts) > 1 {
			return h.readOne(uri, store.TableLeads, parts[1])
		}
		payload = h.cache.Leads.Items()
	case "opportunities":
		if len(parts) > 1 {
			return h.readOne(uri, store.TableOpportunities, parts[1])
		}
		payload = h.cache.Opportunities.Items()
	case "feed":
		payload = feed.Build(feed.SnapshotOf(h.cache), h.opts)
	case "reconciliations":
		payload = h.engine.Pending()
	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}

	return jsonResource(uri, payload)
}

func (h *ResourceHandlers) readOne(uri string, table store.Table, id string) (*mcp.ReadResourceResult, error) {
	var (
		v  interface{}
		ok bool
	)
	switch table {
	case store.TableClients:
		v, ok = h.cache.Clients.Find(id)
	case store.TableLeads:
		v, ok = h.cache.Leads.Find(id)
	case store.TableOpportunities:
		v, ok = h.cache.Opportunities.Find(id)
	}
	if !ok {
		return nil, fmt.Errorf("%s %s not found", table, id)
	}
	return jsonResource(uri, v)
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
