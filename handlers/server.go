// ABOUTME: Builds the MCP server with every CRM tool, resource, and prompt registered
// ABOUTME: Tools write through the cache so the feed stays current between calls
package handlers

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/store"
	"github.com/harperreed/crmdesk/workflow"
)

// Deps is what the tool handlers run against.
type Deps struct {
	Cache       *store.Cache
	Engine      *workflow.Engine
	FeedOptions feed.Options
	Version     string
}

func NewServer(d Deps) *mcp.Server {
	version := d.Version
	if version == "" {
		version = "dev"
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "crmdesk",
		Version: version,
	}, nil)

	clientHandlers := NewClientHandlers(d.Cache)
	leadHandlers := NewLeadHandlers(d.Cache, d.Engine)
	opportunityHandlers := NewOpportunityHandlers(d.Cache)
	taskHandlers := NewTaskHandlers(d.Cache)
	feedHandlers := NewFeedHandlers(d.Cache, d.FeedOptions)
	vizHandlers := NewVizHandlers(d.Cache)
	resourceHandlers := NewResourceHandlers(d.Cache, d.Engine, d.FeedOptions)
	promptHandlers := NewPromptHandlers(d.Cache, d.FeedOptions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_client",
		Description: "Add a new client to the CRM",
	}, clientHandlers.AddClient)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_clients",
		Description: "Search clients by name, email, or company, optionally filtered by status",
	}, clientHandlers.FindClients)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_client",
		Description: "Update an existing client's information",
	}, clientHandlers.UpdateClient)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_lead",
		Description: "Capture a new lead with status new",
	}, leadHandlers.AddLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_leads",
		Description: "Search leads by name, email, or company, optionally filtered by status",
	}, leadHandlers.FindLeads)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "qualify_lead",
		Description: "Mark a lead qualified with a score and notes, and log an audit note",
	}, leadHandlers.QualifyLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "convert_lead",
		Description: "Convert a lead into a client, mark the lead converted, and log an audit note linking both",
	}, leadHandlers.ConvertLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "mark_lead_lost",
		Description: "Mark a lead lost and record the reason in its notes",
	}, leadHandlers.MarkLeadLost)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pending_reconciliations",
		Description: "List lead workflow runs that were only partially applied",
	}, leadHandlers.PendingReconciliations)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_reconciliation",
		Description: "Clear a partially applied workflow run after fixing it by hand",
	}, leadHandlers.ResolveReconciliation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_opportunity",
		Description: "Create a sales opportunity for an existing client",
	}, opportunityHandlers.AddOpportunity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_opportunities",
		Description: "Search opportunities by client, stage, or text",
	}, opportunityHandlers.FindOpportunities)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_opportunity",
		Description: "Update an opportunity's stage, value, probability, or close date",
	}, opportunityHandlers.UpdateOpportunity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_task",
		Description: "Create a task, optionally attached to a client, lead, or opportunity",
	}, taskHandlers.AddTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "complete_task",
		Description: "Mark a task completed",
	}, taskHandlers.CompleteTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_tasks",
		Description: "List tasks by status or priority, soonest due first",
	}, taskHandlers.FindTasks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "log_activity",
		Description: "Log a call, email, meeting, task, or note",
	}, taskHandlers.LogActivity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "activity_feed",
		Description: "Unified, newest-first feed of CRM activity with summary stats",
	}, feedHandlers.ActivityFeed)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_graph",
		Description: "Render the lead funnel, opportunity pipeline, or a client account as GraphViz DOT",
	}, vizHandlers.GenerateGraph)

	for _, uri := range ResourceURIs {
		server.AddResource(&mcp.Resource{
			URI:      uri,
			Name:     uri[len("crm://"):],
			MIMEType: "application/json",
		}, resourceHandlers.ReadResource)
	}

	server.AddPrompt(&mcp.Prompt{
		Name:        "lead-review",
		Description: "Recommend the next workflow step for a lead",
		Arguments: []*mcp.PromptArgument{
			{Name: "lead_id", Description: "Lead ID", Required: true},
		},
	}, promptHandlers.GetPrompt)

	server.AddPrompt(&mcp.Prompt{
		Name:        "feed-digest",
		Description: "Standup summary of the activity feed",
	}, promptHandlers.GetPrompt)

	return server
}
