// ABOUTME: MCP prompt handlers for reusable CRM workflow templates
// ABOUTME: Provides lead-review and feed-digest prompts built from cached data
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/store"
)

type PromptHandlers struct {
	cache *store.Cache
	opts  feed.Options
}

func NewPromptHandlers(cache *store.Cache, opts feed.Options) *PromptHandlers {
	return &PromptHandlers{cache: cache, opts: opts}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "lead-review":
		return h.leadReview(request.Params.Arguments)
	case "feed-digest":
		return h.feedDigest()
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: text},
			},
		},
	}
}

func (h *PromptHandlers) leadReview(args map[string]string) (*mcp.GetPromptResult, error) {
	leadID, ok := args["lead_id"]
	if !ok || leadID == "" {
		return nil, fmt.Errorf("lead_id is required")
	}
	lead, found := h.cache.Leads.Find(leadID)
	if !found {
		return nil, fmt.Errorf("lead %s not found", leadID)
	}

	var b strings.Builder
	b.WriteString("Review this lead and recommend whether to qualify, convert, or mark it lost:\n\n")
	b.WriteString(fmt.Sprintf("Name: %s\n", lead.Name))
	if lead.Company != "" {
		b.WriteString(fmt.Sprintf("Company: %s\n", lead.Company))
	}
	if lead.Source != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", lead.Source))
	}
	b.WriteString(fmt.Sprintf("Status: %s\nScore: %d\nValue: %s\n", lead.Status, lead.Score, feed.FormatMoney(lead.Value)))

	var history []string
	for _, a := range h.cache.Activities.Items() {
		if a.LeadID != nil && *a.LeadID == lead.ID {
			history = append(history, fmt.Sprintf("- %s [%s] %s", a.CreatedAt.Format("2006-01-02"), a.Type, a.Title))
		}
	}
	if len(history) > 0 {
		b.WriteString("\nActivity:\n")
		b.WriteString(strings.Join(history, "\n"))
		b.WriteString("\n")
	}
	if lead.Notes != "" {
		b.WriteString(fmt.Sprintf("\nNotes: %s\n", lead.Notes))
	}

	return userPrompt(fmt.Sprintf("Review of lead: %s", lead.Name), b.String()), nil
}

func (h *PromptHandlers) feedDigest() (*mcp.GetPromptResult, error) {
	f := feed.Build(feed.SnapshotOf(h.cache), h.opts)

	var b strings.Builder
	b.WriteString("Summarize recent CRM activity for a sales standup. Highlight wins, risks, and overdue work.\n\n")
	b.WriteString(fmt.Sprintf("Today: %d items, %d tasks completed, %d new leads, %d deals closed, %s in play.\n\n",
		f.Stats.Today, f.Stats.TasksCompleted, f.Stats.NewLeads, f.Stats.DealsClosed, feed.FormatMoney(f.Stats.TotalValue)))
	for _, it := range f.Items {
		b.WriteString(fmt.Sprintf("- %s %s %s", it.Timestamp.Format("Jan 2 15:04"), it.Kind.Style().Icon, it.Title))
		if it.Description != "" {
			b.WriteString(" · " + it.Description)
		}
		b.WriteString("\n")
	}

	return userPrompt("Digest of the activity feed", b.String()), nil
}
