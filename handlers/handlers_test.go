// ABOUTME: Tests for the MCP tool, resource, and prompt handlers
// ABOUTME: Runs against an in-memory SQLite gateway wrapped in the cache
package handlers

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/crmdesk/db"
	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/store"
	"github.com/harperreed/crmdesk/workflow"
)

type fixture struct {
	db     *sql.DB
	cache  *store.Cache
	engine *workflow.Engine
}

func setupTestDB(t *testing.T) *fixture {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	logger, _ := test.NewNullLogger()
	cache := store.NewCache(db.NewGateway(database), logger)
	require.NoError(t, cache.Refresh(context.Background()))

	return &fixture{
		db:     database,
		cache:  cache,
		engine: workflow.NewEngine(cache, workflow.Options{Logger: logger}),
	}
}

func addLead(t *testing.T, f *fixture, name string) LeadOutput {
	t.Helper()
	_, lead, err := NewLeadHandlers(f.cache, f.engine).AddLead(context.Background(), nil, AddLeadInput{
		Name:    name,
		Email:   strings.ToLower(name) + "@example.com",
		Company: name + " Corp",
		Source:  "referral",
		Value:   5000,
		Notes:   "met at conference",
	})
	require.NoError(t, err)
	return lead
}

func TestAddClientDefaultsAndValidation(t *testing.T) {
	f := setupTestDB(t)
	h := NewClientHandlers(f.cache)
	ctx := context.Background()

	_, client, err := h.AddClient(ctx, nil, AddClientInput{Name: "Acme", Email: "ops@acme.test", Value: 1200})
	require.NoError(t, err)
	assert.NotEmpty(t, client.ID)
	assert.Equal(t, models.ClientStatusProspect, client.Status)
	assert.NotEmpty(t, client.CreatedAt)

	_, _, err = h.AddClient(ctx, nil, AddClientInput{Email: "nobody@acme.test"})
	assert.ErrorContains(t, err, "name is required")

	_, _, err = h.AddClient(ctx, nil, AddClientInput{Name: "Bad", Email: "not-an-email"})
	assert.ErrorContains(t, err, "email must be a valid email")

	_, _, err = h.AddClient(ctx, nil, AddClientInput{Name: "Bad", Status: "vip"})
	assert.ErrorContains(t, err, "status must be one of")
}

func TestFindClients(t *testing.T) {
	f := setupTestDB(t)
	h := NewClientHandlers(f.cache)
	ctx := context.Background()

	for _, in := range []AddClientInput{
		{Name: "Acme", Company: "Acme Inc", Status: models.ClientStatusCustomer},
		{Name: "Globex", Company: "Globex", Status: models.ClientStatusProspect},
		{Name: "Initech", Company: "Initech", Status: models.ClientStatusCustomer},
	} {
		_, _, err := h.AddClient(ctx, nil, in)
		require.NoError(t, err)
	}

	_, out, err := h.FindClients(ctx, nil, FindClientsInput{Status: models.ClientStatusCustomer})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)

	_, out, err = h.FindClients(ctx, nil, FindClientsInput{Query: "glob"})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "Globex", out.Clients[0].Name)

	_, out, err = h.FindClients(ctx, nil, FindClientsInput{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Count)
}

func TestUpdateClient(t *testing.T) {
	f := setupTestDB(t)
	h := NewClientHandlers(f.cache)
	ctx := context.Background()

	_, client, err := h.AddClient(ctx, nil, AddClientInput{Name: "Acme", Notes: "keep me"})
	require.NoError(t, err)

	value := 99000.0
	_, updated, err := h.UpdateClient(ctx, nil, UpdateClientInput{ID: client.ID, Status: models.ClientStatusCustomer, Value: &value, LastContact: "2026-05-01"})
	require.NoError(t, err)
	assert.Equal(t, models.ClientStatusCustomer, updated.Status)
	assert.Equal(t, 99000.0, updated.Value)
	assert.Equal(t, "keep me", updated.Notes)
	require.NotNil(t, updated.LastContact)

	_, _, err = h.UpdateClient(ctx, nil, UpdateClientInput{ID: client.ID, Status: "vip"})
	assert.Error(t, err)

	_, _, err = h.UpdateClient(ctx, nil, UpdateClientInput{ID: client.ID})
	assert.ErrorContains(t, err, "no fields to update")

	_, _, err = h.UpdateClient(ctx, nil, UpdateClientInput{ID: "missing", Name: "x"})
	assert.ErrorContains(t, err, "not found")
}

func TestLeadWorkflowTools(t *testing.T) {
	f := setupTestDB(t)
	h := NewLeadHandlers(f.cache, f.engine)
	ctx := context.Background()

	lead := addLead(t, f, "Ada")
	assert.Equal(t, models.LeadStatusNew, lead.Status)

	_, q, err := h.QualifyLead(ctx, nil, QualifyLeadInput{LeadID: lead.ID, Score: 80, Notes: "budget confirmed"})
	require.NoError(t, err)
	assert.True(t, q.Success)
	assert.Equal(t, models.LeadStatusQualified, q.Lead.Status)
	require.NotNil(t, q.Audit)
	assert.Equal(t, workflow.TitleQualified, q.Audit.Title)

	_, _, err = h.QualifyLead(ctx, nil, QualifyLeadInput{LeadID: lead.ID, Score: 101})
	assert.ErrorContains(t, err, "between 0 and 100")

	_, c, err := h.ConvertLead(ctx, nil, ConvertLeadInput{LeadID: lead.ID})
	require.NoError(t, err)
	require.NotNil(t, c.Client)
	assert.Equal(t, "Ada", c.Client.Name)
	assert.Equal(t, models.ClientStatusCustomer, c.Client.Status)
	assert.Contains(t, c.Client.Tags, models.TagConvertedLead)
	assert.Equal(t, models.LeadStatusConverted, c.Lead.Status)
	require.NotNil(t, c.Audit.ClientID)
	assert.Equal(t, c.Client.ID, *c.Audit.ClientID)

	_, _, err = h.ConvertLead(ctx, nil, ConvertLeadInput{LeadID: lead.ID})
	assert.ErrorIs(t, err, workflow.ErrAlreadyConverted)

	other := addLead(t, f, "Bob")
	_, l, err := h.MarkLeadLost(ctx, nil, MarkLeadLostInput{LeadID: other.ID, Reason: "went with competitor"})
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusLost, l.Lead.Status)
	assert.Equal(t, "met at conference\n\nLost reason: went with competitor", l.Lead.Notes)

	_, _, err = h.MarkLeadLost(ctx, nil, MarkLeadLostInput{LeadID: other.ID})
	assert.ErrorContains(t, err, "reason is required")

	_, found, err := h.FindLeads(ctx, nil, FindLeadsInput{Status: models.LeadStatusLost})
	require.NoError(t, err)
	require.Equal(t, 1, found.Count)
	assert.Equal(t, "Bob", found.Leads[0].Name)

	_, pending, err := h.PendingReconciliations(ctx, nil, PendingReconciliationsInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, pending.Count)

	_, _, err = h.ResolveReconciliation(ctx, nil, ResolveReconciliationInput{RunID: "nope"})
	assert.ErrorIs(t, err, workflow.ErrRunNotFound)
}

func TestConvertLeadMissing(t *testing.T) {
	f := setupTestDB(t)
	_, _, err := NewLeadHandlers(f.cache, f.engine).ConvertLead(context.Background(), nil, ConvertLeadInput{LeadID: "missing"})
	assert.ErrorContains(t, err, "not found")
}

func TestOpportunityTools(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	h := NewOpportunityHandlers(f.cache)

	_, client, err := NewClientHandlers(f.cache).AddClient(ctx, nil, AddClientInput{Name: "Acme"})
	require.NoError(t, err)

	_, _, err = h.AddOpportunity(ctx, nil, AddOpportunityInput{Title: "Orphan", ClientID: "missing"})
	assert.ErrorContains(t, err, "not found")

	_, opp, err := h.AddOpportunity(ctx, nil, AddOpportunityInput{
		Title:             "Renewal",
		ClientID:          client.ID,
		Value:             250000,
		ExpectedCloseDate: "2026-09-30T00:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StageProspecting, opp.Stage)
	require.NotNil(t, opp.ExpectedCloseDate)

	_, _, err = h.AddOpportunity(ctx, nil, AddOpportunityInput{Title: "Bad", ClientID: client.ID, ExpectedCloseDate: "someday"})
	assert.ErrorContains(t, err, "invalid expected_close_date")

	_, won, err := h.UpdateOpportunity(ctx, nil, UpdateOpportunityInput{ID: opp.ID, Stage: models.StageClosedWon})
	require.NoError(t, err)
	assert.Equal(t, models.StageClosedWon, won.Stage)
	assert.Equal(t, 250000.0, won.Value)

	_, open, err := h.FindOpportunities(ctx, nil, FindOpportunitiesInput{OpenOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 0, open.Count)

	_, all, err := h.FindOpportunities(ctx, nil, FindOpportunitiesInput{ClientID: client.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, all.Count)
	assert.Equal(t, 250000.0, all.TotalValue)
}

func TestTaskAndActivityTools(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	h := NewTaskHandlers(f.cache)
	lead := addLead(t, f, "Ada")

	_, _, err := h.AddTask(ctx, nil, AddTaskInput{Title: "Both", ClientID: "c", LeadID: "l"})
	assert.ErrorContains(t, err, "only one of")

	_, later, err := h.AddTask(ctx, nil, AddTaskInput{Title: "Later", DueDate: "2026-12-01"})
	require.NoError(t, err)
	_, soon, err := h.AddTask(ctx, nil, AddTaskInput{Title: "Soon", DueDate: "2026-01-01", LeadID: lead.ID, Priority: models.PriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, soon.Status)
	assert.Equal(t, models.PriorityMedium, later.Priority)
	_, _, err = h.AddTask(ctx, nil, AddTaskInput{Title: "Whenever"})
	require.NoError(t, err)

	_, listed, err := h.FindTasks(ctx, nil, FindTasksInput{})
	require.NoError(t, err)
	require.Equal(t, 3, listed.Count)
	assert.Equal(t, []string{"Soon", "Later", "Whenever"}, []string{listed.Tasks[0].Title, listed.Tasks[1].Title, listed.Tasks[2].Title})

	_, done, err := h.CompleteTask(ctx, nil, CompleteTaskInput{ID: soon.ID})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, done.Status)

	_, open, err := h.FindTasks(ctx, nil, FindTasksInput{Open: true})
	require.NoError(t, err)
	assert.Equal(t, 2, open.Count)

	_, activity, err := h.LogActivity(ctx, nil, LogActivityInput{Type: models.ActivityCall, Title: "Intro call", LeadID: lead.ID})
	require.NoError(t, err)
	assert.True(t, activity.Completed)
	assert.Equal(t, lead.ID, *activity.LeadID)

	_, _, err = h.LogActivity(ctx, nil, LogActivityInput{Type: "fax", Title: "Old school"})
	assert.ErrorContains(t, err, "type must be one of")
}

func TestActivityFeedTool(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	lead := addLead(t, f, "Ada")

	_, _, err := NewTaskHandlers(f.cache).LogActivity(ctx, nil, LogActivityInput{Type: models.ActivityCall, Title: "Intro call", LeadID: lead.ID})
	require.NoError(t, err)

	h := NewFeedHandlers(f.cache, feed.Options{})

	_, out, err := h.ActivityFeed(ctx, nil, ActivityFeedInput{})
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "call", out.Items[0].Type)
	assert.Equal(t, "Ada", out.Items[0].RelatedTo)
	assert.Equal(t, 1, out.Stats.NewLeads)

	_, out, err = h.ActivityFeed(ctx, nil, ActivityFeedInput{Types: []string{"lead_created"}})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "New lead: Ada", out.Items[0].Title)

	_, _, err = h.ActivityFeed(ctx, nil, ActivityFeedInput{Types: []string{"bogus"}})
	assert.Error(t, err)

	_, _, err = h.ActivityFeed(ctx, nil, ActivityFeedInput{RelatedType: "task"})
	assert.ErrorContains(t, err, "invalid related_type")
}

func TestGenerateGraphTool(t *testing.T) {
	f := setupTestDB(t)
	addLead(t, f, "Ada")
	h := NewVizHandlers(f.cache)

	_, out, err := h.GenerateGraph(context.Background(), nil, GenerateGraphInput{Type: "funnel"})
	require.NoError(t, err)
	assert.Equal(t, "funnel", out.GraphType)
	assert.Positive(t, out.EdgeCount)

	_, _, err = h.GenerateGraph(context.Background(), nil, GenerateGraphInput{Type: "account"})
	assert.ErrorContains(t, err, "entity_id required")

	_, _, err = h.GenerateGraph(context.Background(), nil, GenerateGraphInput{Type: "org"})
	assert.ErrorContains(t, err, "unknown graph type")
}

func TestReadResource(t *testing.T) {
	f := setupTestDB(t)
	lead := addLead(t, f, "Ada")
	h := NewResourceHandlers(f.cache, f.engine, feed.Options{})
	ctx := context.Background()

	read := func(uri string) (*mcp.ReadResourceResult, error) {
		return h.ReadResource(ctx, &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}})
	}

	res, err := read("crm://leads")
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, "Ada")

	res, err = read("crm://leads/" + lead.ID)
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, lead.ID)

	res, err = read("crm://feed")
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, "lead_created")

	_, err = read("crm://leads/missing")
	assert.Error(t, err)
	_, err = read("http://leads")
	assert.Error(t, err)
	_, err = read("crm://documents")
	assert.Error(t, err)
}

func TestGetPrompt(t *testing.T) {
	f := setupTestDB(t)
	lead := addLead(t, f, "Ada")
	h := NewPromptHandlers(f.cache, feed.Options{})
	ctx := context.Background()

	get := func(name string, args map[string]string) (*mcp.GetPromptResult, error) {
		return h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: name, Arguments: args}})
	}

	res, err := get("lead-review", map[string]string{"lead_id": lead.ID})
	require.NoError(t, err)
	text := res.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "Name: Ada")
	assert.Contains(t, text, "Source: referral")

	_, err = get("lead-review", nil)
	assert.ErrorContains(t, err, "lead_id is required")

	res, err = get("feed-digest", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Content.(*mcp.TextContent).Text, "New lead: Ada")

	_, err = get("nope", nil)
	assert.Error(t, err)
}

func TestServerOverInMemoryTransport(t *testing.T) {
	f := setupTestDB(t)
	server := NewServer(Deps{Cache: f.cache, Engine: f.engine})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer func() { _ = serverSession.Close() }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"add_lead", "qualify_lead", "convert_lead", "mark_lead_lost", "activity_feed"} {
		assert.True(t, names[want], want)
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "add_lead",
		Arguments: map[string]interface{}{"name": "Grace"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	leads := f.cache.Leads.Items()
	require.Len(t, leads, 1)
	assert.Equal(t, "Grace", leads[0].Name)
}
