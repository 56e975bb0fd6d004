// ABOUTME: Tests for the CLI commands
// ABOUTME: Commands run against an in-memory store and print into a buffer
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/crmdesk/db"
	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/store"
	"github.com/harperreed/crmdesk/workflow"
)

func setupApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	logger, _ := test.NewNullLogger()
	cache := store.NewCache(db.NewGateway(database), logger)
	require.NoError(t, cache.Refresh(context.Background()))

	var out bytes.Buffer
	return &App{
		Cache:  cache,
		Engine: workflow.NewEngine(cache, workflow.Options{Logger: logger}),
		Log:    logger,
		Out:    &out,
	}, &out
}

var idPattern = regexp.MustCompile(`\(ID: ([^,)]+)`)

func createdID(t *testing.T, out *bytes.Buffer) string {
	t.Helper()
	m := idPattern.FindStringSubmatch(out.String())
	require.NotNil(t, m, "no ID in %q", out.String())
	out.Reset()
	return m[1]
}

func TestClientCommands(t *testing.T) {
	app, out := setupApp(t)
	ctx := context.Background()

	require.NoError(t, AddClientCommand(ctx, app, []string{"--name", "Acme", "--company", "Acme Inc", "--value", "150000", "--tags", "vip, west"}))
	assert.Contains(t, out.String(), "✓ Client created: Acme")
	id := createdID(t, out)

	assert.ErrorContains(t, AddClientCommand(ctx, app, []string{"--email", "x@y.z"}), "--name is required")

	require.NoError(t, ListClientsCommand(ctx, app, nil))
	assert.Contains(t, out.String(), "Acme Inc")
	assert.Contains(t, out.String(), "$150,000")
	assert.Contains(t, out.String(), "Found 1 client(s)")
	out.Reset()

	require.NoError(t, UpdateClientCommand(ctx, app, []string{"--status", "customer", id}))
	assert.Contains(t, out.String(), "✓ Client updated")
	out.Reset()

	client, ok := app.Cache.Clients.Find(id)
	require.True(t, ok)
	assert.Equal(t, models.ClientStatusCustomer, client.Status)
	assert.Equal(t, []string{"vip", "west"}, client.Tags)

	require.NoError(t, DeleteCommand(ctx, app, []string{"clients", id}))
	require.NoError(t, ListClientsCommand(ctx, app, nil))
	assert.Contains(t, out.String(), "No clients found")

	assert.Error(t, DeleteCommand(ctx, app, []string{"documents", id}))
	assert.Error(t, DeleteCommand(ctx, app, []string{"clients"}))
}

func TestLeadCommands(t *testing.T) {
	app, out := setupApp(t)
	ctx := context.Background()

	require.NoError(t, AddLeadCommand(ctx, app, []string{"--name", "Ada", "--company", "Engines", "--source", "referral"}))
	ada := createdID(t, out)
	require.NoError(t, AddLeadCommand(ctx, app, []string{"--name", "Bob"}))
	bob := createdID(t, out)

	require.NoError(t, QualifyLeadCommand(ctx, app, []string{"--score", "85", "--notes", "ready to buy", ada}))
	assert.Contains(t, out.String(), "✓ Lead qualified: Ada (status: qualified)")
	out.Reset()

	assert.ErrorContains(t, QualifyLeadCommand(ctx, app, []string{"--score", "120", ada}), "between 0 and 100")
	assert.ErrorContains(t, QualifyLeadCommand(ctx, app, nil), "lead ID required")

	require.NoError(t, ConvertLeadCommand(ctx, app, []string{ada}))
	assert.Contains(t, out.String(), "✓ Lead converted")
	assert.Contains(t, out.String(), "Client: Ada")
	out.Reset()

	err := ConvertLeadCommand(ctx, app, []string{ada})
	assert.ErrorIs(t, err, workflow.ErrAlreadyConverted)

	assert.ErrorContains(t, LoseLeadCommand(ctx, app, []string{bob}), "--reason is required")
	require.NoError(t, LoseLeadCommand(ctx, app, []string{"--reason", "no budget", bob}))
	assert.Contains(t, out.String(), "✓ Lead marked lost")
	out.Reset()

	require.NoError(t, ListLeadsCommand(ctx, app, []string{"--status", "lost"}))
	assert.Contains(t, out.String(), "Bob")
	assert.NotContains(t, out.String(), "Ada")
	out.Reset()

	require.NoError(t, ReconcileCommand(ctx, app, nil))
	assert.Contains(t, out.String(), "Nothing to reconcile")
	assert.ErrorIs(t, ReconcileCommand(ctx, app, []string{"--resolve", "missing"}), workflow.ErrRunNotFound)
}

func TestOpportunityAndTaskCommands(t *testing.T) {
	app, out := setupApp(t)
	ctx := context.Background()

	require.NoError(t, AddClientCommand(ctx, app, []string{"--name", "Acme"}))
	client := createdID(t, out)

	require.NoError(t, AddOpportunityCommand(ctx, app, []string{"--title", "Renewal", "--client", client, "--value", "42000", "--close-date", "2026-09-30"}))
	opp := createdID(t, out)

	require.NoError(t, UpdateOpportunityCommand(ctx, app, []string{"--stage", "negotiation", "--probability", "70", opp}))
	out.Reset()

	require.NoError(t, ListOpportunitiesCommand(ctx, app, []string{"--open"}))
	assert.Contains(t, out.String(), "negotiation")
	assert.Contains(t, out.String(), "70%")
	assert.Contains(t, out.String(), "2026-09-30")
	out.Reset()

	require.NoError(t, AddTaskCommand(ctx, app, []string{"--title", "Send contract", "--due", "2026-07-01", "--opportunity", opp}))
	task := createdID(t, out)

	require.NoError(t, ListTasksCommand(ctx, app, nil))
	assert.Contains(t, out.String(), "Send contract")
	out.Reset()

	require.NoError(t, CompleteTaskCommand(ctx, app, []string{task}))
	assert.Contains(t, out.String(), "✓ Task completed: Send contract")
	out.Reset()

	require.NoError(t, ListTasksCommand(ctx, app, nil))
	assert.Contains(t, out.String(), "No tasks found")
	out.Reset()

	require.NoError(t, LogActivityCommand(ctx, app, []string{"--type", "call", "--title", "Pricing call", "--client", client}))
	assert.Contains(t, out.String(), "✓ Logged call: Pricing call")
	out.Reset()

	assert.Error(t, LogActivityCommand(ctx, app, []string{"--type", "fax", "--title", "x"}))
}

func TestFeedCommand(t *testing.T) {
	app, out := setupApp(t)
	ctx := context.Background()

	require.NoError(t, AddLeadCommand(ctx, app, []string{"--name", "Ada", "--value", "300"}))
	out.Reset()
	require.NoError(t, LogActivityCommand(ctx, app, []string{"--type", "meeting", "--title", "Kickoff"}))
	out.Reset()

	require.NoError(t, FeedCommand(ctx, app, nil))
	text := out.String()
	assert.Contains(t, text, "ACTIVITY FEED")
	assert.Contains(t, text, "1 new leads")
	assert.Contains(t, text, "👥 Kickoff")
	assert.Contains(t, text, "🌱 New lead: Ada")
	out.Reset()

	require.NoError(t, FeedCommand(ctx, app, []string{"--json", "--type", "lead_created"}))
	var f feed.Feed
	require.NoError(t, json.Unmarshal(out.Bytes(), &f))
	require.Len(t, f.Items, 1)
	assert.Equal(t, feed.KindLeadCreated, f.Items[0].Kind)

	assert.Error(t, FeedCommand(ctx, app, []string{"--type", "bogus"}))
}

func TestRenderFeedEmpty(t *testing.T) {
	var out bytes.Buffer
	RenderFeed(&out, feed.Feed{}, false, time.Now())
	assert.Contains(t, out.String(), "No activity yet")
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "  just now", relativeTime(now, now))
	assert.Equal(t, "    5m ago", relativeTime(now.Add(-5*time.Minute), now))
	assert.Equal(t, "    3h ago", relativeTime(now.Add(-3*time.Hour), now))
	assert.Equal(t, "    2d ago", relativeTime(now.Add(-49*time.Hour), now))
	assert.Equal(t, "     Jan 2", relativeTime(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), now))
}

func TestSeedAndDashboard(t *testing.T) {
	app, out := setupApp(t)
	ctx := context.Background()

	require.NoError(t, SeedCommand(ctx, app, []string{"--seed", "5", "--clients", "2", "--leads", "3", "--opportunities", "2", "--tasks", "2", "--activities", "2", "--profiles", "1"}))
	assert.Contains(t, out.String(), "✓ Seeded 2 clients, 3 leads")
	out.Reset()

	assert.Len(t, app.Cache.Leads.Items(), 3)

	require.NoError(t, VizDashboardCommand(ctx, app, nil))
	assert.Contains(t, out.String(), "2 clients")
	out.Reset()

	require.NoError(t, VizGraphCommand(ctx, app, []string{"funnel"}))
	assert.Contains(t, out.String(), "Lead Funnel")

	assert.Error(t, VizGraphCommand(ctx, app, []string{"account"}))
	assert.Error(t, VizGraphCommand(ctx, app, []string{"org"}))
}
