// ABOUTME: Tests for the fake data generators and Seed
// ABOUTME: Generated records must validate and land in the store
package fixtures

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/crmdesk/db"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/store"
)

func TestGeneratedEntitiesValidate(t *testing.T) {
	g := New(7)
	ref := models.Reference{Type: models.RelatedLead, ID: "lead-1"}

	for i := 0; i < 25; i++ {
		assert.NoError(t, models.Validate(g.Client()))
		assert.NoError(t, models.Validate(g.Lead()))
		assert.NoError(t, models.Validate(g.Opportunity("client-1")))
		assert.NoError(t, models.Validate(g.Task(ref)))
		assert.NoError(t, models.Validate(g.Activity(ref)))
		assert.NoError(t, models.Validate(g.Profile()))
	}
}

func TestSameSeedSameData(t *testing.T) {
	a, b := New(42), New(42)
	assert.Equal(t, a.Lead().Name, b.Lead().Name)
	assert.Equal(t, a.Client().Email, b.Client().Email)
}

func TestTaskReference(t *testing.T) {
	g := New(1)

	task := g.Task(models.Reference{Type: models.RelatedOpportunity, ID: "opp-9"})
	ref, ok := task.Reference()
	require.True(t, ok)
	assert.Equal(t, models.RelatedOpportunity, ref.Type)
	assert.Nil(t, task.ClientID)
	assert.Nil(t, task.LeadID)

	_, ok = g.Task(models.Reference{}).Reference()
	assert.False(t, ok)
}

func TestSeed(t *testing.T) {
	database, err := db.OpenMemory()
	require.NoError(t, err)
	defer func() { _ = database.Close() }()

	gw := db.NewGateway(database)
	ctx := context.Background()
	want := Counts{Clients: 3, Leads: 4, Opportunities: 5, Tasks: 6, Activities: 7, Profiles: 2}

	got, err := New(3).Seed(ctx, gw, want)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	tables := map[store.Table]int{
		store.TableClients:       3,
		store.TableLeads:         4,
		store.TableOpportunities: 5,
		store.TableTasks:         6,
		store.TableActivities:    7,
		store.TableProfiles:      2,
	}
	for table, n := range tables {
		rows, err := gw.List(ctx, table)
		require.NoError(t, err)
		assert.Len(t, rows, n, table)
	}

	opps, err := gw.List(ctx, store.TableOpportunities)
	require.NoError(t, err)
	clients, err := gw.List(ctx, store.TableClients)
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, c := range clients {
		ids[c.ID()] = true
	}
	for _, o := range opps {
		assert.True(t, ids[o["client_id"].(string)])
	}
}

func TestSeedSkipsOpportunitiesWithoutClients(t *testing.T) {
	database, err := db.OpenMemory()
	require.NoError(t, err)
	defer func() { _ = database.Close() }()

	got, err := New(3).Seed(context.Background(), db.NewGateway(database), Counts{Opportunities: 4, Tasks: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Opportunities)
	assert.Equal(t, 2, got.Tasks)
}
