// ABOUTME: Tests for the SQLite entity gateway
// ABOUTME: Covers create/get/list/update/delete, partial merges, and sentinel errors
package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/store"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open test db: %v", err)
	}
	return database
}

func TestGatewayCreateAndGet(t *testing.T) {
	database := setupTestDB(t)
	defer func() { _ = database.Close() }()

	gw := NewGateway(database)
	ctx := context.Background()

	row, err := gw.Create(ctx, store.TableLeads, store.Row{
		"name":   "Ada Lovelace",
		"status": models.LeadStatusNew,
		"score":  42,
	})
	require.NoError(t, err)
	require.NotEmpty(t, row.ID())
	assert.False(t, row.CreatedAt().IsZero())
	assert.Equal(t, row["created_at"], row["updated_at"])

	found, err := gw.Get(ctx, store.TableLeads, row.ID())
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", found["name"])
	assert.Equal(t, float64(42), found["score"])

	lead, err := store.Decode[models.Lead](found)
	require.NoError(t, err)
	assert.Equal(t, 42, lead.Score)
}

func TestGatewayCreateKeepsCallerID(t *testing.T) {
	database := setupTestDB(t)
	defer func() { _ = database.Close() }()

	gw := NewGateway(database)
	row, err := gw.Create(context.Background(), store.TableProfiles, store.Row{"id": "user-1", "full_name": "Root"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", row.ID())
}

func TestGatewayListNewestFirst(t *testing.T) {
	database := setupTestDB(t)
	defer func() { _ = database.Close() }()

	gw := NewGateway(database)
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	gw.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	ctx := context.Background()
	for _, name := range []string{"first", "second", "third"} {
		_, err := gw.Create(ctx, store.TableClients, store.Row{"name": name})
		require.NoError(t, err)
	}

	rows, err := gw.List(ctx, store.TableClients)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "third", rows[0]["name"])
	assert.Equal(t, "first", rows[2]["name"])

	empty, err := gw.List(ctx, store.TableTasks)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGatewayUpdateMergesFields(t *testing.T) {
	database := setupTestDB(t)
	defer func() { _ = database.Close() }()

	gw := NewGateway(database)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gw.now = func() time.Time { return created }

	ctx := context.Background()
	row, err := gw.Create(ctx, store.TableLeads, store.Row{
		"name":   "Grace",
		"status": models.LeadStatusNew,
		"notes":  "met at conference",
	})
	require.NoError(t, err)

	gw.now = func() time.Time { return created.Add(time.Hour) }
	updated, err := gw.Update(ctx, store.TableLeads, row.ID(), store.Row{
		"status": models.LeadStatusQualified,
		"id":     "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, row.ID(), updated.ID())
	assert.Equal(t, "Grace", updated["name"])
	assert.Equal(t, "met at conference", updated["notes"])
	assert.Equal(t, models.LeadStatusQualified, updated["status"])
	assert.Equal(t, row["created_at"], updated["created_at"])
	assert.NotEqual(t, row["updated_at"], updated["updated_at"])

	found, err := gw.Get(ctx, store.TableLeads, row.ID())
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusQualified, found["status"])
}

func TestGatewayNotFound(t *testing.T) {
	database := setupTestDB(t)
	defer func() { _ = database.Close() }()

	gw := NewGateway(database)
	ctx := context.Background()

	_, err := gw.Get(ctx, store.TableLeads, "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = gw.Update(ctx, store.TableLeads, "missing", store.Row{"status": "lost"})
	assert.True(t, errors.Is(err, store.ErrNotFound))

	err = gw.Delete(ctx, store.TableLeads, "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestGatewayDelete(t *testing.T) {
	database := setupTestDB(t)
	defer func() { _ = database.Close() }()

	gw := NewGateway(database)
	ctx := context.Background()

	row, err := gw.Create(ctx, store.TableActivities, store.Row{"type": "note", "title": "hello"})
	require.NoError(t, err)

	require.NoError(t, gw.Delete(ctx, store.TableActivities, row.ID()))

	rows, err := gw.List(ctx, store.TableActivities)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestGatewayUnknownTable(t *testing.T) {
	database := setupTestDB(t)
	defer func() { _ = database.Close() }()

	gw := NewGateway(database)
	ctx := context.Background()

	_, err := gw.List(ctx, store.Table("users; DROP TABLE leads"))
	assert.True(t, errors.Is(err, store.ErrUnknownTable))

	_, err = gw.Create(ctx, store.Table("documents"), store.Row{})
	assert.True(t, errors.Is(err, store.ErrUnknownTable))
}
