// ABOUTME: Tests for the charm KV gateway
// ABOUTME: Runs against a badger-backed test client, no charm server needed

package charm

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/charmbracelet/charm/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/harperreed/crmdesk/config"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/store"
)

func TestGatewayRoundTrip(t *testing.T) {
	gw := NewGateway(NewTestClient(t))
	ctx := context.Background()

	row, err := gw.Create(ctx, store.TableClients, store.Row{
		"name":   "Acme",
		"status": models.ClientStatusCustomer,
		"tags":   []string{"vip"},
		"value":  125000.5,
	})
	require.NoError(t, err)
	require.NotEmpty(t, row.ID())

	found, err := gw.Get(ctx, store.TableClients, row.ID())
	require.NoError(t, err)

	client, err := store.Decode[models.Client](found)
	require.NoError(t, err)
	assert.Equal(t, "Acme", client.Name)
	assert.Equal(t, []string{"vip"}, client.Tags)
	assert.Equal(t, 125000.5, client.Value)
	assert.False(t, client.CreatedAt.IsZero())
}

func TestGatewayListScopedAndOrdered(t *testing.T) {
	gw := NewGateway(NewTestClient(t))
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	gw.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := gw.Create(ctx, store.TableLeads, store.Row{"name": name})
		require.NoError(t, err)
	}
	_, err := gw.Create(ctx, store.TableClients, store.Row{"name": "not a lead"})
	require.NoError(t, err)

	rows, err := gw.List(ctx, store.TableLeads)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "c", rows[0]["name"])
	assert.Equal(t, "a", rows[2]["name"])
}

func TestGatewayUpdateAndDelete(t *testing.T) {
	gw := NewGateway(NewTestClient(t))
	ctx := context.Background()

	row, err := gw.Create(ctx, store.TableTasks, store.Row{"title": "Call", "status": models.TaskStatusPending})
	require.NoError(t, err)

	updated, err := gw.Update(ctx, store.TableTasks, row.ID(), store.Row{"status": models.TaskStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, "Call", updated["title"])
	assert.Equal(t, models.TaskStatusCompleted, updated["status"])
	assert.Equal(t, row["created_at"], updated["created_at"])

	require.NoError(t, gw.Delete(ctx, store.TableTasks, row.ID()))

	_, err = gw.Get(ctx, store.TableTasks, row.ID())
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.True(t, errors.Is(gw.Delete(ctx, store.TableTasks, row.ID()), store.ErrNotFound))

	_, err = gw.Update(ctx, store.TableTasks, "missing", store.Row{})
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestClientMissingKeyIsCharmError(t *testing.T) {
	c := NewTestClient(t)

	_, err := c.Get([]byte("leads/nope"))
	assert.True(t, errors.Is(err, kv.ErrMissingKey))
}

func TestGatewayUnknownTable(t *testing.T) {
	gw := NewGateway(NewTestClient(t))
	_, err := gw.List(context.Background(), store.Table("documents"))
	assert.True(t, errors.Is(err, store.ErrUnknownTable))
}

func TestClientKeysWithPrefix(t *testing.T) {
	c := NewTestClient(t)
	require.NoError(t, c.Set([]byte("leads/1"), []byte("{}")))
	require.NoError(t, c.Set([]byte("leads/2"), []byte("{}")))
	require.NoError(t, c.Set([]byte("clients/1"), []byte("{}")))

	keys, err := c.KeysWithPrefix([]byte("leads/"))
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	id, err := c.ID()
	require.NoError(t, err)
	assert.Equal(t, "local", id)

	require.NoError(t, c.Reset())
	keys, err = c.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(appconfig.CharmConfig{})
	assert.Equal(t, DefaultCharmHost, cfg.Host)
	assert.False(t, cfg.AutoSync)

	cfg = ConfigFrom(appconfig.CharmConfig{Host: "charm.example.com", AutoSync: true})
	assert.Equal(t, "charm.example.com", cfg.Host)
	assert.True(t, cfg.AutoSync)
}

func TestSyncCommands(t *testing.T) {
	c := NewTestClient(t)
	gw := NewGateway(c)
	_, err := gw.Create(context.Background(), store.TableLeads, store.Row{"name": "Ada"})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, SyncStatusCommand(c, &out, nil))
	assert.Contains(t, out.String(), "leads:")
	assert.Contains(t, out.String(), "Connected")

	out.Reset()
	require.NoError(t, SyncNowCommand(c, &out, nil))
	assert.Contains(t, out.String(), "Synced")

	out.Reset()
	require.NoError(t, SyncWipeCommand(c, &out, nil))
	assert.Contains(t, out.String(), "--confirm")
	keys, err := c.Keys()
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	require.NoError(t, SyncWipeCommand(c, &out, []string{"--confirm"}))
	keys, err = c.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}
