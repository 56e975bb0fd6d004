// ABOUTME: Tests for the JSON HTTP API
// ABOUTME: Exercises CRUD, lead transitions, feed filtering, metrics, and scheduled refresh
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/crmdesk/db"
	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/metrics"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/store"
	"github.com/harperreed/crmdesk/workflow"
)

func setupServer(t *testing.T) (*Server, *store.Cache) {
	t.Helper()
	s, cache, _ := setupServerWithGateway(t)
	return s, cache
}

// setupServerWithGateway also returns the backend so tests can write around the cache.
func setupServerWithGateway(t *testing.T) (*Server, *store.Cache, store.Gateway) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	logger, _ := test.NewNullLogger()
	gw := db.NewGateway(database)
	cache := store.NewCache(gw, logger)
	require.NoError(t, cache.Refresh(context.Background()))

	m := metrics.New()
	s, err := NewServer(Deps{
		Cache:           cache,
		Engine:          workflow.NewEngine(cache, workflow.Options{Logger: logger, Metrics: m}),
		Metrics:         m,
		Log:             logger,
		RefreshSchedule: "@every 1m",
	})
	require.NoError(t, err)
	return s, cache, gw
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createLead(t *testing.T, s *Server, name string) store.Row {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/leads", map[string]interface{}{
		"name":    name,
		"company": name + " Corp",
		"value":   5000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[store.Row](t, rec)
}

func TestNewServerRejectsBadSchedule(t *testing.T) {
	_, err := NewServer(Deps{RefreshSchedule: "every now and then"})
	assert.Error(t, err)
}

func TestCreateAppliesDefaults(t *testing.T) {
	s, _ := setupServer(t)

	row := createLead(t, s, "Ada")
	assert.NotEmpty(t, row.ID())
	assert.Equal(t, models.LeadStatusNew, row["status"])

	rec := do(t, s, http.MethodPost, "/api/tasks", map[string]interface{}{"title": "Call back"})
	require.Equal(t, http.StatusCreated, rec.Code)
	task := decode[store.Row](t, rec)
	assert.Equal(t, models.PriorityMedium, task["priority"])
	assert.Equal(t, models.TaskStatusPending, task["status"])
}

func TestCreateValidates(t *testing.T) {
	s, _ := setupServer(t)

	rec := do(t, s, http.MethodPost, "/api/leads", map[string]interface{}{"status": "warm"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "name is required")

	rec = do(t, s, http.MethodPost, "/api/documents", map[string]interface{}{"name": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListGetUpdateDelete(t *testing.T) {
	s, _ := setupServer(t)
	lead := createLead(t, s, "Ada")
	path := "/api/leads/" + lead.ID()

	rec := do(t, s, http.MethodGet, "/api/leads", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]store.Row](t, rec), 1)

	rec = do(t, s, http.MethodPatch, path, map[string]interface{}{"status": models.LeadStatusContacted})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.LeadStatusContacted, decode[store.Row](t, rec)["status"])

	rec = do(t, s, http.MethodPatch, path, map[string]interface{}{"score": 500})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ada", decode[store.Row](t, rec)["name"])

	rec = do(t, s, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatchLeadStatusWarnsOutsideFunnel(t *testing.T) {
	s, _ := setupServer(t)
	lead := createLead(t, s, "Ada")
	path := "/api/leads/" + lead.ID()

	rec := do(t, s, http.MethodPatch, path, map[string]interface{}{"status": models.LeadStatusContacted})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Warning"))

	rec = do(t, s, http.MethodPatch, path, map[string]interface{}{"notes": "no status change"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Warning"))

	rec = do(t, s, http.MethodPatch, path, map[string]interface{}{"status": models.LeadStatusConverted})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Warning"), "from contacted to converted outside the funnel")
	assert.Equal(t, models.LeadStatusConverted, decode[store.Row](t, rec)["status"])
}

func TestEmptyListIsArray(t *testing.T) {
	s, _ := setupServer(t)

	rec := do(t, s, http.MethodGet, "/api/clients", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestQualifyLead(t *testing.T) {
	s, cache := setupServer(t)
	lead := createLead(t, s, "Ada")

	rec := do(t, s, http.MethodPost, "/api/leads/"+lead.ID()+"/qualify", map[string]interface{}{"score": 120})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/leads/"+lead.ID()+"/qualify", map[string]interface{}{"score": 80, "notes": "ready"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode[workflow.Outcome](t, rec)
	assert.True(t, out.Success)
	require.NotNil(t, out.Audit)
	assert.Equal(t, workflow.TitleQualified, out.Audit.Title)

	updated, ok := cache.Leads.Find(lead.ID())
	require.True(t, ok)
	assert.Equal(t, models.LeadStatusQualified, updated.Status)
	assert.Equal(t, 80, updated.Score)

	rec = do(t, s, http.MethodPost, "/api/leads/missing/qualify", map[string]interface{}{"score": 10})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConvertLeadTwice(t *testing.T) {
	s, cache := setupServer(t)
	lead := createLead(t, s, "Ada")

	rec := do(t, s, http.MethodPost, "/api/leads/"+lead.ID()+"/convert", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[workflow.Outcome](t, rec)
	require.NotNil(t, out.Client)
	assert.Equal(t, "Ada", out.Client.Name)
	assert.Contains(t, out.Client.Tags, models.TagConvertedLead)

	rec = do(t, s, http.MethodPost, "/api/leads/"+lead.ID()+"/convert", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, cache.Clients.Items(), 1)
}

func TestMarkLost(t *testing.T) {
	s, cache := setupServer(t)
	lead := createLead(t, s, "Ada")

	rec := do(t, s, http.MethodPost, "/api/leads/"+lead.ID()+"/lost", map[string]interface{}{"reason": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/leads/"+lead.ID()+"/lost", map[string]interface{}{"reason": "budget"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated, _ := cache.Leads.Find(lead.ID())
	assert.Equal(t, models.LeadStatusLost, updated.Status)
}

func TestFeedEndpoint(t *testing.T) {
	s, _ := setupServer(t)
	createLead(t, s, "Ada")
	rec := do(t, s, http.MethodPost, "/api/clients", map[string]interface{}{"name": "Acme", "value": 250000})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/feed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	f := decode[feed.Feed](t, rec)
	assert.Len(t, f.Items, 3)
	assert.Equal(t, 1, f.Stats.NewLeads)

	rec = do(t, s, http.MethodGet, "/api/feed?type=high_value_client", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	f = decode[feed.Feed](t, rec)
	require.Len(t, f.Items, 1)
	assert.Equal(t, feed.KindHighValueClient, f.Items[0].Kind)

	rec = do(t, s, http.MethodGet, "/api/feed?limit=1", nil)
	assert.Len(t, decode[feed.Feed](t, rec).Items, 1)

	rec = do(t, s, http.MethodGet, "/api/feed?type=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/feed?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReconciliationsEmpty(t *testing.T) {
	s, _ := setupServer(t)

	rec := do(t, s, http.MethodGet, "/api/reconciliations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]workflow.Run](t, rec))

	rec = do(t, s, http.MethodPost, "/api/reconciliations/nope/resolve", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboardEndpoint(t *testing.T) {
	s, _ := setupServer(t)
	createLead(t, s, "Ada")

	rec := do(t, s, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"new"`)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := setupServer(t)
	createLead(t, s, "Ada")

	rec := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestScheduledRefreshPicksUpBackendWrites(t *testing.T) {
	s, cache, gw := setupServerWithGateway(t)

	_, err := gw.Create(context.Background(), store.TableClients, store.Row{
		"name":   "Written elsewhere",
		"status": models.ClientStatusCustomer,
	})
	require.NoError(t, err)
	assert.Empty(t, cache.Clients.Items())

	s.refresh()
	assert.Len(t, cache.Clients.Items(), 1)
}
