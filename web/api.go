package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/store"
	"github.com/harperreed/crmdesk/viz"
	"github.com/harperreed/crmdesk/workflow"
)

var errInvalid = errors.New("invalid request")

// defaults fill fields a create request may omit.
var defaults = map[store.Table]store.Row{
	store.TableClients:       {"status": models.ClientStatusProspect},
	store.TableLeads:         {"status": models.LeadStatusNew},
	store.TableOpportunities: {"stage": models.StageProspecting},
	store.TableTasks:         {"priority": models.PriorityMedium, "status": models.TaskStatusPending},
	store.TableActivities:    {"type": models.ActivityNote, "completed": true},
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalid):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrUnknownTable), errors.Is(err, workflow.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrAlreadyConverted), errors.Is(err, workflow.ErrNeedsReconciliation):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errInvalid, err)
	}
	return nil
}

func validateAs[T any](row store.Row) error {
	v, err := store.Decode[T](row)
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalid, err)
	}
	if err := models.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", errInvalid, err)
	}
	return nil
}

// validateRow checks a complete record against its table's model.
func validateRow(table store.Table, row store.Row) error {
	switch table {
	case store.TableClients:
		return validateAs[models.Client](row)
	case store.TableLeads:
		return validateAs[models.Lead](row)
	case store.TableOpportunities:
		return validateAs[models.Opportunity](row)
	case store.TableTasks:
		return validateAs[models.Task](row)
	case store.TableActivities:
		return validateAs[models.Activity](row)
	case store.TableProfiles:
		return validateAs[models.Profile](row)
	}
	return fmt.Errorf("%w: %s", store.ErrUnknownTable, table)
}

// funnelWarning describes a lead status edit that leaves the usual funnel order.
func funnelWarning(current, fields store.Row) string {
	from, _ := current["status"].(string)
	to, ok := fields["status"].(string)
	if !ok || to == from || workflow.CanTransition(from, to) {
		return ""
	}
	return fmt.Sprintf("lead status moved from %s to %s outside the funnel", from, to)
}

func tableParam(r *http.Request) (store.Table, error) {
	return store.ParseTable(r.PathValue("table"))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rows, err := s.cache.List(r.Context(), table)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if rows == nil {
		rows = []store.Row{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	row, err := s.cache.Get(r.Context(), table, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var fields store.Row
	if err := decodeBody(r, &fields); err != nil {
		s.writeError(w, err)
		return
	}
	fields = defaults[table].Merge(fields)

	if err := validateRow(table, fields); err != nil {
		s.writeError(w, err)
		return
	}

	row, err := s.cache.Create(r.Context(), table, fields)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id := r.PathValue("id")

	var fields store.Row
	if err := decodeBody(r, &fields); err != nil {
		s.writeError(w, err)
		return
	}
	if len(fields) == 0 {
		s.writeError(w, fmt.Errorf("%w: no fields to update", errInvalid))
		return
	}

	current, err := s.cache.Get(r.Context(), table, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := validateRow(table, current.Merge(fields)); err != nil {
		s.writeError(w, err)
		return
	}

	row, err := s.cache.Update(r.Context(), table, id, fields)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if table == store.TableLeads {
		if msg := funnelWarning(current, fields); msg != "" {
			s.log.WithField("lead_id", id).Warn(msg)
			w.Header().Set("Warning", fmt.Sprintf("299 crmdesk %q", msg))
		}
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.cache.Delete(r.Context(), table, r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := feed.Filter{
		Query:       q.Get("q"),
		RelatedType: models.RelatedType(q.Get("related")),
	}
	if types := q.Get("type"); types != "" {
		for _, t := range strings.Split(types, ",") {
			kind, err := feed.ParseKind(strings.TrimSpace(t))
			if err != nil {
				s.writeError(w, fmt.Errorf("%w: %v", errInvalid, err))
				return
			}
			filter.Kinds = append(filter.Kinds, kind)
		}
	}

	opts := s.feedOpts
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			s.writeError(w, fmt.Errorf("%w: limit must be a positive integer", errInvalid))
			return
		}
		opts.Limit = n
	}

	start := time.Now()
	f := feed.BuildFiltered(feed.SnapshotOf(s.cache), opts, filter)
	s.metrics.RecordFeedBuild(len(f.Items), time.Since(start))
	if f.Items == nil {
		f.Items = []feed.Item{}
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats := viz.GenerateDashboardStats(feed.SnapshotOf(s.cache), s.feedOpts, time.Now())
	writeJSON(w, http.StatusOK, stats)
}

// writeOutcome reports a transition. A partially applied transition still returns its outcome.
func (s *Server) writeOutcome(w http.ResponseWriter, out *workflow.Outcome, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, out)
	case errors.Is(err, workflow.ErrNeedsReconciliation) && out != nil:
		writeJSON(w, http.StatusConflict, map[string]interface{}{"error": err.Error(), "outcome": out})
	default:
		s.writeError(w, err)
	}
}

func (s *Server) handleQualify(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Score *int   `json:"score"`
		Notes string `json:"notes"`
	}
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	if in.Score == nil || *in.Score < 0 || *in.Score > 100 {
		s.writeError(w, fmt.Errorf("%w: score must be between 0 and 100", errInvalid))
		return
	}

	id := r.PathValue("id")
	if _, err := s.cache.Get(r.Context(), store.TableLeads, id); err != nil {
		s.writeError(w, err)
		return
	}

	out, err := s.engine.QualifyLead(r.Context(), id, *in.Score, in.Notes)
	s.writeOutcome(w, out, err)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	row, err := s.cache.Get(r.Context(), store.TableLeads, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	lead, err := store.Decode[models.Lead](row)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out, err := s.engine.ConvertLeadToClient(r.Context(), lead)
	s.writeOutcome(w, out, err)
}

func (s *Server) handleLost(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	if strings.TrimSpace(in.Reason) == "" {
		s.writeError(w, fmt.Errorf("%w: reason is required", errInvalid))
		return
	}

	out, err := s.engine.MarkLeadAsLost(r.Context(), r.PathValue("id"), in.Reason)
	s.writeOutcome(w, out, err)
}

func (s *Server) handleReconciliations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Pending())
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Resolve(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
