// ABOUTME: Lead workflow engine: qualify, convert to client, and mark lost
// ABOUTME: Each transition is a sequence of gateway calls run through the step runner
package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/harperreed/crmdesk/metrics"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/store"
)

var (
	ErrAlreadyConverted    = errors.New("lead already converted")
	ErrNeedsReconciliation = errors.New("transition partially applied; needs reconciliation")
	ErrRunNotFound         = errors.New("workflow run not found")
)

// Transition names a lead workflow operation.
type Transition string

const (
	TransitionQualify Transition = "qualify"
	TransitionConvert Transition = "convert"
	TransitionLost    Transition = "lost"
)

// Audit activity titles.
const (
	TitleQualified = "Lead Qualified"
	TitleLost      = "Lead Marked as Lost"
	TitleConverted = "Lead Converted to Client"
)

// Options configures an Engine. The zero value is usable.
type Options struct {
	Policy            Policy
	AllowReconversion bool
	Logger            logrus.FieldLogger
	Metrics           *metrics.Metrics
	Now               func() time.Time
}

// Engine runs lead transitions against a gateway.
type Engine struct {
	gw                store.Gateway
	policy            Policy
	allowReconversion bool
	log               logrus.FieldLogger
	metrics           *metrics.Metrics
	now               func() time.Time

	mu      sync.Mutex
	pending map[string]*Run
	entropy *ulid.MonotonicEntropy
}

// NewEngine creates an engine. Passing a *store.Cache as gw keeps local snapshots current.
func NewEngine(gw store.Gateway, opts Options) *Engine {
	if opts.Policy == "" {
		opts.Policy = PolicyNone
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Engine{
		gw:                gw,
		policy:            opts.Policy,
		allowReconversion: opts.AllowReconversion,
		log:               opts.Logger.WithField("component", "workflow"),
		metrics:           opts.Metrics,
		now:               opts.Now,
		pending:           make(map[string]*Run),
		entropy:           ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (e *Engine) nextID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(e.now()), e.entropy).String()
}

// Outcome reports what a transition did. It is returned even when the transition fails.
type Outcome struct {
	Success             bool             `json:"success"`
	Lead                *models.Lead     `json:"lead,omitempty"`
	Client              *models.Client   `json:"client,omitempty"`
	Audit               *models.Activity `json:"audit,omitempty"`
	Warnings            []string         `json:"warnings,omitempty"`
	NeedsReconciliation bool             `json:"needs_reconciliation"`
	Run                 Run              `json:"run"`
}

func (e *Engine) finish(run *Run, out *Outcome, err error) (*Outcome, error) {
	out.Success = err == nil
	out.NeedsReconciliation = run.NeedsReconciliation
	out.Warnings = append([]string(nil), run.Warnings...)
	out.Run = run.clone()
	e.metrics.RecordTransition(string(run.Transition), out.Success)

	if err != nil {
		return out, fmt.Errorf("failed to %s lead %s: %w", run.Transition, run.LeadID, err)
	}
	return out, nil
}

// appendNote concatenates text onto existing notes, keeping what was there.
func appendNote(existing, text string) string {
	if strings.TrimSpace(existing) == "" {
		return text
	}
	return existing + "\n\n" + text
}

func (e *Engine) updateLead(ctx context.Context, id string, fields store.Row) (*models.Lead, error) {
	row, err := e.gw.Update(ctx, store.TableLeads, id, fields)
	if err != nil {
		return nil, err
	}
	lead, err := store.Decode[models.Lead](row)
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (e *Engine) appendAudit(ctx context.Context, activity models.Activity) (*models.Activity, error) {
	activity.Type = models.ActivityNote
	activity.Completed = true

	fields, err := store.Fields(activity)
	if err != nil {
		return nil, err
	}
	row, err := e.gw.Create(ctx, store.TableActivities, fields)
	if err != nil {
		return nil, err
	}
	created, err := store.Decode[models.Activity](row)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// QualifyLead sets the lead to qualified with the given score and notes, then logs an audit note.
// score is not range-checked here.
func (e *Engine) QualifyLead(ctx context.Context, leadID string, score int, notes string) (*Outcome, error) {
	out := &Outcome{}

	steps := []step{
		{
			name:    "update_lead",
			mutates: true,
			do: func(ctx context.Context) error {
				lead, err := e.updateLead(ctx, leadID, store.Row{
					"status": models.LeadStatusQualified,
					"score":  score,
					"notes":  notes,
				})
				out.Lead = lead
				return err
			},
		},
		{
			name:       "audit",
			mutates:    true,
			bestEffort: true,
			do: func(ctx context.Context) error {
				audit, err := e.appendAudit(ctx, models.Activity{
					Title:       TitleQualified,
					Description: appendNote(fmt.Sprintf("Score: %d", score), notes),
					LeadID:      &leadID,
				})
				out.Audit = audit
				return err
			},
		},
	}

	run := e.newRun(TransitionQualify, leadID, steps)
	return e.finish(run, out, e.execute(ctx, run, steps))
}

// MarkLeadAsLost sets the lead to lost and appends the reason to its notes.
func (e *Engine) MarkLeadAsLost(ctx context.Context, leadID, reason string) (*Outcome, error) {
	out := &Outcome{}
	var prior models.Lead

	steps := []step{
		{
			name: "read_lead",
			do: func(ctx context.Context) error {
				row, err := e.gw.Get(ctx, store.TableLeads, leadID)
				if err != nil {
					return err
				}
				prior, err = store.Decode[models.Lead](row)
				return err
			},
		},
		{
			name:    "update_lead",
			mutates: true,
			do: func(ctx context.Context) error {
				lead, err := e.updateLead(ctx, leadID, store.Row{
					"status": models.LeadStatusLost,
					"notes":  appendNote(prior.Notes, "Lost reason: "+reason),
				})
				out.Lead = lead
				return err
			},
		},
		{
			name:       "audit",
			mutates:    true,
			bestEffort: true,
			do: func(ctx context.Context) error {
				audit, err := e.appendAudit(ctx, models.Activity{
					Title:       TitleLost,
					Description: "Reason: " + reason,
					LeadID:      &leadID,
				})
				out.Audit = audit
				return err
			},
		},
	}

	run := e.newRun(TransitionLost, leadID, steps)
	return e.finish(run, out, e.execute(ctx, run, steps))
}

// ClientFromLead builds the client a lead converts into.
func ClientFromLead(lead models.Lead, now time.Time) models.Client {
	notes := fmt.Sprintf("Converted from lead on %s.", now.Format("January 2, 2006"))
	if lead.Source != "" {
		notes += " Source: " + lead.Source + "."
	}
	if lead.Notes != "" {
		notes += "\n\nOriginal notes: " + lead.Notes
	}

	return models.Client{
		Name:    lead.Name,
		Email:   lead.Email,
		Phone:   lead.Phone,
		Company: lead.Company,
		Status:  models.ClientStatusCustomer,
		Value:   lead.Value,
		Tags:    []string{models.TagConvertedLead},
		Notes:   notes,
		Source:  lead.Source,
	}
}

// ConvertLeadToClient creates a client from the lead, marks the lead converted, and logs an
// audit note linking both. If the lead update fails after the client was created, the outcome
// still carries the client unless the rollback policy removed it.
func (e *Engine) ConvertLeadToClient(ctx context.Context, lead models.Lead) (*Outcome, error) {
	// The caller's copy may be stale; the guard and the client are built from the stored lead.
	row, err := e.gw.Get(ctx, store.TableLeads, lead.ID)
	if err != nil {
		e.metrics.RecordTransition(string(TransitionConvert), false)
		return &Outcome{Lead: &lead}, fmt.Errorf("failed to convert lead %s: %w", lead.ID, err)
	}
	stored, err := store.Decode[models.Lead](row)
	if err != nil {
		e.metrics.RecordTransition(string(TransitionConvert), false)
		return &Outcome{Lead: &lead}, fmt.Errorf("failed to convert lead %s: %w", lead.ID, err)
	}
	lead = stored

	if lead.Status == models.LeadStatusConverted && !e.allowReconversion {
		e.metrics.RecordTransition(string(TransitionConvert), false)
		return &Outcome{Lead: &lead}, fmt.Errorf("failed to convert lead %s: %w", lead.ID, ErrAlreadyConverted)
	}

	out := &Outcome{}
	now := e.now()
	var run *Run

	steps := []step{
		{
			name:    "create_client",
			mutates: true,
			do: func(ctx context.Context) error {
				fields, err := store.Fields(ClientFromLead(lead, now))
				if err != nil {
					return err
				}
				row, err := e.gw.Create(ctx, store.TableClients, fields)
				if err != nil {
					return err
				}
				client, err := store.Decode[models.Client](row)
				if err != nil {
					return err
				}
				out.Client = &client
				run.ClientID = client.ID
				return nil
			},
			compensate: func(ctx context.Context) error {
				if err := e.gw.Delete(ctx, store.TableClients, out.Client.ID); err != nil {
					return err
				}
				out.Client = nil
				return nil
			},
		},
		{
			name:    "update_lead",
			mutates: true,
			do: func(ctx context.Context) error {
				updated, err := e.updateLead(ctx, lead.ID, store.Row{
					"status": models.LeadStatusConverted,
					"notes":  appendNote(lead.Notes, "Converted to client on "+now.Format(time.RFC3339)),
				})
				out.Lead = updated
				return err
			},
		},
		{
			name:       "audit",
			mutates:    true,
			bestEffort: true,
			do: func(ctx context.Context) error {
				leadID, clientID := lead.ID, out.Client.ID
				audit, err := e.appendAudit(ctx, models.Activity{
					Title:       TitleConverted,
					Description: fmt.Sprintf("%s converted to client", lead.Name),
					LeadID:      &leadID,
					ClientID:    &clientID,
				})
				out.Audit = audit
				return err
			},
		},
	}

	run = e.newRun(TransitionConvert, lead.ID, steps)
	return e.finish(run, out, e.execute(ctx, run, steps))
}

// CanTransition reports whether moving a lead between statuses follows the intended funnel:
// new → contacted → qualified → converted, with lost reachable from any open status.
// The engine does not enforce it; edit forms may overwrite status freely.
func CanTransition(from, to string) bool {
	if from == to {
		return false
	}
	switch from {
	case models.LeadStatusConverted, models.LeadStatusLost:
		return false
	}
	if to == models.LeadStatusLost {
		return true
	}

	order := map[string]int{
		models.LeadStatusNew:       0,
		models.LeadStatusContacted: 1,
		models.LeadStatusQualified: 2,
		models.LeadStatusConverted: 3,
	}
	f, okFrom := order[from]
	t, okTo := order[to]
	return okFrom && okTo && t == f+1
}
