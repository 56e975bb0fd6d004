// ABOUTME: Step runner for multi-call lead transitions
// ABOUTME: Records each step, compensates or flags the run for reconciliation on partial failure
package workflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// Policy decides what happens when a required step fails after earlier steps changed data.
type Policy string

const (
	// PolicyNone leaves applied steps in place and flags the run for reconciliation.
	PolicyNone Policy = "none"
	// PolicyRollback runs compensations for applied steps in reverse order.
	PolicyRollback Policy = "rollback"
)

// ParsePolicy accepts "none", "rollback", or "" (none).
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyNone:
		return PolicyNone, nil
	case PolicyRollback:
		return PolicyRollback, nil
	}
	return "", fmt.Errorf("unknown compensation policy %q", s)
}

type StepStatus string

const (
	StepPending            StepStatus = "pending"
	StepDone               StepStatus = "done"
	StepFailed             StepStatus = "failed"
	StepSkipped            StepStatus = "skipped"
	StepCompensated        StepStatus = "compensated"
	StepCompensationFailed StepStatus = "compensation_failed"
)

// StepRecord is the in-memory trace of one step.
type StepRecord struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
}

// Run is one execution of a transition.
type Run struct {
	ID                  string       `json:"id"`
	Transition          Transition   `json:"transition"`
	LeadID              string       `json:"lead_id"`
	ClientID            string       `json:"client_id,omitempty"`
	StartedAt           time.Time    `json:"started_at"`
	Steps               []StepRecord `json:"steps"`
	Warnings            []string     `json:"warnings,omitempty"`
	NeedsReconciliation bool         `json:"needs_reconciliation"`
}

func (r *Run) clone() Run {
	out := *r
	out.Steps = append([]StepRecord(nil), r.Steps...)
	out.Warnings = append([]string(nil), r.Warnings...)
	return out
}

// step is one remote call in a transition.
type step struct {
	name string
	do   func(ctx context.Context) error
	// compensate undoes do; nil when the step cannot be undone
	compensate func(ctx context.Context) error
	// mutates is false for reads, which never need reconciliation
	mutates bool
	// bestEffort failures become warnings and do not stop the run
	bestEffort bool
}

func (e *Engine) newRun(transition Transition, leadID string, steps []step) *Run {
	run := &Run{
		ID:         e.nextID(),
		Transition: transition,
		LeadID:     leadID,
		StartedAt:  e.now(),
		Steps:      make([]StepRecord, len(steps)),
	}
	for i, s := range steps {
		run.Steps[i] = StepRecord{Name: s.name, Status: StepPending}
	}
	return run
}

// execute runs steps in order. The returned error is the first required-step failure,
// wrapped with ErrNeedsReconciliation when data was left partially applied.
func (e *Engine) execute(ctx context.Context, run *Run, steps []step) error {
	log := e.log.WithFields(logrus.Fields{
		"run":        run.ID,
		"transition": run.Transition,
		"lead_id":    run.LeadID,
	})

	for i, s := range steps {
		err := s.do(ctx)
		if err == nil {
			run.Steps[i].Status = StepDone
			continue
		}

		run.Steps[i].Status = StepFailed
		run.Steps[i].Error = err.Error()

		if s.bestEffort {
			log.WithError(err).WithField("step", s.name).Warn("best-effort step failed")
			run.Warnings = append(run.Warnings, fmt.Sprintf("%s: %v", s.name, err))
			e.metrics.RecordAuditFailure(string(run.Transition))
			continue
		}

		for j := i + 1; j < len(steps); j++ {
			run.Steps[j].Status = StepSkipped
		}

		if !applied(run, steps[:i]) {
			return err
		}

		if e.policy == PolicyRollback && e.compensate(ctx, log, run, steps[:i]) {
			log.WithError(err).WithField("step", s.name).Info("rolled back partial transition")
			return err
		}

		run.NeedsReconciliation = true
		e.remember(run)
		e.metrics.RecordReconciliation(string(run.Transition))
		log.WithError(err).WithField("step", s.name).Warn("transition left partially applied")
		return fmt.Errorf("%w: %w", ErrNeedsReconciliation, err)
	}

	return nil
}

func applied(run *Run, done []step) bool {
	for i, s := range done {
		if s.mutates && run.Steps[i].Status == StepDone {
			return true
		}
	}
	return false
}

// compensate undoes completed mutating steps newest first. It reports whether every one was undone.
func (e *Engine) compensate(ctx context.Context, log logrus.FieldLogger, run *Run, done []step) bool {
	clean := true
	for i := len(done) - 1; i >= 0; i-- {
		s := done[i]
		if !s.mutates || run.Steps[i].Status != StepDone {
			continue
		}
		if s.compensate == nil {
			clean = false
			continue
		}
		if err := s.compensate(ctx); err != nil {
			log.WithError(err).WithField("step", s.name).Error("compensation failed")
			run.Steps[i].Status = StepCompensationFailed
			run.Steps[i].Error = err.Error()
			clean = false
			continue
		}
		run.Steps[i].Status = StepCompensated
	}
	return clean
}

func (e *Engine) remember(run *Run) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending[run.ID] = run
}

// Pending lists runs that need reconciliation, oldest first. Runs live in this engine only
// and are gone when the process exits.
func (e *Engine) Pending() []Run {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Run, 0, len(e.pending))
	for _, run := range e.pending {
		out = append(out, run.clone())
	}
	// ULIDs sort by creation time
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resolve drops a run from the pending list once someone has repaired the data.
func (e *Engine) Resolve(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.pending[id]; !ok {
		return fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	delete(e.pending, id)
	return nil
}
