// ABOUTME: Lead workflow forms for the TUI
// ABOUTME: Collects qualify and lost inputs and runs transitions as commands
package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/workflow"
)

// transitionMsg is the result of a workflow command.
type transitionMsg struct {
	transition workflow.Transition
	outcome    *workflow.Outcome
	err        error
}

// funnelWarning is non-empty when moving lead to status skips a funnel stage.
func funnelWarning(lead models.Lead, to string) string {
	if workflow.CanTransition(lead.Status, to) {
		return ""
	}
	return fmt.Sprintf("⚠ %s → %s skips the usual funnel", lead.Status, to)
}

func (m *Model) startAction(t workflow.Transition) {
	m.action = t
	m.status, m.err = "", nil

	lead, found := m.cache.Leads.Find(m.selectedID)

	switch t {
	case workflow.TransitionQualify:
		inputs := make([]textinput.Model, 2)

		inputs[0] = textinput.New()
		inputs[0].Placeholder = "Score (0-100)"
		inputs[0].CharLimit = 3

		inputs[1] = textinput.New()
		inputs[1].Placeholder = "Notes"
		inputs[1].CharLimit = 500

		if found {
			inputs[0].SetValue(strconv.Itoa(lead.Score))
			m.warning = funnelWarning(lead, models.LeadStatusQualified)
		}
		m.formInputs = inputs

	case workflow.TransitionLost:
		inputs := make([]textinput.Model, 1)

		inputs[0] = textinput.New()
		inputs[0].Placeholder = "Reason"
		inputs[0].CharLimit = 500

		if found {
			m.warning = funnelWarning(lead, models.LeadStatusLost)
		}
		m.formInputs = inputs
	}

	m.focusIndex = 0
	m.updateFormFocus()
	m.viewMode = ViewAction
}

func (m *Model) updateFormFocus() {
	for i := range m.formInputs {
		if i == m.focusIndex {
			m.formInputs[i].Focus()
		} else {
			m.formInputs[i].Blur()
		}
	}
}

func (m Model) renderActionView() string {
	var s strings.Builder

	switch m.action {
	case workflow.TransitionQualify:
		s.WriteString(titleStyle.Render("QUALIFY " + m.selectedName()))
	case workflow.TransitionLost:
		s.WriteString(titleStyle.Render("MARK LOST " + m.selectedName()))
	}
	s.WriteString("\n\n")

	if m.warning != "" {
		s.WriteString(warnStyle.Render(m.warning))
		s.WriteString("\n\n")
	}

	for i, input := range m.formInputs {
		if i == m.focusIndex {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(input.View())
		s.WriteString("\n")
	}

	s.WriteString("\n")
	if m.err != nil {
		s.WriteString(errorStyle.Render(m.err.Error()))
		s.WriteString("\n")
	}

	help := []string{"Tab: Next field", "Enter: Save", "Esc: Cancel"}
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))

	return s.String()
}

func (m Model) handleActionKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ViewDetail
		m.err = nil
		m.warning = ""
		return m, nil
	case "tab":
		m.focusIndex = (m.focusIndex + 1) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "enter":
		cmd, err := m.submitAction()
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.status = "Saving..."
		m.viewMode = ViewDetail
		return m, cmd
	}

	var cmd tea.Cmd
	m.formInputs[m.focusIndex], cmd = m.formInputs[m.focusIndex].Update(msg)
	return m, cmd
}

// submitAction validates the form and returns the command that runs the transition.
func (m Model) submitAction() (tea.Cmd, error) {
	ctx, engine, id := m.ctx, m.engine, m.selectedID

	switch m.action {
	case workflow.TransitionQualify:
		score, err := strconv.Atoi(strings.TrimSpace(m.formInputs[0].Value()))
		if err != nil || score < 0 || score > 100 {
			return nil, errors.New("score must be a number between 0 and 100")
		}
		notes := m.formInputs[1].Value()
		return func() tea.Msg {
			out, err := engine.QualifyLead(ctx, id, score, notes)
			return transitionMsg{transition: workflow.TransitionQualify, outcome: out, err: err}
		}, nil

	case workflow.TransitionLost:
		reason := strings.TrimSpace(m.formInputs[0].Value())
		if reason == "" {
			return nil, errors.New("reason is required")
		}
		return func() tea.Msg {
			out, err := engine.MarkLeadAsLost(ctx, id, reason)
			return transitionMsg{transition: workflow.TransitionLost, outcome: out, err: err}
		}, nil
	}

	return nil, fmt.Errorf("unknown action %q", m.action)
}

func (m Model) convertCmd(lead models.Lead) tea.Cmd {
	ctx, engine := m.ctx, m.engine
	return func() tea.Msg {
		out, err := engine.ConvertLeadToClient(ctx, lead)
		return transitionMsg{transition: workflow.TransitionConvert, outcome: out, err: err}
	}
}

func (m Model) handleTransition(msg transitionMsg) (tea.Model, tea.Cmd) {
	switch {
	case errors.Is(msg.err, workflow.ErrNeedsReconciliation):
		m.err = nil
		m.status = fmt.Sprintf("⚠ %s partially applied; run %s needs reconciliation", msg.transition, msg.outcome.Run.ID)
	case msg.err != nil:
		m.err = msg.err
		m.status = ""
	default:
		m.err = nil
		switch msg.transition {
		case workflow.TransitionQualify:
			m.status = "✓ Lead qualified"
		case workflow.TransitionLost:
			m.status = "✓ Lead marked as lost"
		case workflow.TransitionConvert:
			m.status = "✓ Lead converted to client " + msg.outcome.Client.Name
		}
		if len(msg.outcome.Warnings) > 0 {
			m.status += " (" + strings.Join(msg.outcome.Warnings, "; ") + ")"
		}
		if m.warning != "" {
			m.status += " " + m.warning
		}
	}
	m.warning = ""
	return m, nil
}
