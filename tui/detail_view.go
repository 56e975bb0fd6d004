package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/store"
	"github.com/harperreed/crmdesk/workflow"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(16)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	sectionStyle = lipgloss.NewStyle().Bold(true)
)

func (m Model) renderDetailView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(strings.ToUpper(singular(m.selectedTable)) + " DETAIL"))
	s.WriteString("\n\n")

	switch m.selectedTable {
	case store.TableLeads:
		s.WriteString(m.renderLeadDetail())
	case store.TableClients:
		s.WriteString(m.renderClientDetail())
	case store.TableOpportunities:
		s.WriteString(m.renderOpportunityDetail())
	case store.TableTasks:
		s.WriteString(m.renderTaskDetail())
	}

	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	s.WriteString(m.renderDetailHelp())

	return s.String()
}

func (m Model) renderLeadDetail() string {
	lead, ok := m.cache.Leads.Find(m.selectedID)
	if !ok {
		return "Lead not found\n"
	}

	var s strings.Builder
	s.WriteString(m.renderField("Name", lead.Name))
	s.WriteString(m.renderField("Email", lead.Email))
	s.WriteString(m.renderField("Phone", lead.Phone))
	s.WriteString(m.renderField("Company", lead.Company))
	s.WriteString(m.renderField("Source", lead.Source))
	s.WriteString(m.renderField("Status", lead.Status))
	s.WriteString(m.renderField("Score", fmt.Sprintf("%d", lead.Score)))
	s.WriteString(m.renderField("Value", feed.FormatMoney(lead.Value)))
	s.WriteString(m.renderField("Notes", lead.Notes))
	s.WriteString(m.renderActivities(models.Reference{Type: models.RelatedLead, ID: lead.ID}))
	return s.String()
}

func (m Model) renderClientDetail() string {
	client, ok := m.cache.Clients.Find(m.selectedID)
	if !ok {
		return "Client not found\n"
	}

	var s strings.Builder
	s.WriteString(m.renderField("Name", client.Name))
	s.WriteString(m.renderField("Email", client.Email))
	s.WriteString(m.renderField("Phone", client.Phone))
	s.WriteString(m.renderField("Company", client.Company))
	s.WriteString(m.renderField("Status", client.Status))
	s.WriteString(m.renderField("Value", feed.FormatMoney(client.Value)))
	s.WriteString(m.renderField("Tags", strings.Join(client.Tags, ", ")))
	s.WriteString(m.renderField("Notes", client.Notes))

	s.WriteString("\n")
	s.WriteString(sectionStyle.Render("OPPORTUNITIES"))
	s.WriteString("\n")
	for _, o := range m.cache.Opportunities.Items() {
		if o.ClientID == client.ID {
			s.WriteString(fmt.Sprintf("  • %s (%s, %s)\n", o.Title, o.Stage, feed.FormatMoney(o.Value)))
		}
	}

	s.WriteString(m.renderActivities(models.Reference{Type: models.RelatedClient, ID: client.ID}))
	return s.String()
}

func (m Model) renderOpportunityDetail() string {
	opp, ok := m.cache.Opportunities.Find(m.selectedID)
	if !ok {
		return "Opportunity not found\n"
	}

	var s strings.Builder
	s.WriteString(m.renderField("Title", opp.Title))
	if client, ok := m.cache.Clients.Find(opp.ClientID); ok {
		s.WriteString(m.renderField("Client", client.Name))
	}
	s.WriteString(m.renderField("Stage", opp.Stage))
	s.WriteString(m.renderField("Probability", fmt.Sprintf("%d%%", opp.Probability)))
	s.WriteString(m.renderField("Value", feed.FormatMoney(opp.Value)))
	if opp.ExpectedCloseDate != nil {
		s.WriteString(m.renderField("Expected Close", opp.ExpectedCloseDate.Format("2006-01-02")))
	}
	s.WriteString(m.renderField("Next Steps", opp.NextSteps))
	s.WriteString(m.renderActivities(models.Reference{Type: models.RelatedOpportunity, ID: opp.ID}))
	return s.String()
}

func (m Model) renderTaskDetail() string {
	task, ok := m.cache.Tasks.Find(m.selectedID)
	if !ok {
		return "Task not found\n"
	}

	var s strings.Builder
	s.WriteString(m.renderField("Title", task.Title))
	s.WriteString(m.renderField("Description", task.Description))
	s.WriteString(m.renderField("Priority", task.Priority))
	s.WriteString(m.renderField("Status", task.Status))
	if task.DueDate != nil {
		s.WriteString(m.renderField("Due", task.DueDate.Format("2006-01-02")))
	}
	return s.String()
}

func (m Model) renderActivities(ref models.Reference) string {
	var s strings.Builder
	s.WriteString("\n")
	s.WriteString(sectionStyle.Render("ACTIVITY"))
	s.WriteString("\n")

	for _, a := range m.cache.Activities.Items() {
		if r, ok := a.Reference(); ok && r == ref {
			s.WriteString(fmt.Sprintf("  • [%s] %s\n", a.CreatedAt.Format("2006-01-02"), a.Title))
		}
	}
	return s.String()
}

func singular(t store.Table) string {
	switch t {
	case store.TableOpportunities:
		return "opportunity"
	case store.TableActivities:
		return "activity"
	}
	return strings.TrimSuffix(string(t), "s")
}

func (m Model) renderField(label, value string) string {
	if value == "" {
		value = "-"
	}
	return fmt.Sprintf("%s %s\n",
		fieldLabelStyle.Render(label+":"),
		fieldValueStyle.Render(value))
}

func (m Model) renderDetailHelp() string {
	help := []string{"Esc: Back"}
	if m.selectedTable == store.TableLeads {
		help = append(help, "a: Qualify", "c: Convert", "l: Mark lost")
	}
	help = append(help, "d: Delete", "q: Quit")
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ViewList
		m.status, m.err = "", nil
	case "d":
		m.viewMode = ViewConfirmDelete
	case "a":
		if m.selectedTable == store.TableLeads {
			m.startAction(workflow.TransitionQualify)
		}
	case "l":
		if m.selectedTable == store.TableLeads {
			m.startAction(workflow.TransitionLost)
		}
	case "c":
		if m.selectedTable == store.TableLeads {
			lead, ok := m.cache.Leads.Find(m.selectedID)
			if !ok {
				return m, nil
			}
			m.status, m.err = "Converting...", nil
			m.warning = funnelWarning(lead, models.LeadStatusConverted)
			return m, m.convertCmd(lead)
		}
	}

	return m, nil
}
