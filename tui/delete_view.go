// ABOUTME: Delete confirmation view for TUI
// ABOUTME: Removes the selected record through the cache after a confirmation dialog
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/crmdesk/store"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	confirmButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("9")).
				Padding(0, 2)

	cancelButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("8")).
				Padding(0, 2)
)

// selectedName is the display name of the record under the cursor.
func (m Model) selectedName() string {
	switch m.selectedTable {
	case store.TableLeads:
		if l, ok := m.cache.Leads.Find(m.selectedID); ok {
			return l.Name
		}
	case store.TableClients:
		if c, ok := m.cache.Clients.Find(m.selectedID); ok {
			return c.Name
		}
	case store.TableOpportunities:
		if o, ok := m.cache.Opportunities.Find(m.selectedID); ok {
			return o.Title
		}
	case store.TableTasks:
		if t, ok := m.cache.Tasks.Find(m.selectedID); ok {
			return t.Title
		}
	}
	return m.selectedID
}

func (m Model) renderConfirmDeleteView() string {
	title := warningStyle.Render("⚠  DELETE CONFIRMATION  ⚠")
	message := fmt.Sprintf("Are you sure you want to delete this %s?", singular(m.selectedTable))
	entityInfo := lipgloss.NewStyle().Bold(true).Render(m.selectedName())

	warning := warningStyle.Render("This action cannot be undone.")

	buttons := lipgloss.JoinHorizontal(
		lipgloss.Top,
		confirmButtonStyle.Render("Yes, Delete (y)"),
		"  ",
		cancelButtonStyle.Render("Cancel (n/esc)"),
	)

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		message,
		entityInfo,
		warning,
		"",
		buttons,
	)

	box := confirmBoxStyle.Render(content)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		box,
	)
}

func (m Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		name := m.selectedName()
		if err := m.cache.Delete(m.ctx, m.selectedTable, m.selectedID); err != nil {
			m.err = err
			m.status = ""
		} else {
			m.err = nil
			m.status = "Deleted " + name
			m.selectedID = ""
			m.selectedRow = 0
		}
		m.viewMode = ViewList
	case "n", "N", "esc":
		m.viewMode = ViewDetail
	}

	return m, nil
}
