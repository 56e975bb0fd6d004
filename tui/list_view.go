package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/store"
)

// rowRef points a table row at the record it shows.
type rowRef struct {
	table store.Table
	id    string
}

func (m Model) renderListView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("CRMDESK"))
	s.WriteString("\n\n")

	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	if m.tab == TabFeed {
		st := m.feed.Stats
		s.WriteString(helpStyle.Render(fmt.Sprintf("%d today · %d tasks completed · %d new leads · %d deals closed · %s total",
			st.Today, st.TasksCompleted, st.NewLeads, st.DealsClosed, feed.FormatMoney(st.TotalValue))))
		s.WriteString("\n")
	}

	s.WriteString(m.renderTable())
	s.WriteString("\n\n")

	s.WriteString(m.renderStatus())
	s.WriteString(m.renderListHelp())

	return s.String()
}

func (m Model) renderTabs() string {
	var rendered []string

	for i, tab := range tabNames {
		if Tab(i) == m.tab {
			rendered = append(rendered, tabActiveStyle.Render(tab))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(tab))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderStatus() string {
	switch {
	case m.err != nil:
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	case m.status != "":
		return statusStyle.Render(m.status) + "\n"
	}
	return ""
}

// tabContents returns the columns, rows, and row targets for the current tab.
func (m Model) tabContents() ([]table.Column, []table.Row, []rowRef) {
	var (
		columns []table.Column
		rows    []table.Row
		refs    []rowRef
	)

	switch m.tab {
	case TabFeed:
		columns = []table.Column{
			{Title: "When", Width: 10},
			{Title: "Type", Width: 24},
			{Title: "Title", Width: 40},
			{Title: "Related", Width: 20},
		}
		now := time.Now()
		for _, it := range m.feed.Items {
			style := it.Kind.Style()
			rows = append(rows, table.Row{
				age(it.Timestamp, now),
				style.Icon + " " + style.Label,
				it.Title,
				it.RelatedTo,
			})
			refs = append(refs, rowRef{table: relatedTable(it.RelatedType), id: it.RelatedID})
		}

	case TabLeads:
		columns = []table.Column{
			{Title: "Name", Width: 25},
			{Title: "Company", Width: 20},
			{Title: "Status", Width: 10},
			{Title: "Score", Width: 6},
			{Title: "Value", Width: 12},
		}
		for _, l := range m.cache.Leads.Items() {
			rows = append(rows, table.Row{l.Name, l.Company, l.Status, fmt.Sprintf("%d", l.Score), feed.FormatMoney(l.Value)})
			refs = append(refs, rowRef{table: store.TableLeads, id: l.ID})
		}

	case TabClients:
		columns = []table.Column{
			{Title: "Name", Width: 25},
			{Title: "Company", Width: 20},
			{Title: "Status", Width: 10},
			{Title: "Value", Width: 12},
		}
		for _, c := range m.cache.Clients.Items() {
			rows = append(rows, table.Row{c.Name, c.Company, c.Status, feed.FormatMoney(c.Value)})
			refs = append(refs, rowRef{table: store.TableClients, id: c.ID})
		}

	case TabOpportunities:
		columns = []table.Column{
			{Title: "Title", Width: 30},
			{Title: "Stage", Width: 14},
			{Title: "Prob", Width: 5},
			{Title: "Value", Width: 12},
		}
		for _, o := range m.cache.Opportunities.Items() {
			rows = append(rows, table.Row{o.Title, o.Stage, fmt.Sprintf("%d%%", o.Probability), feed.FormatMoney(o.Value)})
			refs = append(refs, rowRef{table: store.TableOpportunities, id: o.ID})
		}

	case TabTasks:
		columns = []table.Column{
			{Title: "Title", Width: 30},
			{Title: "Priority", Width: 8},
			{Title: "Status", Width: 12},
			{Title: "Due", Width: 10},
		}
		for _, t := range m.cache.Tasks.Items() {
			due := ""
			if t.DueDate != nil {
				due = t.DueDate.Format("2006-01-02")
			}
			rows = append(rows, table.Row{t.Title, t.Priority, t.Status, due})
			refs = append(refs, rowRef{table: store.TableTasks, id: t.ID})
		}
	}

	return columns, rows, refs
}

func (m Model) renderTable() string {
	columns, rows, _ := m.tabContents()
	if len(rows) == 0 {
		return helpStyle.Render("Nothing here yet")
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(m.tableHeight()),
	)

	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}

	return t.View()
}

func (m Model) renderListHelp() string {
	help := []string{
		"↑/↓: Navigate",
		"Tab: Switch tabs",
		"Enter: View details",
		"v: Dashboard",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		_, rows, _ := m.tabContents()
		if m.selectedRow < len(rows)-1 {
			m.selectedRow++
		}
	case "tab":
		m.tab = (m.tab + 1) % Tab(len(tabNames))
		m.selectedRow = 0
	case "shift+tab":
		m.tab = (m.tab + Tab(len(tabNames)) - 1) % Tab(len(tabNames))
		m.selectedRow = 0
	case "enter":
		ref, ok := m.selectedRef()
		if ok && ref.table != "" && ref.id != "" {
			m.viewMode = ViewDetail
			m.selectedTable = ref.table
			m.selectedID = ref.id
			m.status, m.err = "", nil
		}
	case "v":
		m.viewMode = ViewDashboard
	}

	return m, nil
}

func (m Model) selectedRef() (rowRef, bool) {
	_, _, refs := m.tabContents()
	if m.selectedRow < 0 || m.selectedRow >= len(refs) {
		return rowRef{}, false
	}
	return refs[m.selectedRow], true
}

func relatedTable(t models.RelatedType) store.Table {
	switch t {
	case models.RelatedClient:
		return store.TableClients
	case models.RelatedLead:
		return store.TableLeads
	case models.RelatedOpportunity:
		return store.TableOpportunities
	}
	return ""
}

// age renders a short relative time such as "5m ago".
func age(ts, now time.Time) string {
	d := now.Sub(ts)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
	return ts.Format("Jan 2")
}
