package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/viz"
)

func (m Model) renderDashboardView() string {
	var s strings.Builder

	stats := viz.GenerateDashboardStats(feed.SnapshotOf(m.cache), m.feedOpts, time.Now())
	s.WriteString(viz.RenderDashboard(stats))
	s.WriteString("\n")

	help := []string{"Esc: Back", "q: Quit"}
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))

	return s.String()
}

func (m Model) handleDashboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "v":
		m.viewMode = ViewList
	}

	return m, nil
}
