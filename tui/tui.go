// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Live activity feed plus entity tabs with lead workflow actions
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/store"
	"github.com/harperreed/crmdesk/workflow"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
	ViewAction
	ViewDashboard
	ViewConfirmDelete
)

// Tab is one of the top-level lists.
type Tab int

const (
	TabFeed Tab = iota
	TabLeads
	TabClients
	TabOpportunities
	TabTasks
)

var tabNames = []string{"Feed", "Leads", "Clients", "Opportunities", "Tasks"}

func (t Tab) table() store.Table {
	switch t {
	case TabLeads:
		return store.TableLeads
	case TabClients:
		return store.TableClients
	case TabOpportunities:
		return store.TableOpportunities
	case TabTasks:
		return store.TableTasks
	}
	return ""
}

// feedMsg carries a rebuilt feed from the watcher.
type feedMsg feed.Feed

// Model is the main bubbletea model
type Model struct {
	ctx      context.Context
	cache    *store.Cache
	engine   *workflow.Engine
	feedOpts feed.Options

	feedCh   chan feed.Feed
	stopFeed func()
	feed     feed.Feed

	viewMode ViewMode
	tab      Tab

	// List view state
	selectedRow int

	// Detail view state
	selectedID    string
	selectedTable store.Table

	// Action view state
	action     workflow.Transition
	formInputs []textinput.Model
	focusIndex int
	warning    string

	status string

	width  int
	height int
	err    error
}

// NewModel creates a TUI over the cache. The watcher's rebuilt feeds are delivered as messages.
func NewModel(ctx context.Context, cache *store.Cache, engine *workflow.Engine, watcher *feed.Watcher, opts feed.Options) Model {
	ch := make(chan feed.Feed, 1)
	stop := watcher.OnChange(func(f feed.Feed) {
		// Keep only the newest feed; the UI never needs the stale ones.
		for {
			select {
			case ch <- f:
				return
			default:
				select {
				case <-ch:
				default:
				}
			}
		}
	})

	return Model{
		ctx:      ctx,
		cache:    cache,
		engine:   engine,
		feedOpts: opts,
		feedCh:   ch,
		stopFeed: stop,
		feed:     watcher.Feed(),
		viewMode: ViewList,
		tab:      TabFeed,
		width:    100,
		height:   30,
	}
}

// Close stops receiving feed updates.
func (m Model) Close() {
	if m.stopFeed != nil {
		m.stopFeed()
	}
}

func (m Model) waitForFeed() tea.Cmd {
	ch := m.feedCh
	return func() tea.Msg {
		f, ok := <-ch
		if !ok {
			return nil
		}
		return feedMsg(f)
	}
}

func (m Model) Init() tea.Cmd {
	return m.waitForFeed()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case feedMsg:
		m.feed = feed.Feed(msg)
		return m, m.waitForFeed()
	case transitionMsg:
		return m.handleTransition(msg)
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewList:
		return m.renderListView()
	case ViewDetail:
		return m.renderDetailView()
	case ViewAction:
		return m.renderActionView()
	case ViewDashboard:
		return m.renderDashboardView()
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Text inputs own every printable key.
	if m.viewMode == ViewAction {
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.handleActionKeys(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewList:
		return m.handleListKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewDashboard:
		return m.handleDashboardKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	}

	return m, nil
}

func (m Model) tableHeight() int {
	if m.height > 14 {
		return m.height - 10
	}
	return 4
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)
