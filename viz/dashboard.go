// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Provides an ASCII overview of the lead funnel, pipeline, and feed counters
package viz

import (
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/models"
)

type DashboardStats struct {
	LeadsByStatus   map[string]int
	PipelineByStage map[string]PipelineStageStats

	TotalClients       int
	TotalLeads         int
	TotalOpportunities int
	OpenTasks          int

	Feed feed.Stats

	OverdueTasks       []string
	StaleOpportunities []StaleOpportunity
}

type PipelineStageStats struct {
	Stage string
	Count int
	Value float64
}

type StaleOpportunity struct {
	Title     string
	DaysSince int
}

const staleAfterDays = 14

// GenerateDashboardStats summarizes snap as of now.
func GenerateDashboardStats(snap feed.Snapshot, opts feed.Options, now time.Time) *DashboardStats {
	stats := &DashboardStats{
		LeadsByStatus:      make(map[string]int),
		PipelineByStage:    make(map[string]PipelineStageStats),
		TotalClients:       len(snap.Clients),
		TotalLeads:         len(snap.Leads),
		TotalOpportunities: len(snap.Opportunities),
	}

	for _, l := range snap.Leads {
		stats.LeadsByStatus[l.Status]++
	}

	for _, o := range snap.Opportunities {
		p := stats.PipelineByStage[o.Stage]
		p.Stage = o.Stage
		p.Count++
		p.Value += o.Value
		stats.PipelineByStage[o.Stage] = p

		if models.IsClosedStage(o.Stage) {
			continue
		}
		if days := int(now.Sub(o.UpdatedAt).Hours() / 24); days > staleAfterDays {
			stats.StaleOpportunities = append(stats.StaleOpportunities, StaleOpportunity{Title: o.Title, DaysSince: days})
		}
	}

	for _, t := range snap.Tasks {
		if t.Status == models.TaskStatusCompleted {
			continue
		}
		stats.OpenTasks++
		if t.DueDate != nil && t.DueDate.Before(now) {
			stats.OverdueTasks = append(stats.OverdueTasks, t.Title)
		}
	}

	opts.Now = func() time.Time { return now }
	stats.Feed = feed.Build(snap, opts).Stats
	return stats
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  CRMDESK DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("LEAD FUNNEL\n")
	renderBars(&out, append(append([]string(nil), funnelStages...), models.LeadStatusLost), stats.LeadsByStatus, nil)
	out.WriteString("\n")

	out.WriteString("PIPELINE OVERVIEW\n")
	counts := make(map[string]int)
	amounts := make(map[string]float64)
	for stage, p := range stats.PipelineByStage {
		counts[stage] = p.Count
		amounts[stage] = p.Value
	}
	renderBars(&out, []string{
		models.StageProspecting,
		models.StageQualification,
		models.StageProposal,
		models.StageNegotiation,
		models.StageClosedWon,
		models.StageClosedLost,
	}, counts, amounts)
	out.WriteString("\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  🏢 %d clients  🎯 %d leads  💼 %d opportunities  ✅ %d open tasks\n",
		stats.TotalClients, stats.TotalLeads, stats.TotalOpportunities, stats.OpenTasks))
	out.WriteString(fmt.Sprintf("  Feed: %d today, %d tasks completed, %d new leads, %d deals closed, %s total\n\n",
		stats.Feed.Today, stats.Feed.TasksCompleted, stats.Feed.NewLeads, stats.Feed.DealsClosed, feed.FormatMoney(stats.Feed.TotalValue)))

	if len(stats.OverdueTasks) > 0 || len(stats.StaleOpportunities) > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		if len(stats.OverdueTasks) > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d tasks overdue\n", len(stats.OverdueTasks)))
		}
		if len(stats.StaleOpportunities) > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d opportunities - stale (no update in %d+ days)\n", len(stats.StaleOpportunities), staleAfterDays))
		}
	}

	return out.String()
}

// renderBars scales each row to the largest count. amounts may be nil.
func renderBars(out *strings.Builder, order []string, counts map[string]int, amounts map[string]float64) {
	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, key := range order {
		count, ok := counts[key]
		if !ok {
			continue
		}
		barLength := (count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)

		out.WriteString(fmt.Sprintf("  %-13s %s  %2d", key, bar, count))
		if amounts != nil {
			out.WriteString(fmt.Sprintf(" (%s)", feed.FormatMoney(amounts[key])))
		}
		out.WriteString("\n")
	}
}
