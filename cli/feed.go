// ABOUTME: Activity feed CLI command
// ABOUTME: Prints the unified feed with per-kind icons, colored when writing to a terminal
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/models"
)

// FeedCommand prints the activity feed.
func FeedCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet("feed")
	types := fs.String("type", "", "Comma-separated item types to show")
	related := fs.String("related", "", "Only items about a client, lead, or opportunity")
	query := fs.String("query", "", "Text to match")
	limit := fs.Int("limit", 0, "Maximum items (default from config)")
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := feed.Filter{Query: *query, RelatedType: models.RelatedType(*related)}
	for _, t := range csv(*types) {
		kind, err := feed.ParseKind(t)
		if err != nil {
			return err
		}
		filter.Kinds = append(filter.Kinds, kind)
	}

	opts := app.FeedOptions
	if *limit > 0 {
		opts.Limit = *limit
	}
	f := feed.BuildFiltered(feed.SnapshotOf(app.Cache), opts, filter)

	out := app.out()
	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(f)
	}

	RenderFeed(out, f, app.isTerminal(), time.Now())
	return nil
}

// RenderFeed writes f as text. color enables ANSI styling per item kind.
func RenderFeed(out io.Writer, f feed.Feed, color bool, now time.Time) {
	header := lipgloss.NewStyle().Bold(true)
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	paint := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	fmt.Fprintln(out, paint(header, "ACTIVITY FEED"))
	fmt.Fprintf(out, "%d today · %d tasks completed · %d new leads · %d deals closed · %s total\n\n",
		f.Stats.Today, f.Stats.TasksCompleted, f.Stats.NewLeads, f.Stats.DealsClosed, feed.FormatMoney(f.Stats.TotalValue))

	if len(f.Items) == 0 {
		fmt.Fprintln(out, "No activity yet")
		return
	}

	for _, it := range f.Items {
		style := it.Kind.Style()
		title := paint(lipgloss.NewStyle().Foreground(lipgloss.Color(style.Color)), it.Title)

		var meta []string
		if it.RelatedTo != "" && !strings.Contains(it.Title, it.RelatedTo) {
			meta = append(meta, it.RelatedTo)
		}
		if it.Value != nil && *it.Value > 0 {
			meta = append(meta, feed.FormatMoney(*it.Value))
		}
		if it.Priority != "" {
			meta = append(meta, it.Priority)
		}

		line := fmt.Sprintf("%s  %s %s", relativeTime(it.Timestamp, now), style.Icon, title)
		if len(meta) > 0 {
			line += paint(dim, " · "+strings.Join(meta, " · "))
		}
		fmt.Fprintln(out, line)
		if it.Description != "" {
			fmt.Fprintf(out, "            %s\n", paint(dim, truncate(it.Description, 72)))
		}
	}
}

// relativeTime renders a fixed-width age such as "   5m ago".
func relativeTime(ts, now time.Time) string {
	d := now.Sub(ts)
	var s string
	switch {
	case d < time.Minute:
		s = "just now"
	case d < time.Hour:
		s = fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		s = fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		s = fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		s = ts.Format("Jan 2")
	}
	return fmt.Sprintf("%10s", s)
}
