// ABOUTME: Visualization CLI commands
// ABOUTME: Handles viz dashboard and graph generation commands
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/viz"
)

// VizGraphCommand renders one of the funnel, pipeline, or account graphs as DOT.
func VizGraphCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet("viz graph")
	output := fs.String("output", "", "Output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	kind, err := requireArg(fs, "graph type (funnel, pipeline, account)")
	if err != nil {
		return err
	}

	generator := viz.NewGraphGenerator(feed.SnapshotOf(app.Cache))

	var dot string
	switch kind {
	case "funnel":
		dot, err = generator.GenerateFunnelGraph(ctx)
	case "pipeline":
		dot, err = generator.GeneratePipelineGraph(ctx)
	case "account":
		if fs.NArg() < 2 {
			return fmt.Errorf("client ID required")
		}
		dot, err = generator.GenerateAccountGraph(ctx, fs.Arg(1))
	default:
		return fmt.Errorf("unknown graph type: %s", kind)
	}
	if err != nil {
		return err
	}

	if *output != "" {
		return os.WriteFile(*output, []byte(dot), 0644)
	}

	fmt.Fprintln(app.out(), dot)
	return nil
}

func VizDashboardCommand(ctx context.Context, app *App, args []string) error {
	stats := viz.GenerateDashboardStats(feed.SnapshotOf(app.Cache), app.FeedOptions, time.Now())
	fmt.Fprint(app.out(), viz.RenderDashboard(stats))
	return nil
}
