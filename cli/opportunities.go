// ABOUTME: Opportunity CLI commands
// ABOUTME: Create, list, and advance sales opportunities
package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/handlers"
)

// AddOpportunityCommand creates an opportunity for a client.
func AddOpportunityCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet("add-opportunity")
	title := fs.String("title", "", "Opportunity title (required)")
	clientID := fs.String("client", "", "Client ID (required)")
	value := fs.Float64("value", 0, "Deal value in dollars")
	stage := fs.String("stage", "", "Stage (default prospecting)")
	probability := fs.Int("probability", 0, "Win probability 0-100")
	closeDate := fs.String("close-date", "", "Expected close date (YYYY-MM-DD or RFC3339)")
	description := fs.String("description", "", "Description")
	products := fs.String("products", "", "Comma-separated products")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *title == "" {
		return fmt.Errorf("--title is required")
	}
	if *clientID == "" {
		return fmt.Errorf("--client is required")
	}

	_, opp, err := handlers.NewOpportunityHandlers(app.Cache).AddOpportunity(ctx, nil, handlers.AddOpportunityInput{
		Title:             *title,
		ClientID:          *clientID,
		Value:             *value,
		Stage:             *stage,
		Probability:       *probability,
		ExpectedCloseDate: *closeDate,
		Description:       *description,
		Products:          csv(*products),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(app.out(), "✓ Opportunity created: %s (ID: %s)\n  Value: %s\n  Stage: %s\n",
		opp.Title, opp.ID, feed.FormatMoney(opp.Value), opp.Stage)
	return nil
}

// ListOpportunitiesCommand lists opportunities.
func ListOpportunitiesCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet("list-opportunities")
	query := fs.String("query", "", "Search by title or description")
	clientID := fs.String("client", "", "Filter by client ID")
	stage := fs.String("stage", "", "Filter by stage")
	open := fs.Bool("open", false, "Only open opportunities")
	limit := fs.Int("limit", 50, "Maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, found, err := handlers.NewOpportunityHandlers(app.Cache).FindOpportunities(ctx, nil, handlers.FindOpportunitiesInput{
		Query:    *query,
		ClientID: *clientID,
		Stage:    *stage,
		OpenOnly: *open,
		Limit:    *limit,
	})
	if err != nil {
		return err
	}

	out := app.out()
	if found.Count == 0 {
		fmt.Fprintln(out, "No opportunities found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TITLE\tSTAGE\tVALUE\tPROB\tCLOSE\tID")
	_, _ = fmt.Fprintln(w, "-----\t-----\t-----\t----\t-----\t--")
	for _, o := range found.Opportunities {
		closeDate := "-"
		if o.ExpectedCloseDate != nil {
			closeDate = (*o.ExpectedCloseDate)[:10]
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\t%s\n", o.Title, o.Stage, feed.FormatMoney(o.Value), o.Probability, closeDate, o.ID)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\nFound %d opportunit(ies), %s total\n", found.Count, feed.FormatMoney(found.TotalValue))
	return nil
}

// UpdateOpportunityCommand changes an opportunity's stage or numbers.
func UpdateOpportunityCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet("update-opportunity")
	title := fs.String("title", "", "New title")
	stage := fs.String("stage", "", "New stage")
	value := fs.Float64("value", -1, "New value")
	probability := fs.Int("probability", -1, "New win probability")
	closeDate := fs.String("close-date", "", "New expected close date")
	nextSteps := fs.String("next-steps", "", "Next steps")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireArg(fs, "opportunity ID")
	if err != nil {
		return err
	}

	in := handlers.UpdateOpportunityInput{
		ID:                id,
		Title:             *title,
		Stage:             *stage,
		ExpectedCloseDate: *closeDate,
		NextSteps:         *nextSteps,
	}
	if *value >= 0 {
		in.Value = value
	}
	if *probability >= 0 {
		in.Probability = probability
	}

	_, opp, err := handlers.NewOpportunityHandlers(app.Cache).UpdateOpportunity(ctx, nil, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.out(), "✓ Opportunity updated: %s (stage: %s)\n", opp.Title, opp.Stage)
	return nil
}
