// ABOUTME: Lead CLI commands
// ABOUTME: Capture, list, and move leads through qualify, convert, and lost
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/handlers"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/store"
	"github.com/harperreed/crmdesk/workflow"
)

// AddLeadCommand captures a new lead.
func AddLeadCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet("add-lead")
	name := fs.String("name", "", "Lead name (required)")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "Phone number")
	company := fs.String("company", "", "Company name")
	source := fs.String("source", "", "Lead source")
	value := fs.Float64("value", 0, "Estimated value in dollars")
	notes := fs.String("notes", "", "Notes about the lead")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	_, lead, err := handlers.NewLeadHandlers(app.Cache, app.Engine).AddLead(ctx, nil, handlers.AddLeadInput{
		Name:    *name,
		Email:   *email,
		Phone:   *phone,
		Company: *company,
		Source:  *source,
		Value:   *value,
		Notes:   *notes,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(app.out(), "✓ Lead created: %s (ID: %s)\n", lead.Name, lead.ID)
	return nil
}

// ListLeadsCommand lists leads.
func ListLeadsCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet("list-leads")
	query := fs.String("query", "", "Search by name, email, or company")
	status := fs.String("status", "", "Filter by status")
	limit := fs.Int("limit", 50, "Maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, found, err := handlers.NewLeadHandlers(app.Cache, app.Engine).FindLeads(ctx, nil, handlers.FindLeadsInput{
		Query:  *query,
		Status: *status,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}

	out := app.out()
	if found.Count == 0 {
		fmt.Fprintln(out, "No leads found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tCOMPANY\tSOURCE\tSTATUS\tSCORE\tVALUE\tID")
	_, _ = fmt.Fprintln(w, "----\t-------\t------\t------\t-----\t-----\t--")
	for _, l := range found.Leads {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			l.Name, orDash(l.Company), orDash(l.Source), l.Status, l.Score, feed.FormatMoney(l.Value), l.ID)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\nFound %d lead(s)\n", found.Count)
	return nil
}

// printOutcome reports the result of a workflow transition, including partial failures.
func printOutcome(out io.Writer, verb string, o handlers.TransitionOutput) {
	if o.Success {
		fmt.Fprintf(out, "✓ Lead %s", verb)
	} else {
		fmt.Fprintf(out, "✗ Lead %s only partially", verb)
	}
	if o.Lead != nil {
		fmt.Fprintf(out, ": %s (status: %s)", o.Lead.Name, o.Lead.Status)
	}
	fmt.Fprintln(out)

	if o.Client != nil {
		fmt.Fprintf(out, "  Client: %s (ID: %s)\n", o.Client.Name, o.Client.ID)
	}
	for _, w := range o.Warnings {
		fmt.Fprintf(out, "  ⚠️  %s\n", w)
	}
	if o.NeedsReconciliation {
		fmt.Fprintf(out, "  Run %s needs reconciliation; see `crm reconcile`\n", o.RunID)
	}
}

func runTransition(app *App, verb string, outcome *workflow.Outcome, err error) error {
	if outcome == nil || (err != nil && !errors.Is(err, workflow.ErrNeedsReconciliation)) {
		return err
	}
	printOutcome(app.out(), verb, handlers.OutcomeToOutput(outcome))
	return err
}

// QualifyLeadCommand marks a lead qualified.
func QualifyLeadCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet("qualify-lead")
	score := fs.Int("score", 0, "Qualification score 0-100")
	notes := fs.String("notes", "", "Qualification notes (replaces existing notes)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireArg(fs, "lead ID")
	if err != nil {
		return err
	}
	if *score < 0 || *score > 100 {
		return fmt.Errorf("--score must be between 0 and 100")
	}

	outcome, err := app.Engine.QualifyLead(ctx, id, *score, *notes)
	return runTransition(app, "qualified", outcome, err)
}

// ConvertLeadCommand converts a lead into a client.
func ConvertLeadCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet("convert-lead")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireArg(fs, "lead ID")
	if err != nil {
		return err
	}

	row, err := app.Cache.Get(ctx, store.TableLeads, id)
	if err != nil {
		return fmt.Errorf("failed to get lead: %w", err)
	}
	lead, err := store.Decode[models.Lead](row)
	if err != nil {
		return err
	}

	outcome, err := app.Engine.ConvertLeadToClient(ctx, lead)
	return runTransition(app, "converted", outcome, err)
}

// LoseLeadCommand marks a lead lost.
func LoseLeadCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet("lose-lead")
	reason := fs.String("reason", "", "Why the lead was lost (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireArg(fs, "lead ID")
	if err != nil {
		return err
	}
	if *reason == "" {
		return fmt.Errorf("--reason is required")
	}

	outcome, err := app.Engine.MarkLeadAsLost(ctx, id, *reason)
	return runTransition(app, "marked lost", outcome, err)
}

// ReconcileCommand lists partially applied runs, or clears one with --resolve.
func ReconcileCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet("reconcile")
	resolve := fs.String("resolve", "", "Run ID to mark as reconciled")
	if err := fs.Parse(args); err != nil {
		return err
	}

	out := app.out()
	if *resolve != "" {
		if err := app.Engine.Resolve(*resolve); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Run %s resolved\n", *resolve)
		return nil
	}

	runs := app.Engine.Pending()
	if len(runs) == 0 {
		fmt.Fprintln(out, "Nothing to reconcile")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN\tTRANSITION\tLEAD\tCLIENT\tSTEPS")
	for _, r := range runs {
		steps := ""
		for i, s := range r.Steps {
			if i > 0 {
				steps += ", "
			}
			steps += s.Name + "=" + string(s.Status)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Transition, r.LeadID, orDash(r.ClientID), steps)
	}
	return w.Flush()
}
