// ABOUTME: Client CLI commands
// ABOUTME: Human-friendly commands for managing clients
package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/handlers"
	"github.com/harperreed/crmdesk/store"
)

// AddClientCommand adds a new client.
func AddClientCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet("add-client")
	name := fs.String("name", "", "Client name (required)")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "Phone number")
	company := fs.String("company", "", "Company name")
	status := fs.String("status", "", "Status: lead, prospect, customer, inactive")
	value := fs.Float64("value", 0, "Account value in dollars")
	tags := fs.String("tags", "", "Comma-separated tags")
	notes := fs.String("notes", "", "Notes about the client")
	source := fs.String("source", "", "Where the client came from")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	_, client, err := handlers.NewClientHandlers(app.Cache).AddClient(ctx, nil, handlers.AddClientInput{
		Name:    *name,
		Email:   *email,
		Phone:   *phone,
		Company: *company,
		Status:  *status,
		Value:   *value,
		Tags:    csv(*tags),
		Notes:   *notes,
		Source:  *source,
	})
	if err != nil {
		return err
	}

	out := app.out()
	fmt.Fprintf(out, "✓ Client created: %s (ID: %s)\n", client.Name, client.ID)
	if client.Email != "" {
		fmt.Fprintf(out, "  Email: %s\n", client.Email)
	}
	if client.Company != "" {
		fmt.Fprintf(out, "  Company: %s\n", client.Company)
	}
	fmt.Fprintf(out, "  Status: %s\n", client.Status)
	return nil
}

// ListClientsCommand lists clients.
func ListClientsCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet("list-clients")
	query := fs.String("query", "", "Search by name, email, or company")
	status := fs.String("status", "", "Filter by status")
	limit := fs.Int("limit", 50, "Maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, found, err := handlers.NewClientHandlers(app.Cache).FindClients(ctx, nil, handlers.FindClientsInput{
		Query:  *query,
		Status: *status,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}

	out := app.out()
	if found.Count == 0 {
		fmt.Fprintln(out, "No clients found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tCOMPANY\tSTATUS\tVALUE\tID")
	_, _ = fmt.Fprintln(w, "----\t-------\t------\t-----\t--")
	for _, c := range found.Clients {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.Name, orDash(c.Company), c.Status, feed.FormatMoney(c.Value), c.ID)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\nFound %d client(s)\n", found.Count)
	return nil
}

// UpdateClientCommand updates an existing client.
func UpdateClientCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet("update-client")
	name := fs.String("name", "", "New name")
	email := fs.String("email", "", "New email")
	phone := fs.String("phone", "", "New phone")
	company := fs.String("company", "", "New company")
	status := fs.String("status", "", "New status")
	value := fs.Float64("value", -1, "New account value")
	notes := fs.String("notes", "", "Replacement notes")
	lastContact := fs.String("last-contact", "", "Last contact date (YYYY-MM-DD or RFC3339)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := requireArg(fs, "client ID")
	if err != nil {
		return err
	}

	in := handlers.UpdateClientInput{
		ID:          id,
		Name:        *name,
		Email:       *email,
		Phone:       *phone,
		Company:     *company,
		Status:      *status,
		Notes:       *notes,
		LastContact: *lastContact,
	}
	if *value >= 0 {
		in.Value = value
	}

	_, client, err := handlers.NewClientHandlers(app.Cache).UpdateClient(ctx, nil, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.out(), "✓ Client updated: %s (ID: %s)\n", client.Name, client.ID)
	return nil
}

// DeleteCommand removes one record from any table.
func DeleteCommand(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet("delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: delete <table> <id>")
	}

	table, err := store.ParseTable(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := app.Cache.Delete(ctx, table, fs.Arg(1)); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	fmt.Fprintf(app.out(), "✓ Deleted %s %s\n", table, fs.Arg(1))
	return nil
}
