// ABOUTME: CLI commands for Charm KV sync operations
// ABOUTME: SSH key auth means there is no login or logout step

package charm

import (
	"flag"
	"fmt"
	"io"

	"github.com/harperreed/crmdesk/store"
)

// SyncStatusCommand shows the sync configuration and how many records are stored per table.
func SyncStatusCommand(c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("sync status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := c.Config()
	fmt.Fprintln(out, "Charm Sync Status")
	fmt.Fprintln(out, "─────────────────")
	fmt.Fprintf(out, "Server:    %s\n", cfg.Host)
	fmt.Fprintf(out, "Auto-sync: %v\n", cfg.AutoSync)

	if id, err := c.ID(); err != nil {
		fmt.Fprintln(out, "Status:    Not connected")
	} else {
		fmt.Fprintln(out, "Status:    Connected")
		fmt.Fprintf(out, "ID:        %s\n", id)
	}

	fmt.Fprintln(out)
	for _, table := range store.Tables() {
		keys, err := c.KeysWithPrefix([]byte(string(table) + "/"))
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", table, err)
		}
		fmt.Fprintf(out, "%-14s %d\n", table+":", len(keys))
	}
	return nil
}

// SyncNowCommand performs an immediate sync.
func SyncNowCommand(c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("sync now", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := c.Sync(); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	fmt.Fprintln(out, "✓ Synced")
	return nil
}

// SyncWipeCommand completely resets the KV store
// WARNING: This deletes all local data!
func SyncWipeCommand(c *Client, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("sync wipe", flag.ContinueOnError)
	confirm := fs.Bool("confirm", false, "Confirm data wipe")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*confirm {
		fmt.Fprintln(out, "WARNING: This will delete ALL local CRM data!")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "To confirm, run:")
		fmt.Fprintln(out, "  crmdesk sync wipe --confirm")
		return nil
	}

	if err := c.Reset(); err != nil {
		return fmt.Errorf("failed to reset KV store: %w", err)
	}

	fmt.Fprintln(out, "✓ All data wiped")
	return nil
}
