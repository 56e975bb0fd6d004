// ABOUTME: Demo data CLI command
// ABOUTME: Fills the store with generated clients, leads, opportunities, tasks, and activities
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/crmdesk/fixtures"
)

// SeedCommand writes a generated dataset through the cache.
func SeedCommand(ctx context.Context, app *App, args []string) error {
	defaults := fixtures.DefaultCounts()

	fs := newFlagSet("seed")
	seed := fs.Int64("seed", time.Now().UnixNano(), "Random seed")
	clients := fs.Int("clients", defaults.Clients, "Clients to create")
	leads := fs.Int("leads", defaults.Leads, "Leads to create")
	opps := fs.Int("opportunities", defaults.Opportunities, "Opportunities to create")
	tasks := fs.Int("tasks", defaults.Tasks, "Tasks to create")
	activities := fs.Int("activities", defaults.Activities, "Activities to create")
	profiles := fs.Int("profiles", defaults.Profiles, "Profiles to create")
	if err := fs.Parse(args); err != nil {
		return err
	}

	done, err := fixtures.New(*seed).Seed(ctx, app.Cache, fixtures.Counts{
		Clients:       *clients,
		Leads:         *leads,
		Opportunities: *opps,
		Tasks:         *tasks,
		Activities:    *activities,
		Profiles:      *profiles,
	})
	if err != nil {
		return fmt.Errorf("seeding stopped after partial write: %w", err)
	}

	fmt.Fprintf(app.out(), "✓ Seeded %d clients, %d leads, %d opportunities, %d tasks, %d activities, %d profiles\n",
		done.Clients, done.Leads, done.Opportunities, done.Tasks, done.Activities, done.Profiles)
	return nil
}
