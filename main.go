// ABOUTME: Entry point for the crmdesk CLI, MCP server, HTTP API, and TUI
// ABOUTME: Loads config, opens the configured backend, and routes to a command
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/harperreed/crmdesk/charm"
	"github.com/harperreed/crmdesk/cli"
	"github.com/harperreed/crmdesk/config"
	"github.com/harperreed/crmdesk/db"
	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/logging"
	"github.com/harperreed/crmdesk/metrics"
	"github.com/harperreed/crmdesk/store"
	"github.com/harperreed/crmdesk/tui"
	"github.com/harperreed/crmdesk/web"
	"github.com/harperreed/crmdesk/workflow"
)

const version = "0.2.0"

type command func(ctx context.Context, app *cli.App, args []string) error

var crmCommands = map[string]command{
	"add-client":         cli.AddClientCommand,
	"list-clients":       cli.ListClientsCommand,
	"update-client":      cli.UpdateClientCommand,
	"add-lead":           cli.AddLeadCommand,
	"list-leads":         cli.ListLeadsCommand,
	"qualify-lead":       cli.QualifyLeadCommand,
	"convert-lead":       cli.ConvertLeadCommand,
	"lose-lead":          cli.LoseLeadCommand,
	"reconcile":          cli.ReconcileCommand,
	"add-opportunity":    cli.AddOpportunityCommand,
	"list-opportunities": cli.ListOpportunitiesCommand,
	"update-opportunity": cli.UpdateOpportunityCommand,
	"add-task":           cli.AddTaskCommand,
	"list-tasks":         cli.ListTasksCommand,
	"complete-task":      cli.CompleteTaskCommand,
	"log-activity":       cli.LogActivityCommand,
	"delete":             cli.DeleteCommand,
	"feed":               cli.FeedCommand,
	"seed":               cli.SeedCommand,
}

var vizCommands = map[string]command{
	"graph":     cli.VizGraphCommand,
	"dashboard": cli.VizDashboardCommand,
}

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	configPath := flag.String("config", "", "Config file (default: $XDG_CONFIG_HOME/crmdesk/config.json)")
	dbPath := flag.String("db-path", "", "Database path, overrides config")
	backend := flag.String("backend", "", "Storage backend: sqlite or charm, overrides config")
	logLevel := flag.String("log-level", "", "Log level, overrides config")

	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("crmdesk version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid config: %v", err)
	}

	command, commandArgs := args[0], args[1:]

	// The TUI owns the terminal, so its logs go nowhere.
	var log *logrus.Logger
	if command == "tui" {
		log = logging.Discard()
	} else {
		log, err = logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
		if err != nil {
			logrus.Fatalf("Invalid logging config: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if command == "config" {
		if err := runConfig(cfg, *configPath, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	}

	if err := run(ctx, cfg, log, command, commandArgs); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger, command string, args []string) error {
	if command == "sync" {
		return runSync(cfg, args)
	}

	gw, closeBackend, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	m := metrics.New()
	app, err := newApp(ctx, cfg, log, gw, m)
	if err != nil {
		return err
	}

	switch command {
	case "mcp":
		return cli.MCPCommand(ctx, app)

	case "crm":
		return dispatch(ctx, app, "crm", crmCommands, args)

	case "viz":
		return dispatch(ctx, app, "viz", vizCommands, args)

	case "serve":
		server, err := web.NewServer(web.Deps{
			Cache:           app.Cache,
			Engine:          app.Engine,
			FeedOptions:     app.FeedOptions,
			Metrics:         m,
			Log:             log,
			RefreshSchedule: cfg.Server.RefreshSchedule,
		})
		if err != nil {
			return err
		}
		return server.Start(ctx, cfg.Server.Addr)

	case "tui":
		watcher := feed.NewWatcher(app.Cache, app.FeedOptions, m)
		defer watcher.Close()

		model := tui.NewModel(ctx, app.Cache, app.Engine, watcher, app.FeedOptions)
		defer model.Close()

		_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		return err
	}

	printUsage()
	return fmt.Errorf("unknown command: %s", command)
}

// openBackend returns the configured gateway and a func that releases it.
func openBackend(cfg *config.Config) (store.Gateway, func(), error) {
	switch cfg.Backend {
	case config.BackendCharm:
		client, err := charm.NewClient(charm.ConfigFrom(cfg.Charm))
		if err != nil {
			return nil, nil, err
		}
		return charm.NewGateway(client), func() {}, nil
	default:
		database, err := db.OpenDatabase(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		return db.NewGateway(database), func() { _ = database.Close() }, nil
	}
}

func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger, gw store.Gateway, m *metrics.Metrics) (*cli.App, error) {
	policy, err := workflow.ParsePolicy(cfg.Workflow.Compensation)
	if err != nil {
		return nil, err
	}

	cache := store.NewCache(gw, log)
	if err := cache.Refresh(ctx); err != nil {
		// Collections that failed stay empty; the rest are still usable.
		log.WithError(err).Warn("initial cache load incomplete")
	}

	engine := workflow.NewEngine(cache, workflow.Options{
		Policy:            policy,
		AllowReconversion: cfg.Workflow.AllowReconversion,
		Logger:            log,
		Metrics:           m,
	})

	return &cli.App{
		Cache:  cache,
		Engine: engine,
		FeedOptions: feed.Options{
			Limit:                cfg.Feed.Limit,
			HighValueClient:      cfg.Feed.HighValueClient,
			HighValueOpportunity: cfg.Feed.HighValueOpportunity,
		},
		Log:     log,
		Out:     os.Stdout,
		Version: version,
	}, nil
}

func dispatch(ctx context.Context, app *cli.App, group string, commands map[string]command, args []string) error {
	if len(args) == 0 {
		printUsage()
		return fmt.Errorf("%s requires a subcommand", group)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		printUsage()
		return fmt.Errorf("unknown %s command: %s", group, args[0])
	}
	return cmd(ctx, app, args[1:])
}

func runSync(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		printUsage()
		return fmt.Errorf("sync requires a subcommand")
	}

	client, err := charm.NewClient(charm.ConfigFrom(cfg.Charm))
	if err != nil {
		return err
	}

	switch args[0] {
	case "status":
		return charm.SyncStatusCommand(client, os.Stdout, args[1:])
	case "now":
		return charm.SyncNowCommand(client, os.Stdout, args[1:])
	case "wipe":
		return charm.SyncWipeCommand(client, os.Stdout, args[1:])
	}
	printUsage()
	return fmt.Errorf("unknown sync command: %s", args[0])
}

// runConfig prints the effective configuration or writes it out as a starting file.
func runConfig(cfg *config.Config, path string, args []string) error {
	if len(args) == 0 {
		printUsage()
		return fmt.Errorf("config requires a subcommand")
	}

	switch args[0] {
	case "show":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)

	case "init":
		fs := flag.NewFlagSet("config init", flag.ExitOnError)
		force := fs.Bool("force", false, "Overwrite an existing config file")
		_ = fs.Parse(args[1:])

		if path == "" {
			path = config.DefaultPath()
		}
		if _, err := os.Stat(path); err == nil && !*force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := cfg.Save(path); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	}
	printUsage()
	return fmt.Errorf("unknown config command: %s", args[0])
}

func printUsage() {
	fmt.Printf(`crmdesk v%s - CRM with lead workflow and activity feed

USAGE:
  crmdesk [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --config <path>        Config file (default: ~/.config/crmdesk/config.json)
  --db-path <path>       SQLite database path (default: ~/.local/share/crmdesk/crm.db)
  --backend <name>       sqlite or charm
  --log-level <level>    debug, info, warn, error

COMMANDS:
  crm                    Record and workflow commands
  viz                    Graphs and dashboard
  mcp                    Start MCP server on stdio
  serve                  Start JSON HTTP API (config server.addr)
  tui                    Interactive terminal UI
  sync                   Charm KV sync (status, now, wipe --confirm)
  config                 Show effective config, or init [--force] to write it to --config

CRM COMMANDS:
  crmdesk crm add-client --name <name> [--email --phone --company --status --value --tags --notes]
  crmdesk crm list-clients [--query --status --limit]
  crmdesk crm update-client [flags] <id>

  crmdesk crm add-lead --name <name> [--email --phone --company --source --value --notes]
  crmdesk crm list-leads [--query --status --limit]
  crmdesk crm qualify-lead --score <0-100> [--notes] <id>
  crmdesk crm convert-lead <id>
  crmdesk crm lose-lead --reason <text> <id>
  crmdesk crm reconcile [--resolve <run-id>]

  crmdesk crm add-opportunity --title <title> --client <id> [--value --stage --probability --close-date]
  crmdesk crm list-opportunities [--client --stage --open]
  crmdesk crm update-opportunity [flags] <id>

  crmdesk crm add-task --title <title> [--due --priority --client|--lead|--opportunity]
  crmdesk crm list-tasks [--all --status --priority]
  crmdesk crm complete-task <id>
  crmdesk crm log-activity --type <call|email|meeting|task|note> --title <title> [--pending]

  crmdesk crm delete <table> <id>
  crmdesk crm feed [--type --related --query --limit --json]
  crmdesk crm seed [--seed --clients --leads --opportunities --tasks --activities]

VIZ COMMANDS:
  crmdesk viz graph funnel|pipeline     Lead funnel or opportunity pipeline as DOT
  crmdesk viz graph account <client-id> Client account graph
    --output <file>                     Output file (default: stdout)
  crmdesk viz dashboard                 Text dashboard

EXAMPLES:
  crmdesk crm add-lead --name "Ada Lovelace" --company "Analytical Engines" --value 50000
  crmdesk crm qualify-lead --score 85 --notes "budget approved" <lead-id>
  crmdesk crm feed --type lead_created,deal_closed --limit 10
  crmdesk serve

`, version)
}
