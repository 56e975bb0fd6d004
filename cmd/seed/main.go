// ABOUTME: Standalone utility that fills a SQLite CRM database with generated demo data
// ABOUTME: Can back up an existing database file before writing to it

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/harperreed/crmdesk/db"
	"github.com/harperreed/crmdesk/fixtures"
	"github.com/harperreed/crmdesk/logging"
)

func main() {
	dbPath := flag.String("db", "", "Path to database file (required)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	backup := flag.Bool("backup", true, "Back up an existing database before seeding")
	scale := flag.Int("scale", 1, "Multiply the default record counts")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	log, err := logging.New(*logLevel, "text", os.Stderr)
	if err != nil {
		logrus.Fatalf("invalid log level: %v", err)
	}

	if *dbPath == "" {
		log.Fatal("Error: -db flag is required")
	}

	if err := run(context.Background(), log, *dbPath, *seed, *backup, *scale); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Info("Seeding completed successfully")
}

func run(ctx context.Context, log logrus.FieldLogger, dbPath string, seed int64, createBackup bool, scale int) error {
	if scale < 1 {
		return fmt.Errorf("scale must be at least 1")
	}

	if _, err := os.Stat(dbPath); err == nil && createBackup {
		backupPath := fmt.Sprintf("%s.backup.%s", dbPath, time.Now().Format("20060102-150405"))
		log.WithField("path", backupPath).Info("Creating backup")

		input, err := os.ReadFile(dbPath)
		if err != nil {
			return fmt.Errorf("failed to read database: %w", err)
		}
		if err := os.WriteFile(backupPath, input, 0644); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
	}

	database, err := db.OpenDatabase(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	counts := fixtures.DefaultCounts()
	counts.Clients *= scale
	counts.Leads *= scale
	counts.Opportunities *= scale
	counts.Tasks *= scale
	counts.Activities *= scale
	counts.Profiles *= scale

	done, err := fixtures.New(seed).Seed(ctx, db.NewGateway(database), counts)
	log.WithFields(logrus.Fields{
		"seed":          seed,
		"clients":       done.Clients,
		"leads":         done.Leads,
		"opportunities": done.Opportunities,
		"tasks":         done.Tasks,
		"activities":    done.Activities,
		"profiles":      done.Profiles,
	}).Info("Records written")
	return err
}
