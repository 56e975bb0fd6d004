// ABOUTME: Application configuration with layered sources
// ABOUTME: Defaults, then XDG config file, then .env, then CRMDESK_* environment variables
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

const (
	AppName        = "crmdesk"
	ConfigFileName = "config.json"
	EnvPrefix      = "CRMDESK_"

	BackendSQLite = "sqlite"
	BackendCharm  = "charm"
)

type CharmConfig struct {
	Host     string `json:"host"`
	AutoSync bool   `json:"auto_sync"`
}

type WorkflowConfig struct {
	// Compensation is "none" or "rollback"
	Compensation      string `json:"compensation"`
	AllowReconversion bool   `json:"allow_reconversion"`
}

type FeedConfig struct {
	Limit                int     `json:"limit"`
	HighValueClient      float64 `json:"high_value_client"`
	HighValueOpportunity float64 `json:"high_value_opportunity"`
}

type ServerConfig struct {
	Addr            string `json:"addr"`
	RefreshSchedule string `json:"refresh_schedule"`
}

type Config struct {
	Backend   string         `json:"backend"`
	DBPath    string         `json:"db_path"`
	LogLevel  string         `json:"log_level"`
	LogFormat string         `json:"log_format"`
	Charm     CharmConfig    `json:"charm"`
	Workflow  WorkflowConfig `json:"workflow"`
	Feed      FeedConfig     `json:"feed"`
	Server    ServerConfig   `json:"server"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend:   BackendSQLite,
		DBPath:    filepath.Join(xdg.DataHome, AppName, "crm.db"),
		LogLevel:  "info",
		LogFormat: "text",
		Charm: CharmConfig{
			Host:     "charm.2389.dev",
			AutoSync: true,
		},
		Workflow: WorkflowConfig{
			Compensation: "none",
		},
		Feed: FeedConfig{
			Limit:                20,
			HighValueClient:      100000,
			HighValueOpportunity: 200000,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			RefreshSchedule: "@every 1m",
		},
	}
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, ConfigFileName)
}

// Load builds the effective configuration. A missing config file or .env is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}

	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func getEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"BACKEND":          &c.Backend,
		"DB_PATH":          &c.DBPath,
		"LOG_LEVEL":        &c.LogLevel,
		"LOG_FORMAT":       &c.LogFormat,
		"CHARM_HOST":       &c.Charm.Host,
		"COMPENSATION":     &c.Workflow.Compensation,
		"ADDR":             &c.Server.Addr,
		"REFRESH_SCHEDULE": &c.Server.RefreshSchedule,
	}
	for key, dst := range strs {
		if v, ok := getEnv(key); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"CHARM_AUTO_SYNC":    &c.Charm.AutoSync,
		"ALLOW_RECONVERSION": &c.Workflow.AllowReconversion,
	}
	for key, dst := range bools {
		if v, ok := getEnv(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = b
		}
	}

	if v, ok := getEnv("FEED_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sFEED_LIMIT: %w", EnvPrefix, err)
		}
		c.Feed.Limit = n
	}

	floats := map[string]*float64{
		"HIGH_VALUE_CLIENT":      &c.Feed.HighValueClient,
		"HIGH_VALUE_OPPORTUNITY": &c.Feed.HighValueOpportunity,
	}
	for key, dst := range floats {
		if v, ok := getEnv(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = f
		}
	}
	return nil
}

// Validate rejects settings the rest of the program cannot act on.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendCharm:
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", BackendSQLite, BackendCharm, c.Backend)
	}
	switch c.Workflow.Compensation {
	case "", "none", "rollback":
	default:
		return fmt.Errorf("workflow.compensation must be none or rollback, got %q", c.Workflow.Compensation)
	}
	if c.Feed.Limit <= 0 {
		return fmt.Errorf("feed.limit must be positive, got %d", c.Feed.Limit)
	}
	// The feed treats zero as "use the default", so an explicit zero would be ignored.
	if c.Feed.HighValueClient <= 0 || c.Feed.HighValueOpportunity <= 0 {
		return fmt.Errorf("feed thresholds must be positive")
	}
	return nil
}

// Save writes the configuration as indented JSON.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
