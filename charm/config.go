// ABOUTME: Configuration for Charm KV backend connection
// ABOUTME: Handles server settings and auto-sync preferences

package charm

import (
	"os"

	appconfig "github.com/harperreed/crmdesk/config"
)

const (
	// DefaultCharmHost is the self-hosted 2389 research server.
	DefaultCharmHost = "charm.2389.dev"

	// AppName is the application name for Charm KV database.
	AppName = appconfig.AppName
)

// Config holds charm connection settings.
type Config struct {
	// Host is the charm server hostname (default: charm.2389.dev)
	Host string

	// AutoSync enables automatic sync after every write operation
	AutoSync bool
}

// DefaultConfig returns a new config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:     DefaultCharmHost,
		AutoSync: true,
	}
}

// ConfigFrom maps the application's charm section onto a client config.
func ConfigFrom(c appconfig.CharmConfig) *Config {
	cfg := DefaultConfig()
	if c.Host != "" {
		cfg.Host = c.Host
	}
	cfg.AutoSync = c.AutoSync
	return cfg
}

// apply exports the host for the charm libraries, which read it from the environment.
func (c *Config) apply() {
	_ = os.Setenv("CHARM_HOST", c.Host)
}
