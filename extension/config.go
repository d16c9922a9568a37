package extension

import (
	"time"

	"github.com/xraph/paystream/notify"
	"github.com/xraph/paystream/plugin"
)

// Config holds the paystream extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.paystream" or "paystream" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// DisableMetrics skips registering the observability plugin against
	// the app's metrics.
	DisableMetrics bool `json:"disable_metrics" mapstructure:"disable_metrics" yaml:"disable_metrics"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// GroveDatabase is the name of a grove.DB registered in the DI container.
	// When set, the extension resolves this named database and auto-constructs
	// the appropriate store based on the driver type (pg/sqlite/mongo).
	// When empty and WithGroveDatabase was called, the default (unnamed) DB is used.
	GroveDatabase string `json:"grove_database" mapstructure:"grove_database" yaml:"grove_database"`

	// Notify configures the Redis change-event publisher. Disabled when
	// Addr is empty.
	Notify NotifyConfig `json:"notify" mapstructure:"notify" yaml:"notify"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// NotifyConfig holds the Redis publisher settings.
type NotifyConfig struct {
	Addr     string `json:"addr" mapstructure:"addr" yaml:"addr"`
	Password string `json:"password" mapstructure:"password" yaml:"password"`
	DB       int    `json:"db" mapstructure:"db" yaml:"db"`

	// Prefix is prepended to every channel name (default: "paystream").
	Prefix string `json:"prefix" mapstructure:"prefix" yaml:"prefix"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		PluginTimeout: plugin.DefaultTimeout,
		Notify: NotifyConfig{
			Prefix: notify.DefaultPrefix,
		},
	}
}
