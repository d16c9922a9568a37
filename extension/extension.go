// Package extension provides the Forge extension adapter for paystream.
//
// It implements the forge.Extension interface to integrate the streaming
// engine into a Forge application with automatic store discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.paystream" or "paystream" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/paystream"
	"github.com/xraph/paystream/notify"
	"github.com/xraph/paystream/observability"
	"github.com/xraph/paystream/store"
	"github.com/xraph/paystream/store/memory"
	"github.com/xraph/paystream/store/mongo"
	"github.com/xraph/paystream/store/postgres"
	"github.com/xraph/paystream/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "paystream"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Time-based payment streaming engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// connectTimeout bounds the Redis handshake during Register.
const connectTimeout = 5 * time.Second

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts paystream as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *paystream.Engine
	store      store.Store
	redis      *redis.Client
	engineOpts []paystream.Option
	useGrove   bool
}

// New creates a new paystream Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine.
// This is nil until Register is called.
func (e *Extension) Engine() *paystream.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// resolves the store, initializes the engine, and registers it in the
// DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil && e.useGrove {
		s, err := e.resolveGroveStore(fapp.Container())
		if err != nil {
			return err
		}
		e.store = s
	}

	// Use memory store if no store was provided or resolved.
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildEngineOpts(fapp)
	if err != nil {
		return err
	}

	e.engine = paystream.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*paystream.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("paystream: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	defer e.MarkStopped()

	var errs []error
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.redis != nil {
		if err := e.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("paystream: store not initialized")
	}
	if err := e.store.Ping(ctx); err != nil {
		return err
	}
	if e.redis != nil {
		return e.redis.Ping(ctx).Err()
	}
	return nil
}

// resolveGroveStore looks up a grove.DB in the container and builds the
// store matching its driver.
func (e *Extension) resolveGroveStore(c forge.Container) (store.Store, error) {
	var (
		db  *grove.DB
		err error
	)
	if e.config.GroveDatabase != "" {
		db, err = vessel.InjectNamed[*grove.DB](c, e.config.GroveDatabase)
	} else {
		db, err = vessel.Inject[*grove.DB](c)
	}
	if err != nil {
		return nil, fmt.Errorf("paystream: resolve grove database %q: %w", e.config.GroveDatabase, err)
	}

	name := db.Driver().Name()
	e.Logger().Debug("paystream: using grove store",
		forge.F("database", e.config.GroveDatabase),
		forge.F("driver", name),
	)

	switch name {
	case "pg":
		return postgres.New(db), nil
	case "sqlite":
		return sqlite.New(db), nil
	case "mongo":
		return mongo.New(db), nil
	default:
		return nil, fmt.Errorf("paystream: unsupported grove driver %q", name)
	}
}

// buildEngineOpts constructs paystream.Option values from the resolved config.
func (e *Extension) buildEngineOpts(fapp forge.App) ([]paystream.Option, error) {
	opts := make([]paystream.Option, 0, len(e.engineOpts)+3)

	if e.config.PluginTimeout > 0 {
		opts = append(opts, paystream.WithPluginTimeout(e.config.PluginTimeout))
	}

	if !e.config.DisableMetrics {
		if m := fapp.Metrics(); m != nil {
			opts = append(opts, paystream.WithPlugin(observability.NewMetricsExtension(m)))
		}
	}

	if nc := e.config.Notify; nc.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		n, rc, err := notify.NewClient(ctx, nc.Addr, nc.Password, nc.DB, notify.WithPrefix(nc.Prefix))
		if err != nil {
			return nil, err
		}
		e.redis = rc
		opts = append(opts, paystream.WithPlugin(n))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts, nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("paystream: configuration is required but not found in config files; " +
				"ensure 'extensions.paystream' or 'paystream' key exists in your config")
		}

		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	if e.config.GroveDatabase != "" {
		e.useGrove = true
	}

	e.Logger().Debug("paystream: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("disable_metrics", e.config.DisableMetrics),
		forge.F("plugin_timeout", e.config.PluginTimeout),
		forge.F("grove_database", e.config.GroveDatabase),
		forge.F("notify_addr", e.config.Notify.Addr),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions." + ExtensionName, ExtensionName} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("paystream: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("paystream: loaded config from file",
			forge.F("key", key),
		)
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	if cfg.Notify.Prefix == "" {
		cfg.Notify.Prefix = defaults.Notify.Prefix
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.DisableMetrics {
		yamlConfig.DisableMetrics = true
	}

	if yamlConfig.GroveDatabase == "" && programmaticConfig.GroveDatabase != "" {
		yamlConfig.GroveDatabase = programmaticConfig.GroveDatabase
	}
	if yamlConfig.PluginTimeout == 0 && programmaticConfig.PluginTimeout != 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	if yamlConfig.Notify.Addr == "" && programmaticConfig.Notify.Addr != "" {
		yamlConfig.Notify.Addr = programmaticConfig.Notify.Addr
		yamlConfig.Notify.Password = programmaticConfig.Notify.Password
		yamlConfig.Notify.DB = programmaticConfig.Notify.DB
	}
	if yamlConfig.Notify.Prefix == "" && programmaticConfig.Notify.Prefix != "" {
		yamlConfig.Notify.Prefix = programmaticConfig.Notify.Prefix
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
