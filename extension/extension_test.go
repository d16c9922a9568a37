package extension

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/paystream/notify"
	"github.com/xraph/paystream/plugin"
	"github.com/xraph/paystream/store/memory"
)

func TestNewAppliesOptions(t *testing.T) {
	s := memory.New()
	e := New(
		WithStore(s),
		WithDisableMigrate(),
		WithDisableMetrics(),
		WithPluginTimeout(time.Second),
		WithGroveDatabase("primary"),
	)

	assert.Same(t, s, e.store)
	assert.True(t, e.config.DisableMigrate)
	assert.True(t, e.config.DisableMetrics)
	assert.Equal(t, time.Second, e.config.PluginTimeout)
	assert.Equal(t, "primary", e.config.GroveDatabase)
	assert.True(t, e.useGrove)
	assert.Nil(t, e.Engine())
	assert.Equal(t, ExtensionName, e.Name())
}

func TestMergeWithDefaults(t *testing.T) {
	e := New()

	cfg := e.mergeWithDefaults(Config{})
	assert.Equal(t, plugin.DefaultTimeout, cfg.PluginTimeout)
	assert.Equal(t, notify.DefaultPrefix, cfg.Notify.Prefix)

	cfg = e.mergeWithDefaults(Config{PluginTimeout: time.Second, Notify: NotifyConfig{Prefix: "x"}})
	assert.Equal(t, time.Second, cfg.PluginTimeout)
	assert.Equal(t, "x", cfg.Notify.Prefix)
}

func TestMergeConfigurations(t *testing.T) {
	e := New()

	tests := []struct {
		name         string
		yaml         Config
		programmatic Config
		check        func(t *testing.T, cfg Config)
	}{
		{
			name:         "programmatic flags win when set",
			yaml:         Config{},
			programmatic: Config{DisableMigrate: true, DisableMetrics: true},
			check: func(t *testing.T, cfg Config) {
				assert.True(t, cfg.DisableMigrate)
				assert.True(t, cfg.DisableMetrics)
			},
		},
		{
			name:         "yaml strings take precedence",
			yaml:         Config{GroveDatabase: "file"},
			programmatic: Config{GroveDatabase: "code"},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, "file", cfg.GroveDatabase)
			},
		},
		{
			name:         "programmatic fills gaps",
			yaml:         Config{},
			programmatic: Config{GroveDatabase: "code", PluginTimeout: 2 * time.Second},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, "code", cfg.GroveDatabase)
				assert.Equal(t, 2*time.Second, cfg.PluginTimeout)
			},
		},
		{
			name: "notify settings copied as a unit",
			yaml: Config{},
			programmatic: Config{Notify: NotifyConfig{
				Addr: "localhost:6379", Password: "secret", DB: 3,
			}},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, "localhost:6379", cfg.Notify.Addr)
				assert.Equal(t, "secret", cfg.Notify.Password)
				assert.Equal(t, 3, cfg.Notify.DB)
				assert.Equal(t, notify.DefaultPrefix, cfg.Notify.Prefix)
			},
		},
		{
			name:         "yaml notify addr is kept",
			yaml:         Config{Notify: NotifyConfig{Addr: "redis:6379", Prefix: "ps"}},
			programmatic: Config{Notify: NotifyConfig{Addr: "localhost:6379", DB: 3}},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, "redis:6379", cfg.Notify.Addr)
				assert.Zero(t, cfg.Notify.DB)
				assert.Equal(t, "ps", cfg.Notify.Prefix)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := e.mergeConfigurations(tt.yaml, tt.programmatic)
			require.NotZero(t, cfg.PluginTimeout)
			tt.check(t, cfg)
		})
	}
}
