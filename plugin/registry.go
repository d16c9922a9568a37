package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/paystream/stream"
)

// DefaultTimeout bounds how long a single plugin call may run.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery so dispatch never reflects at call time.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit            []OnInit
	onShutdown        []OnShutdown
	onStreamCreated   []OnStreamCreated
	onStreamWithdrawn []OnStreamWithdrawn
	onStreamCanceled  []OnStreamCanceled
	onStreamCompleted []OnStreamCompleted
	createGuards      []CreateGuard
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call plugin timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnStreamCreated); ok {
		r.onStreamCreated = append(r.onStreamCreated, v)
	}
	if v, ok := p.(OnStreamWithdrawn); ok {
		r.onStreamWithdrawn = append(r.onStreamWithdrawn, v)
	}
	if v, ok := p.(OnStreamCanceled); ok {
		r.onStreamCanceled = append(r.onStreamCanceled, v)
	}
	if v, ok := p.(OnStreamCompleted); ok {
		r.onStreamCompleted = append(r.onStreamCompleted, v)
	}
	if v, ok := p.(CreateGuard); ok {
		r.createGuards = append(r.createGuards, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	typ  reflect.Type
	name string
}{
	{reflect.TypeFor[OnInit](), "OnInit"},
	{reflect.TypeFor[OnShutdown](), "OnShutdown"},
	{reflect.TypeFor[OnStreamCreated](), "OnStreamCreated"},
	{reflect.TypeFor[OnStreamWithdrawn](), "OnStreamWithdrawn"},
	{reflect.TypeFor[OnStreamCanceled](), "OnStreamCanceled"},
	{reflect.TypeFor[OnStreamCompleted](), "OnStreamCompleted"},
	{reflect.TypeFor[CreateGuard](), "CreateGuard"},
}

// implementedInterfaces lists the hook interfaces implemented by p.
func implementedInterfaces(p Plugin) []string {
	var names []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnInit", func() error {
			return p.OnInit(ctx, engine)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnShutdown", func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitStreamCreated emits a stream created event.
func (r *Registry) EmitStreamCreated(ctx context.Context, evt *StreamEvent) {
	r.mu.RLock()
	plugins := r.onStreamCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnStreamCreated", func() error {
			return p.OnStreamCreated(ctx, evt)
		})
	}
}

// EmitStreamWithdrawn emits a stream withdrawn event.
func (r *Registry) EmitStreamWithdrawn(ctx context.Context, evt *StreamEvent) {
	r.mu.RLock()
	plugins := r.onStreamWithdrawn
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnStreamWithdrawn", func() error {
			return p.OnStreamWithdrawn(ctx, evt)
		})
	}
}

// EmitStreamCanceled emits a stream canceled event.
func (r *Registry) EmitStreamCanceled(ctx context.Context, evt *StreamEvent) {
	r.mu.RLock()
	plugins := r.onStreamCanceled
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnStreamCanceled", func() error {
			return p.OnStreamCanceled(ctx, evt)
		})
	}
}

// EmitStreamCompleted emits a stream completed event.
func (r *Registry) EmitStreamCompleted(ctx context.Context, evt *StreamEvent) {
	r.mu.RLock()
	plugins := r.onStreamCompleted
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnStreamCompleted", func() error {
			return p.OnStreamCompleted(ctx, evt)
		})
	}
}

// GuardCreate runs every CreateGuard in registration order and returns the
// first rejection. Unlike the Emit methods, failures are returned.
func (r *Registry) GuardCreate(ctx context.Context, s *stream.Stream) error {
	r.mu.RLock()
	guards := r.createGuards
	r.mu.RUnlock()

	for _, g := range guards {
		if err := r.callWithTimeout(ctx, g.Name(), func() error {
			return g.GuardCreate(ctx, s)
		}); err != nil {
			return fmt.Errorf("plugin %s: %w", g.Name(), err)
		}
	}
	return nil
}

// dispatch runs a hook and logs its failure. Hook errors never reach the
// caller of the engine operation.
func (r *Registry) dispatch(ctx context.Context, pluginName, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the stream pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
