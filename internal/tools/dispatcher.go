package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Well-known tool and backend names. The static map below guarantees these
// resolve even when no live backend is reachable.
const (
	ToolImageGenerate = "image_generate"
	ToolImageEditText = "image_edit_text"

	BackendImageGenerate = "image-generate-server"
	BackendImageEdit     = "image-edit-server"
)

var (
	ErrToolNotFound        = errors.New("tool not found")
	ErrToolExecutionFailed = errors.New("tool execution failed")
)

// State tracks dispatcher initialization.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

// BackendConfig describes one tool backend known at build time.
type BackendConfig struct {
	Name     string
	Endpoint string
}

// DefaultBackends returns the static descriptor list. Endpoints default to
// empty, which keeps the matching tools on the simulated path.
func DefaultBackends() []BackendConfig {
	return []BackendConfig{
		{Name: BackendImageGenerate},
		{Name: BackendImageEdit},
	}
}

// Dispatcher resolves logical tool names to executors. It holds no per-call
// state; initialization runs once and always ends Ready.
type Dispatcher struct {
	mu       sync.Mutex
	state    State
	backends []BackendConfig
	clients  map[string]Backend
	toolMap  map[string]string
	delay    time.Duration
	failing  map[string]bool
	dial     func(endpoint string) Backend
	logger   *zap.Logger
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithDelay overrides the artificial latency of the simulated path. Tests
// pass zero.
func WithDelay(d time.Duration) Option {
	return func(disp *Dispatcher) { disp.delay = d }
}

// WithFailure marks tools whose simulated execution fails, so callers can
// exercise the execution-failure path without a live backend.
func WithFailure(names ...string) Option {
	return func(disp *Dispatcher) {
		for _, name := range names {
			disp.failing[name] = true
		}
	}
}

// WithDialer overrides how live backends are constructed.
func WithDialer(dial func(endpoint string) Backend) Option {
	return func(disp *Dispatcher) { disp.dial = dial }
}

// NewDispatcher builds a dispatcher over the given backend descriptors.
func NewDispatcher(backends []BackendConfig, logger *zap.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		state:    StateUninitialized,
		backends: backends,
		clients:  make(map[string]Backend),
		toolMap:  make(map[string]string),
		delay:    1500 * time.Millisecond,
		failing:  make(map[string]bool),
		dial:     func(endpoint string) Backend { return NewHTTPBackend(endpoint, nil) },
		logger:   logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Initialize registers live backends and falls back to the static tool map
// for any that are unreachable. Idempotent; the dispatcher always ends in a
// resolvable Ready state.
func (d *Dispatcher) Initialize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateReady {
		return nil
	}
	d.state = StateInitializing

	for _, cfg := range d.backends {
		if cfg.Endpoint != "" {
			client := d.dial(cfg.Endpoint)
			names, err := client.ListTools(ctx)
			if err == nil {
				d.clients[cfg.Name] = client
				for _, name := range names {
					d.toolMap[name] = cfg.Name
				}
				d.logger.Info("registered tool backend",
					zap.String("backend", cfg.Name),
					zap.Strings("tools", names))
				continue
			}
			d.logger.Warn("tool backend unreachable, using simulated fallback",
				zap.String("backend", cfg.Name),
				zap.Error(err))
		}

		// Static build-time mapping keeps the tool resolvable.
		switch cfg.Name {
		case BackendImageGenerate:
			d.toolMap[ToolImageGenerate] = cfg.Name
		case BackendImageEdit:
			d.toolMap[ToolImageEditText] = cfg.Name
		}
	}

	d.state = StateReady
	return nil
}

// CurrentState reports the lifecycle state.
func (d *Dispatcher) CurrentState() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// ToolNames lists every resolvable tool.
func (d *Dispatcher) ToolNames(ctx context.Context) ([]string, error) {
	if err := d.Initialize(ctx); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.toolMap))
	for name := range d.toolMap {
		names = append(names, name)
	}
	return names, nil
}

// Execute resolves name to a backend and runs it. A live client is
// preferred; without one the simulated fallback synthesizes a result after
// the configured delay. Retries are the caller's responsibility.
func (d *Dispatcher) Execute(ctx context.Context, name string, args map[string]any) (Result, error) {
	if err := d.Initialize(ctx); err != nil {
		return Result{}, err
	}

	d.mu.Lock()
	backendName, ok := d.toolMap[name]
	client := d.clients[backendName]
	delay := d.delay
	failing := d.failing[name]
	d.mu.Unlock()

	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	if client != nil {
		result, err := client.CallTool(ctx, name, args)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %s: %v", ErrToolExecutionFailed, name, err)
		}
		return result, nil
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}

	if failing {
		return Result{}, fmt.Errorf("%w: %s: injected fault", ErrToolExecutionFailed, name)
	}

	d.logger.Debug("simulated tool execution",
		zap.String("tool", name),
		zap.String("backend", backendName))
	return simulate(name, args), nil
}
