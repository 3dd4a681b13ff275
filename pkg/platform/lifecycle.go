package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// hook is one named start/stop pair. Either function may be nil.
type hook struct {
	name  string
	start func(context.Context) error
	stop  func(context.Context) error
}

// Lifecycle starts platform components in registration order and stops them
// in reverse. A failed start stops the components already started.
type Lifecycle struct {
	mu      sync.Mutex
	logger  *slog.Logger
	hooks   []hook
	started int // number of hooks started; -1 when not running
}

// NewLifecycle creates a new lifecycle manager.
func NewLifecycle(logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{logger: logger, started: -1}
}

// Append registers a component. start runs on Start, stop on Stop.
func (l *Lifecycle) Append(name string, start, stop func(context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, hook{name: name, start: start, stop: stop})
}

// OnStop registers a shutdown-only callback.
func (l *Lifecycle) OnStop(name string, stop func(context.Context) error) {
	l.Append(name, nil, stop)
}

// Closer is something that can be closed.
type Closer interface {
	Close() error
}

// AppendCloser registers c to be closed on shutdown.
func (l *Lifecycle) AppendCloser(name string, c Closer) {
	l.OnStop(name, func(context.Context) error { return c.Close() })
}

// Start runs every start function in order.
func (l *Lifecycle) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started >= 0 {
		return fmt.Errorf("lifecycle already started")
	}

	for i, h := range l.hooks {
		if h.start == nil {
			continue
		}
		if err := h.start(ctx); err != nil {
			l.stopFrom(ctx, i-1)
			return fmt.Errorf("starting %s: %w", h.name, err)
		}
		l.logger.Debug("component started", "component", h.name)
	}
	l.started = len(l.hooks)
	return nil
}

// Stop runs every stop function in reverse order and joins their errors.
func (l *Lifecycle) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started < 0 {
		return nil
	}
	err := l.stopFrom(ctx, l.started-1)
	l.started = -1
	return err
}

// stopFrom stops hooks last..0.
func (l *Lifecycle) stopFrom(ctx context.Context, last int) error {
	var errs []error
	for i := last; i >= 0; i-- {
		h := l.hooks[i]
		if h.stop == nil {
			continue
		}
		if err := h.stop(ctx); err != nil {
			l.logger.Warn("component stop failed", "component", h.name, "error", err)
			errs = append(errs, fmt.Errorf("stopping %s: %w", h.name, err))
		}
	}
	return errors.Join(errs...)
}

// IsStarted returns whether the lifecycle has been started.
func (l *Lifecycle) IsStarted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started >= 0
}
