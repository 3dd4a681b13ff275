package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/txn2/storefront/pkg/cart"
	"github.com/txn2/storefront/pkg/visitor"
)

const (
	defaultVisitorTTL  = 30 * 24 * time.Hour
	defaultIdleTimeout = 30 * time.Minute
)

// BackendFactory creates the backend client of a new shopper. Each shopper
// gets its own client so that credentials never cross visitors.
type BackendFactory func() (Backend, error)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	NewBackend BackendFactory
	Shopper    ShopperConfig
	Visitors   visitor.Store

	// VisitorTTL is the lifetime of a new visitor record.
	VisitorTTL time.Duration

	// IdleTimeout evicts shoppers not seen for this long from memory. Their
	// visitor record is kept.
	IdleTimeout time.Duration

	Logger *slog.Logger
}

type liveShopper struct {
	shopper  *Shopper
	lastSeen time.Time
}

// Manager owns the live shoppers keyed by visitor id.
type Manager struct {
	cfg    ManagerConfig
	logger *slog.Logger

	mu       sync.Mutex
	shoppers map[string]*liveShopper

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.NewBackend == nil {
		return nil, errors.New("storefront: backend factory is required")
	}
	if cfg.Visitors == nil {
		return nil, errors.New("storefront: visitor store is required")
	}
	if cfg.VisitorTTL <= 0 {
		cfg.VisitorTTL = defaultVisitorTTL
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Shopper.Logger = logger
	return &Manager{
		cfg:      cfg,
		logger:   logger,
		shoppers: make(map[string]*liveShopper),
	}, nil
}

// Open returns the shopper of visitorID, rehydrating it from the visitor
// store or creating a new visitor when the id is empty or unknown. The
// returned shopper's ID may differ from visitorID.
func (m *Manager) Open(ctx context.Context, visitorID string) (*Shopper, error) {
	if visitorID != "" {
		if sh := m.live(visitorID); sh != nil {
			return sh, nil
		}
	}

	rec, err := m.lookup(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = visitor.New(uuid.NewString(), m.cfg.VisitorTTL)
		if err := m.cfg.Visitors.Create(ctx, rec); err != nil {
			return nil, fmt.Errorf("creating visitor: %w", err)
		}
		m.logger.Debug("visitor created", "visitor_id", rec.ID)
	} else if err := m.cfg.Visitors.Touch(ctx, rec.ID); err != nil {
		m.logger.Warn("visitor touch failed", "visitor_id", rec.ID, "error", err)
	}

	b, err := m.cfg.NewBackend()
	if err != nil {
		return nil, fmt.Errorf("creating backend client: %w", err)
	}
	sh, err := NewShopper(rec.ID, b, m.cfg.Shopper)
	if err != nil {
		return nil, err
	}
	sh.Cart.Restore(rec.GuestCart)

	m.mu.Lock()
	if existing, ok := m.shoppers[rec.ID]; ok {
		existing.lastSeen = time.Now()
		m.mu.Unlock()
		return existing.shopper, nil
	}
	m.shoppers[rec.ID] = &liveShopper{shopper: sh, lastSeen: time.Now()}
	m.mu.Unlock()
	return sh, nil
}

func (m *Manager) live(id string) *Shopper {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls, ok := m.shoppers[id]
	if !ok {
		return nil
	}
	ls.lastSeen = time.Now()
	return ls.shopper
}

func (m *Manager) lookup(ctx context.Context, id string) (*visitor.Visitor, error) {
	if id == "" {
		return nil, nil //nolint:nilnil // no id means a new visitor
	}
	if _, err := uuid.Parse(id); err != nil {
		m.logger.Debug("ignoring malformed visitor id", "visitor_id", id)
		return nil, nil //nolint:nilnil // treated as a new visitor
	}
	rec, err := m.cfg.Visitors.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading visitor: %w", err)
	}
	return rec, nil
}

// Save persists the shopper's guest cart and identity to the visitor store.
// Server-mode carts live on the backend and are not saved.
func (m *Manager) Save(ctx context.Context, sh *Shopper) error {
	var errs []error
	if sh.Cart.Mode() == cart.ModeLocal {
		if err := m.cfg.Visitors.SaveCart(ctx, sh.ID(), sh.Cart.Lines()); err != nil {
			errs = append(errs, fmt.Errorf("saving guest cart: %w", err))
		}
	}
	userID := ""
	if u := sh.Session.User(); u != nil {
		userID = u.ID
	}
	if err := m.cfg.Visitors.SetUser(ctx, sh.ID(), userID); err != nil {
		errs = append(errs, fmt.Errorf("saving visitor user: %w", err))
	}
	return errors.Join(errs...)
}

// Forget drops a shopper from memory and deletes its visitor record.
func (m *Manager) Forget(ctx context.Context, visitorID string) error {
	m.mu.Lock()
	delete(m.shoppers, visitorID)
	m.mu.Unlock()
	if err := m.cfg.Visitors.Delete(ctx, visitorID); err != nil {
		return fmt.Errorf("deleting visitor: %w", err)
	}
	return nil
}

// Len returns the number of live shoppers.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.shoppers)
}

// Evict saves and drops shoppers idle longer than the idle timeout, then
// removes expired visitor records. It returns the number of shoppers evicted.
func (m *Manager) Evict(ctx context.Context) int {
	cutoff := time.Now().Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	var idle []*Shopper
	for id, ls := range m.shoppers {
		if ls.lastSeen.Before(cutoff) {
			idle = append(idle, ls.shopper)
			delete(m.shoppers, id)
		}
	}
	m.mu.Unlock()

	for _, sh := range idle {
		if err := m.Save(ctx, sh); err != nil {
			m.logger.Warn("saving idle shopper failed", "visitor_id", sh.ID(), "error", err)
		}
	}
	if err := m.cfg.Visitors.Cleanup(ctx); err != nil {
		m.logger.Warn("visitor cleanup failed", "error", err)
	}
	if len(idle) > 0 {
		m.logger.Debug("idle shoppers evicted", "count", len(idle), "live", m.Len())
	}
	return len(idle)
}

// StartCleanupRoutine periodically evicts idle shoppers until Close.
func (m *Manager) StartCleanupRoutine(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Evict(ctx)
			}
		}
	}()
}

// Close stops the cleanup routine and saves every live shopper.
func (m *Manager) Close(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
		<-m.done
		m.cancel = nil
	}

	m.mu.Lock()
	live := make([]*Shopper, 0, len(m.shoppers))
	for _, ls := range m.shoppers {
		live = append(live, ls.shopper)
	}
	m.shoppers = make(map[string]*liveShopper)
	m.mu.Unlock()

	var errs []error
	for _, sh := range live {
		errs = append(errs, m.Save(ctx, sh))
	}
	return errors.Join(errs...)
}
