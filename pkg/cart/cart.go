// Package cart provides the cart store. A Store holds the visitor's cart lines
// and routes mutations either to memory only (local mode, for guests) or to
// the backend followed by a full reload (server mode, once authenticated).
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/txn2/storefront/pkg/backend"
)

// ErrInvalidItem is returned when an item id is missing.
var ErrInvalidItem = errors.New("cart: item id is required")

// Mode selects where cart mutations are applied.
type Mode int

const (
	// ModeLocal keeps every mutation in memory only.
	ModeLocal Mode = iota

	// ModeServer sends additions to the backend and reloads the full cart.
	ModeServer
)

// String returns the mode name used in API responses and logs.
func (m Mode) String() string {
	if m == ModeServer {
		return "server"
	}
	return "local"
}

// Line is one (item, size, quantity) entry.
type Line struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
	Size     string `json:"size,omitempty"`
}

// Backend is the part of the backend client the store needs.
type Backend interface {
	Cart(ctx context.Context) (*backend.Cart, error)
	AddToCart(ctx context.Context, itemID string, quantity int, size string) error
}

// Store is a single visitor's cart. It is safe for concurrent use; the lock
// is never held across a backend call.
type Store struct {
	backend Backend
	logger  *slog.Logger

	mu     sync.RWMutex
	lines  []Line
	cartID string
	mode   Mode
	// generation changes on every mode switch so that reloads started in a
	// previous mode are dropped.
	generation uint64
}

// New creates an empty store in local mode.
func New(b Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend: b,
		logger:  logger,
		lines:   []Line{},
	}
}

// Mode returns the current mode.
func (s *Store) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// ID returns the server cart id, empty in local mode or before a reload.
func (s *Store) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cartID
}

// Lines returns a copy of the current lines.
func (s *Store) Lines() []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// TotalItems returns the sum of quantities across all lines.
func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, l := range s.lines {
		total += l.Quantity
	}
	return total
}

// OnAuthenticationChanged switches modes. Becoming authenticated replaces the
// lines with the backend cart; becoming unauthenticated empties the cart.
// Guest lines are not merged into the server cart.
func (s *Store) OnAuthenticationChanged(ctx context.Context, authenticated bool) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.lines = []Line{}
	s.cartID = ""
	if authenticated {
		s.mode = ModeServer
	} else {
		s.mode = ModeLocal
	}
	s.mu.Unlock()

	if !authenticated {
		return nil
	}
	return s.reload(ctx, gen)
}

// Reload replaces the lines with the backend cart. It is a no-op in local mode.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.RLock()
	mode, gen := s.mode, s.generation
	s.mu.RUnlock()

	if mode != ModeServer {
		return nil
	}
	return s.reload(ctx, gen)
}

func (s *Store) reload(ctx context.Context, gen uint64) error {
	remote, err := s.backend.Cart(ctx)
	switch {
	case errors.Is(err, backend.ErrMalformedResponse):
		s.logger.Warn("cart: malformed backend cart, treating as empty", "error", err)
		remote = &backend.Cart{}
	case err != nil:
		s.logger.Error("cart: reload failed", "error", err)
		return fmt.Errorf("loading cart: %w", err)
	}

	lines := fromBackend(remote.Items)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		s.logger.Debug("cart: dropping reload from previous mode")
		return nil
	}
	s.lines = lines
	s.cartID = remote.ID
	return nil
}

// AddItem adds one unit of (itemID, size). In server mode the backend is
// called and the full cart reloaded; the local lines are untouched until the
// reload completes, and untouched entirely if the add fails.
func (s *Store) AddItem(ctx context.Context, itemID, size string) error {
	if itemID == "" {
		return ErrInvalidItem
	}

	s.mu.Lock()
	if s.mode == ModeLocal {
		s.addLocked(itemID, size)
		s.mu.Unlock()
		return nil
	}
	gen := s.generation
	s.mu.Unlock()

	if err := s.backend.AddToCart(ctx, itemID, 1, size); err != nil {
		s.logger.Error("cart: add item failed", "item_id", itemID, "size", size, "error", err)
		return fmt.Errorf("adding item to cart: %w", err)
	}
	return s.reload(ctx, gen)
}

func (s *Store) addLocked(itemID, size string) {
	for i := range s.lines {
		if s.lines[i].ItemID == itemID && s.lines[i].Size == size {
			s.lines[i].Quantity++
			return
		}
	}
	s.lines = append(s.lines, Line{ItemID: itemID, Quantity: 1, Size: size})
}

// RemoveItem drops every line with itemID, whatever its size, and returns how
// many lines were removed. It never calls the backend.
func (s *Store) RemoveItem(itemID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.lines[:0:0]
	for _, l := range s.lines {
		if l.ItemID != itemID {
			kept = append(kept, l)
		}
	}
	removed := len(s.lines) - len(kept)
	s.lines = kept
	return removed
}

// UpdateQuantity sets the quantity of the lines with itemID. A quantity of
// zero or less removes them. It never calls the backend.
func (s *Store) UpdateQuantity(itemID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.lines[:0:0]
	for _, l := range s.lines {
		if l.ItemID == itemID {
			l.Quantity = quantity
		}
		if l.Quantity > 0 {
			kept = append(kept, l)
		}
	}
	s.lines = kept
}

// Clear empties the cart locally.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = []Line{}
}

// Restore replaces the lines with a previously saved guest cart. Lines with a
// missing item id or a non-positive quantity are skipped. It is ignored in
// server mode.
func (s *Store) Restore(lines []Line) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeLocal {
		return
	}
	restored := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.ItemID == "" || l.Quantity <= 0 {
			continue
		}
		restored = append(restored, l)
	}
	s.lines = restored
}

func fromBackend(items []backend.CartLine) []Line {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		if it.ItemID == "" || it.Quantity <= 0 {
			continue
		}
		lines = append(lines, Line{ItemID: it.ItemID, Quantity: it.Quantity, Size: it.Size})
	}
	return lines
}
