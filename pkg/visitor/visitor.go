// Package visitor persists storefront visitors. A visitor is identified by an
// opaque id held in a browser cookie; its record keeps the guest cart so that
// it survives a gateway restart. Visitor records never reach the backend.
package visitor

import (
	"context"
	"time"

	"github.com/txn2/storefront/pkg/cart"
)

// Visitor is a browsing session of the storefront.
type Visitor struct {
	// ID is the opaque visitor identifier.
	ID string

	// UserID is the last authenticated identity seen for this visitor.
	// Empty for visitors that never logged in.
	UserID string

	// CreatedAt is when the visitor first arrived.
	CreatedAt time.Time

	// LastActiveAt is the most recent activity timestamp.
	LastActiveAt time.Time

	// ExpiresAt is when the record expires if not touched.
	ExpiresAt time.Time

	// GuestCart is the snapshot of the local-mode cart lines.
	GuestCart []cart.Line
}

// Store defines the interface for visitor persistence.
type Store interface {
	// Create persists a new visitor.
	Create(ctx context.Context, v *Visitor) error

	// Get retrieves a visitor by ID. Returns nil, nil if not found or expired.
	Get(ctx context.Context, id string) (*Visitor, error)

	// Touch updates LastActiveAt and extends ExpiresAt by the store's TTL.
	Touch(ctx context.Context, id string) error

	// Delete removes a visitor.
	Delete(ctx context.Context, id string) error

	// SaveCart replaces the guest cart snapshot.
	SaveCart(ctx context.Context, id string, lines []cart.Line) error

	// SetUser records the authenticated identity of the visitor.
	SetUser(ctx context.Context, id, userID string) error

	// Cleanup removes expired visitors. It is driven by the shopper
	// manager's eviction sweep.
	Cleanup(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// New returns a visitor record valid for ttl from now.
func New(id string, ttl time.Duration) *Visitor {
	now := time.Now().UTC()
	return &Visitor{
		ID:           id,
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    now.Add(ttl),
		GuestCart:    []cart.Line{},
	}
}

// clone returns a deep copy so callers never share the guest cart slice.
func (v *Visitor) clone() *Visitor {
	c := *v
	c.GuestCart = append([]cart.Line(nil), v.GuestCart...)
	return &c
}
