// Package intent defines pending actions: mutations a visitor asked for while
// unauthenticated, deferred until the authentication redirect returns.
package intent

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what a pending action does once resolved.
type Kind string

const (
	// KindAddWishlist adds Payload.ItemID to the wishlist.
	KindAddWishlist Kind = "ADD_WISHLIST"

	// KindAddCart adds one unit of Payload.ItemID (and Payload.Size) to the cart.
	KindAddCart Kind = "ADD_CART"

	// KindCheckout submits the cart with Payload.PaymentMethod.
	KindCheckout Kind = "CHECKOUT"
)

var (
	// ErrInvalid is returned for actions or tokens that cannot be used.
	ErrInvalid = errors.New("invalid pending action")

	// ErrExpired is returned when a token outlived its TTL.
	ErrExpired = errors.New("pending action expired")

	// ErrConsumed is returned when a token was already resolved once.
	ErrConsumed = errors.New("pending action already consumed")
)

// Payload carries the kind-specific data of a pending action.
type Payload struct {
	ItemID        string `json:"itemId,omitempty"`
	Size          string `json:"size,omitempty"`
	CartID        string `json:"cartId,omitempty"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
}

// PendingAction is a deferred mutation awaiting authentication.
type PendingAction struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"type"`
	Payload   Payload   `json:"payload"`
	CreatedAt time.Time `json:"timestamp"`

	// ExpiresAt is set by Decode from the token expiry.
	ExpiresAt time.Time `json:"-"`
}

// New creates a validated pending action stamped with a fresh id and the
// current time.
func New(kind Kind, payload Payload) (*PendingAction, error) {
	a := &PendingAction{
		ID:        uuid.NewString(),
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks that the payload carries what the kind needs.
func (a *PendingAction) Validate() error {
	switch a.Kind {
	case KindAddWishlist, KindAddCart:
		if a.Payload.ItemID == "" {
			return fmt.Errorf("%w: %s requires an item id", ErrInvalid, a.Kind)
		}
	case KindCheckout:
		if a.Payload.PaymentMethod == "" {
			return fmt.Errorf("%w: %s requires a payment method", ErrInvalid, a.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalid, a.Kind)
	}
	return nil
}
