// Package storefront ties one visitor's session store, cart store and backend
// client together into a Shopper, and keeps the live shoppers of the gateway
// in a Manager.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/txn2/storefront/pkg/backend"
	"github.com/txn2/storefront/pkg/cart"
	"github.com/txn2/storefront/pkg/intent"
	"github.com/txn2/storefront/pkg/session"
)

var (
	// ErrAuthRequired is matched by *AuthRequiredError.
	ErrAuthRequired = errors.New("storefront: authentication required")

	// ErrEmptyCart is returned when checking out a cart without lines.
	ErrEmptyCart = errors.New("storefront: cart is empty")

	// ErrUnknownAction is returned for a pending action of an unknown kind.
	ErrUnknownAction = errors.New("storefront: unknown pending action")
)

// AuthRequiredError is returned when a guest attempts a gated action. The
// action has been encoded into LoginURL and is performed after login.
type AuthRequiredError struct {
	LoginURL string
	Action   *intent.PendingAction
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("storefront: authentication required for %s", e.Action.Kind)
}

// Is reports whether target is ErrAuthRequired.
func (*AuthRequiredError) Is(target error) bool {
	return target == ErrAuthRequired
}

// Backend is the backend surface a shopper uses.
type Backend interface {
	session.Backend
	cart.Backend
	Checkout(ctx context.Context, cartID, paymentMethod string) (*backend.Order, error)
	AddToWishlist(ctx context.Context, itemID string) error
	RemoveFromWishlist(ctx context.Context, itemID string) error
	SetCredentials(cookies []*http.Cookie)
}

// ShopperConfig configures a Shopper.
type ShopperConfig struct {
	AuthURL   string
	ReturnURL string
	Codec     *intent.Codec
	Logger    *slog.Logger
}

// Shopper is one visitor's view of the store.
type Shopper struct {
	id      string
	backend Backend
	logger  *slog.Logger

	Session *session.Store
	Cart    *cart.Store
}

// NewShopper wires a session store and a cart store over b. The cart follows
// the session's authenticated flag and resolved pending actions are
// dispatched to the shopper.
func NewShopper(id string, b Backend, cfg ShopperConfig) (*Shopper, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("visitor_id", id)

	sess, err := session.New(b, session.Config{
		AuthURL:   cfg.AuthURL,
		ReturnURL: cfg.ReturnURL,
		Codec:     cfg.Codec,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating session store: %w", err)
	}

	sh := &Shopper{
		id:      id,
		backend: b,
		logger:  logger,
		Session: sess,
		Cart:    cart.New(b, logger),
	}
	sess.OnChange(sh.Cart.OnAuthenticationChanged)
	sess.SetDispatcher(sh)
	return sh, nil
}

// ID returns the visitor id.
func (s *Shopper) ID() string {
	return s.id
}

// SetCredentials hands browser cookies to the backend client.
func (s *Shopper) SetCredentials(cookies []*http.Cookie) {
	s.backend.SetCredentials(cookies)
}

// AddToCart adds one unit. Guests may add to their local cart.
func (s *Shopper) AddToCart(ctx context.Context, itemID, size string) error {
	return s.Cart.AddItem(ctx, itemID, size)
}

// AddToWishlist adds an item to the wishlist. Guests get an
// *AuthRequiredError whose login URL resumes the addition.
func (s *Shopper) AddToWishlist(ctx context.Context, itemID, location string) error {
	if !s.Session.Authenticated() {
		return s.authRequired(intent.KindAddWishlist, intent.Payload{ItemID: itemID}, location)
	}
	if itemID == "" {
		return cart.ErrInvalidItem
	}
	if err := s.backend.AddToWishlist(ctx, itemID); err != nil {
		return fmt.Errorf("adding to wishlist: %w", err)
	}
	return nil
}

// RemoveFromWishlist removes an item from the wishlist.
func (s *Shopper) RemoveFromWishlist(ctx context.Context, itemID string) error {
	if !s.Session.Authenticated() {
		return session.ErrNotAuthenticated
	}
	if err := s.backend.RemoveFromWishlist(ctx, itemID); err != nil {
		return fmt.Errorf("removing from wishlist: %w", err)
	}
	return nil
}

// Checkout places an order for the server cart. Guests get an
// *AuthRequiredError whose login URL resumes the checkout.
func (s *Shopper) Checkout(ctx context.Context, paymentMethod, location string) (*backend.Order, error) {
	if !s.Session.Authenticated() {
		return nil, s.authRequired(intent.KindCheckout, intent.Payload{PaymentMethod: paymentMethod}, location)
	}
	return s.checkout(ctx, paymentMethod)
}

func (s *Shopper) checkout(ctx context.Context, paymentMethod string) (*backend.Order, error) {
	if paymentMethod == "" {
		return nil, fmt.Errorf("%w: payment method is required", intent.ErrInvalid)
	}
	if s.Cart.ID() == "" || s.Cart.TotalItems() == 0 {
		if err := s.Cart.Reload(ctx); err != nil {
			return nil, err
		}
	}
	if s.Cart.TotalItems() == 0 {
		return nil, ErrEmptyCart
	}

	order, err := s.backend.Checkout(ctx, s.Cart.ID(), paymentMethod)
	if err != nil {
		return nil, fmt.Errorf("checking out: %w", err)
	}
	s.logger.Info("order placed", "order_id", order.OrderID, "status", order.Status)

	if err := s.Cart.Reload(ctx); err != nil {
		s.logger.Warn("cart reload after checkout failed", "error", err)
	}
	return order, nil
}

// Dispatch performs a pending action resolved after login.
func (s *Shopper) Dispatch(ctx context.Context, action *intent.PendingAction) error {
	switch action.Kind {
	case intent.KindAddCart:
		return s.Cart.AddItem(ctx, action.Payload.ItemID, action.Payload.Size)
	case intent.KindAddWishlist:
		return s.AddToWishlist(ctx, action.Payload.ItemID, "")
	case intent.KindCheckout:
		_, err := s.checkout(ctx, action.Payload.PaymentMethod)
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action.Kind)
	}
}

func (s *Shopper) authRequired(kind intent.Kind, p intent.Payload, location string) error {
	action, err := intent.New(kind, p)
	if err != nil {
		return err
	}
	loginURL, err := s.Session.RequestAuthenticatedAction(action, location)
	if err != nil {
		return err
	}
	return &AuthRequiredError{LoginURL: loginURL, Action: action}
}

// Verify interface compliance.
var _ session.Dispatcher = (*Shopper)(nil)
