// Package session provides the session store: the shopper's authenticated
// identity as last reported by the backend, the login redirect that carries a
// pending action through the external authentication page, and resolution of
// that action once the shopper is back.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/txn2/storefront/pkg/backend"
	"github.com/txn2/storefront/pkg/intent"
)

// Query parameters used on the redirect and return-to URLs.
const (
	ParamRedirect = "redirect"
	ParamNext     = "next"
	ParamIntent   = "intent"
)

var (
	// ErrAlreadyAuthenticated is returned when a login redirect is requested
	// for a shopper who is already signed in.
	ErrAlreadyAuthenticated = errors.New("session: already authenticated")

	// ErrNotAuthenticated is returned when an operation requires a signed-in
	// shopper.
	ErrNotAuthenticated = errors.New("session: not authenticated")

	// ErrNoDispatcher is returned when a pending action is resolved before a
	// dispatcher was registered.
	ErrNoDispatcher = errors.New("session: no pending action dispatcher")
)

// Backend is the part of the backend client the store needs.
type Backend interface {
	CurrentUser(ctx context.Context) (*backend.User, error)
	Login(ctx context.Context, email, password string) (*backend.User, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// Dispatcher performs a resolved pending action.
type Dispatcher interface {
	Dispatch(ctx context.Context, action *intent.PendingAction) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, action *intent.PendingAction) error

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(ctx context.Context, action *intent.PendingAction) error {
	return f(ctx, action)
}

// Listener is notified when the authenticated flag changes.
type Listener func(ctx context.Context, authenticated bool) error

// Config configures a Store.
type Config struct {
	// AuthURL is the external authentication endpoint.
	AuthURL string

	// ReturnURL is where the authentication endpoint sends the shopper back.
	ReturnURL string

	// Codec encodes pending actions into the return-to URL.
	Codec *intent.Codec

	Logger *slog.Logger
}

// Store holds one shopper's identity. It is safe for concurrent use.
type Store struct {
	backend   Backend
	codec     *intent.Codec
	authURL   *url.URL
	returnURL *url.URL
	logger    *slog.Logger

	initOnce sync.Once

	// transition serializes identity changes so listeners observe them in
	// order. It is held across listener calls; mu is not.
	transition sync.Mutex

	mu         sync.RWMutex
	user       *backend.User
	listeners  []Listener
	dispatcher Dispatcher
}

// New creates an unauthenticated store.
func New(b Backend, cfg Config) (*Store, error) {
	if b == nil {
		return nil, errors.New("session: backend is required")
	}
	if cfg.Codec == nil {
		return nil, errors.New("session: intent codec is required")
	}
	authURL, err := parseAbsolute("auth url", cfg.AuthURL)
	if err != nil {
		return nil, err
	}
	returnURL, err := parseAbsolute("return url", cfg.ReturnURL)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend:   b,
		codec:     cfg.Codec,
		authURL:   authURL,
		returnURL: returnURL,
		logger:    logger,
	}, nil
}

func parseAbsolute(name, raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("session: parsing %s: %w", name, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("session: %s must be absolute, got %q", name, raw)
	}
	return u, nil
}

// User returns a copy of the current identity, nil when unauthenticated.
func (s *Store) User() *backend.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Authenticated reports whether an identity is present.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// OnChange registers a listener for authenticated flag changes.
func (s *Store) OnChange(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// SetDispatcher registers the dispatcher used by ResolvePendingAction.
func (s *Store) SetDispatcher(d Dispatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatcher = d
}

// Initialize performs the identity fetch once per store. Later calls return
// nil without contacting the backend. A failed fetch leaves the store
// unauthenticated and usable.
func (s *Store) Initialize(ctx context.Context) error {
	var err error
	s.initOnce.Do(func() {
		err = s.Reload(ctx)
	})
	return err
}

// Reload fetches the identity from the backend. Any failure clears it.
func (s *Store) Reload(ctx context.Context) error {
	u, err := s.backend.CurrentUser(ctx)
	if err != nil {
		s.logger.Debug("session: identity fetch failed", "error", err)
		return errors.Join(fmt.Errorf("fetching current user: %w", err), s.setUser(ctx, nil))
	}
	return s.setUser(ctx, u)
}

// Login signs in with credentials. On failure the identity is unchanged.
func (s *Store) Login(ctx context.Context, email, password string) error {
	u, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	if u == nil || u.ID == "" {
		return s.Reload(ctx)
	}
	return s.setUser(ctx, u)
}

// Refresh renews the backend credentials and re-reads the identity. A
// rejected refresh clears the identity.
func (s *Store) Refresh(ctx context.Context) error {
	if err := s.backend.Refresh(ctx); err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return errors.Join(fmt.Errorf("refreshing session: %w", err), s.setUser(ctx, nil))
		}
		return fmt.Errorf("refreshing session: %w", err)
	}
	return s.Reload(ctx)
}

// Logout signs out. The local identity is cleared even when the backend call
// fails; that failure is returned for information only.
func (s *Store) Logout(ctx context.Context) error {
	var errs []error
	if err := s.backend.Logout(ctx); err != nil {
		s.logger.Warn("session: backend logout failed", "error", err)
		errs = append(errs, fmt.Errorf("logging out: %w", err))
	}
	errs = append(errs, s.setUser(ctx, nil))
	return errors.Join(errs...)
}

// RequestAuthenticatedAction returns the authentication URL to navigate to so
// that action is performed after login. location is where the shopper lands
// afterwards. The action travels only inside the returned URL.
func (s *Store) RequestAuthenticatedAction(action *intent.PendingAction, location string) (string, error) {
	if s.Authenticated() {
		return "", ErrAlreadyAuthenticated
	}

	token, err := s.codec.Encode(action)
	if err != nil {
		return "", err
	}

	returnTo := *s.returnURL
	q := returnTo.Query()
	q.Set(ParamNext, location)
	q.Set(ParamIntent, token)
	returnTo.RawQuery = q.Encode()

	target := *s.authURL
	aq := target.Query()
	aq.Set(ParamRedirect, returnTo.String())
	target.RawQuery = aq.Encode()

	s.logger.Info("session: login redirect", "action_id", action.ID, "kind", action.Kind)
	return target.String(), nil
}

// ResolvePendingAction decodes an action carried back from authentication and
// hands it to the dispatcher. A token that fails to decode leaves the session
// untouched. Each action is dispatched at most once; a replayed token returns
// intent.ErrConsumed.
func (s *Store) ResolvePendingAction(ctx context.Context, encoded string) (*intent.PendingAction, error) {
	action, err := s.codec.Decode(encoded)
	if err != nil {
		s.logger.Warn("session: rejected pending action", "error", err)
		return nil, fmt.Errorf("decoding pending action: %w", err)
	}

	s.mu.RLock()
	authenticated, d := s.user != nil, s.dispatcher
	s.mu.RUnlock()

	if !authenticated {
		return action, ErrNotAuthenticated
	}
	if d == nil {
		return action, ErrNoDispatcher
	}
	if err := s.codec.Consume(action); err != nil {
		s.logger.Warn("session: pending action replayed", "action_id", action.ID, "error", err)
		return action, err
	}
	if err := d.Dispatch(ctx, action); err != nil {
		return action, fmt.Errorf("dispatching %s: %w", action.Kind, err)
	}
	s.logger.Info("session: pending action resolved", "action_id", action.ID, "kind", action.Kind)
	return action, nil
}

// setUser swaps the identity and notifies listeners when the authenticated
// flag flips.
func (s *Store) setUser(ctx context.Context, u *backend.User) error {
	s.transition.Lock()
	defer s.transition.Unlock()

	s.mu.Lock()
	was := s.user != nil
	if u != nil {
		cp := *u
		u = &cp
	}
	s.user = u
	now := s.user != nil
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	if was == now {
		return nil
	}

	var errs []error
	for _, l := range listeners {
		if err := l(ctx, now); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
