// Package gateway provides the browser-facing HTTP API of the storefront. Each
// request is bound to a visitor through a cookie and served by that visitor's
// shopper.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/txn2/storefront/pkg/backend"
	"github.com/txn2/storefront/pkg/cart"
	"github.com/txn2/storefront/pkg/catalog"
	"github.com/txn2/storefront/pkg/health"
	"github.com/txn2/storefront/pkg/intent"
	"github.com/txn2/storefront/pkg/session"
	"github.com/txn2/storefront/pkg/storefront"
)

const (
	// DefaultCookieName is the visitor cookie name.
	DefaultCookieName = "sf_visitor"

	defaultCookieMaxAge = 30 * 24 * time.Hour
	maxRequestBody      = 64 << 10
	corsMaxAge          = 300
)

// Config configures the gateway.
type Config struct {
	// CookieName is the visitor cookie. Defaults to DefaultCookieName.
	CookieName string

	// CookieSecure marks the visitor cookie Secure.
	CookieSecure bool

	// CookieMaxAge is the visitor cookie lifetime.
	CookieMaxAge time.Duration

	// ForwardCookies names browser cookies copied into each visitor's
	// backend cookie jar.
	ForwardCookies []string

	// AllowedOrigins enables CORS with credentials for these origins.
	AllowedOrigins []string
}

// Deps holds the gateway's collaborators.
type Deps struct {
	Shoppers *storefront.Manager
	Catalog  *catalog.Service
	Health   *health.Checker
	Logger   *slog.Logger
}

// Handler serves the gateway API.
type Handler struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
	mux    *http.ServeMux
	root   http.Handler
}

// New creates the gateway handler.
func New(cfg Config, deps Deps) *Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.CookieMaxAge <= 0 {
		cfg.CookieMaxAge = defaultCookieMaxAge
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Health == nil {
		deps.Health = health.NewChecker()
	}

	h := &Handler{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	h.registerRoutes()

	var root http.Handler = h.mux
	if len(cfg.AllowedOrigins) > 0 {
		root = cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           corsMaxAge,
		})(root)
	}
	h.root = h.logRequests(root)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

// registerRoutes registers all gateway routes.
func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /healthz", h.deps.Health.LivenessHandler())
	h.mux.HandleFunc("GET /readyz", h.deps.Health.ReadinessHandler())
	h.mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	h.mux.HandleFunc("GET /api/session", h.withShopper(h.getSession))
	h.mux.HandleFunc("POST /api/session/login", h.withShopper(h.login))
	h.mux.HandleFunc("POST /api/session/logout", h.withShopper(h.logout))
	h.mux.HandleFunc("POST /api/session/refresh", h.withShopper(h.refresh))
	h.mux.HandleFunc("POST /api/session/intents", h.withShopper(h.requestIntent))
	h.mux.HandleFunc("GET /auth/return", h.withShopper(h.authReturn))
	h.mux.HandleFunc("DELETE /api/visitor", h.forgetVisitor)

	h.mux.HandleFunc("GET /api/cart", h.withShopper(h.getCart))
	h.mux.HandleFunc("POST /api/cart/items", h.withShopper(h.addCartItem))
	h.mux.HandleFunc("PUT /api/cart/items/{itemId}", h.withShopper(h.updateCartItem))
	h.mux.HandleFunc("DELETE /api/cart/items/{itemId}", h.withShopper(h.removeCartItem))
	h.mux.HandleFunc("DELETE /api/cart", h.withShopper(h.clearCart))

	h.mux.HandleFunc("POST /api/wishlist", h.withShopper(h.addWishlist))
	h.mux.HandleFunc("DELETE /api/wishlist/{itemId}", h.withShopper(h.removeWishlist))
	h.mux.HandleFunc("POST /api/checkout", h.withShopper(h.checkout))

	if h.deps.Catalog != nil {
		h.mux.HandleFunc("GET /api/collections", h.listCollections)
		h.mux.HandleFunc("GET /api/collections/{slug}", h.getCollection)
		h.mux.HandleFunc("GET /api/items/{id}", h.getItem)
	}
}

// errorResponse is the JSON body of every error.
type errorResponse struct {
	Error string `json:"error"`
}

// authRequiredResponse is returned with 401 when a guest attempts a gated
// action. LoginURL resumes the action after login.
type authRequiredResponse struct {
	Error    string `json:"error"`
	LoginURL string `json:"login_url"`
	ActionID string `json:"action_id"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure maps a domain error to a status code and writes it.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var authErr *storefront.AuthRequiredError
	if errors.As(err, &authErr) {
		writeJSON(w, http.StatusUnauthorized, authRequiredResponse{
			Error:    "authentication required",
			LoginURL: authErr.LoginURL,
			ActionID: authErr.Action.ID,
		})
		return
	}

	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

// statusFor maps errors to HTTP status codes.
func statusFor(err error) int {
	var statusErr *backend.StatusError
	switch {
	case errors.Is(err, session.ErrNotAuthenticated), errors.Is(err, backend.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrAlreadyAuthenticated), errors.Is(err, storefront.ErrEmptyCart),
		errors.Is(err, intent.ErrConsumed):
		return http.StatusConflict
	case errors.Is(err, intent.ErrInvalid), errors.Is(err, intent.ErrExpired),
		errors.Is(err, cart.ErrInvalidItem), errors.Is(err, storefront.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &statusErr), errors.Is(err, backend.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes a bounded JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
