package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/txn2/storefront/pkg/storefront"
)

// contextKey is a private type for context keys in the gateway package.
type contextKey string

const shopperKey contextKey = "shopper"

// ShopperFrom returns the shopper bound to the request, or nil.
func ShopperFrom(ctx context.Context) *storefront.Shopper {
	sh, _ := ctx.Value(shopperKey).(*storefront.Shopper)
	return sh
}

// shopperHandler is a handler that needs the visitor's shopper.
type shopperHandler func(w http.ResponseWriter, r *http.Request, sh *storefront.Shopper)

// withShopper binds the request to a visitor. A visitor cookie is issued when
// the browser has none or an unknown one. Forwarded credentials are handed to
// the visitor's backend client and the session identity is fetched once per
// shopper. The visitor record is saved after the handler returns.
func (h *Handler) withShopper(next shopperHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var visitorID string
		if c, err := r.Cookie(h.cfg.CookieName); err == nil {
			visitorID = c.Value
		}

		sh, err := h.deps.Shoppers.Open(ctx, visitorID)
		if err != nil {
			h.logger.Error("opening visitor failed", "error", err)
			writeError(w, http.StatusInternalServerError, "visitor unavailable")
			return
		}
		if sh.ID() != visitorID {
			http.SetCookie(w, h.visitorCookie(sh.ID()))
		}

		sh.SetCredentials(h.forwardedCookies(r))
		if err := sh.Session.Initialize(ctx); err != nil {
			h.logger.Debug("visitor is a guest", "visitor_id", sh.ID(), "error", err)
		}

		next(w, r.WithContext(context.WithValue(ctx, shopperKey, sh)), sh)

		if err := h.deps.Shoppers.Save(context.WithoutCancel(ctx), sh); err != nil {
			h.logger.Warn("saving visitor failed", "visitor_id", sh.ID(), "error", err)
		}
	}
}

func (h *Handler) visitorCookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.cfg.CookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// forwardedCookies copies the configured browser cookies for the backend.
func (h *Handler) forwardedCookies(r *http.Request) []*http.Cookie {
	var out []*http.Cookie
	for _, name := range h.cfg.ForwardCookies {
		c, err := r.Cookie(name)
		if err != nil || c.Value == "" {
			continue
		}
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	return out
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// logRequests logs one line per request.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
