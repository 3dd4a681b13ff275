package gateway

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/txn2/storefront/pkg/backend"
	"github.com/txn2/storefront/pkg/intent"
	"github.com/txn2/storefront/pkg/session"
	"github.com/txn2/storefront/pkg/storefront"
)

// Query parameter appended to the landing location after a pending action.
const paramPending = "pending"

// Outcomes reported through paramPending.
const (
	pendingResolved = "resolved"
	pendingExpired  = "expired"
	pendingFailed   = "failed"
)

// sessionResponse describes the visitor's identity.
type sessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *backend.User `json:"user,omitempty"`
}

// loginRequest is the body of POST /api/session/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// intentRequest is the body of POST /api/session/intents.
type intentRequest struct {
	Type    intent.Kind    `json:"type"`
	Payload intent.Payload `json:"payload"`
	Next    string         `json:"next"`
}

func sessionOf(sh *storefront.Shopper) sessionResponse {
	u := sh.Session.User()
	return sessionResponse{Authenticated: u != nil, User: u}
}

// getSession handles GET /api/session.
//
// @Summary      Get session
// @Description  Returns the visitor's identity as last reported by the backend.
// @Tags         Session
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /api/session [get]
func (*Handler) getSession(w http.ResponseWriter, _ *http.Request, sh *storefront.Shopper) {
	writeJSON(w, http.StatusOK, sessionOf(sh))
}

// login handles POST /api/session/login.
//
// @Summary      Log in
// @Description  Signs in with email and password. The cart switches to the backend cart.
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /api/session/login [post]
func (h *Handler) login(w http.ResponseWriter, r *http.Request, sh *storefront.Shopper) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if err := sh.Session.Login(r.Context(), req.Email, req.Password); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionOf(sh))
}

// logout handles POST /api/session/logout.
//
// @Summary      Log out
// @Description  Signs out. The local identity is cleared even when the backend call fails.
// @Tags         Session
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /api/session/logout [post]
func (h *Handler) logout(w http.ResponseWriter, r *http.Request, sh *storefront.Shopper) {
	if err := sh.Session.Logout(r.Context()); err != nil {
		h.logger.Warn("logout incomplete", "visitor_id", sh.ID(), "error", err)
	}
	writeJSON(w, http.StatusOK, sessionOf(sh))
}

// forgetVisitor handles DELETE /api/visitor. It runs outside withShopper so
// that an unknown cookie is not answered with a fresh visitor.
//
// @Summary      Forget visitor
// @Description  Deletes the visitor record with its saved guest cart and expires the visitor cookie. The backend session is untouched.
// @Tags         Session
// @Success      204
// @Failure      500  {object}  errorResponse
// @Router       /api/visitor [delete]
func (h *Handler) forgetVisitor(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cfg.CookieName); err == nil && c.Value != "" {
		if err := h.deps.Shoppers.Forget(r.Context(), c.Value); err != nil {
			h.logger.Error("forgetting visitor failed", "visitor_id", c.Value, "error", err)
			writeError(w, http.StatusInternalServerError, "visitor unavailable")
			return
		}
		h.logger.Info("visitor forgotten", "visitor_id", c.Value)
	}
	expired := h.visitorCookie("")
	expired.MaxAge = -1
	http.SetCookie(w, expired)
	w.WriteHeader(http.StatusNoContent)
}

// refresh handles POST /api/session/refresh.
//
// @Summary      Refresh session
// @Tags         Session
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/session/refresh [post]
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request, sh *storefront.Shopper) {
	if err := sh.Session.Refresh(r.Context()); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionOf(sh))
}

// requestIntent handles POST /api/session/intents. It accepts JSON or a
// form post and answers with a redirect to the authentication page.
//
// @Summary      Request an authenticated action
// @Description  Encodes a pending action into the login redirect. The action is performed when the visitor returns.
// @Tags         Session
// @Accept       json
// @Accept       x-www-form-urlencoded
// @Param        body  body  intentRequest  true  "Pending action"
// @Success      303
// @Failure      400  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /api/session/intents [post]
func (h *Handler) requestIntent(w http.ResponseWriter, r *http.Request, sh *storefront.Shopper) {
	req, ok := decodeIntentRequest(w, r)
	if !ok {
		return
	}

	action, err := intent.New(req.Type, req.Payload)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	target, err := sh.Session.RequestAuthenticatedAction(action, safeNext(req.Next))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func decodeIntentRequest(w http.ResponseWriter, r *http.Request) (intentRequest, bool) {
	var req intentRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form")
			return req, false
		}
		req.Type = intent.Kind(r.PostForm.Get("type"))
		req.Payload = intent.Payload{
			ItemID:        r.PostForm.Get("itemId"),
			Size:          r.PostForm.Get("size"),
			CartID:        r.PostForm.Get("cartId"),
			PaymentMethod: r.PostForm.Get("paymentMethod"),
		}
		req.Next = r.PostForm.Get("next")
		return req, true
	}
	return req, decodeJSON(w, r, &req)
}

// authReturn handles GET /auth/return, the landing page of the
// authentication redirect. It re-reads the identity, resolves the pending
// action carried in the URL and sends the visitor on to next.
//
// @Summary      Return from authentication
// @Tags         Session
// @Param        next    query  string  false  "Landing location"
// @Param        intent  query  string  false  "Encoded pending action"
// @Success      303
// @Router       /auth/return [get]
func (h *Handler) authReturn(w http.ResponseWriter, r *http.Request, sh *storefront.Shopper) {
	ctx := r.Context()
	q := r.URL.Query()
	next := safeNext(q.Get(session.ParamNext))

	if err := sh.Session.Reload(ctx); err != nil {
		h.logger.Warn("identity fetch after login failed", "visitor_id", sh.ID(), "error", err)
	}

	encoded := q.Get(session.ParamIntent)
	if encoded == "" {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}

	outcome := pendingResolved
	if _, err := sh.Session.ResolvePendingAction(ctx, encoded); err != nil {
		outcome = pendingFailed
		if errors.Is(err, intent.ErrExpired) {
			outcome = pendingExpired
		}
		h.logger.Warn("pending action not performed", "visitor_id", sh.ID(), "error", err)
	}
	http.Redirect(w, r, withParam(next, paramPending, outcome), http.StatusSeeOther)
}

// safeNext restricts a landing location to a local absolute path.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") ||
		strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return next
}

func withParam(location, key, value string) string {
	u, err := url.Parse(location)
	if err != nil {
		return location
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
