// Package fakebackend provides an in-process commerce backend for tests. It
// serves the REST surface the storefront consumes and keeps users, carts and
// wishlists in memory.
package fakebackend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/google/uuid"

	"github.com/txn2/storefront/pkg/backend"
)

// CookieName is the backend's session cookie.
const CookieName = "session"

// Password is accepted for every known user.
const Password = "secret"

// Server is a fake commerce backend.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	users     map[string]backend.User // by email
	tokens    map[string]string       // token -> user id
	carts     map[string][]backend.CartLine
	wishlists map[string][]string
	orders    []backend.Order
	calls     []string
	failures  map[string]int // "METHOD path" -> status

	collections []backend.CollectionDetail
}

// New starts a fake backend seeded with one user and a small catalog. The
// server is closed when the test ends.
func New(t interface{ Cleanup(func()) }) *Server {
	s := &Server{
		users:     map[string]backend.User{"ada@example.com": {ID: "u1", Email: "ada@example.com", Name: "Ada"}},
		tokens:    make(map[string]string),
		carts:     make(map[string][]backend.CartLine),
		wishlists: make(map[string][]string),
		failures:  make(map[string]int),
		collections: []backend.CollectionDetail{{
			Collection:  backend.Collection{ID: "c1", Slug: "spring", Title: "Spring", Theme: "light"},
			Description: "Light layers.",
			Items: []backend.Item{
				{ID: "A", Title: "Linen shirt", Price: 49, Stock: 10, Sizes: []string{"S", "M", "L"}},
				{ID: "B", Title: "Canvas jacket", Price: 129, Stock: 3, Sizes: []string{"M", "L"}},
			},
		}},
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auth/me", s.handleMe)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("POST /api/auth/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/cart", s.handleGetCart)
	mux.HandleFunc("POST /api/cart", s.handleAddToCart)
	mux.HandleFunc("POST /api/checkout", s.handleCheckout)
	mux.HandleFunc("GET /api/collections", s.handleCollections)
	mux.HandleFunc("GET /api/collections/{slug}", s.handleCollection)
	mux.HandleFunc("GET /api/items/{id}", s.handleItem)
	mux.HandleFunc("POST /api/wishlist", s.handleAddWishlist)
	mux.HandleFunc("DELETE /api/wishlist/{itemId}", s.handleRemoveWishlist)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.calls = append(s.calls, key)
		status, fail := s.failures[key]
		delete(s.failures, key)
		s.mu.Unlock()
		if fail {
			http.Error(w, "injected failure", status)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

// SignIn creates a backend session for email, as the external
// authentication page would, and returns its cookie.
func (s *Server) SignIn(email string) *http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		panic(fmt.Sprintf("fakebackend: unknown user %s", email))
	}
	return s.issueLocked(u.ID)
}

func (s *Server) issueLocked(userID string) *http.Cookie {
	token := uuid.NewString()
	s.tokens[token] = userID
	return &http.Cookie{Name: CookieName, Value: token, Path: "/"}
}

// FailNext makes the next request to method and path answer with status.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

// Calls returns the "METHOD path" of every request received so far.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// ResetCalls clears the request log.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// CartOf returns the server cart of a user.
func (s *Server) CartOf(userID string) []backend.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.CartLine(nil), s.carts[userID]...)
}

// SetCart replaces the server cart of a user.
func (s *Server) SetCart(userID string, lines []backend.CartLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[userID] = append([]backend.CartLine(nil), lines...)
}

// WishlistOf returns the wishlist of a user.
func (s *Server) WishlistOf(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.wishlists[userID]...)
}

// Orders returns every order placed.
func (s *Server) Orders() []backend.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.Order(nil), s.orders...)
}

func (s *Server) userID(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[c.Value]
	return id, ok
}

func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := s.userID(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return id, ok
}

func (s *Server) userByID(id string) backend.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return backend.User{}
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, map[string]any{"user": s.userByID(id)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.Email]
	if !ok || req.Password != Password {
		s.mu.Unlock()
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	cookie := s.issueLocked(u.ID)
	s.mu.Unlock()

	http.SetCookie(w, cookie)
	writeJSON(w, u)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil {
		s.mu.Lock()
		delete(s.tokens, c.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	lines := s.CartOf(id)
	if lines == nil {
		lines = []backend.CartLine{}
	}
	writeJSON(w, backend.Cart{ID: "cart-" + id, Items: lines})
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req backend.CartLine
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" || req.Quantity <= 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	lines := s.carts[id]
	merged := false
	for i := range lines {
		if lines[i].ItemID == req.ItemID && lines[i].Size == req.Size {
			lines[i].Quantity += req.Quantity
			merged = true
		}
	}
	if !merged {
		lines = append(lines, req)
	}
	s.carts[id] = lines
	s.mu.Unlock()

	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		CartID        string `json:"cartId"`
		PaymentMethod string `json:"paymentMethod"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PaymentMethod == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.CartID != "cart-"+id {
		http.Error(w, "unknown cart", http.StatusConflict)
		return
	}

	s.mu.Lock()
	if len(s.carts[id]) == 0 {
		s.mu.Unlock()
		http.Error(w, "cart is empty", http.StatusConflict)
		return
	}
	order := backend.Order{OrderID: fmt.Sprintf("order-%d", len(s.orders)+1), Status: "confirmed"}
	s.orders = append(s.orders, order)
	delete(s.carts, id)
	s.mu.Unlock()

	writeJSON(w, order)
}

func (s *Server) handleCollections(w http.ResponseWriter, _ *http.Request) {
	out := make([]backend.Collection, 0, len(s.collections))
	for _, c := range s.collections {
		out = append(out, c.Collection)
	}
	writeJSON(w, out)
}

func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	for _, c := range s.collections {
		if c.Slug == slug {
			writeJSON(w, c)
			return
		}
	}
	http.NotFound(w, r)
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, c := range s.collections {
		for _, it := range c.Items {
			if it.ID == id {
				writeJSON(w, it)
				return
			}
		}
	}
	http.NotFound(w, r)
}

func (s *Server) handleAddWishlist(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		ItemID string `json:"itemId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.wishlists[id] = append(s.wishlists[id], req.ItemID)
	s.mu.Unlock()
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleRemoveWishlist(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	itemID := r.PathValue("itemId")
	s.mu.Lock()
	kept := s.wishlists[id][:0:0]
	for _, it := range s.wishlists[id] {
		if it != itemID {
			kept = append(kept, it)
		}
	}
	s.wishlists[id] = kept
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
