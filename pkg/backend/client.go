// Package backend provides the REST client for the commerce backend consumed
// by the storefront. Every request carries the visitor's cookie credentials
// from a per-client cookie jar.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/yosida95/uritemplate/v3"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// Backend REST paths.
const (
	pathMe          = "/api/auth/me"
	pathLogin       = "/api/auth/login"
	pathLogout      = "/api/auth/logout"
	pathRefresh     = "/api/auth/refresh"
	pathCart        = "/api/cart"
	pathCheckout    = "/api/checkout"
	pathCollections = "/api/collections"
	pathWishlist    = "/api/wishlist"
)

var (
	collectionTemplate = uritemplate.MustNew("/api/collections/{slug}")
	itemTemplate       = uritemplate.MustNew("/api/items/{id}")
	wishlistTemplate   = uritemplate.MustNew("/api/wishlist/{itemId}")
)

// Config configures a Client.
type Config struct {
	// BaseURL is the backend origin, e.g. https://api.example.com.
	BaseURL string

	// Timeout bounds each request. Defaults to 10s.
	Timeout time.Duration

	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Client talks to the commerce backend on behalf of one visitor.
type Client struct {
	baseURL *url.URL
	jar     http.CookieJar
	http    *http.Client
}

// New creates a backend client with its own cookie jar.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing backend base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend base URL must be absolute: %q", cfg.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: base,
		jar:     jar,
		http: &http.Client{
			Jar:       jar,
			Timeout:   timeout,
			Transport: cfg.Transport,
		},
	}, nil
}

// SetCredentials stores cookies for the backend origin so that subsequent
// requests carry them.
func (c *Client) SetCredentials(cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	c.jar.SetCookies(c.baseURL, cookies)
}

// CurrentUser fetches the authenticated identity. The backend may answer with
// the user object itself or wrapped as {"user": {...}}.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	data, err := c.doRaw(ctx, http.MethodGet, pathMe, nil)
	if err != nil {
		return nil, err
	}
	return decodeUser(data)
}

// Login performs credential login.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	data, err := c.doRaw(ctx, http.MethodPost, pathLogin, loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return decodeUser(data)
}

// Logout ends the backend session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.doRaw(ctx, http.MethodPost, pathLogout, nil)
	return err
}

// Refresh refreshes the backend session token.
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.doRaw(ctx, http.MethodPost, pathRefresh, nil)
	return err
}

// Cart fetches the full server-side cart. An empty body or a body without
// items yields an empty cart; an undecodable body yields ErrMalformedResponse.
func (c *Client) Cart(ctx context.Context) (*Cart, error) {
	data, err := c.doRaw(ctx, http.MethodGet, pathCart, nil)
	if err != nil {
		return nil, err
	}

	cart := &Cart{}
	if len(bytes.TrimSpace(data)) == 0 {
		cart.Items = []CartLine{}
		return cart, nil
	}
	if err := json.Unmarshal(data, cart); err != nil {
		return nil, fmt.Errorf("%w: decoding cart: %w", ErrMalformedResponse, err)
	}
	if cart.Items == nil {
		cart.Items = []CartLine{}
	}
	return cart, nil
}

// AddToCart adds quantity units of an item (and optional size) to the cart.
func (c *Client) AddToCart(ctx context.Context, itemID string, quantity int, size string) error {
	_, err := c.doRaw(ctx, http.MethodPost, pathCart, addToCartRequest{
		ItemID:   itemID,
		Quantity: quantity,
		Size:     size,
	})
	return err
}

// Checkout submits the cart for payment.
func (c *Client) Checkout(ctx context.Context, cartID, paymentMethod string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, pathCheckout, checkoutRequest{
		CartID:        cartID,
		PaymentMethod: paymentMethod,
	}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Collections lists the catalog collections.
func (c *Client) Collections(ctx context.Context) ([]Collection, error) {
	var collections []Collection
	if err := c.do(ctx, http.MethodGet, pathCollections, nil, &collections); err != nil {
		return nil, err
	}
	return collections, nil
}

// Collection fetches one collection with its items.
func (c *Client) Collection(ctx context.Context, slug string) (*CollectionDetail, error) {
	path, err := expand(collectionTemplate, "slug", slug)
	if err != nil {
		return nil, err
	}
	var detail CollectionDetail
	if err := c.do(ctx, http.MethodGet, path, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Item fetches a single item.
func (c *Client) Item(ctx context.Context, id string) (*Item, error) {
	path, err := expand(itemTemplate, "id", id)
	if err != nil {
		return nil, err
	}
	var item Item
	if err := c.do(ctx, http.MethodGet, path, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// AddToWishlist adds an item to the user's wishlist.
func (c *Client) AddToWishlist(ctx context.Context, itemID string) error {
	_, err := c.doRaw(ctx, http.MethodPost, pathWishlist, wishlistRequest{ItemID: itemID})
	return err
}

// RemoveFromWishlist removes an item from the user's wishlist.
func (c *Client) RemoveFromWishlist(ctx context.Context, itemID string) error {
	path, err := expand(wishlistTemplate, "itemId", itemID)
	if err != nil {
		return err
	}
	_, err = c.doRaw(ctx, http.MethodDelete, path, nil)
	return err
}

// expand fills a single-variable path template.
func expand(tmpl *uritemplate.Template, name, value string) (string, error) {
	if value == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	vars := uritemplate.Values{}
	vars.Set(name, uritemplate.String(value))
	path, err := tmpl.Expand(vars)
	if err != nil {
		return "", fmt.Errorf("expanding %s: %w", tmpl.Raw(), err)
	}
	return path, nil
}

// do performs a request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	data, err := c.doRaw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding %s %s: %w", ErrMalformedResponse, method, path, err)
	}
	return nil
}

// doRaw performs a request and returns the response body of a 2xx answer.
func (c *Client) doRaw(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s %s response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}
	return data, nil
}

// decodeUser accepts both the bare and the {"user": ...} shapes.
func decodeUser(data []byte) (*User, error) {
	var envelope struct {
		User *User `json:"user"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decoding user: %w", ErrMalformedResponse, err)
	}
	if envelope.User != nil && envelope.User.ID != "" {
		return envelope.User, nil
	}

	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("%w: decoding user: %w", ErrMalformedResponse, err)
	}
	if user.ID == "" {
		return nil, errors.Join(ErrMalformedResponse, errors.New("user has no id"))
	}
	return &user, nil
}
