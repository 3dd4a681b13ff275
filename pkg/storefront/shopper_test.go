package storefront

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/storefront/internal/testutil/fakebackend"
	"github.com/txn2/storefront/pkg/backend"
	"github.com/txn2/storefront/pkg/cart"
	"github.com/txn2/storefront/pkg/intent"
	"github.com/txn2/storefront/pkg/session"
)

const (
	testAuthURL   = "https://auth.example.com/login"
	testReturnURL = "https://shop.example.com/auth/return"
	testSecret    = "storefront-test-secret-0123456789"
	testEmail     = "ada@example.com"
	testUserID    = "u1"
	testLocation  = "/collections/spring"
)

func testShopperConfig(t *testing.T) ShopperConfig {
	t.Helper()
	codec, err := intent.NewCodec(intent.CodecConfig{Secret: testSecret})
	require.NoError(t, err)
	return ShopperConfig{AuthURL: testAuthURL, ReturnURL: testReturnURL, Codec: codec}
}

func newClient(t *testing.T, fb *fakebackend.Server) *backend.Client {
	t.Helper()
	c, err := backend.New(backend.Config{BaseURL: fb.URL})
	require.NoError(t, err)
	return c
}

// newGuest returns an initialized, unauthenticated shopper.
func newGuest(t *testing.T, fb *fakebackend.Server) *Shopper {
	t.Helper()
	sh, err := NewShopper("visitor-1", newClient(t, fb), testShopperConfig(t))
	require.NoError(t, err)
	err = sh.Session.Initialize(context.Background())
	require.ErrorIs(t, err, backend.ErrUnauthorized)
	require.False(t, sh.Session.Authenticated())
	return sh
}

// returnFromLogin simulates the external authentication page: it signs the
// shopper in on the backend and hands back the intent token carried by the
// login URL.
func returnFromLogin(t *testing.T, fb *fakebackend.Server, sh *Shopper, loginURL string) string {
	t.Helper()
	u, err := url.Parse(loginURL)
	require.NoError(t, err)
	returnTo, err := url.Parse(u.Query().Get(session.ParamRedirect))
	require.NoError(t, err)

	sh.SetCredentials([]*http.Cookie{fb.SignIn(testEmail)})
	require.NoError(t, sh.Session.Reload(context.Background()))
	require.True(t, sh.Session.Authenticated())
	return returnTo.Query().Get(session.ParamIntent)
}

func TestGuestCartStaysLocal(t *testing.T) {
	fb := fakebackend.New(t)
	sh := newGuest(t, fb)
	fb.ResetCalls()
	ctx := context.Background()

	require.NoError(t, sh.AddToCart(ctx, "A", "M"))
	require.NoError(t, sh.AddToCart(ctx, "A", "M"))

	assert.Empty(t, cmp.Diff([]cart.Line{{ItemID: "A", Quantity: 2, Size: "M"}}, sh.Cart.Lines()))
	assert.Equal(t, 2, sh.Cart.TotalItems())
	assert.Empty(t, fb.Calls(), "guest cart must not reach the backend")
}

func TestPendingAddToCartResumesAfterLogin(t *testing.T) {
	fb := fakebackend.New(t)
	sh := newGuest(t, fb)
	ctx := context.Background()

	require.NoError(t, sh.AddToCart(ctx, "A", "S"))

	action, err := intent.New(intent.KindAddCart, intent.Payload{ItemID: "B", Size: "M"})
	require.NoError(t, err)
	loginURL, err := sh.Session.RequestAuthenticatedAction(action, testLocation)
	require.NoError(t, err)

	token := returnFromLogin(t, fb, sh, loginURL)
	assert.Equal(t, cart.ModeServer, sh.Cart.Mode())
	assert.Empty(t, sh.Cart.Lines(), "guest lines are not merged on login")

	fb.ResetCalls()
	resolved, err := sh.Session.ResolvePendingAction(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, action.ID, resolved.ID)

	assert.Equal(t, []string{"POST /api/cart", "GET /api/cart"}, fb.Calls())
	assert.Empty(t, cmp.Diff([]cart.Line{{ItemID: "B", Quantity: 1, Size: "M"}}, sh.Cart.Lines()))
	assert.Equal(t, "cart-"+testUserID, sh.Cart.ID())
}

func TestWishlistRequiresLogin(t *testing.T) {
	fb := fakebackend.New(t)
	sh := newGuest(t, fb)
	ctx := context.Background()

	err := sh.AddToWishlist(ctx, "A", testLocation)
	var authErr *AuthRequiredError
	require.ErrorAs(t, err, &authErr)
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.Equal(t, intent.KindAddWishlist, authErr.Action.Kind)
	assert.Empty(t, fb.WishlistOf(testUserID))

	token := returnFromLogin(t, fb, sh, authErr.LoginURL)
	_, err = sh.Session.ResolvePendingAction(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, fb.WishlistOf(testUserID))

	require.NoError(t, sh.RemoveFromWishlist(ctx, "A"))
	assert.Empty(t, fb.WishlistOf(testUserID))
}

func TestRemoveFromWishlistGuest(t *testing.T) {
	fb := fakebackend.New(t)
	sh := newGuest(t, fb)

	err := sh.RemoveFromWishlist(context.Background(), "A")
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestPendingCheckout(t *testing.T) {
	fb := fakebackend.New(t)
	sh := newGuest(t, fb)
	ctx := context.Background()
	fb.SetCart(testUserID, []backend.CartLine{{ItemID: "A", Quantity: 2}})

	_, err := sh.Checkout(ctx, "card", "/checkout")
	var authErr *AuthRequiredError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "card", authErr.Action.Payload.PaymentMethod)
	assert.Empty(t, authErr.Action.Payload.CartID, "the server cart is read after login")

	token := returnFromLogin(t, fb, sh, authErr.LoginURL)
	assert.Equal(t, 2, sh.Cart.TotalItems())

	_, err = sh.Session.ResolvePendingAction(ctx, token)
	require.NoError(t, err)

	require.Len(t, fb.Orders(), 1)
	assert.Equal(t, "confirmed", fb.Orders()[0].Status)
	assert.Zero(t, sh.Cart.TotalItems(), "cart reloads empty after checkout")
}

func TestCheckoutAuthenticated(t *testing.T) {
	fb := fakebackend.New(t)
	sh := newGuest(t, fb)
	ctx := context.Background()
	sh.SetCredentials([]*http.Cookie{fb.SignIn(testEmail)})
	require.NoError(t, sh.Session.Reload(ctx))

	t.Run("empty cart", func(t *testing.T) {
		_, err := sh.Checkout(ctx, "card", "/")
		assert.ErrorIs(t, err, ErrEmptyCart)
	})

	t.Run("missing payment method", func(t *testing.T) {
		_, err := sh.Checkout(ctx, "", "/")
		assert.ErrorIs(t, err, intent.ErrInvalid)
	})

	t.Run("places order", func(t *testing.T) {
		require.NoError(t, sh.AddToCart(ctx, "B", "L"))
		order, err := sh.Checkout(ctx, "card", "/")
		require.NoError(t, err)
		assert.Equal(t, "order-1", order.OrderID)
		assert.Empty(t, fb.CartOf(testUserID))
	})

	t.Run("backend failure", func(t *testing.T) {
		require.NoError(t, sh.AddToCart(ctx, "B", "L"))
		fb.FailNext(http.MethodPost, "/api/checkout", http.StatusBadGateway)
		_, err := sh.Checkout(ctx, "card", "/")
		var statusErr *backend.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
		assert.Equal(t, 1, sh.Cart.TotalItems())
	})
}

func TestLoginAndLogout(t *testing.T) {
	fb := fakebackend.New(t)
	sh := newGuest(t, fb)
	ctx := context.Background()
	fb.SetCart(testUserID, []backend.CartLine{{ItemID: "A", Quantity: 1, Size: "S"}})

	require.Error(t, sh.Session.Login(ctx, testEmail, "wrong"))
	assert.False(t, sh.Session.Authenticated())

	require.NoError(t, sh.Session.Login(ctx, testEmail, fakebackend.Password))
	assert.Equal(t, testUserID, sh.Session.User().ID)
	assert.Equal(t, cart.ModeServer, sh.Cart.Mode())
	assert.Equal(t, 1, sh.Cart.TotalItems())

	require.NoError(t, sh.Session.Logout(ctx))
	assert.False(t, sh.Session.Authenticated())
	assert.Equal(t, cart.ModeLocal, sh.Cart.Mode())
	assert.Zero(t, sh.Cart.TotalItems())
}

func TestLogoutBackendFailureStillClears(t *testing.T) {
	fb := fakebackend.New(t)
	sh := newGuest(t, fb)
	ctx := context.Background()
	require.NoError(t, sh.Session.Login(ctx, testEmail, fakebackend.Password))

	fb.FailNext(http.MethodPost, "/api/auth/logout", http.StatusInternalServerError)
	err := sh.Session.Logout(ctx)
	assert.Error(t, err)
	assert.False(t, sh.Session.Authenticated())
	assert.Equal(t, cart.ModeLocal, sh.Cart.Mode())
}

func TestDispatchUnknownKind(t *testing.T) {
	fb := fakebackend.New(t)
	sh := newGuest(t, fb)

	err := sh.Dispatch(context.Background(), &intent.PendingAction{Kind: "REFUND"})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestAuthRequiredErrorMessage(t *testing.T) {
	err := &AuthRequiredError{Action: &intent.PendingAction{Kind: intent.KindCheckout}}
	assert.Contains(t, err.Error(), "CHECKOUT")
	assert.True(t, errors.Is(err, ErrAuthRequired))
}
