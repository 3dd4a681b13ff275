package gateway

import (
	"net/http"

	"github.com/txn2/storefront/pkg/cart"
	"github.com/txn2/storefront/pkg/storefront"
)

// cartResponse is the visitor's cart.
type cartResponse struct {
	ID         string      `json:"id,omitempty"`
	Mode       string      `json:"mode"`
	Items      []cart.Line `json:"items"`
	TotalItems int         `json:"totalItems"`
}

// addItemRequest is the body of POST /api/cart/items.
type addItemRequest struct {
	ItemID string `json:"itemId"`
	Size   string `json:"size,omitempty"`
}

// updateQuantityRequest is the body of PUT /api/cart/items/{itemId}.
type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// wishlistRequest is the body of POST /api/wishlist.
type wishlistRequest struct {
	ItemID string `json:"itemId"`
	Next   string `json:"next"`
}

// checkoutRequest is the body of POST /api/checkout.
type checkoutRequest struct {
	PaymentMethod string `json:"paymentMethod"`
	Next          string `json:"next"`
}

// removedResponse reports how many cart lines were removed.
type removedResponse struct {
	Removed int          `json:"removed"`
	Cart    cartResponse `json:"cart"`
}

func cartOf(sh *storefront.Shopper) cartResponse {
	return cartResponse{
		ID:         sh.Cart.ID(),
		Mode:       sh.Cart.Mode().String(),
		Items:      sh.Cart.Lines(),
		TotalItems: sh.Cart.TotalItems(),
	}
}

// getCart handles GET /api/cart.
//
// @Summary      Get cart
// @Description  Returns the cart lines, the derived item total and the cart mode (local or server).
// @Tags         Cart
// @Produce      json
// @Success      200  {object}  cartResponse
// @Router       /api/cart [get]
func (*Handler) getCart(w http.ResponseWriter, _ *http.Request, sh *storefront.Shopper) {
	writeJSON(w, http.StatusOK, cartOf(sh))
}

// addCartItem handles POST /api/cart/items.
//
// @Summary      Add to cart
// @Description  Adds one unit of an item. Signed-in visitors add to the backend cart.
// @Tags         Cart
// @Accept       json
// @Produce      json
// @Param        body  body      addItemRequest  true  "Item"
// @Success      200   {object}  cartResponse
// @Failure      400   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /api/cart/items [post]
func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request, sh *storefront.Shopper) {
	var req addItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := sh.AddToCart(r.Context(), req.ItemID, req.Size); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartOf(sh))
}

// updateCartItem handles PUT /api/cart/items/{itemId}.
//
// @Summary      Set quantity
// @Description  Sets the quantity of every line of the item. Zero or less removes them.
// @Tags         Cart
// @Accept       json
// @Produce      json
// @Param        itemId  path      string                 true  "Item ID"
// @Param        body    body      updateQuantityRequest  true  "Quantity"
// @Success      200     {object}  cartResponse
// @Router       /api/cart/items/{itemId} [put]
func (*Handler) updateCartItem(w http.ResponseWriter, r *http.Request, sh *storefront.Shopper) {
	var req updateQuantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sh.Cart.UpdateQuantity(r.PathValue("itemId"), req.Quantity)
	writeJSON(w, http.StatusOK, cartOf(sh))
}

// removeCartItem handles DELETE /api/cart/items/{itemId}.
//
// @Summary      Remove from cart
// @Description  Removes every line of the item, whatever its size.
// @Tags         Cart
// @Produce      json
// @Param        itemId  path      string  true  "Item ID"
// @Success      200     {object}  removedResponse
// @Router       /api/cart/items/{itemId} [delete]
func (*Handler) removeCartItem(w http.ResponseWriter, r *http.Request, sh *storefront.Shopper) {
	removed := sh.Cart.RemoveItem(r.PathValue("itemId"))
	writeJSON(w, http.StatusOK, removedResponse{Removed: removed, Cart: cartOf(sh)})
}

// clearCart handles DELETE /api/cart.
//
// @Summary      Clear cart
// @Tags         Cart
// @Produce      json
// @Success      200  {object}  cartResponse
// @Router       /api/cart [delete]
func (*Handler) clearCart(w http.ResponseWriter, _ *http.Request, sh *storefront.Shopper) {
	sh.Cart.Clear()
	writeJSON(w, http.StatusOK, cartOf(sh))
}

// addWishlist handles POST /api/wishlist.
//
// @Summary      Add to wishlist
// @Description  Guests receive 401 with a login_url that adds the item after login.
// @Tags         Wishlist
// @Accept       json
// @Param        body  body  wishlistRequest  true  "Item"
// @Success      204
// @Failure      401  {object}  authRequiredResponse
// @Router       /api/wishlist [post]
func (h *Handler) addWishlist(w http.ResponseWriter, r *http.Request, sh *storefront.Shopper) {
	var req wishlistRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := sh.AddToWishlist(r.Context(), req.ItemID, safeNext(req.Next)); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// removeWishlist handles DELETE /api/wishlist/{itemId}.
//
// @Summary      Remove from wishlist
// @Tags         Wishlist
// @Param        itemId  path  string  true  "Item ID"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Router       /api/wishlist/{itemId} [delete]
func (h *Handler) removeWishlist(w http.ResponseWriter, r *http.Request, sh *storefront.Shopper) {
	if err := sh.RemoveFromWishlist(r.Context(), r.PathValue("itemId")); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkout handles POST /api/checkout.
//
// @Summary      Check out
// @Description  Places an order for the backend cart. Guests receive 401 with a login_url that checks out after login.
// @Tags         Checkout
// @Accept       json
// @Produce      json
// @Param        body  body      checkoutRequest  true  "Payment"
// @Success      200   {object}  backend.Order
// @Failure      401   {object}  authRequiredResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/checkout [post]
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request, sh *storefront.Shopper) {
	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := sh.Checkout(r.Context(), req.PaymentMethod, safeNext(req.Next))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
