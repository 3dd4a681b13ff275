package backend

// User is the identity record returned by the backend.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CartLine is one line of a server-side cart.
type CartLine struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
	Size     string `json:"size,omitempty"`
}

// Cart is the server-side cart returned by GET /api/cart.
type Cart struct {
	ID    string     `json:"id,omitempty"`
	Items []CartLine `json:"items"`
}

// Order is returned by POST /api/checkout.
type Order struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// Collection is a catalog collection summary.
type Collection struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	HeroImage string `json:"heroImage"`
	Theme     string `json:"theme"`
}

// CollectionDetail is a collection with its description and items.
type CollectionDetail struct {
	Collection
	Description string `json:"description"`
	Items       []Item `json:"items"`
}

// ItemImages holds the product shots of an item.
type ItemImages struct {
	Front string `json:"front"`
	Back  string `json:"back"`
	Label string `json:"label"`
}

// Item is a purchasable catalog item.
type Item struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Images ItemImages `json:"images"`
	Price  float64    `json:"price"`
	Stock  int        `json:"stock"`
	Sizes  []string   `json:"sizes"`
}

// addToCartRequest is the body of POST /api/cart.
type addToCartRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
	Size     string `json:"size,omitempty"`
}

// checkoutRequest is the body of POST /api/checkout.
type checkoutRequest struct {
	CartID        string `json:"cartId"`
	PaymentMethod string `json:"paymentMethod"`
}

// loginRequest is the body of POST /api/auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// wishlistRequest is the body of POST /api/wishlist.
type wishlistRequest struct {
	ItemID string `json:"itemId"`
}
