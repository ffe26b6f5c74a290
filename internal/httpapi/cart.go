package httpapi

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/techkart/laptop-store/internal/domain/cart"
	"github.com/techkart/laptop-store/internal/domain/product"
)

// cartResponse is the display view of the session cart. Prices and subtotals
// come from add-time snapshots; the authoritative numbers are computed at
// checkout from live products.
type cartResponse struct {
	Lines    []cart.Line     `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// addCartItemPayload is the request body for adding a product to the cart.
type addCartItemPayload struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// cartToken returns the session token from the cart cookie, issuing a fresh
// cookie when none is present.
func (h *Handler) cartToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(cartCookie); err == nil && c.Value != "" {
		return c.Value
	}
	token := cart.NewToken()
	http.SetCookie(w, &http.Cookie{
		Name:     cartCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}

func cartView(c cart.Cart) cartResponse {
	lines := c.Lines
	if lines == nil {
		lines = []cart.Line{}
	}
	return cartResponse{Lines: lines, Subtotal: c.Subtotal()}
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	token := h.cartToken(w, r)
	respond(w, http.StatusOK, cartView(h.carts.Load(token)))
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var in addCartItemPayload
	if err := decode(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if in.Quantity < 1 {
		in.Quantity = 1
	}

	// Snapshot the live product for display. The snapshot is refreshed on
	// repeat adds and never trusted at checkout.
	p, err := h.products.GetByID(r.Context(), in.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		respondInternal(w, r, err)
		return
	}

	token := h.cartToken(w, r)
	c := h.carts.Load(token)
	c.Add(*p, in.Quantity)
	h.carts.Save(token, c)

	respond(w, http.StatusOK, cartView(c))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	token := h.cartToken(w, r)
	c := h.carts.Load(token)
	c.Remove(r.PathValue("id"))
	h.carts.Save(token, c)

	respond(w, http.StatusOK, cartView(c))
}
