package httpapi

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/techkart/laptop-store/internal/domain/checkout"
	"github.com/techkart/laptop-store/internal/domain/order"
)

// checkoutPayload is the request body for checkout. The items come from the
// server-side session cart, not the client.
type checkoutPayload struct {
	ShippingAddress string `json:"shipping_address"`
	CustomerEmail   string `json:"customer_email"`
}

// checkoutResponse reports a committed checkout. EmailSent is an independent
// outcome: false means the order stands but the confirmation mail failed.
type checkoutResponse struct {
	OrderID   string          `json:"order_id"`
	Total     decimal.Decimal `json:"total"`
	EmailSent bool            `json:"email_sent"`
}

// stockErrorResponse names the products that blocked the checkout.
type stockErrorResponse struct {
	Code       int      `json:"code"`
	Message    string   `json:"message"`
	ProductIDs []string `json:"product_ids"`
}

func (h *Handler) postCheckout(w http.ResponseWriter, r *http.Request) {
	var in checkoutPayload
	if err := decode(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	id := IdentityFromContext(r.Context())
	token := h.cartToken(w, r)
	c := h.carts.Load(token)

	result, err := h.checkout.Checkout(r.Context(), checkout.Request{
		UserID:          id.UserID,
		Items:           c.Items(),
		ShippingAddress: in.ShippingAddress,
		CustomerEmail:   in.CustomerEmail,
	})
	if err != nil {
		// The cart is left intact on every failure so the user can adjust it.
		var vErr *checkout.ValidationError
		if errors.As(err, &vErr) {
			respondError(w, http.StatusBadRequest, vErr.Error())
			return
		}
		var pnfErr *checkout.ProductNotFoundError
		if errors.As(err, &pnfErr) {
			respondError(w, http.StatusUnprocessableEntity, pnfErr.Error())
			return
		}
		var stockErr *order.InsufficientStockError
		if errors.As(err, &stockErr) {
			respond(w, http.StatusConflict, stockErrorResponse{
				Code:       http.StatusConflict,
				Message:    stockErr.Error(),
				ProductIDs: stockErr.ProductIDs,
			})
			return
		}
		respondInternal(w, r, err)
		return
	}

	// The order is durable; only now does the session cart go away.
	h.carts.Clear(token)

	respond(w, http.StatusCreated, checkoutResponse{
		OrderID:   result.OrderID,
		Total:     result.Total,
		EmailSent: result.EmailSent,
	})
}
