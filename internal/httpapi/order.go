package httpapi

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/techkart/laptop-store/internal/domain/order"
)

// orderResponse is the JSON representation of an order. Lines are populated
// on single-order lookups only.
type orderResponse struct {
	ID              string              `json:"id"`
	UserID          string              `json:"user_id"`
	Total           decimal.Decimal     `json:"total"`
	Status          string              `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
	ShippingAddress string              `json:"shipping_address"`
	CustomerEmail   string              `json:"customer_email"`
	Deleted         bool                `json:"deleted,omitempty"`
	Lines           []orderLineResponse `json:"lines,omitempty"`
}

type orderLineResponse struct {
	ProductID       string          `json:"product_id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// statusPayload is the request body for an order status update.
type statusPayload struct {
	Status string `json:"status"`
}

// statusResponse reports a committed status change and the notification
// outcome.
type statusResponse struct {
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	EmailSent bool   `json:"email_sent"`
}

func toOrderResponse(o order.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Total:           o.Total,
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
		ShippingAddress: o.ShippingAddress,
		CustomerEmail:   o.CustomerEmail,
		Deleted:         o.Deleted,
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, orderLineResponse{
			ProductID:       l.ProductID,
			Quantity:        l.Quantity,
			PriceAtPurchase: l.PriceAtPurchase,
		})
	}
	return resp
}

func toOrderResponses(orders []order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrderResponse(o)
	}
	return out
}

// listOwnOrders returns the authenticated user's order history.
func (h *Handler) listOwnOrders(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	orders, err := h.orders.ListByUser(r.Context(), id.UserID)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respond(w, http.StatusOK, toOrderResponses(orders))
}

// getOrder returns one order with its lines. Users may only read their own
// orders; admins may read any, including soft-deleted ones.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respondError(w, http.StatusNotFound, "order not found")
			return
		}
		respondInternal(w, r, err)
		return
	}

	id := IdentityFromContext(r.Context())
	if !id.Admin() && o.UserID != id.UserID {
		respondError(w, http.StatusForbidden, "not your order")
		return
	}

	respond(w, http.StatusOK, toOrderResponse(*o))
}

// listAllOrders returns every non-deleted order for the admin view.
func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListActive(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respond(w, http.StatusOK, toOrderResponses(orders))
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var in statusPayload
	if err := decode(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	next, err := order.ParseStatus(in.Status)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "unknown order status "+in.Status)
		return
	}

	result, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), next)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respondError(w, http.StatusNotFound, "order not found")
			return
		}
		var tErr *order.InvalidTransitionError
		if errors.As(err, &tErr) {
			respondError(w, http.StatusConflict, tErr.Error())
			return
		}
		respondInternal(w, r, err)
		return
	}

	respond(w, http.StatusOK, statusResponse{
		OrderID:   result.Order.ID,
		Status:    string(result.Order.Status),
		EmailSent: result.EmailSent,
	})
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.SoftDelete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respondError(w, http.StatusNotFound, "order not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
