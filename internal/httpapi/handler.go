// Package httpapi exposes the storefront over JSON HTTP. Handlers stay thin:
// they decode input, delegate to the domain services, and map domain errors
// to status codes.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/techkart/laptop-store/internal/domain/cart"
	"github.com/techkart/laptop-store/internal/domain/checkout"
	"github.com/techkart/laptop-store/internal/domain/order"
	"github.com/techkart/laptop-store/internal/domain/product"
)

// cartCookie names the session cookie that keys the server-side cart. The
// cart is per browser session on purpose: cross-device cart merging is out of
// scope, and the durable record is always the order, never the cart.
const cartCookie = "cart_session"

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler serves the storefront API.
type Handler struct {
	products     product.Repository
	carts        *cart.Store
	checkout     *checkout.Service
	orders       *order.Service
	security     *Security
	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	products product.Repository,
	carts *cart.Store,
	checkoutSvc *checkout.Service,
	orders *order.Service,
	security *Security,
) *Handler {
	return &Handler{
		products:     products,
		carts:        carts,
		checkout:     checkoutSvc,
		orders:       orders,
		security:     security,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Register mounts all API routes on mux. Method patterns require Go 1.22+.
func (h *Handler) Register(mux *http.ServeMux) {
	authed := h.security.Authenticate
	admin := func(next http.HandlerFunc) http.Handler { return authed(RequireAdmin(next)) }

	// Catalog: public reads, admin mutations.
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.Handle("POST /api/products", admin(h.createProduct))
	mux.Handle("PUT /api/products/{id}", admin(h.updateProduct))
	mux.Handle("DELETE /api/products/{id}", admin(h.deleteProduct))

	// Cart and checkout: any authenticated key.
	mux.Handle("GET /api/cart", authed(http.HandlerFunc(h.getCart)))
	mux.Handle("POST /api/cart/items", authed(http.HandlerFunc(h.addCartItem)))
	mux.Handle("DELETE /api/cart/items/{id}", authed(http.HandlerFunc(h.removeCartItem)))
	mux.Handle("POST /api/checkout", authed(http.HandlerFunc(h.postCheckout)))

	// Orders: own history for users, full management for admins.
	mux.Handle("GET /api/orders", authed(http.HandlerFunc(h.listOwnOrders)))
	mux.Handle("GET /api/orders/{id}", authed(http.HandlerFunc(h.getOrder)))
	mux.Handle("GET /api/admin/orders", admin(h.listAllOrders))
	mux.Handle("PUT /api/admin/orders/{id}/status", admin(h.updateOrderStatus))
	mux.Handle("DELETE /api/admin/orders/{id}", admin(h.deleteOrder))
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, errorResponse{Code: status, Message: message})
}

// respondInternal logs the unexpected error and hides its details from the
// client.
func respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	respondError(w, http.StatusInternalServerError, "internal error")
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
