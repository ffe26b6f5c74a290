package httpapi

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/techkart/laptop-store/internal/domain/product"
)

// productPayload is the request body for product create/update.
type productPayload struct {
	Brand       string          `json:"brand"`
	Model       string          `json:"model"`
	Specs       string          `json:"specs"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
	Promotion   string          `json:"promotion"`
	Stock       int             `json:"stock"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
}

// productResponse is the JSON representation of a catalog product.
type productResponse struct {
	ID       string          `json:"id"`
	Brand    string          `json:"brand"`
	Model    string          `json:"model"`
	Specs    string          `json:"specs"`
	Price    decimal.Decimal `json:"price"`
	Discount decimal.Decimal `json:"discount"`
	// EffectivePrice is the unit price after the discount, the same value a
	// checkout would freeze right now.
	EffectivePrice decimal.Decimal `json:"effective_price"`
	Promotion      string          `json:"promotion"`
	Stock          int             `json:"stock"`
	Description    string          `json:"description"`
	Image          string          `json:"image,omitempty"`
}

func (h *Handler) toProductResponse(p product.Product) productResponse {
	image := p.Image
	if image != "" && h.imageBaseURL != "" {
		image = h.imageBaseURL + "/" + image
	}
	return productResponse{
		ID:             p.ID,
		Brand:          p.Brand,
		Model:          p.Model,
		Specs:          p.Specs,
		Price:          p.Price,
		Discount:       p.Discount,
		EffectivePrice: product.EffectiveUnitPrice(p),
		Promotion:      p.Promotion,
		Stock:          p.Stock,
		Description:    p.Description,
		Image:          image,
	}
}

// listProducts returns the catalog; ?promoted=1 restricts to promoted items.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []product.Product
		err      error
	)
	if r.URL.Query().Get("promoted") != "" {
		products, err = h.products.ListPromoted(r.Context())
	} else {
		products, err = h.products.List(r.Context())
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = h.toProductResponse(p)
	}
	respond(w, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	respond(w, http.StatusOK, h.toProductResponse(*p))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in productPayload
	if err := decode(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	p := product.Product{
		ID:          uuid.New().String(),
		Brand:       in.Brand,
		Model:       in.Model,
		Specs:       in.Specs,
		Price:       in.Price,
		Discount:    in.Discount,
		Promotion:   in.Promotion,
		Stock:       in.Stock,
		Description: in.Description,
		Image:       in.Image,
	}
	if err := p.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.products.Create(r.Context(), &p); err != nil {
		respondInternal(w, r, err)
		return
	}
	respond(w, http.StatusCreated, h.toProductResponse(p))
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var in productPayload
	if err := decode(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	p := product.Product{
		ID:          r.PathValue("id"),
		Brand:       in.Brand,
		Model:       in.Model,
		Specs:       in.Specs,
		Price:       in.Price,
		Discount:    in.Discount,
		Promotion:   in.Promotion,
		Stock:       in.Stock,
		Description: in.Description,
		Image:       in.Image,
	}
	if err := p.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.products.Update(r.Context(), &p); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	respond(w, http.StatusOK, h.toProductResponse(p))
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
