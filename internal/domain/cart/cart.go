// Package cart holds the ephemeral per-session shopping cart. A cart is a
// display convenience only: the price and discount on each line are snapshots
// taken at add time, and checkout always re-reads the live product record.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/techkart/laptop-store/internal/domain/product"
)

// Line is one product entry in a cart. The display fields are denormalized
// from the product at add time and are never authoritative.
type Line struct {
	ProductID string          `json:"product_id"`
	Brand     string          `json:"brand"`
	Model     string          `json:"model"`
	Specs     string          `json:"specs"`
	Price     decimal.Decimal `json:"price"`
	Discount  decimal.Decimal `json:"discount"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
}

// Item is the minimal {product_id, quantity} pair the checkout engine
// consumes. Everything else on a Line is display-only.
type Item struct {
	ProductID string
	Quantity  int
}

// Cart is a mutable list of lines owned by a single session.
type Cart struct {
	Lines []Line `json:"lines"`
}

// Add appends qty units of p to the cart, merging into an existing line when
// the product is already present. The snapshot fields are refreshed from p on
// a merge so the display tracks the most recent view of the product.
func (c *Cart) Add(p product.Product, qty int) {
	if qty < 1 {
		qty = 1
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == p.ID {
			c.Lines[i].Quantity += qty
			c.Lines[i].Price = p.Price
			c.Lines[i].Discount = p.Discount
			return
		}
	}
	c.Lines = append(c.Lines, Line{
		ProductID: p.ID,
		Brand:     p.Brand,
		Model:     p.Model,
		Specs:     p.Specs,
		Price:     p.Price,
		Discount:  p.Discount,
		Image:     p.Image,
		Quantity:  qty,
	})
}

// Remove deletes the line for productID, if present.
func (c *Cart) Remove(productID string) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
	}
}

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool {
	return len(c.Lines) == 0
}

// Items returns the cart content as checkout input pairs.
func (c *Cart) Items() []Item {
	items := make([]Item, len(c.Lines))
	for i, l := range c.Lines {
		items[i] = Item{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	return items
}

// Subtotal computes the display total from the snapshot prices, applying each
// line's snapshot discount. The authoritative total is computed independently
// at checkout from live products.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		unit := product.EffectiveUnitPrice(product.Product{Price: l.Price, Discount: l.Discount})
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total.Round(2)
}
