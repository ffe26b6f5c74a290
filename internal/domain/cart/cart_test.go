package cart

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techkart/laptop-store/internal/domain/product"
)

func newLaptop(id string, price, discount string) product.Product {
	return product.Product{
		ID:       id,
		Brand:    "Acer",
		Model:    "Swift 3",
		Price:    decimal.RequireFromString(price),
		Discount: decimal.RequireFromString(discount),
		Stock:    10,
	}
}

func TestCart_AddMergesQuantity(t *testing.T) {
	var c Cart
	p := newLaptop("p1", "700.00", "0")

	c.Add(p, 1)
	c.Add(p, 2)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 3, c.Lines[0].Quantity)
}

func TestCart_AddRefreshesSnapshotOnMerge(t *testing.T) {
	var c Cart
	p := newLaptop("p1", "700.00", "0")
	c.Add(p, 1)

	p.Price = decimal.RequireFromString("650.00")
	c.Add(p, 1)

	require.Len(t, c.Lines, 1)
	assert.True(t, decimal.RequireFromString("650.00").Equal(c.Lines[0].Price))
}

func TestCart_Remove(t *testing.T) {
	var c Cart
	c.Add(newLaptop("p1", "700.00", "0"), 1)
	c.Add(newLaptop("p2", "900.00", "0"), 1)

	c.Remove("p1")

	require.Len(t, c.Lines, 1)
	assert.Equal(t, "p2", c.Lines[0].ProductID)

	c.Remove("missing") // no-op
	assert.Len(t, c.Lines, 1)
}

func TestCart_SubtotalAppliesSnapshotDiscount(t *testing.T) {
	var c Cart
	c.Add(newLaptop("p1", "1000.00", "10"), 2) // 2 * 900.00
	c.Add(newLaptop("p2", "500.00", "0"), 1)   // 500.00

	assert.True(t, decimal.RequireFromString("2300.00").Equal(c.Subtotal()))
}

func TestCart_Items(t *testing.T) {
	var c Cart
	c.Add(newLaptop("p1", "700.00", "0"), 2)

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, Item{ProductID: "p1", Quantity: 2}, items[0])
}

func TestStore_LoadSaveClear(t *testing.T) {
	s := NewStore(time.Hour)
	token := NewToken()

	assert.True(t, s.Load(token).Empty())

	var c Cart
	c.Add(newLaptop("p1", "700.00", "0"), 1)
	s.Save(token, c)

	loaded := s.Load(token)
	require.Len(t, loaded.Lines, 1)

	// Mutating the loaded copy must not touch the stored cart.
	loaded.Remove("p1")
	assert.Len(t, s.Load(token).Lines, 1)

	s.Clear(token)
	assert.True(t, s.Load(token).Empty())
}

func TestStore_Expiry(t *testing.T) {
	s := NewStore(10 * time.Millisecond)
	token := NewToken()

	var c Cart
	c.Add(newLaptop("p1", "700.00", "0"), 1)
	s.Save(token, c)

	time.Sleep(20 * time.Millisecond)
	assert.True(t, s.Load(token).Empty())

	s.cleanup(time.Now())
	s.mu.Lock()
	assert.Empty(t, s.carts)
	s.mu.Unlock()
}
