package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techkart/laptop-store/internal/domain/auth"
	"github.com/techkart/laptop-store/internal/domain/cart"
	"github.com/techkart/laptop-store/internal/domain/checkout"
	"github.com/techkart/laptop-store/internal/domain/order"
	"github.com/techkart/laptop-store/internal/domain/product"
	"github.com/techkart/laptop-store/internal/notify"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID    map[string]*product.Product
	listErr error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]product.Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockProductRepo) ListPromoted(_ context.Context) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.byID {
		if p.Promotion != "" {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) Create(_ context.Context, p *product.Product) error {
	m.byID[p.ID] = p
	return nil
}

func (m *mockProductRepo) Update(_ context.Context, p *product.Product) error {
	if _, ok := m.byID[p.ID]; !ok {
		return product.ErrNotFound
	}
	m.byID[p.ID] = p
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return product.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type mockOrderRepo struct {
	products *mockProductRepo
	byID     map[string]*order.Order
	created  *order.Order
}

func (m *mockOrderRepo) CreateWithStockDecrement(_ context.Context, o *order.Order) error {
	for _, l := range o.Lines {
		p, ok := m.products.byID[l.ProductID]
		if !ok || p.Stock < l.Quantity {
			return &order.InsufficientStockError{ProductIDs: []string{l.ProductID}}
		}
	}
	for _, l := range o.Lines {
		m.products.byID[l.ProductID].Stock -= l.Quantity
	}
	m.byID[o.ID] = o
	m.created = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.byID {
		if o.UserID == userID && !o.Deleted {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListActive(_ context.Context) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.byID {
		if !o.Deleted {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, next order.Status) error {
	o, ok := m.byID[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = next
	return nil
}

func (m *mockOrderRepo) SoftDelete(_ context.Context, id string) error {
	o, ok := m.byID[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Deleted = true
	return nil
}

type mockAPIKeyRepo struct {
	byHash map[string]*auth.Identity
}

func (m *mockAPIKeyRepo) FindByHash(_ context.Context, hash string) (*auth.Identity, error) {
	id, ok := m.byHash[hash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return id, nil
}

func (m *mockAPIKeyRepo) Create(_ context.Context, id *auth.Identity) error {
	m.byHash[id.KeyHash] = id
	return nil
}

type mockNotifier struct {
	sent []notify.Message
	err  error
}

func (m *mockNotifier) Send(_ context.Context, msg notify.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// --- Test server ---

const (
	adminKey = "admin-test-key"
	userKey  = "user-test-key"
	otherKey = "other-test-key"
)

type testServer struct {
	mux      *http.ServeMux
	products *mockProductRepo
	orders   *mockOrderRepo
	notifier *mockNotifier
	carts    *cart.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	products := &mockProductRepo{byID: map[string]*product.Product{}}
	orders := &mockOrderRepo{products: products, byID: map[string]*order.Order{}}
	apikeys := &mockAPIKeyRepo{byHash: map[string]*auth.Identity{}}
	notifier := &mockNotifier{}
	carts := cart.NewStore(time.Hour)

	security := NewSecurity(apikeys, []byte("test-pepper"))
	for key, ident := range map[string]*auth.Identity{
		adminKey: {ID: "k-admin", Name: "admin", UserID: "u-admin", Role: auth.RoleAdmin},
		userKey:  {ID: "k-user", Name: "user", UserID: "u-1", Role: auth.RoleUser},
		otherKey: {ID: "k-other", Name: "other", UserID: "u-2", Role: auth.RoleUser},
	} {
		ident.KeyHash = security.HashKey(key)
		apikeys.byHash[ident.KeyHash] = ident
	}

	checkoutSvc := checkout.NewService(products, orders, notifier, time.Second)
	orderSvc := order.NewService(orders, notifier, time.Second)

	h := NewHandler(Config{}, products, carts, checkoutSvc, orderSvc, security)
	mux := http.NewServeMux()
	h.Register(mux)

	return &testServer{
		mux:      mux,
		products: products,
		orders:   orders,
		notifier: notifier,
		carts:    carts,
	}
}

func (s *testServer) addProduct(p product.Product) {
	s.products.byID[p.ID] = &p
}

func (s *testServer) addOrder(o order.Order) {
	s.orders.byID[o.ID] = &o
}

type request struct {
	method string
	path   string
	body   any
	apiKey string
	cookie *http.Cookie
}

func (s *testServer) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if req.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(req.body))
	}
	r := httptest.NewRequest(req.method, req.path, &body)
	if req.apiKey != "" {
		r.Header.Set("api_key", req.apiKey)
	}
	if req.cookie != nil {
		r.AddCookie(req.cookie)
	}
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, r)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == cartCookie {
			return c
		}
	}
	t.Fatal("no cart session cookie set")
	return nil
}

func laptop(id string, price int64, discount int64, stock int) product.Product {
	return product.Product{
		ID:       id,
		Brand:    "Lenovo",
		Model:    "ThinkPad " + id,
		Specs:    "16GB RAM, 512GB SSD",
		Price:    decimal.NewFromInt(price),
		Discount: decimal.NewFromInt(discount),
		Stock:    stock,
	}
}

// --- Catalog ---

func TestListProducts(t *testing.T) {
	s := newTestServer(t)
	s.addProduct(laptop("p1", 1000, 15, 5))

	w := s.do(t, request{method: http.MethodGet, path: "/api/products"})
	require.Equal(t, http.StatusOK, w.Code)

	got := decodeBody[[]productResponse](t, w)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
	assert.True(t, got[0].EffectivePrice.Equal(decimal.NewFromInt(850)),
		"effective price should apply the discount, got %s", got[0].EffectivePrice)
}

func TestListProductsPromotedFilter(t *testing.T) {
	s := newTestServer(t)
	plain := laptop("p1", 1000, 0, 5)
	promoted := laptop("p2", 2000, 10, 3)
	promoted.Promotion = "back-to-school"
	s.addProduct(plain)
	s.addProduct(promoted)

	w := s.do(t, request{method: http.MethodGet, path: "/api/products?promoted=1"})
	require.Equal(t, http.StatusOK, w.Code)

	got := decodeBody[[]productResponse](t, w)
	require.Len(t, got, 1)
	assert.Equal(t, "p2", got[0].ID)
}

func TestGetProductNotFound(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, request{method: http.MethodGet, path: "/api/products/nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{"brand": "Dell", "model": "XPS 15", "price": "1999.99", "stock": 3}

	w := s.do(t, request{method: http.MethodPost, path: "/api/products", body: body})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, request{method: http.MethodPost, path: "/api/products", body: body, apiKey: userKey})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, request{method: http.MethodPost, path: "/api/products", body: body, apiKey: adminKey})
	require.Equal(t, http.StatusCreated, w.Code)

	got := decodeBody[productResponse](t, w)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "Dell", got.Brand)
}

func TestCreateProductRejectsInvalid(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, request{
		method: http.MethodPost,
		path:   "/api/products",
		body:   map[string]any{"brand": "Dell", "model": "XPS", "price": "-5", "stock": 1},
		apiKey: adminKey,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProductNotFound(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, request{
		method: http.MethodPut,
		path:   "/api/products/ghost",
		body:   map[string]any{"brand": "Dell", "model": "XPS", "price": "100", "stock": 1},
		apiKey: adminKey,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteProduct(t *testing.T) {
	s := newTestServer(t)
	s.addProduct(laptop("p1", 1000, 0, 5))

	w := s.do(t, request{method: http.MethodDelete, path: "/api/products/p1", apiKey: adminKey})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, request{method: http.MethodGet, path: "/api/products/p1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Cart ---

func TestCartRequiresAuth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, request{method: http.MethodGet, path: "/api/cart"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAddCartItemIssuesSessionCookie(t *testing.T) {
	s := newTestServer(t)
	s.addProduct(laptop("p1", 1000, 0, 5))

	w := s.do(t, request{
		method: http.MethodPost,
		path:   "/api/cart/items",
		body:   map[string]any{"product_id": "p1", "quantity": 2},
		apiKey: userKey,
	})
	require.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)

	got := decodeBody[cartResponse](t, w)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.True(t, got.Subtotal.Equal(decimal.NewFromInt(2000)))

	// The same session sees the same cart.
	w = s.do(t, request{method: http.MethodGet, path: "/api/cart", apiKey: userKey, cookie: cookie})
	require.Equal(t, http.StatusOK, w.Code)
	got = decodeBody[cartResponse](t, w)
	assert.Len(t, got.Lines, 1)
}

func TestAddCartItemUnknownProduct(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, request{
		method: http.MethodPost,
		path:   "/api/cart/items",
		body:   map[string]any{"product_id": "ghost", "quantity": 1},
		apiKey: userKey,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRemoveCartItem(t *testing.T) {
	s := newTestServer(t)
	s.addProduct(laptop("p1", 1000, 0, 5))

	w := s.do(t, request{
		method: http.MethodPost,
		path:   "/api/cart/items",
		body:   map[string]any{"product_id": "p1", "quantity": 1},
		apiKey: userKey,
	})
	cookie := sessionCookie(t, w)

	w = s.do(t, request{method: http.MethodDelete, path: "/api/cart/items/p1", apiKey: userKey, cookie: cookie})
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeBody[cartResponse](t, w)
	assert.Empty(t, got.Lines)
}

// --- Checkout ---

func TestCheckoutEmptyCart(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, request{
		method: http.MethodPost,
		path:   "/api/checkout",
		body:   map[string]any{"shipping_address": "1 Main St", "customer_email": "a@b.com"},
		apiKey: userKey,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutSuccessClearsCart(t *testing.T) {
	s := newTestServer(t)
	s.addProduct(laptop("p1", 1000, 10, 5))

	w := s.do(t, request{
		method: http.MethodPost,
		path:   "/api/cart/items",
		body:   map[string]any{"product_id": "p1", "quantity": 2},
		apiKey: userKey,
	})
	cookie := sessionCookie(t, w)

	w = s.do(t, request{
		method: http.MethodPost,
		path:   "/api/checkout",
		body:   map[string]any{"shipping_address": "1 Main St", "customer_email": "buyer@example.com"},
		apiKey: userKey,
		cookie: cookie,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	got := decodeBody[checkoutResponse](t, w)
	assert.NotEmpty(t, got.OrderID)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(1800)), "got total %s", got.Total)
	assert.True(t, got.EmailSent)

	require.NotNil(t, s.orders.created)
	assert.Equal(t, "u-1", s.orders.created.UserID)
	assert.Equal(t, 3, s.products.byID["p1"].Stock, "stock should be decremented")
	require.Len(t, s.notifier.sent, 1)
	assert.Equal(t, "buyer@example.com", s.notifier.sent[0].To)

	// The session cart is gone after a committed checkout.
	w = s.do(t, request{method: http.MethodGet, path: "/api/cart", apiKey: userKey, cookie: cookie})
	assert.Empty(t, decodeBody[cartResponse](t, w).Lines)
}

func TestCheckoutInsufficientStockKeepsCart(t *testing.T) {
	s := newTestServer(t)
	s.addProduct(laptop("p1", 1000, 0, 1))

	w := s.do(t, request{
		method: http.MethodPost,
		path:   "/api/cart/items",
		body:   map[string]any{"product_id": "p1", "quantity": 3},
		apiKey: userKey,
	})
	cookie := sessionCookie(t, w)

	w = s.do(t, request{
		method: http.MethodPost,
		path:   "/api/checkout",
		body:   map[string]any{"shipping_address": "1 Main St", "customer_email": "buyer@example.com"},
		apiKey: userKey,
		cookie: cookie,
	})
	require.Equal(t, http.StatusConflict, w.Code)

	got := decodeBody[stockErrorResponse](t, w)
	assert.Equal(t, []string{"p1"}, got.ProductIDs)
	assert.Equal(t, 1, s.products.byID["p1"].Stock, "stock must be untouched")

	// The cart survives so the user can adjust quantities.
	w = s.do(t, request{method: http.MethodGet, path: "/api/cart", apiKey: userKey, cookie: cookie})
	assert.Len(t, decodeBody[cartResponse](t, w).Lines, 1)
}

func TestCheckoutMalformedEmail(t *testing.T) {
	s := newTestServer(t)
	s.addProduct(laptop("p1", 1000, 0, 5))

	w := s.do(t, request{
		method: http.MethodPost,
		path:   "/api/cart/items",
		body:   map[string]any{"product_id": "p1", "quantity": 1},
		apiKey: userKey,
	})
	cookie := sessionCookie(t, w)

	w = s.do(t, request{
		method: http.MethodPost,
		path:   "/api/checkout",
		body:   map[string]any{"shipping_address": "1 Main St", "customer_email": "not-an-email"},
		apiKey: userKey,
		cookie: cookie,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Orders ---

func testOrder(id, userID string, status order.Status) order.Order {
	return order.Order{
		ID:              id,
		UserID:          userID,
		Total:           decimal.NewFromInt(100),
		Status:          status,
		CreatedAt:       time.Now().UTC(),
		ShippingAddress: "1 Main St",
		CustomerEmail:   "buyer@example.com",
	}
}

func TestListOwnOrders(t *testing.T) {
	s := newTestServer(t)
	s.addOrder(testOrder("o1", "u-1", order.StatusPending))
	s.addOrder(testOrder("o2", "u-2", order.StatusPending))

	w := s.do(t, request{method: http.MethodGet, path: "/api/orders", apiKey: userKey})
	require.Equal(t, http.StatusOK, w.Code)

	got := decodeBody[[]orderResponse](t, w)
	require.Len(t, got, 1)
	assert.Equal(t, "o1", got[0].ID)
}

func TestGetOrderOwnership(t *testing.T) {
	s := newTestServer(t)
	s.addOrder(testOrder("o1", "u-1", order.StatusPending))

	// Owner reads their order.
	w := s.do(t, request{method: http.MethodGet, path: "/api/orders/o1", apiKey: userKey})
	assert.Equal(t, http.StatusOK, w.Code)

	// Another user is refused.
	w = s.do(t, request{method: http.MethodGet, path: "/api/orders/o1", apiKey: otherKey})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Admins read any order.
	w = s.do(t, request{method: http.MethodGet, path: "/api/orders/o1", apiKey: adminKey})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetOrderNotFound(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, request{method: http.MethodGet, path: "/api/orders/ghost", apiKey: userKey})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateOrderStatus(t *testing.T) {
	s := newTestServer(t)
	s.addOrder(testOrder("o1", "u-1", order.StatusPending))

	w := s.do(t, request{
		method: http.MethodPut,
		path:   "/api/admin/orders/o1/status",
		body:   map[string]any{"status": "Confirmed"},
		apiKey: adminKey,
	})
	require.Equal(t, http.StatusOK, w.Code)

	got := decodeBody[statusResponse](t, w)
	assert.Equal(t, "Confirmed", got.Status)
	assert.True(t, got.EmailSent)
	require.Len(t, s.notifier.sent, 1)
}

func TestUpdateOrderStatusAdminOnly(t *testing.T) {
	s := newTestServer(t)
	s.addOrder(testOrder("o1", "u-1", order.StatusPending))

	w := s.do(t, request{
		method: http.MethodPut,
		path:   "/api/admin/orders/o1/status",
		body:   map[string]any{"status": "Confirmed"},
		apiKey: userKey,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateOrderStatusUnknownStatus(t *testing.T) {
	s := newTestServer(t)
	s.addOrder(testOrder("o1", "u-1", order.StatusPending))

	w := s.do(t, request{
		method: http.MethodPut,
		path:   "/api/admin/orders/o1/status",
		body:   map[string]any{"status": "teleported"},
		apiKey: adminKey,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUpdateOrderStatusIllegalTransition(t *testing.T) {
	s := newTestServer(t)
	s.addOrder(testOrder("o1", "u-1", order.StatusPending))

	// Pending cannot jump straight to delivered.
	w := s.do(t, request{
		method: http.MethodPut,
		path:   "/api/admin/orders/o1/status",
		body:   map[string]any{"status": "Delivered"},
		apiKey: adminKey,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteOrderHidesFromListing(t *testing.T) {
	s := newTestServer(t)
	s.addOrder(testOrder("o1", "u-1", order.StatusDelivered))

	w := s.do(t, request{method: http.MethodDelete, path: "/api/admin/orders/o1", apiKey: adminKey})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, request{method: http.MethodGet, path: "/api/admin/orders", apiKey: adminKey})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody[[]orderResponse](t, w))

	// Still addressable by ID for audit.
	w = s.do(t, request{method: http.MethodGet, path: "/api/orders/o1", apiKey: adminKey})
	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Auth ---

func TestAuthenticateRejectsBadKey(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, request{method: http.MethodGet, path: "/api/orders", apiKey: "wrong-key"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	got := decodeBody[errorResponse](t, w)
	assert.Equal(t, http.StatusUnauthorized, got.Code)
}
