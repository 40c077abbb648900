package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phuocduongts/storefront/internal/backend"
	"github.com/phuocduongts/storefront/internal/cart"
	"github.com/phuocduongts/storefront/internal/config"
	"github.com/phuocduongts/storefront/internal/models"
	"github.com/phuocduongts/storefront/internal/pricing"
	"github.com/phuocduongts/storefront/internal/session"
)

// shop is a fake backend holding one user's cart and the orders it received.
type shop struct {
	mu         sync.Mutex
	lines      []models.LineItem
	orders     []backend.CreateOrderRequest
	keys       []string
	calls      int
	failCreate bool
	failClear  bool
}

func (s *shop) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/cart/user/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.calls++
		json.NewEncoder(w).Encode(s.lines)
	})
	mux.HandleFunc("DELETE /api/cart/clear/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.calls++
		if s.failClear {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		s.lines = nil
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/orders", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.calls++
		if s.failCreate {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"message":"out of stock"}`)
			return
		}
		var req backend.CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.orders = append(s.orders, req)
		s.keys = append(s.keys, r.Header.Get("X-Idempotency-Key"))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"success":true,"message":"created","data":{"id":%d}}`, 100+len(s.orders))
	})
	return mux
}

func (s *shop) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fixture struct {
	shop      *shop
	cart      *cart.Store
	submitter *Submitter
	id        *session.Identity
}

func newFixture(t *testing.T, lines ...models.LineItem) *fixture {
	t.Helper()
	sh := &shop{lines: lines}
	srv := httptest.NewServer(sh.handler())
	t.Cleanup(srv.Close)

	c, err := backend.NewClient(config.BackendConfig{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second})
	require.NoError(t, err)
	svc := backend.NewServices(c)

	store := cart.NewStore(svc.Cart, cart.NewBus())
	sub := NewSubmitter(svc.Orders, store, pricing.DefaultPolicy)
	sub.now = func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local) }

	return &fixture{
		shop:      sh,
		cart:      store,
		submitter: sub,
		id:        &session.Identity{Token: "tok", User: models.User{ID: 1, Username: "ana"}},
	}
}

func line(id, productID int64, price int64, qty int) models.LineItem {
	return models.LineItem{
		ID:       id,
		Product:  models.Product{ID: productID, Name: fmt.Sprintf("Product %d", productID), Image: "p.jpg", Price: decimal.NewFromInt(price)},
		Quantity: qty,
	}
}

func validForm() ShippingForm {
	return ShippingForm{
		FullName:      "Nguyen Van A",
		Email:         "a@example.com",
		Phone:         "0912 345 678",
		Address:       "12 Le Loi",
		Province:      "Ho Chi Minh",
		District:      "District 1",
		Ward:          "Ben Nghe",
		PaymentMethod: "cod",
	}
}

func TestValidationFailureMakesNoCalls(t *testing.T) {
	f := newFixture(t, line(1, 10, 100000, 2))

	form := validForm()
	form.FullName = "  "
	form.Email = "not-an-email"
	form.Phone = "12345"
	form.Ward = ""
	form.PaymentMethod = "CASH"

	_, err := f.submitter.Submit(context.Background(), f.id, f.shop.lines, cart.NewSelection(1), form)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.ElementsMatch(t, []string{"fullName", "email", "phone", "ward", "paymentMethod"}, verrs.Fields())
	assert.Zero(t, f.shop.callCount())
}

func TestEmptySelectionMakesNoCalls(t *testing.T) {
	f := newFixture(t, line(1, 10, 100000, 2))

	_, err := f.submitter.Submit(context.Background(), f.id, f.shop.lines, cart.NewSelection(99), validForm())
	assert.ErrorIs(t, err, ErrEmptySelection)
	assert.Zero(t, f.shop.callCount())
}

func TestSubmitRequiresUser(t *testing.T) {
	f := newFixture(t, line(1, 10, 100000, 2))

	_, err := f.submitter.Submit(context.Background(), nil, f.shop.lines, cart.NewSelection(1), validForm())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Zero(t, f.shop.callCount())
}

func TestSubmitCreatesOrderAndClearsCart(t *testing.T) {
	f := newFixture(t, line(1, 10, 100000, 2), line(2, 20, 50000, 1))
	ctx := session.WithIdentity(context.Background(), f.id)

	items, err := f.cart.List(ctx, f.id.UserID())
	require.NoError(t, err)

	conf, err := f.submitter.Submit(ctx, f.id, items, cart.NewSelection(1), validForm())
	require.NoError(t, err)
	assert.Equal(t, int64(101), conf.OrderID())

	require.Len(t, f.shop.orders, 1)
	sent := f.shop.orders[0]
	assert.Equal(t, int64(1), sent.UserID)
	assert.Equal(t, "12 Le Loi, Ben Nghe, District 1, Ho Chi Minh", sent.ShippingAddress)
	assert.Equal(t, models.OrderStatusPending, sent.OrderStatus)
	assert.Equal(t, models.PaymentStatusUnpaid, sent.PaymentStatus)
	assert.Equal(t, models.PaymentMethodCOD, sent.PaymentMethod)
	assert.Equal(t, int64(200000), sent.Subtotal)
	assert.Equal(t, int64(0), sent.Shipping)
	assert.Equal(t, int64(200000), sent.Total)
	assert.Equal(t, []backend.OrderItemRequest{{ProductID: 10, Quantity: 2, Price: 100000}}, sent.Items)
	assert.NotEmpty(t, f.shop.keys[0])

	require.Len(t, conf.Items, 1)
	assert.Equal(t, "Product 10", conf.Items[0].ProductName)
	assert.True(t, conf.Items[0].Subtotal.Equal(decimal.NewFromInt(200000)))
	assert.Equal(t, pricing.Amount(200000), conf.Totals.Total)

	after, err := f.cart.List(ctx, f.id.UserID())
	require.NoError(t, err)
	assert.Empty(t, after)
}

func TestEachAttemptGetsItsOwnKey(t *testing.T) {
	f := newFixture(t, line(1, 10, 100000, 1))
	items := f.shop.lines

	_, err := f.submitter.Submit(context.Background(), f.id, items, cart.NewSelection(1), validForm())
	require.NoError(t, err)
	_, err = f.submitter.Submit(context.Background(), f.id, items, cart.NewSelection(1), validForm())
	require.NoError(t, err)

	require.Len(t, f.shop.keys, 2)
	assert.NotEqual(t, f.shop.keys[0], f.shop.keys[1])
}

func TestCreateFailureLeavesCartAlone(t *testing.T) {
	f := newFixture(t, line(1, 10, 100000, 2))
	f.shop.failCreate = true

	_, err := f.submitter.Submit(context.Background(), f.id, f.shop.lines, cart.NewSelection(1), validForm())
	require.Error(t, err)
	assert.Equal(t, "out of stock", backend.Message(err))

	assert.Equal(t, 1, f.shop.callCount())
	assert.Len(t, f.shop.lines, 1)
}

func TestClearFailureStillConfirms(t *testing.T) {
	f := newFixture(t, line(1, 10, 100000, 2))
	f.shop.failClear = true

	conf, err := f.submitter.Submit(context.Background(), f.id, f.shop.lines, cart.NewSelection(1), validForm())
	require.NoError(t, err)
	assert.Equal(t, int64(101), conf.OrderID())
}

type failingOrders struct{}

func (failingOrders) Create(context.Context, backend.CreateOrderRequest, string) (int64, error) {
	return 0, errors.New("boom")
}

func TestCreateErrorIsWrapped(t *testing.T) {
	s := NewSubmitter(failingOrders{}, nil, pricing.DefaultPolicy)
	id := &session.Identity{Token: "t", User: models.User{ID: 1}}

	_, err := s.Submit(context.Background(), id, []models.LineItem{line(1, 10, 1000, 1)}, cart.NewSelection(1), validForm())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "submit order:"))
}

func TestHandoffIsOneShot(t *testing.T) {
	h := newHandoff()
	conf := &Confirmation{
		Order:  models.Order{ID: 7, ShippingName: "A", TotalAmount: decimal.NewFromInt(1000)},
		Items:  []models.OrderItem{{ProductID: 3, ProductName: "Ao", Quantity: 1, UnitPrice: decimal.NewFromInt(1000)}},
		Totals: pricing.Totals{Subtotal: 1000, Total: 1000},
	}

	rec := httptest.NewRecorder()
	require.NoError(t, h.Put(rec, httptest.NewRequest(http.MethodPost, "/checkout", nil), conf))

	req := withCookies(httptest.NewRequest(http.MethodGet, "/orders/7/success", nil), rec)
	rec2 := httptest.NewRecorder()
	got := h.Take(rec2, req, 7)
	require.NotNil(t, got)
	assert.Equal(t, "Ao", got.Items[0].ProductName)
	assert.True(t, got.Order.TotalAmount.Equal(decimal.NewFromInt(1000)))

	again := withCookies(httptest.NewRequest(http.MethodGet, "/orders/7/success", nil), rec2)
	assert.Nil(t, h.Take(httptest.NewRecorder(), again, 7))
}

func TestHandoffIgnoresOtherOrder(t *testing.T) {
	h := newHandoff()

	rec := httptest.NewRecorder()
	require.NoError(t, h.Put(rec, httptest.NewRequest(http.MethodPost, "/checkout", nil), &Confirmation{Order: models.Order{ID: 7}}))

	req := withCookies(httptest.NewRequest(http.MethodGet, "/orders/8/success", nil), rec)
	assert.Nil(t, h.Take(httptest.NewRecorder(), req, 8))
}

func TestHandoffCarriesLargeOrder(t *testing.T) {
	h := newHandoff()
	conf := &Confirmation{Order: models.Order{ID: 9, ShippingName: "Nguyen Van A"}}
	for i := 1; i <= 20; i++ {
		conf.Items = append(conf.Items, models.OrderItem{
			ProductID:    int64(i),
			ProductName:  fmt.Sprintf("Ao thun co tron mau xanh size %d", i),
			ProductImage: fmt.Sprintf("products/2024/ao-thun-co-tron-%d.jpg", i),
			Quantity:     i,
			UnitPrice:    decimal.NewFromInt(int64(100000 + i)),
		})
	}

	rec := httptest.NewRecorder()
	require.NoError(t, h.Put(rec, httptest.NewRequest(http.MethodPost, "/checkout", nil), conf))
	for _, c := range rec.Result().Cookies() {
		assert.Less(t, len(c.String()), 1024, c.Name)
	}

	req := withCookies(httptest.NewRequest(http.MethodGet, "/orders/9/success", nil), rec)
	got := h.Take(httptest.NewRecorder(), req, 9)
	require.NotNil(t, got)
	require.Len(t, got.Items, 20)
	assert.Equal(t, "Ao thun co tron mau xanh size 20", got.Items[19].ProductName)
}

func TestMemoryConfirmationStoreExpiry(t *testing.T) {
	m := NewMemoryConfirmationStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "a", &Confirmation{Order: models.Order{ID: 1}}, time.Minute))
	require.NoError(t, m.Put(ctx, "b", &Confirmation{Order: models.Order{ID: 2}}, time.Minute))

	got, err := m.Take(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.Order.ID)

	got, err = m.Take(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got, "taken once")

	now = now.Add(2 * time.Minute)
	got, err = m.Take(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, got, "expired")

	require.NoError(t, m.Put(ctx, "c", &Confirmation{}, time.Minute))
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, m.purge())
}

func newHandoff() *Handoff {
	jar := sessions.NewCookieStore([]byte(strings.Repeat("k", 32)))
	return NewHandoff(jar, NewMemoryConfirmationStore(), time.Minute)
}

func withCookies(r *http.Request, rec *httptest.ResponseRecorder) *http.Request {
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}
