package orderview

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phuocduongts/storefront/internal/backend"
	"github.com/phuocduongts/storefront/internal/checkout"
	"github.com/phuocduongts/storefront/internal/config"
	"github.com/phuocduongts/storefront/internal/models"
)

// orderAPI serves one order with two items. Product 2 always fails.
type orderAPI struct {
	mu    sync.Mutex
	paths []string
	order string
	delay time.Duration
}

func (a *orderAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.paths = append(a.paths, r.URL.Path)
	a.mu.Unlock()

	switch r.URL.Path {
	case "/api/orders/5":
		fmt.Fprint(w, a.order)
	case "/api/order-details/order/5":
		fmt.Fprint(w, `[{"id":1,"orderId":5,"productId":1,"productName":"Ao","quantity":2,"unitPrice":100000},
			{"id":2,"orderId":5,"productId":2,"productName":"Quan","quantity":1,"unitPrice":50000},
			{"id":3,"orderId":5,"productId":1,"productName":"Ao","quantity":1,"unitPrice":100000}]`)
	case "/api/products/1":
		if a.delay > 0 {
			time.Sleep(a.delay)
		}
		fmt.Fprint(w, `{"id":1,"name":"Ao thun","price":120000,"quantity":8}`)
	case "/api/products/2":
		w.WriteHeader(http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (a *orderAPI) recorded() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.paths...)
}

func newLoader(t *testing.T, api *orderAPI) *Loader {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := backend.NewClient(config.BackendConfig{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second})
	require.NoError(t, err)
	svc := backend.NewServices(c)
	return NewLoader(svc.Orders, svc.OrderDetails, svc.Products)
}

func TestLoadFetchesOrderThenItems(t *testing.T) {
	api := &orderAPI{order: `{"success":true,"data":{"id":5,"orderStatus":"PENDING","totalAmount":250000}}`}
	l := newLoader(t, api)

	v := l.Load(context.Background(), 5, nil)
	require.Equal(t, Ready, v.State)
	assert.False(t, v.Carried)
	assert.Len(t, v.Items, 3)
	assert.Equal(t, []string{"/api/orders/5", "/api/order-details/order/5"}, api.recorded())

	n := v.Enrich(context.Background())
	assert.Equal(t, 1, n)

	p, ok := v.Product(1)
	require.True(t, ok)
	assert.Equal(t, "Ao thun", p.Name)

	_, ok = v.Product(2)
	assert.False(t, ok)
	assert.Equal(t, "Quan", v.Items[1].ProductName)

	// one lookup per distinct product
	assert.Len(t, api.recorded(), 4)
}

func TestCarriedStateSkipsBackend(t *testing.T) {
	api := &orderAPI{}
	l := newLoader(t, api)

	carried := &checkout.Confirmation{
		Order: models.Order{ID: 5, OrderStatus: models.OrderStatusPending},
		Items: []models.OrderItem{{ProductID: 1, ProductName: "Ao", Quantity: 2, UnitPrice: decimal.NewFromInt(100000)}},
	}

	v := l.Load(context.Background(), 5, carried)
	assert.Equal(t, Ready, v.State)
	assert.True(t, v.Carried)
	assert.Equal(t, "Ao", v.Items[0].ProductName)
	assert.Empty(t, api.recorded())
}

func TestCarriedStateForOtherOrderIsIgnored(t *testing.T) {
	api := &orderAPI{order: `{"id":5}`}
	l := newLoader(t, api)

	v := l.Load(context.Background(), 5, &checkout.Confirmation{Order: models.Order{ID: 9}})
	assert.Equal(t, Ready, v.State)
	assert.False(t, v.Carried)
	assert.NotEmpty(t, api.recorded())
}

func TestLoadNotFound(t *testing.T) {
	l := newLoader(t, &orderAPI{})

	v := l.Load(context.Background(), 404, nil)
	assert.Equal(t, NotFound, v.State)
	assert.NoError(t, v.Err)
}

func TestLoadEmptyOrderIsNotFound(t *testing.T) {
	l := newLoader(t, &orderAPI{order: `{"success":true,"data":null}`})

	v := l.Load(context.Background(), 5, nil)
	assert.Equal(t, NotFound, v.State)
}

func TestLoadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := backend.NewClient(config.BackendConfig{BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	svc := backend.NewServices(c)

	v := NewLoader(svc.Orders, svc.OrderDetails, svc.Products).Load(context.Background(), 5, nil)
	assert.Equal(t, Error, v.State)
	assert.NotEmpty(t, v.Message())
	assert.Zero(t, v.Enrich(context.Background()))
}

func TestEnrichDropsLateResults(t *testing.T) {
	api := &orderAPI{order: `{"id":5}`, delay: 300 * time.Millisecond}
	l := newLoader(t, api)

	v := l.Load(context.Background(), 5, nil)
	require.Equal(t, Ready, v.State)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	assert.Zero(t, v.Enrich(ctx))
	_, ok := v.Product(1)
	assert.False(t, ok)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "not_found", NotFound.String())
}
