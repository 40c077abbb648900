package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phuocduongts/storefront/internal/config"
	"github.com/phuocduongts/storefront/internal/session"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// fakeBackend answers with a fixed status and body and records every request.
type fakeBackend struct {
	mu       sync.Mutex
	requests []recorded
	status   int
	body     string
	delay    time.Duration
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	io.WriteString(w, f.body)
}

func (f *fakeBackend) last(t *testing.T) recorded {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func setup(t *testing.T, status int, body string, opts ...Option) (*Services, *fakeBackend) {
	t.Helper()
	fb := &fakeBackend{status: status, body: body}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.BackendConfig{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second}, opts...)
	require.NoError(t, err)
	return NewServices(c), fb
}

func TestUnwrapsEnvelope(t *testing.T) {
	svc, fb := setup(t, http.StatusOK, `{"success":true,"message":"ok","data":{"id":4,"username":"ana"}}`)

	ctx := session.WithIdentity(context.Background(), &session.Identity{Token: "tok"})
	u, err := svc.Auth.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), u.ID)
	assert.Equal(t, "ana", u.Username)

	req := fb.last(t)
	assert.Equal(t, "/api/auth/me", req.Path)
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
}

func TestRawBodyWithoutEnvelope(t *testing.T) {
	svc, fb := setup(t, http.StatusOK, `[{"id":1,"name":"Ao"},{"id":2,"name":"Quan"}]`)

	items, err := svc.Categories.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Empty(t, fb.last(t).Header.Get("Authorization"))
}

func TestEnvelopeFailureIsAPIError(t *testing.T) {
	svc, _ := setup(t, http.StatusOK, `{"success":false,"message":"Email already used"}`)

	_, err := svc.Auth.Register(context.Background(), RegisterRequest{Username: "a"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Email already used", apiErr.Message)
	assert.Equal(t, "Email already used", Message(err))
}

func TestUnauthorizedInvokesHook(t *testing.T) {
	var hooked int
	svc, _ := setup(t, http.StatusUnauthorized, `{"message":"token expired"}`,
		WithUnauthorizedHook(func(ctx context.Context) { hooked++ }))

	_, err := svc.Cart.List(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, hooked)
}

func TestStatusMapping(t *testing.T) {
	svc, _ := setup(t, http.StatusNotFound, ``)
	_, err := svc.Orders.Get(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)

	svc, _ = setup(t, http.StatusInternalServerError, `{"error":"boom"}`)
	_, err = svc.Orders.Get(context.Background(), 99)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "boom", apiErr.Message)
}

func TestTimeoutIsNetworkError(t *testing.T) {
	fb := &fakeBackend{status: http.StatusOK, body: `[]`, delay: 200 * time.Millisecond}
	srv := httptest.NewServer(fb)
	defer srv.Close()

	c, err := NewClient(config.BackendConfig{BaseURL: srv.URL + "/api/", Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = NewServices(c).Banners.List(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestCreateOrderSendsIdempotencyKey(t *testing.T) {
	svc, fb := setup(t, http.StatusCreated, `{"data":{"id":42}}`)

	id, err := svc.Orders.Create(context.Background(), CreateOrderRequest{UserID: 1, Total: 200000}, "key-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	req := fb.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/orders", req.Path)
	assert.Equal(t, "key-1", req.Header.Get("X-Idempotency-Key"))

	var sent map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &sent))
	assert.EqualValues(t, 200000, sent["total"])
}

func TestCreateOrderReadsTopLevelID(t *testing.T) {
	svc, _ := setup(t, http.StatusCreated, `{"id":7,"orderStatus":"PENDING"}`)

	id, err := svc.Orders.Create(context.Background(), CreateOrderRequest{}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
}

func TestCreateOrderWithoutIDFails(t *testing.T) {
	svc, _ := setup(t, http.StatusCreated, `{"orderStatus":"PENDING"}`)

	_, err := svc.Orders.Create(context.Background(), CreateOrderRequest{}, "")
	assert.Error(t, err)
}

func TestCartCountFormats(t *testing.T) {
	tests := []struct {
		body string
		want int
	}{
		{`5`, 5},
		{`{"count":3}`, 3},
		{`[{"id":1},{"id":2}]`, 2},
		{`{"success":true,"data":4}`, 4},
	}

	for _, tt := range tests {
		svc, _ := setup(t, http.StatusOK, tt.body)
		n, err := svc.Cart.Count(context.Background(), 1)
		require.NoError(t, err, tt.body)
		assert.Equal(t, tt.want, n, tt.body)
	}
}

func TestCartUpdateQuantityUsesQueryParam(t *testing.T) {
	svc, fb := setup(t, http.StatusOK, `{"id":11,"quantity":3,"product":{"id":2,"price":1000}}`)

	item, err := svc.Cart.UpdateQuantity(context.Background(), 11, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)

	req := fb.last(t)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/api/cart/update/11", req.Path)
	assert.Equal(t, "quantity=3", req.Query)
}

func TestResourceDeletePaths(t *testing.T) {
	svc, fb := setup(t, http.StatusNoContent, ``)
	ctx := context.Background()

	require.NoError(t, svc.Users.Delete(ctx, 3))
	assert.Equal(t, "/api/users/3/permanent", fb.last(t).Path)

	require.NoError(t, svc.Banners.Delete(ctx, 4))
	assert.Equal(t, "/api/banners/delete/4", fb.last(t).Path)

	require.NoError(t, svc.Categories.Delete(ctx, 5))
	assert.Equal(t, "/api/categories/5", fb.last(t).Path)

	require.NoError(t, svc.Products.MoveToTrash(ctx, 6))
	assert.Equal(t, "/api/products/trash/6", fb.last(t).Path)

	require.NoError(t, svc.Contacts.MarkRead(ctx, 7))
	assert.Equal(t, "/api/contacts/7/read", fb.last(t).Path)
}

func TestMultipartResourceCreate(t *testing.T) {
	svc, fb := setup(t, http.StatusOK, `{"id":9,"title":"Sale"}`)

	b, err := svc.Banners.Create(context.Background(), Fields{"title": "Sale", "status": "true"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), b.ID)

	req := fb.last(t)
	assert.Contains(t, req.Header.Get("Content-Type"), "multipart/form-data")
	assert.Contains(t, string(req.Body), `name="title"`)
}

func TestAdminLoginReadsBareToken(t *testing.T) {
	svc, _ := setup(t, http.StatusOK, `{"success":true,"message":"Login successful","data":"jwt-token"}`)

	tok, err := svc.Users.AdminLogin(context.Background(), "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", tok)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Contains(t, Message(ErrNetwork), "not responding")
	assert.Contains(t, Message(errors.New("x")), "went wrong")
	assert.NotEmpty(t, Message(&APIError{Status: 500}))
}
