package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phuocduongts/storefront/internal/models"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return s
}

func TestAuthenticated(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		id   *Identity
		want bool
	}{
		{"nil identity", nil, false},
		{"empty token", &Identity{}, false},
		{"opaque token", &Identity{Token: "not-a-jwt"}, true},
		{"valid jwt", &Identity{Token: signedToken(t, now.Add(time.Hour))}, true},
		{"expired jwt", &Identity{Token: signedToken(t, now.Add(-time.Minute))}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.id.Authenticated(now))
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	id := &Identity{Token: "t", User: models.User{ID: 9, Role: "ADMIN"}}
	ctx := WithIdentity(context.Background(), id)

	got := FromContext(ctx)
	require.NotNil(t, got)
	assert.Equal(t, int64(9), got.UserID())
	assert.True(t, got.IsAdmin())
}

func cookieJar() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte(strings.Repeat("s", 32)))
}

// replay copies the cookies set on rec into a fresh request.
func replay(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestCookieStoreSaveLoadClear(t *testing.T) {
	s := NewCookieStore(cookieJar())

	rec := httptest.NewRecorder()
	id := &Identity{Token: "abc", User: models.User{ID: 3, Username: "bob"}}
	require.NoError(t, s.Save(rec, httptest.NewRequest(http.MethodPost, "/login", nil), id))

	got, err := s.Load(replay(rec))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "abc", got.Token)
	assert.Equal(t, "bob", got.User.Username)

	rec2 := httptest.NewRecorder()
	require.NoError(t, s.Clear(rec2, replay(rec)))

	got, err = s.Load(replay(rec2))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCookieStoreAnonymous(t *testing.T) {
	s := NewCookieStore(cookieJar())

	got, err := s.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Nil(t, got)
}
