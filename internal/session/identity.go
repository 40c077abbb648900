package session

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/phuocduongts/storefront/internal/models"
)

// Identity is the signed-in user as issued by the backend: a bearer token and
// the user record returned alongside it.
type Identity struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Authenticated reports whether the identity carries a token that has not
// expired at now. Tokens that are not JWTs, or carry no exp claim, count as
// valid until the backend rejects them.
func (id *Identity) Authenticated(now time.Time) bool {
	if id == nil || id.Token == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(id.Token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return now.Before(exp.Time)
}

func (id *Identity) UserID() int64 {
	if id == nil {
		return 0
	}
	return id.User.ID
}

func (id *Identity) IsAdmin() bool {
	return id != nil && id.User.IsAdmin()
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored in ctx, or nil for anonymous requests.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(ctxKey{}).(*Identity)
	return id
}
