package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/phuocduongts/storefront/internal/config"
)

// CookieName is the gorilla session that carries identity, flashes and the
// checkout hand-off.
const CookieName = "storefront_session"

const identityKey = "identity"

// Store persists the identity between requests.
type Store interface {
	Load(r *http.Request) (*Identity, error)
	Save(w http.ResponseWriter, r *http.Request, id *Identity) error
	Clear(w http.ResponseWriter, r *http.Request) error
}

// Revoker is implemented by stores that can end a user's sessions on every
// device. Cookie sessions cannot be revoked.
type Revoker interface {
	RevokeUser(ctx context.Context, userID int64) error
}

// NewCookieJar builds the gorilla cookie store shared by every session value.
func NewCookieJar(cfg config.SessionConfig) *sessions.CookieStore {
	jar := sessions.NewCookieStore(cfg.Key)
	jar.Options.HttpOnly = true
	jar.Options.Secure = cfg.CookieSecure
	jar.Options.SameSite = http.SameSiteLaxMode
	jar.Options.Path = "/"
	jar.Options.MaxAge = int(cfg.MaxAge.Seconds())
	if cfg.CookieDomain != "" {
		jar.Options.Domain = cfg.CookieDomain
	}
	return jar
}

// CookieStore keeps the whole identity inside the signed session cookie.
type CookieStore struct {
	jar sessions.Store
}

func NewCookieStore(jar sessions.Store) *CookieStore {
	return &CookieStore{jar: jar}
}

func (s *CookieStore) Load(r *http.Request) (*Identity, error) {
	sess, err := s.jar.Get(r, CookieName)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	raw, ok := sess.Values[identityKey].(string)
	if !ok || raw == "" {
		return nil, nil
	}

	var id Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	return &id, nil
}

func (s *CookieStore) Save(w http.ResponseWriter, r *http.Request, id *Identity) error {
	sess, _ := s.jar.Get(r, CookieName)

	raw, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	sess.Values[identityKey] = string(raw)

	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *CookieStore) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.jar.Get(r, CookieName)
	delete(sess.Values, identityKey)

	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

var _ Store = (*CookieStore)(nil)
