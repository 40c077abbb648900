package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/phuocduongts/storefront/internal/database"
	"github.com/phuocduongts/storefront/internal/logging"
	"github.com/phuocduongts/storefront/internal/models"
	"github.com/phuocduongts/storefront/internal/store"
)

const sessionIDKey = "sid"

// ServerStore keeps only a random session id in the cookie and the identity
// itself in the sessions table.
type ServerStore struct {
	jar    sessions.Store
	db     *sql.DB
	maxAge time.Duration
	now    func() time.Time
}

func NewServerStore(jar sessions.Store, db *sql.DB, maxAge time.Duration) *ServerStore {
	return &ServerStore{jar: jar, db: db, maxAge: maxAge, now: time.Now}
}

func (s *ServerStore) Load(r *http.Request) (*Identity, error) {
	sess, err := s.jar.Get(r, CookieName)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	sid, ok := sess.Values[sessionIDKey].(string)
	if !ok || sid == "" {
		return nil, nil
	}

	row, err := store.GetSession(r.Context(), s.db, sid, s.now())
	if err != nil {
		if errors.Is(err, database.ErrSessionNotFound) || errors.Is(err, database.ErrSessionExpired) {
			return nil, nil
		}
		return nil, err
	}

	var id Identity
	if err := json.Unmarshal(row.Data, &id); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	return &id, nil
}

func (s *ServerStore) Save(w http.ResponseWriter, r *http.Request, id *Identity) error {
	sess, _ := s.jar.Get(r, CookieName)

	sid, _ := sess.Values[sessionIDKey].(string)
	if sid == "" {
		sid = uuid.NewString()
	}

	raw, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	row := &models.Session{
		ID:        sid,
		Data:      raw,
		UserID:    id.UserID(),
		ExpiresAt: s.now().Add(s.maxAge),
	}
	if err := store.SaveSession(r.Context(), s.db, row); err != nil {
		return err
	}

	sess.Values[sessionIDKey] = sid
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *ServerStore) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.jar.Get(r, CookieName)

	if sid, ok := sess.Values[sessionIDKey].(string); ok && sid != "" {
		if err := store.DeleteSession(r.Context(), s.db, sid); err != nil {
			return err
		}
	}
	delete(sess.Values, sessionIDKey)

	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// RevokeUser deletes every stored session of userID.
func (s *ServerStore) RevokeUser(ctx context.Context, userID int64) error {
	n, err := store.DeleteUserSessions(ctx, s.db, userID)
	if err != nil {
		return err
	}
	logging.FromCtx(ctx).Info("revoked sessions", "user_id", userID, "count", n)
	return nil
}

// PurgeExpired deletes expired rows every interval until ctx is done.
func (s *ServerStore) PurgeExpired(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := store.DeleteExpiredSessions(ctx, s.db, s.now())
			if err != nil {
				logging.FromCtx(ctx).Error("purge expired sessions", "error", err)
				continue
			}
			if n > 0 {
				logging.FromCtx(ctx).Info("purged expired sessions", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

var (
	_ Store   = (*ServerStore)(nil)
	_ Revoker = (*ServerStore)(nil)
)
