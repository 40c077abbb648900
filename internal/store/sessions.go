package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/phuocduongts/storefront/internal/database"
	"github.com/phuocduongts/storefront/internal/models"
)

// SaveSession inserts or replaces a session row.
func SaveSession(ctx context.Context, db *sql.DB, s *models.Session) error {
	query := `
		INSERT INTO sessions (id, data, user_id, expires_at, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, 0), $4, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET data = EXCLUDED.data,
			user_id = EXCLUDED.user_id,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	return database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, query, s.ID, string(s.Data), s.UserID, s.ExpiresAt).Scan(
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return nil
	})
}

// GetSession returns the session with the given id. Expired rows are reported
// as database.ErrSessionExpired.
func GetSession(ctx context.Context, db *sql.DB, id string, now time.Time) (*models.Session, error) {
	s := &models.Session{}
	var userID sql.NullInt64

	query := `
		SELECT id, data, user_id, expires_at, created_at, updated_at
		FROM sessions
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.Data,
		&userID,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	s.UserID = userID.Int64

	if !now.Before(s.ExpiresAt) {
		return nil, database.ErrSessionExpired
	}

	return s, nil
}

func DeleteSession(ctx context.Context, db *sql.DB, id string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteUserSessions removes every session of a user, for example after a
// password change.
func DeleteUserSessions(ctx context.Context, db *sql.DB, userID int64) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	return res.RowsAffected()
}

func DeleteExpiredSessions(ctx context.Context, db *sql.DB, now time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
