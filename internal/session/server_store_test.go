package session

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phuocduongts/storefront/internal/logging"
)

func TestPurgeExpiredLogsThroughContextLogger(t *testing.T) {
	db, err := sql.Open("postgres", "postgres://localhost:1/none?sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil)).With("component", "sessions")
	ctx, cancel := context.WithTimeout(logging.WithCtx(context.Background(), logger), 50*time.Millisecond)
	defer cancel()

	s := NewServerStore(sessions.NewCookieStore([]byte(strings.Repeat("k", 32))), db, time.Hour)
	s.PurgeExpired(ctx, 5*time.Millisecond)

	assert.Contains(t, buf.String(), `"msg":"purge expired sessions"`)
	assert.Contains(t, buf.String(), `"component":"sessions"`)
}
