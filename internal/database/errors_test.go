package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassPermanent},
		{"serialization", &pq.Error{Code: "40001"}, ErrorClassConflict},
		{"deadlock", &pq.Error{Code: "40P01"}, ErrorClassConflict},
		{"lock timeout", &pq.Error{Code: "55P03"}, ErrorClassUnavailable},
		{"connection failure", &pq.Error{Code: "08006"}, ErrorClassUnavailable},
		{"admin shutdown", &pq.Error{Code: "57P01"}, ErrorClassUnavailable},
		{"bad conn", fmt.Errorf("save session: %w", driver.ErrBadConn), ErrorClassUnavailable},
		{"unique violation", &pq.Error{Code: "23505"}, ErrorClassPermanent},
		{"wrapped deadlock", fmt.Errorf("save session: %w", &pq.Error{Code: "40P01"}), ErrorClassConflict},
		{"no rows", sql.ErrNoRows, ErrorClassPermanent},
		{"plain", errors.New("boom"), ErrorClassPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pq.Error{Code: "40001"}))
	assert.True(t, IsRetryable(&pq.Error{Code: "08003"}))
	assert.False(t, IsRetryable(&pq.Error{Code: "23505"}))
	assert.False(t, IsRetryable(ErrSessionNotFound))
}
