package database

import (
	"database/sql/driver"
	"errors"

	"github.com/lib/pq"
)

// ErrorClass says whether a failed session write is worth another attempt.
type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	// ErrorClassConflict is two requests writing the same session row at once.
	ErrorClassConflict
	// ErrorClassUnavailable is a dropped connection or a server that is
	// restarting or holding a lock too long.
	ErrorClassUnavailable
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}
	if errors.Is(err, driver.ErrBadConn) {
		return ErrorClassUnavailable
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return ErrorClassConflict
		case "55P03", "57P01", "57P03":
			return ErrorClassUnavailable
		}
		if pqErr.Code.Class() == "08" {
			return ErrorClassUnavailable
		}
	}
	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	return ClassifyError(err) != ErrorClassPermanent
}

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)
