package database

import (
	"context"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const (
	maxRetryAttempts = 3
	retryBackoff     = 50 * time.Millisecond
)

// isStaleStmtErr reports whether err is a postgres stale prepared statement
// failure. These show up after a schema change invalidates plans cached on
// pooled connections; the statement is safe to run again on a fresh plan.
func isStaleStmtErr(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	if !ok {
		return false
	}
	switch pqErr.Code {
	case "0A000": // feature_not_supported: "cached plan must not change result type"
		return strings.Contains(pqErr.Message, "cached plan")
	case "26000": // invalid_sql_statement_name: "prepared statement ... does not exist"
		return true
	}
	return false
}

// Retry runs op, retrying it on stale prepared statement errors with a
// linear backoff. Any other error returns immediately.
func Retry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 1; attempt <= maxRetryAttempts; attempt++ {
		if err = op(); err == nil || !isStaleStmtErr(err) {
			return err
		}
		select {
		case <-time.After(time.Duration(attempt) * retryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
