package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

type timeoutError struct{}

func (timeoutError) Error() string { return "timed out" }

func TestClassifyNil(t *testing.T) {
	assert.Empty(t, Classify(nil))
}

func TestClassifyContextErrors(t *testing.T) {
	assert.Equal(t, "timeout", Classify(fmt.Errorf("claim job: %w", context.DeadlineExceeded)))
	assert.Equal(t, "cancelled", Classify(context.Canceled))
}

func TestClassifyPostgresCode(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.UniqueViolation}
	assert.Equal(t, "pg_23505", Classify(fmt.Errorf("insert dead letter: %w", pgErr)))
}

func TestClassifyQueueMessages(t *testing.T) {
	cases := map[string]string{
		"execution timeout after 300s":         "timeout",
		"execution cancelled: context closed":  "cancelled",
		"no handler registered for job type x": "missing_handler",
		"rate limiter script: broken pipe":     "rate_limiter",
	}
	for msg, want := range cases {
		assert.Equal(t, want, Classify(goerrors.New(msg)), msg)
	}
}

func TestClassifyFallsBackToInnermostType(t *testing.T) {
	inner := &timeoutError{}
	wrapped := fmt.Errorf("claim job: %w", fmt.Errorf("store: %w", inner))
	assert.Equal(t, "errors_timeouterror", Classify(wrapped))
}

func TestClassifyPlainError(t *testing.T) {
	assert.Equal(t, "errors_errorstring", Classify(goerrors.New("boom")))
}
