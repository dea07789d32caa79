// Package errors maps queue and store failures onto a small set of stable
// names for metric and log tagging, so dashboards do not fragment across
// message wording.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Classify buckets err for tagging. Known failure modes get fixed names;
// anything unrecognized falls back to the innermost concrete type.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	if goerrors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if goerrors.Is(err, context.Canceled) {
		return "cancelled"
	}

	var pgErr *pgconn.PgError
	if goerrors.As(err, &pgErr) {
		return "pg_" + pgErr.Code
	}

	// Handler outcomes travel as flattened messages, so bucket those on the
	// markers the queue itself writes.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "execution timeout"):
		return "timeout"
	case strings.Contains(msg, "execution cancelled"):
		return "cancelled"
	case strings.Contains(msg, "no handler registered"):
		return "missing_handler"
	case strings.Contains(msg, "rate limiter"):
		return "rate_limiter"
	}

	return typeName(err)
}

// typeName reduces the innermost error to a snake_case type tag.
func typeName(err error) string {
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
