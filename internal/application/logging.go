package application

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/airbussard/jvc/internal/logging"
	"github.com/airbussard/jvc/internal/persistence"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// serviceLogger prefers the request logger carried by ctx over base.
func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(base)
	}
	return logger.With(append([]any{"service", serviceName, "operation", operation}, attrs...)...)
}

var errorKinds = []struct {
	target error
	kind   string
}{
	{ErrUnauthorized, "unauthorized"},
	{ErrNotFound, "not_found"},
	{ErrInvalidState, "invalid_state"},
	{ErrAlreadyExists, "already_exists"},
	{persistence.ErrNotFound, "not_found"},
	{persistence.ErrDuplicate, "already_exists"},
	{persistence.ErrForeignKeyViolation, "reference"},
	{persistence.ErrConstraintViolation, "constraint"},
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
// Persistence errors that escaped translation keep a label of their own.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.kind
		}
	}
	return "unexpected"
}

// failureAttrs returns the log attributes for a failed operation. Validation
// and state errors add the offending fields.
func failureAttrs(err error) []any {
	attrs := []any{"error", err, "error_kind", ErrorKind(err)}

	var stateErr *InvalidStateError
	if errors.As(err, &stateErr) {
		return append(attrs, "field", stateErr.Field)
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) && len(vErr.FieldErrors) > 0 {
		fields := make([]string, 0, len(vErr.FieldErrors))
		for field := range vErr.FieldErrors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		return append(attrs, "fields", fields)
	}
	return attrs
}
