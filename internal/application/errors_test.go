package application

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"title": "required", "end": "invalid"}}
	if got := withFields.Error(); got != "validation failed: end, title" {
		t.Fatalf("expected sorted field names, got %q", got)
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to populate map, got %q", got)
	}

	base.merge(fieldError("second", "another"))
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}

	base.merge(nil)
	if len(base.FieldErrors) != 2 || !base.HasErrors() {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}

func TestTypedErrorsMatchSentinels(t *testing.T) {
	t.Parallel()

	nf := fmt.Errorf("wrapped: %w", notFound("event", "ev-1"))
	if !errors.Is(nf, ErrNotFound) {
		t.Fatalf("expected NotFoundError to match ErrNotFound")
	}
	var typed *NotFoundError
	if !errors.As(nf, &typed) || typed.Entity != "event" || typed.ID != "ev-1" {
		t.Fatalf("expected NotFoundError details, got %+v", typed)
	}

	is := &InvalidStateError{Field: "status", Reason: "absent"}
	if !errors.Is(is, ErrInvalidState) {
		t.Fatalf("expected InvalidStateError to match ErrInvalidState")
	}
	if errors.Is(is, ErrNotFound) {
		t.Fatalf("InvalidStateError must not match ErrNotFound")
	}
}
