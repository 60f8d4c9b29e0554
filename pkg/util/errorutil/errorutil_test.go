package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestToDomainErrorKeepsDomainErrors(t *testing.T) {
	original := NewNotFound("ticket", map[string]any{"id": "abc"})
	wrapped := fmt.Errorf("handler: %w", original)

	got := ToDomainError(wrapped)
	if got.Code != CodeNotFound || got.HTTPStatus != http.StatusNotFound {
		t.Fatalf("ToDomainError() = %+v", got)
	}
	if got.Details["id"] != "abc" {
		t.Fatalf("details = %v", got.Details)
	}
}

func TestToDomainErrorClassifiesUnknownErrors(t *testing.T) {
	boom := errors.New("connection refused")
	got := ToDomainError(boom)
	if got.Code != CodeInternal || got.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("ToDomainError() = %+v", got)
	}
	if !errors.Is(got, boom) {
		t.Fatal("internal error should unwrap to the cause")
	}
	if got.Message != "internal server error" {
		t.Fatalf("message leaks cause: %q", got.Message)
	}

	timeout := ToDomainError(fmt.Errorf("query: %w", context.DeadlineExceeded))
	if timeout.Code != CodeTimeout {
		t.Fatalf("timeout code = %q", timeout.Code)
	}

	if ToDomainError(nil) != nil || MapError(nil) != nil {
		t.Fatal("nil should stay nil")
	}
}

func TestNewMissingFields(t *testing.T) {
	err := NewMissingFields([]string{"customerName", "problem"})
	de := ToDomainError(err)
	if de.Code != CodeValidationFailed || de.HTTPStatus != http.StatusBadRequest {
		t.Fatalf("NewMissingFields() = %+v", de)
	}
	fields, ok := de.Details["fields"].([]string)
	if !ok || len(fields) != 2 || fields[0] != "customerName" {
		t.Fatalf("details.fields = %v", de.Details["fields"])
	}
}
