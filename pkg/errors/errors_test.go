package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestCodePolicies(t *testing.T) {
	tests := []struct {
		code        Code
		status      int
		fallback    string
		showMessage bool
		showDetails bool
	}{
		{CodeValidation, http.StatusBadRequest, "validation failed", true, true},
		{CodeUnauthorized, http.StatusUnauthorized, "authentication required", true, false},
		{CodeForbidden, http.StatusForbidden, "access denied", true, false},
		{CodeNotFound, http.StatusNotFound, "resource not found", true, false},
		{CodeConflict, http.StatusConflict, "conflict detected", true, false},
		{CodeIdempotency, http.StatusConflict, "idempotency key reused", true, true},
		{CodeEmptyCart, http.StatusBadRequest, "Cart is empty", true, false},
		{CodeOutOfStock, http.StatusBadRequest, "Insufficient stock", true, true},
		{CodeRateLimit, http.StatusTooManyRequests, "rate limit exceeded", true, false},
		{CodeInternal, http.StatusInternalServerError, "Internal server error", false, false},
		{CodeDependency, http.StatusServiceUnavailable, "dependency unavailable", false, true},
	}

	for _, tt := range tests {
		want := Policy{Status: tt.status, Fallback: tt.fallback, ShowMessage: tt.showMessage, ShowDetails: tt.showDetails}
		if got := tt.code.Policy(); got != want {
			t.Errorf("%s: got %+v want %+v", tt.code, got, want)
		}
	}
}

func TestUnknownCodeUsesInternalPolicy(t *testing.T) {
	if got := Code("SOMETHING_UNKNOWN").Policy(); got != CodeInternal.Policy() {
		t.Fatalf("expected internal policy, got %+v", got)
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	if got := New(CodeNotFound, "Sweet not found").Error(); got != "NOT_FOUND: Sweet not found" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Wrap(CodeInternal, stdErrors.New("conn reset"), "load cart").Error(); got != "INTERNAL_ERROR: load cart: conn reset" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	typed := New(CodeOutOfStock, "Insufficient stock")
	wrapped := fmt.Errorf("placing order: %w", typed)
	if !IsCode(wrapped, CodeOutOfStock) {
		t.Fatalf("expected IsCode to see through fmt wrapping")
	}
	if IsCode(wrapped, CodeNotFound) {
		t.Fatalf("unexpected code match")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("untyped errors should not match any code")
	}
}

func TestDiagnoseReadsPostgresDetail(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_sweets_name", TableName: "sweets", Detail: "Key (name)=(Fudge) already exists."}
	err := Wrap(CodeConflict, fmt.Errorf("insert sweet: %w", pgErr), "Sweet with this name already exists")

	d := Diagnose(err)
	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", d.Code)
	}
	if len(d.Chain) < 2 {
		t.Fatalf("expected the wrapped chain, got %v", d.Chain)
	}
	if d.DB == nil || d.DB.SQLState != "23505" || d.DB.Constraint != "idx_sweets_name" {
		t.Fatalf("unexpected db detail %+v", d.DB)
	}

	fields := d.Fields()
	if fields["db_constraint"] != "idx_sweets_name" || fields["error_code"] != CodeConflict {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestDiagnosePlainError(t *testing.T) {
	d := Diagnose(stdErrors.New("boom"))
	if d.DB != nil || d.Code != "" {
		t.Fatalf("plain error should carry no code or db detail: %+v", d)
	}
	if _, ok := d.Fields()["db_sqlstate"]; ok {
		t.Fatalf("db fields must be omitted")
	}
	if Diagnose(nil).Message != "" {
		t.Fatalf("nil error should diagnose empty")
	}
}
