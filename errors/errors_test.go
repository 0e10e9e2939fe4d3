package errors

import (
	"fmt"
	"testing"
)

func TestInkError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeNotFound, "file not found")
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeTransportError, "request failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	// Test Is function
	if !Is(wrapped, ErrCodeTransportError) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeNotFound) {
		t.Error("Is should return false for non-matching code")
	}

	// Test WithDetail
	detailed := err.WithDetail("path", "docs/index.html").WithDetail("status", 404)
	if detailed.Details["path"] != "docs/index.html" {
		t.Error("WithDetail should add details")
	}
}

func TestErrorConstructors(t *testing.T) {
	// Test NameConflict
	err := NameConflict("notes")
	if err.Code != ErrCodeNameConflict {
		t.Errorf("expected code %s, got %s", ErrCodeNameConflict, err.Code)
	}
	if err.Details["name"] != "notes" {
		t.Error("NameConflict should include name detail")
	}

	// Test ConflictDetected
	err = ConflictDetected("docs/index.html")
	if err.Code != ErrCodeConflictDetected {
		t.Errorf("expected code %s, got %s", ErrCodeConflictDetected, err.Code)
	}
	if err.Details["path"] != "docs/index.html" {
		t.Error("ConflictDetected should include path detail")
	}

	// Test SaveFailed wraps the cause
	cause := fmt.Errorf("connection reset")
	err = SaveFailed("docs/index.html", cause)
	if err.Unwrap() != cause {
		t.Error("SaveFailed should wrap the cause")
	}

	// Test RateLimited
	err = RateLimited(1700000000)
	if err.Details["reset"] != int64(1700000000) {
		t.Error("RateLimited should include reset detail")
	}
}

func TestGetCode(t *testing.T) {
	if GetCode(nil) != "" {
		t.Error("GetCode(nil) should return empty code")
	}

	err := AuthExpired()
	if GetCode(err) != ErrCodeAuthExpired {
		t.Errorf("expected %s, got %s", ErrCodeAuthExpired, GetCode(err))
	}

	// Wrapped in a plain fmt error
	wrapped := fmt.Errorf("outer: %w", err)
	if GetCode(wrapped) != ErrCodeAuthExpired {
		t.Error("GetCode should unwrap plain errors")
	}
}
