package errors

import (
	"fmt"
	"testing"
)

func TestClipError_Error(t *testing.T) {
	err := &ClipError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "not found: entry 3",
	}

	expected := "NOT_FOUND: not found: entry 3"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("index is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "index is required" {
		t.Errorf("Message = %q, want %q", err.Message, "index is required")
	}
}

func TestNewParseFailed(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		err := NewParseFailed(fmt.Errorf("unexpected end of JSON input"))

		if err.Code != ErrParseFailed {
			t.Errorf("Code = %q, want %q", err.Code, ErrParseFailed)
		}
		if err.Status != 400 {
			t.Errorf("Status = %d, want 400", err.Status)
		}
		if err.Message != "unexpected end of JSON input" {
			t.Errorf("Message = %q, want %q", err.Message, "unexpected end of JSON input")
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewParseFailed(nil)
		if err.Message != "malformed command document" {
			t.Errorf("Message = %q, want %q", err.Message, "malformed command document")
		}
	})
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("entry 7")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["what"] != "entry 7" {
		t.Errorf("Details[what] = %v, want %q", err.Details["what"], "entry 7")
	}
}

func TestNewIOFailed(t *testing.T) {
	cause := fmt.Errorf("permission denied")
	err := NewIOFailed("save", cause)

	if err.Code != ErrIOFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrIOFailed)
	}
	if err.Status != 500 {
		t.Errorf("Status = %d, want 500", err.Status)
	}
	if err.Details["op"] != "save" {
		t.Errorf("Details[op] = %v, want %q", err.Details["op"], "save")
	}
	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
}

func TestNewInvariant(t *testing.T) {
	err := NewInvariant("index has 3 entries, order has 4")

	if err.Code != ErrInvariant {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvariant)
	}
	if err.Status != 500 {
		t.Errorf("Status = %d, want 500", err.Status)
	}
}

func TestNewUnavailable(t *testing.T) {
	err := NewUnavailable("127.0.0.1:8931", fmt.Errorf("connection refused"))

	if err.Code != ErrUnavailable {
		t.Errorf("Code = %q, want %q", err.Code, ErrUnavailable)
	}
	if err.Status != 503 {
		t.Errorf("Status = %d, want 503", err.Status)
	}
	if err.Details["addr"] != "127.0.0.1:8931" {
		t.Errorf("Details[addr] = %v, want %q", err.Details["addr"], "127.0.0.1:8931")
	}
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		err := NewNotFound("entry 0")
		if !Is(err, ErrNotFound) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		err := NewNotFound("entry 0")
		if Is(err, ErrIOFailed) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("non-ClipError", func(t *testing.T) {
		err := fmt.Errorf("plain error")
		if Is(err, ErrNotFound) {
			t.Error("Is() = true, want false for non-ClipError")
		}
	})

	t.Run("wrapped ClipError", func(t *testing.T) {
		inner := NewNotFound("entry 0")
		wrapped := fmt.Errorf("dispatch: %w", inner)
		if !Is(wrapped, ErrNotFound) {
			t.Error("Is() = false, want true for wrapped ClipError")
		}
		if Is(wrapped, ErrInternal) {
			t.Error("Is() = true, want false for wrong code on wrapped ClipError")
		}
	})
}
