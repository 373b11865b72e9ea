package util

import (
	"errors"
	"strings"
	"testing"
)

func TestStateError(t *testing.T) {
	err := NewStateError("activate", "service-7", "Released", "cannot activate a released service")

	msg := err.Error()
	for _, want := range []string{"activate", "service-7", "Released", "cannot activate a released service"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error message missing %q: %s", want, msg)
		}
	}

	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("StateError should unwrap to ErrInvalidState")
	}
}

func TestStateErrorNoDetails(t *testing.T) {
	err := NewStateError("release", "trunk-1", "Decommissioned", "")
	msg := err.Error()
	if strings.HasSuffix(msg, "()") {
		t.Errorf("Error message should not have empty details: %s", msg)
	}
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("degree must be positive")
		msg := err.Error()
		if !strings.Contains(msg, "degree must be positive") {
			t.Errorf("Error message should contain the error: %s", msg)
		}
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("ValidationError should unwrap to ErrInvalidArgument")
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("field1 is required", "field2 is invalid", "field3 out of range")
		msg := err.Error()
		if !strings.Contains(msg, "field1") || !strings.Contains(msg, "field2") || !strings.Contains(msg, "field3") {
			t.Errorf("Error message should contain all errors: %s", msg)
		}
	})
}

func TestValidationBuilder(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(true, "this should not appear")
		v.Add(true, "neither should this")

		if v.HasErrors() {
			t.Error("should not have errors when all conditions are true")
		}
		if err := v.Build(); err != nil {
			t.Errorf("Build() should return nil when no errors: %v", err)
		}
	})

	t.Run("with errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(false, "first error")
		v.Add(true, "this passes")
		v.Add(false, "second error")
		v.AddErrorf("formatted error: %d", 42)

		if !v.HasErrors() {
			t.Error("should have errors")
		}

		err := v.Build()
		if err == nil {
			t.Fatal("Build() should return error")
		}

		validationErr, ok := err.(*ValidationError)
		if !ok {
			t.Fatalf("expected *ValidationError, got %T", err)
		}
		if len(validationErr.Errors) != 3 {
			t.Errorf("expected 3 errors, got %d", len(validationErr.Errors))
		}
	})

	t.Run("chaining", func(t *testing.T) {
		err := (&ValidationBuilder{}).
			Add(false, "error1").
			Add(false, "error2").
			AddErrorf("error%d", 3).
			Build()

		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "error1") {
			t.Errorf("missing error1 in: %s", err.Error())
		}
	})
}

func TestSentinelErrorsDistinct(t *testing.T) {
	sentinels := []error{
		ErrInvalidArgument,
		ErrInvalidState,
		ErrNotFound,
		ErrConflict,
		ErrCapacityExhausted,
		ErrInferiorFailure,
		ErrUnauthorized,
		ErrUnprivileged,
		ErrInternal,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("sentinel errors should be distinct: %v == %v", err1, err2)
			}
		}
	}
}

func TestErrorsIsWrapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"StateError", NewStateError("op", "res", "State", ""), ErrInvalidState},
		{"ValidationError", NewValidationError("msg"), ErrInvalidArgument},
		{"NotFoundError", NewNotFoundError("terminal", "t1"), ErrNotFound},
		{"ConflictError", NewConflictError("terminal t1", "already bound"), ErrConflict},
		{"CapacityError", NewCapacityError("no tree spans endpoints", ""), ErrCapacityExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("%s should wrap %v", tt.name, tt.sentinel)
			}
		})
	}
}
