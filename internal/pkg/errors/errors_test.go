package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "resolution not supported")

	if err.Code != CodeValidation {
		t.Errorf("code = %s, want %s", err.Code, CodeValidation)
	}
	if err.Message != "resolution not supported" {
		t.Errorf("message = %q", err.Message)
	}
	if len(err.Stack) == 0 {
		t.Error("stack trace was not captured")
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CodeNotFound, "job %s not found", "job-42")

	if err.Code != CodeNotFound {
		t.Errorf("code = %s, want %s", err.Code, CodeNotFound)
	}
	if err.Message != "job job-42 not found" {
		t.Errorf("message = %q", err.Message)
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "code and message",
			err:      New(CodeValidation, "bad engine"),
			contains: []string{"VALIDATION_ERROR", "bad engine"},
		},
		{
			name: "with op",
			err: &Error{
				Code:    CodeInternal,
				Message: "insert failed",
				Op:      "job.create",
			},
			contains: []string{"job.create", "INTERNAL_ERROR", "insert failed"},
		},
		{
			name: "with cause",
			err: &Error{
				Code:    CodeInternal,
				Message: "publish failed",
				Err:     fmt.Errorf("connection refused"),
			},
			contains: []string{"publish failed", "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			str := tt.err.Error()
			for _, c := range tt.contains {
				if !strings.Contains(str, c) {
					t.Errorf("Error() = %q, missing %q", str, c)
				}
			}
		})
	}
}

func TestWrap(t *testing.T) {
	original := fmt.Errorf("connection reset")
	wrapped := Wrap(original, "queue.push", "enqueue failed")

	if wrapped.Code != CodeInternal {
		t.Errorf("code = %s, want %s", wrapped.Code, CodeInternal)
	}
	if wrapped.Op != "queue.push" {
		t.Errorf("op = %q", wrapped.Op)
	}
	if errors.Unwrap(wrapped) != original {
		t.Error("Unwrap did not return the original error")
	}

	if Wrap(nil, "op", "message") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrapPreservesCode(t *testing.T) {
	original := New(CodeNotFound, "job not found")
	wrapped := Wrap(original, "handler.status", "lookup failed")

	if wrapped.Code != CodeNotFound {
		t.Errorf("code = %s, want %s preserved from cause", wrapped.Code, CodeNotFound)
	}
}

func TestWrapWithCode(t *testing.T) {
	wrapped := WrapWithCode(fmt.Errorf("i/o timeout"), CodeTimeout, "renderer.render", "render timed out")

	if wrapped.Code != CodeTimeout {
		t.Errorf("code = %s, want %s", wrapped.Code, CodeTimeout)
	}
	if wrapped.Op != "renderer.render" {
		t.Errorf("op = %q", wrapped.Op)
	}
}

func TestFieldHelpers(t *testing.T) {
	err := New(CodeValidation, "invalid resolution").
		WithField("field", "resolution").
		WithFields(map[string]any{"value": "16k"})

	if err.Fields["field"] != "resolution" {
		t.Errorf("field = %v", err.Fields["field"])
	}
	if err.Fields["value"] != "16k" {
		t.Errorf("value = %v", err.Fields["value"])
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeValidation, 400},
		{CodeBadRequest, 400},
		{CodeUnauthorized, 401},
		{CodeInsufficientCredits, 402},
		{CodeForbidden, 403},
		{CodeNotFound, 404},
		{CodeConflict, 409},
		{CodeAlreadyExists, 409},
		{CodeFailedPrecond, 412},
		{CodeResourceExhaust, 429},
		{CodeInternal, 500},
		{CodeUnavailable, 503},
		{CodeTimeout, 504},
	}

	for _, tt := range tests {
		if got := New(tt.code, "x").HTTPStatus(); got != tt.status {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.code, got, tt.status)
		}
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		code Code
	}{
		{"Internal", Internal("pool exhausted"), CodeInternal},
		{"Validation", Validation("samples out of range"), CodeValidation},
		{"Validationf", Validationf("unknown engine %q", "luxrender"), CodeValidation},
		{"Conflict", Conflict("job already processing"), CodeConflict},
		{"Timeout", Timeout("render"), CodeTimeout},
		{"Unavailable", Unavailable("renderer"), CodeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("code = %s, want %s", tt.err.Code, tt.code)
			}
		})
	}

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound("job", "job-42")
		if err.Code != CodeNotFound {
			t.Errorf("code = %s", err.Code)
		}
		if err.Fields["resource"] != "job" || err.Fields["id"] != "job-42" {
			t.Errorf("fields = %v", err.Fields)
		}
	})

	t.Run("ValidationField", func(t *testing.T) {
		err := ValidationField("quality", "must be one of 1080p, 4k, 8k")
		if err.Fields["field"] != "quality" {
			t.Errorf("field = %v", err.Fields["field"])
		}
	})

	t.Run("AlreadyExists", func(t *testing.T) {
		err := AlreadyExists("refund", "job-42")
		if err.Code != CodeAlreadyExists {
			t.Errorf("code = %s", err.Code)
		}
	})
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(CodeNotFound, "x")); got != CodeNotFound {
		t.Errorf("GetCode = %s, want %s", got, CodeNotFound)
	}
	if got := GetCode(fmt.Errorf("plain")); got != CodeInternal {
		t.Errorf("GetCode(plain) = %s, want %s", got, CodeInternal)
	}
	wrapped := Wrap(New(CodeValidation, "x"), "handler", "wrapped")
	if got := GetCode(wrapped); got != CodeValidation {
		t.Errorf("GetCode(wrapped) = %s, want %s", got, CodeValidation)
	}
}

func TestGetHTTPStatus(t *testing.T) {
	if got := GetHTTPStatus(New(CodeNotFound, "x")); got != 404 {
		t.Errorf("status = %d, want 404", got)
	}
	if got := GetHTTPStatus(fmt.Errorf("plain")); got != 500 {
		t.Errorf("status for plain error = %d, want 500", got)
	}
}

func TestGetFields(t *testing.T) {
	err := New(CodeValidation, "x").WithField("field", "engine")
	if GetFields(err)["field"] != "engine" {
		t.Errorf("fields = %v", GetFields(err))
	}
	if GetFields(fmt.Errorf("plain")) != nil {
		t.Error("fields for plain error should be nil")
	}
}

func TestCodePredicates(t *testing.T) {
	notFound := New(CodeNotFound, "x")
	validation := New(CodeValidation, "x")
	conflict := New(CodeConflict, "x")
	exists := New(CodeAlreadyExists, "x")

	if !IsCode(notFound, CodeNotFound) || IsCode(notFound, CodeValidation) {
		t.Error("IsCode mismatch")
	}
	if !IsNotFound(notFound) || IsNotFound(validation) {
		t.Error("IsNotFound mismatch")
	}
	if !IsValidation(validation) || IsValidation(notFound) {
		t.Error("IsValidation mismatch")
	}
	if !IsConflict(conflict) || !IsConflict(exists) || IsConflict(notFound) {
		t.Error("IsConflict mismatch")
	}
}

func TestStackTrace(t *testing.T) {
	stack := New(CodeInternal, "x").StackTrace()
	if stack == "" {
		t.Fatal("stack trace is empty")
	}
	if !strings.Contains(stack, ".go:") {
		t.Errorf("stack trace has no file references: %s", stack)
	}
}

func TestErrorIs(t *testing.T) {
	a := New(CodeNotFound, "a")
	b := New(CodeNotFound, "b")
	c := New(CodeValidation, "c")

	if !errors.Is(a, b) {
		t.Error("errors with the same code should match")
	}
	if errors.Is(a, c) {
		t.Error("errors with different codes should not match")
	}
}

func TestAsAndIs(t *testing.T) {
	original := New(CodeNotFound, "job not found")
	wrapped := fmt.Errorf("status lookup: %w", original)

	var target *Error
	if !As(wrapped, &target) {
		t.Fatal("As did not find Error in chain")
	}
	if target.Code != CodeNotFound {
		t.Errorf("code = %s, want %s", target.Code, CodeNotFound)
	}
	if !Is(wrapped, original) {
		t.Error("Is did not match the original error")
	}
}

func TestInsufficientCredits(t *testing.T) {
	err := InsufficientCredits(38, 30)

	if err.Code != CodeInsufficientCredits {
		t.Errorf("code = %s, want %s", err.Code, CodeInsufficientCredits)
	}
	if err.HTTPStatus() != 402 {
		t.Errorf("status = %d, want 402", err.HTTPStatus())
	}
	if err.Fields["shortfall"] != 8 {
		t.Errorf("shortfall = %v, want 8", err.Fields["shortfall"])
	}
	if !IsInsufficientCredits(err) {
		t.Error("IsInsufficientCredits should be true")
	}
	if IsInsufficientCredits(New(CodeValidation, "x")) {
		t.Error("IsInsufficientCredits should be false for other codes")
	}
}
