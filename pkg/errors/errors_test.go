package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name          string
		field         string
		message       string
		value         interface{}
		expectedError string
	}{
		{
			name:          "with field",
			field:         "networks.development.port",
			message:       "must be between 1 and 65535",
			value:         0,
			expectedError: "validation error: networks.development.port: must be between 1 and 65535",
		},
		{
			name:          "without field",
			field:         "",
			message:       "invalid input",
			value:         nil,
			expectedError: "validation error: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message, tt.value)
			if err.Error() != tt.expectedError {
				t.Errorf("Expected error %q, got %q", tt.expectedError, err.Error())
			}
			if err.Code() != CodeValidation {
				t.Errorf("Expected code %q, got %q", CodeValidation, err.Code())
			}
			if err.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, err.Field)
			}
		})
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("artifact", "FileShare")
	if err.Error() != "artifact 'FileShare' not found" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound should match NotFoundError")
	}

	bare := NewNotFoundError("network", "")
	if bare.Error() != "network not found" {
		t.Errorf("unexpected message %q", bare.Error())
	}
}

func TestDeploymentError(t *testing.T) {
	cause := NewTimeoutError("receipt", "2m0s")
	err := NewDeploymentError("2_deploy_contracts", 1, "KYCMock", cause)

	want := "migration 2_deploy_contracts step 1: deploy KYCMock: receipt timeout after 2m0s"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
	if !IsDeployment(err) {
		t.Error("IsDeployment should match")
	}
	if !IsTimeout(err) {
		t.Error("IsTimeout should see the wrapped timeout")
	}
	if GetErrorCode(err) != CodeDeploymentError {
		t.Errorf("outermost code should win, got %q", GetErrorCode(err))
	}
	if got := ExitCodeFor(err); got != 3 {
		t.Errorf("a step that timed out should exit 3, got %d", got)
	}
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		if Wrap(nil, "context") != nil {
			t.Error("Wrap(nil) should return nil")
		}
	})

	t.Run("typed error keeps code", func(t *testing.T) {
		base := NewNotFoundError("artifact", "KYCMock")
		wrapped := Wrap(base, "load migration")
		if GetErrorCode(wrapped) != CodeNotFound {
			t.Errorf("expected %q, got %q", CodeNotFound, GetErrorCode(wrapped))
		}
		if !IsNotFound(wrapped) {
			t.Error("wrapped error should still be not found")
		}
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		wrapped := Wrapf(fmt.Errorf("disk full"), "save %s", "FileShare.json")
		var internal *InternalError
		if !errors.As(wrapped, &internal) {
			t.Error("expected InternalError")
		}
		if !strings.Contains(wrapped.Error(), "save FileShare.json: disk full") {
			t.Errorf("unexpected message %q", wrapped.Error())
		}
	})

	t.Run("forced code", func(t *testing.T) {
		wrapped := WrapCode(ErrNetworkMismatch, CodeFailedPrecondition, "connect development")
		if GetErrorCode(wrapped) != CodeFailedPrecondition {
			t.Errorf("unexpected code %q", GetErrorCode(wrapped))
		}
		if !errors.Is(wrapped, ErrNetworkMismatch) {
			t.Error("sentinel should remain reachable")
		}
	})
}

func TestGetErrorCodeFromSentinels(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{nil, CodeOK},
		{fmt.Errorf("x: %w", context.DeadlineExceeded), CodeTimeout},
		{fmt.Errorf("x: %w", context.Canceled), CodeCancelled},
		{fmt.Errorf("x: %w", ErrNetworkMismatch), CodeFailedPrecondition},
		{fmt.Errorf("x: %w", ErrAborted), CodeAborted},
		{fmt.Errorf("boom"), CodeInternal},
	}
	for _, tt := range tests {
		if got := GetErrorCode(tt.err); got != tt.code {
			t.Errorf("GetErrorCode(%v) = %q, want %q", tt.err, got, tt.code)
		}
	}
}

func TestExitCodeFor(t *testing.T) {
	step := func(cause error) error {
		return Wrap(NewDeploymentError("2_deploy_contracts", 2, "FileShare", cause), "run migrations")
	}
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"missing artifact", step(NewNotFoundError("artifact", "FileShare")), 2},
		{"bad constructor argument", step(NewValidationError("args._kyc", "not an address", "x")), 2},
		{"node unreachable", step(NewServiceError("node", "", "send deployment of FileShare", fmt.Errorf("connection refused"))), 3},
		{"receipt timeout", step(NewTimeoutError("receipt of 0xabc", "2m0s")), 3},
		{"revert", step(NewChainError("0xabc", "transaction 0xabc reverted", nil)), 4},
		{"step without cause", NewDeploymentError("2_deploy_contracts", 1, "KYCMock", nil), 4},
		{"untyped cause", step(fmt.Errorf("boom")), 1},
		{"aborted", WrapCode(ErrAborted, CodeAborted, "deployment cancelled"), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCodeFor(tt.err); got != tt.want {
				t.Errorf("ExitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{NewDeploymentError("2_deploy_contracts", 1, "KYCMock", NewTimeoutError("receipt", "1s")), true},
		{NewServiceError("node", "http://localhost:8545", "", fmt.Errorf("connection refused")), true},
		{WrapCode(fmt.Errorf("database is locked"), CodeDatabaseError, "record contract"), true},
		{NewChainError("", "send deployment of KYCMock", NewServiceError("node", "", "", nil)), false},
		{NewValidationError("network_id", "must not be empty", ""), false},
	}
	for _, tt := range tests {
		if got := ShouldRetry(tt.err); got != tt.want {
			t.Errorf("ShouldRetry(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestStackTraceOf(t *testing.T) {
	inner := NewTimeoutError("receipt", "1s")
	err := fmt.Errorf("plain wrapper: %w", Wrap(inner, "deploy"))
	if got := StackTraceOf(err); got != inner.StackTrace() {
		t.Errorf("expected the innermost stack, got:\n%s", got)
	}
	if StackTraceOf(fmt.Errorf("boom")) != "" {
		t.Error("untyped errors have no stack")
	}
}

func TestStackTrace(t *testing.T) {
	err := NewInternalError("boom", nil)
	if !strings.Contains(err.StackTrace(), "TestStackTrace") {
		t.Errorf("stack trace should include caller:\n%s", err.StackTrace())
	}
}
