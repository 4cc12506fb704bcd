package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

var (
	// ErrNetworkMismatch is returned when the node reports a network id other
	// than the one configured for the target network.
	ErrNetworkMismatch = errors.New("network id mismatch")

	// ErrAborted is returned when the operator declines a confirmation prompt.
	ErrAborted = errors.New("aborted by operator")
)

// Error is the base interface for all custom errors in the system.
// It extends the standard error interface with additional context.
type Error interface {
	error
	// Code returns the error code
	Code() string
	// Message returns the human-readable error message
	Message() string
	// Unwrap returns the underlying cause
	Unwrap() error
}

// BaseError provides a foundation for all typed errors.
type BaseError struct {
	code    string
	message string
	cause   error
	stack   []uintptr
}

// Error implements the error interface.
func (e *BaseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *BaseError) Code() string {
	return e.code
}

// Message returns the error message.
func (e *BaseError) Message() string {
	return e.message
}

// Unwrap returns the underlying cause.
func (e *BaseError) Unwrap() error {
	return e.cause
}

func captureStack(skip int) []uintptr {
	const maxDepth = 32
	stack := make([]uintptr, maxDepth)
	n := runtime.Callers(skip+2, stack)
	return stack[:n]
}

// StackTrace returns a formatted stack trace string.
func (e *BaseError) StackTrace() string {
	if len(e.stack) == 0 {
		return ""
	}

	var buf strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			fmt.Fprintf(&buf, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return buf.String()
}

// ValidationError represents an input validation error.
type ValidationError struct {
	*BaseError
	Field string
	Value interface{}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		BaseError: &BaseError{
			code:    CodeValidation,
			message: message,
			stack:   captureStack(1),
		},
		Field: field,
		Value: value,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.message)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

// NotFoundError represents a missing artifact, network or record.
type NotFoundError struct {
	*BaseError
	Resource string
	ID       string
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{
		BaseError: &BaseError{
			code:    CodeNotFound,
			message: fmt.Sprintf("%s not found", resource),
			stack:   captureStack(1),
		},
		Resource: resource,
		ID:       id,
	}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s '%s' not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// InternalError represents an unexpected failure inside the tool.
type InternalError struct {
	*BaseError
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, cause error) *InternalError {
	if message == "" {
		message = "internal error"
	}
	return &InternalError{
		BaseError: &BaseError{
			code:    CodeInternal,
			message: message,
			cause:   cause,
			stack:   captureStack(1),
		},
	}
}

// ServiceError represents a failure talking to the node or the state store.
type ServiceError struct {
	*BaseError
	Service  string
	Endpoint string
}

// NewServiceError creates a new service error.
func NewServiceError(service, endpoint, message string, cause error) *ServiceError {
	if message == "" {
		message = fmt.Sprintf("%s unavailable", service)
	}
	return &ServiceError{
		BaseError: &BaseError{
			code:    CodeServiceUnavailable,
			message: message,
			cause:   cause,
			stack:   captureStack(1),
		},
		Service:  service,
		Endpoint: endpoint,
	}
}

// TimeoutError represents a timeout error.
type TimeoutError struct {
	*BaseError
	Operation string
	Duration  string
}

// NewTimeoutError creates a new timeout error.
func NewTimeoutError(operation, duration string) *TimeoutError {
	message := "operation timeout"
	if operation != "" {
		message = fmt.Sprintf("%s timeout", operation)
	}
	if duration != "" {
		message = fmt.Sprintf("%s after %s", message, duration)
	}
	return &TimeoutError{
		BaseError: &BaseError{
			code:    CodeTimeout,
			message: message,
			stack:   captureStack(1),
		},
		Operation: operation,
		Duration:  duration,
	}
}

// DeploymentError reports which migration step failed to deploy.
type DeploymentError struct {
	*BaseError
	Migration string
	Step      int
	Contract  string
}

// NewDeploymentError creates a new deployment error. Step is 1-based.
func NewDeploymentError(migration string, step int, contract string, cause error) *DeploymentError {
	return &DeploymentError{
		BaseError: &BaseError{
			code:    CodeDeploymentError,
			message: fmt.Sprintf("deploy %s", contract),
			cause:   cause,
			stack:   captureStack(1),
		},
		Migration: migration,
		Step:      step,
		Contract:  contract,
	}
}

// Error implements the error interface.
func (e *DeploymentError) Error() string {
	msg := fmt.Sprintf("migration %s step %d: deploy %s", e.Migration, e.Step, e.Contract)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// ChainError is a transaction the chain refused or mined without producing
// the expected contract.
type ChainError struct {
	*BaseError
	TxHash string
}

// NewChainError creates a chain error. txHash may be empty when the node
// refused the transaction before it got a hash on chain.
func NewChainError(txHash, message string, cause error) *ChainError {
	return &ChainError{
		BaseError: &BaseError{
			code:    CodeReverted,
			message: message,
			cause:   cause,
			stack:   captureStack(1),
		},
		TxHash: txHash,
	}
}

// CompilationError represents a solc failure.
type CompilationError struct {
	*BaseError
	Output string
}

// NewCompilationError creates a new compilation error carrying compiler stderr.
func NewCompilationError(message, output string, cause error) *CompilationError {
	return &CompilationError{
		BaseError: &BaseError{
			code:    CodeCompilationError,
			message: message,
			cause:   cause,
			stack:   captureStack(1),
		},
		Output: output,
	}
}

// Wrap wraps an error with additional context.
// If the error is already one of our custom types, it preserves the code
// and adds the cause chain. Otherwise, it creates an InternalError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	if e, ok := err.(Error); ok {
		return &BaseError{
			code:    e.Code(),
			message: message,
			cause:   err,
			stack:   captureStack(1),
		}
	}

	return &InternalError{
		BaseError: &BaseError{
			code:    CodeInternal,
			message: message,
			cause:   err,
			stack:   captureStack(1),
		},
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapCode wraps an error and forces the given code, regardless of the cause's type.
func WrapCode(err error, code, message string) error {
	if err == nil {
		return nil
	}
	return &BaseError{
		code:    code,
		message: message,
		cause:   err,
		stack:   captureStack(1),
	}
}

// New creates a new error with a message.
func New(message string) error {
	return &BaseError{
		code:    CodeInternal,
		message: message,
		stack:   captureStack(1),
	}
}
