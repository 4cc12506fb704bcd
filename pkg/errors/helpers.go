package errors

import (
	"context"
	"errors"
)

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsTimeout reports whether err wraps a TimeoutError.
func IsTimeout(err error) bool {
	var target *TimeoutError
	return errors.As(err, &target)
}

// IsServiceUnavailable reports whether the node or the state store could not be reached.
func IsServiceUnavailable(err error) bool {
	var target *ServiceError
	return errors.As(err, &target)
}

// IsDeployment reports whether err came out of a migration step.
func IsDeployment(err error) bool {
	var target *DeploymentError
	return errors.As(err, &target)
}

// IsChain reports whether the chain itself refused or reverted a transaction.
func IsChain(err error) bool {
	var target *ChainError
	return errors.As(err, &target)
}

// ShouldRetry reports whether running the same command again could succeed.
func ShouldRetry(err error) bool {
	if err == nil || IsChain(err) {
		return false
	}
	if IsTimeout(err) || IsServiceUnavailable(err) {
		return true
	}
	return IsRetryable(GetErrorCode(err))
}

// GetErrorCode returns the code of the outermost typed error in err's chain.
// Untyped errors are classified by the sentinels they wrap.
func GetErrorCode(err error) string {
	if err == nil {
		return CodeOK
	}

	var typed Error
	if errors.As(err, &typed) {
		return typed.Code()
	}

	switch {
	case errors.Is(err, ErrNetworkMismatch):
		return CodeFailedPrecondition
	case errors.Is(err, ErrAborted):
		return CodeAborted
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCancelled
	default:
		return CodeInternal
	}
}

// ExitCodeFor returns the process exit status for err. A failed migration
// step exits with the status of whatever made it fail, so a missing artifact
// is still an operator error and a lost node is still a network error.
func ExitCodeFor(err error) int {
	var deployErr *DeploymentError
	if errors.As(err, &deployErr) && deployErr.Unwrap() != nil {
		err = deployErr.Unwrap()
	}
	return ExitCode(GetErrorCode(err))
}

// StackTraceOf returns the stack captured by the innermost typed error in
// err's chain, or "" when none captured one.
func StackTraceOf(err error) string {
	trace := ""
	for err != nil {
		if st, ok := err.(interface{ StackTrace() string }); ok {
			if s := st.StackTrace(); s != "" {
				trace = s
			}
		}
		err = errors.Unwrap(err)
	}
	return trace
}

// Is and As re-export the standard library helpers so callers need a single import.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return errors.As(err, target) }
