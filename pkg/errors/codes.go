package errors

// Error codes for categorizing errors.
const (
	// CodeOK indicates success (not an error).
	CodeOK = "OK"

	// CodeCancelled indicates the operation was cancelled.
	CodeCancelled = "CANCELLED"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound = "NOT_FOUND"

	// CodeFailedPrecondition indicates the operation was rejected because the
	// target is not in a required state (wrong network, missing key).
	CodeFailedPrecondition = "FAILED_PRECONDITION"

	// CodeAborted indicates the operation was aborted by the operator.
	CodeAborted = "ABORTED"

	// CodeInternal indicates internal errors.
	CodeInternal = "INTERNAL"

	// Domain-specific error codes

	// CodeValidation indicates input validation failed.
	CodeValidation = "VALIDATION_ERROR"

	// CodeTimeout indicates an operation timed out.
	CodeTimeout = "TIMEOUT"

	// CodeServiceUnavailable indicates the node or another downstream service is unavailable.
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	// CodeDatabaseError indicates a state store operation failed.
	CodeDatabaseError = "DATABASE_ERROR"

	// CodeDeploymentError marks a failed migration step. The step's cause
	// carries the specific code.
	CodeDeploymentError = "DEPLOYMENT_ERROR"

	// CodeReverted indicates the chain refused or reverted a transaction.
	CodeReverted = "REVERTED"

	// CodeCompilationError indicates solc failed or produced unusable output.
	CodeCompilationError = "COMPILATION_ERROR"

	// CodeConfigError indicates a configuration error.
	CodeConfigError = "CONFIG_ERROR"

	// CodeCryptoError indicates key loading or signing failed.
	CodeCryptoError = "CRYPTO_ERROR"

	// CodeSerializationError indicates serialization/deserialization failed.
	CodeSerializationError = "SERIALIZATION_ERROR"
)

// ErrorCategory represents a high-level error category.
type ErrorCategory string

const (
	// CategoryClient indicates the operator supplied something invalid.
	CategoryClient ErrorCategory = "CLIENT_ERROR"

	// CategoryServer indicates a failure inside the tool.
	CategoryServer ErrorCategory = "SERVER_ERROR"

	// CategoryNetwork indicates the node could not be reached or misbehaved.
	CategoryNetwork ErrorCategory = "NETWORK_ERROR"

	// CategoryTimeout indicates a timeout error.
	CategoryTimeout ErrorCategory = "TIMEOUT_ERROR"

	// CategoryChain indicates the chain rejected or reverted a transaction.
	CategoryChain ErrorCategory = "CHAIN_ERROR"
)

// GetCategory returns the category for an error code.
func GetCategory(code string) ErrorCategory {
	switch code {
	case CodeValidation, CodeNotFound, CodeConfigError,
		CodeFailedPrecondition, CodeAborted, CodeCancelled:
		return CategoryClient

	case CodeTimeout:
		return CategoryTimeout

	case CodeServiceUnavailable:
		return CategoryNetwork

	case CodeDeploymentError, CodeReverted:
		return CategoryChain

	default:
		return CategoryServer
	}
}

// IsRetryable returns true if an error with the given code may succeed when
// the whole command is run again.
func IsRetryable(code string) bool {
	switch code {
	case CodeTimeout, CodeServiceUnavailable, CodeDatabaseError:
		return true
	default:
		return false
	}
}

// ExitCode maps an error code to the process exit status used by the CLI.
func ExitCode(code string) int {
	switch GetCategory(code) {
	case CategoryClient:
		return 2
	case CategoryNetwork, CategoryTimeout:
		return 3
	case CategoryChain:
		return 4
	default:
		if code == CodeOK {
			return 0
		}
		return 1
	}
}
