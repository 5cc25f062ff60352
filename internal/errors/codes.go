// Package errors provides structured error handling for ephemeris.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (durable store, shared cache)
//   - 3XX: Index errors (lexical, dense)
//   - 4XX: Validation errors
//   - 5XX: Generation errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates durable-store and shared-cache errors.
	CategoryStorage Category = "STORAGE"
	// CategoryIndex indicates lexical or dense index errors.
	CategoryIndex Category = "INDEX"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryGeneration indicates generation collaborator errors.
	CategoryGeneration Category = "GENERATION"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299). Recovered locally as cache misses by the
	// orchestrator, never surfaced to the caller.
	ErrCodeDurableStore = "ERR_201_DURABLE_STORE"
	ErrCodeSharedCache  = "ERR_202_SHARED_CACHE"

	// Index errors (300-399)
	ErrCodeIndexUnavailable = "ERR_301_INDEX_UNAVAILABLE"
	ErrCodeIndexClosed      = "ERR_302_INDEX_CLOSED"

	// Validation errors (400-499). Fail fast, caller bugs.
	ErrCodeInvalidParameter  = "ERR_401_INVALID_PARAMETER"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"

	// Generation errors (500-599). Surfaced per subject, batch proceeds.
	ErrCodeGenerationFailed   = "ERR_501_GENERATION_FAILED"
	ErrCodeGenerationCanceled = "ERR_502_GENERATION_CANCELED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryGeneration
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryIndex
	case '4':
		return CategoryValidation
	default:
		return CategoryGeneration
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryStorage, CategoryIndex:
		// Absorbed as misses / lexical-only mode.
		return SeverityWarning
	case CategoryConfig:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeDurableStore, ErrCodeSharedCache, ErrCodeGenerationFailed:
		return true
	}
	return false
}
