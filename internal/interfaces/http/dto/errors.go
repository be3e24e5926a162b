package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeUnavailable is used when the backing store cannot be reached
	ErrCodeUnavailable = "ERR_UNAVAILABLE"
)

// Validation error codes
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
)

// Resource error codes
const (
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	ErrCodeConflict      = "ERR_CONFLICT"
)

// Cart error codes
const (
	ErrCodeInvalidStep     = "ERR_INVALID_STEP"
	ErrCodeInvalidQuantity = "ERR_INVALID_QUANTITY"
	ErrCodeCorruptCart     = "ERR_CORRUPT_CART"
)

// Checkout error codes
const (
	ErrCodeEmptyCart           = "ERR_EMPTY_CART"
	ErrCodeMissingCustomerInfo = "ERR_MISSING_CUSTOMER_INFO"
	ErrCodeInsufficientStock   = "ERR_INSUFFICIENT_STOCK"
	ErrCodePersistenceFailure  = "ERR_PERSISTENCE_FAILURE"
	// ErrCodeOrphanedOrder means an order row may remain without lines
	ErrCodeOrphanedOrder = "ERR_ORPHANED_ORDER"
	ErrCodeInvalidState  = "ERR_INVALID_STATE"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeBodyTooLarge = "ERR_BODY_TOO_LARGE"
	// ErrCodeSessionRequired is used when no X-Session-ID could be resolved
	ErrCodeSessionRequired = "ERR_SESSION_REQUIRED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:     http.StatusInternalServerError,
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeUnavailable: http.StatusServiceUnavailable,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,

	// Cart errors
	ErrCodeInvalidStep:     http.StatusBadRequest,
	ErrCodeInvalidQuantity: http.StatusBadRequest,
	ErrCodeCorruptCart:     http.StatusInternalServerError,

	// Checkout validation signals -> 422, store disagreements -> 409
	ErrCodeEmptyCart:           http.StatusUnprocessableEntity,
	ErrCodeMissingCustomerInfo: http.StatusUnprocessableEntity,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:   http.StatusConflict,
	ErrCodePersistenceFailure:  http.StatusInternalServerError,
	ErrCodeOrphanedOrder:       http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeSessionRequired: http.StatusBadRequest,
	ErrCodeBodyTooLarge:    http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainCodeMapping maps domain error codes to API error codes
var domainCodeMapping = map[string]string{
	"NOT_FOUND":             ErrCodeNotFound,
	"ALREADY_EXISTS":        ErrCodeAlreadyExists,
	"INVALID_INPUT":         ErrCodeInvalidInput,
	"INVALID_STATE":         ErrCodeInvalidState,
	"INSUFFICIENT_STOCK":    ErrCodeInsufficientStock,
	"UNAVAILABLE":           ErrCodeUnavailable,
	"INVALID_STEP":          ErrCodeInvalidStep,
	"INVALID_QUANTITY":      ErrCodeInvalidQuantity,
	"CORRUPT_CART":          ErrCodeCorruptCart,
	"EMPTY_CART":            ErrCodeEmptyCart,
	"MISSING_CUSTOMER_INFO": ErrCodeMissingCustomerInfo,
	"PERSISTENCE_FAILURE":   ErrCodePersistenceFailure,
	"ORPHANED_ORDER":        ErrCodeOrphanedOrder,
	"VALIDATION_ERROR":      ErrCodeValidation,
	"BAD_REQUEST":           ErrCodeBadRequest,
	"INTERNAL_ERROR":        ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format or unknown are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := domainCodeMapping[code]; ok {
		return newCode
	}
	return code
}
