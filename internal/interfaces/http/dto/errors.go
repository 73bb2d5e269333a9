package dto

import (
	"net/http"
	"strings"
)

// Error codes produced by the HTTP layer itself. Domain codes pass through unchanged.
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeInvalidID       = "INVALID_ID"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// Domain codes with a fixed status
const (
	ErrCodeNoOpenFoodFactsResult = "NO_OPENFOODFACTS_RESULT"
	ErrCodeQueryRequired         = "QUERY_REQUIRED"
	ErrCodeRequiredFields        = "REQUIRED_FIELDS"
	ErrCodeUsernameExists        = "USERNAME_EXISTS"
	ErrCodeEmailExists           = "EMAIL_EXISTS"
	ErrCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	ErrCodeProductInUse          = "PRODUCT_IN_USE"
	ErrCodeBarcodeExists         = "BARCODE_EXISTS"
	ErrCodeUserAlreadyLinked     = "USER_ALREADY_LINKED"
	ErrCodePrintingDisabled      = "PRINTING_DISABLED"
	ErrCodeStorageDisabled       = "STORAGE_DISABLED"
	ErrCodeUploadNotFound        = "UPLOAD_NOT_FOUND"
	ErrCodeStorageCheckFailed    = "STORAGE_CHECK_FAILED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeInvalidID:       http.StatusBadRequest,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeForbidden:       http.StatusForbidden,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeNoOpenFoodFactsResult: http.StatusNotFound,
	ErrCodeQueryRequired:         http.StatusBadRequest,
	ErrCodeRequiredFields:        http.StatusBadRequest,
	// registration answers duplicates with 400, not 409
	ErrCodeUsernameExists:     http.StatusBadRequest,
	ErrCodeEmailExists:        http.StatusBadRequest,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,
	ErrCodeProductInUse:       http.StatusConflict,
	ErrCodeBarcodeExists:      http.StatusConflict,
	ErrCodeUserAlreadyLinked:  http.StatusConflict,
	ErrCodePrintingDisabled:   http.StatusServiceUnavailable,
	ErrCodeStorageDisabled:    http.StatusServiceUnavailable,
	// the product exists; the object it should point at does not yet
	ErrCodeUploadNotFound:     http.StatusConflict,
	ErrCodeStorageCheckFailed: http.StatusBadGateway,

	"ALREADY_EXISTS":       http.StatusConflict,
	"ALREADY_LINKED":       http.StatusConflict,
	"DUPLICATE_PRODUCT":    http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"ALREADY_ACTIVE":       http.StatusConflict,
	"ALREADY_DEACTIVATED":  http.StatusConflict,
	"INVALID_STATE":        http.StatusUnprocessableEntity,
	"ACCOUNT_INACTIVE":     http.StatusForbidden,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Codes not in the table fall back to their naming family; anything else is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	switch {
	case strings.HasPrefix(code, "TOKEN_"):
		return http.StatusUnauthorized
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasPrefix(code, "INVALID_"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "_EXISTS"):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
