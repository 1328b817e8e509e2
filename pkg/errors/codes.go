package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes are grouped by module prefix: COMMON (cross-cutting), SUBJ (subject
// property contract), POOL (candidate pool contract), ANL (analysis engine),
// CFG (configuration).
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeUnknown            ErrorCode = "COMMON_000"
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTimeout            ErrorCode = "COMMON_005"
	ErrCodeValidation         ErrorCode = "COMMON_006"
	ErrCodeSerialization      ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeNotImplemented     ErrorCode = "COMMON_009"
)

// CodeOK marks the absence of an error; it is never attached to an AppError.
const CodeOK = ErrorCode("OK")

// Subject-record contract codes.  A malformed subject is a caller error, not
// a degraded analysis.
const (
	ErrCodeSubjectMalformed         ErrorCode = "SUBJ_001"
	ErrCodeSubjectMissingParcelID   ErrorCode = "SUBJ_002"
	ErrCodeSubjectMissingLocation   ErrorCode = "SUBJ_003"
	ErrCodeSubjectInvalidAssessment ErrorCode = "SUBJ_004"
)

// Candidate-pool contract codes.
const (
	ErrCodeEmptyCandidatePool ErrorCode = "POOL_001"
)

// Analysis engine codes.
const (
	ErrCodeAnalysisFailed        ErrorCode = "ANL_001"
	ErrCodeValuationDateRequired ErrorCode = "ANL_002"
	ErrCodeExportFormatInvalid   ErrorCode = "ANL_003"
	ErrCodeComparisonMismatch    ErrorCode = "ANL_004"
	ErrCodeBatchEmpty            ErrorCode = "ANL_005"
)

// Configuration codes.
const (
	ErrCodeConfigInvalid     ErrorCode = "CFG_001"
	ErrCodeThresholdsInvalid ErrorCode = "CFG_002"
)

// API surface codes.
const (
	ErrCodeRateLimited     ErrorCode = "API_001"
	ErrCodePayloadTooLarge ErrorCode = "API_002"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeUnknown:            http.StatusInternalServerError,
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeSubjectMalformed:         http.StatusUnprocessableEntity,
	ErrCodeSubjectMissingParcelID:   http.StatusUnprocessableEntity,
	ErrCodeSubjectMissingLocation:   http.StatusUnprocessableEntity,
	ErrCodeSubjectInvalidAssessment: http.StatusUnprocessableEntity,

	ErrCodeEmptyCandidatePool: http.StatusUnprocessableEntity,

	ErrCodeAnalysisFailed:        http.StatusInternalServerError,
	ErrCodeValuationDateRequired: http.StatusUnprocessableEntity,
	ErrCodeExportFormatInvalid:   http.StatusBadRequest,
	ErrCodeComparisonMismatch:    http.StatusBadRequest,
	ErrCodeBatchEmpty:            http.StatusBadRequest,

	ErrCodeConfigInvalid:     http.StatusBadRequest,
	ErrCodeThresholdsInvalid: http.StatusBadRequest,

	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeUnknown:            "unknown error",
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeSubjectMalformed:         "subject property record is malformed",
	ErrCodeSubjectMissingParcelID:   "subject property record has no parcel id",
	ErrCodeSubjectMissingLocation:   "subject property record has no usable coordinates",
	ErrCodeSubjectInvalidAssessment: "subject property record has no positive assessed value",

	ErrCodeEmptyCandidatePool: "candidate pool is empty",

	ErrCodeAnalysisFailed:        "appeal analysis failed",
	ErrCodeValuationDateRequired: "valuation date is required",
	ErrCodeExportFormatInvalid:   "unsupported export format",
	ErrCodeComparisonMismatch:    "analyses refer to different parcels",
	ErrCodeBatchEmpty:            "batch contains no analysis requests",

	ErrCodeConfigInvalid:     "invalid engine configuration",
	ErrCodeThresholdsInvalid: "invalid thresholds table",

	ErrCodeRateLimited:     "rate limit exceeded",
	ErrCodePayloadTooLarge: "request body exceeds the configured limit",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
