package errors

const (
	HttpInternalError    = "internal_error"
	HttpInvalidJsonError = "invalid_json"
	HttpValidationError  = "validation_failed"
	HttpNotFoundError    = "not_found"
	HttpAlreadyDeleted   = "already_deleted"
	HttpExtractTimeout   = "extract_timeout"
	HttpExtractFailed    = "extract_failed"
	HttpUnknownReference = "unknown_reference"
)

// ErrorResponse is the JSON error body for all API errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
