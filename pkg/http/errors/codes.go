package errors

// Error codes carried in ErrorResponse.Error.
const (
	// Auth
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"
	ErrCodeLoginFailed            = "login_failed"
	ErrCodeTooManyAttempts        = "too_many_attempts"

	// Validation
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"
	ErrCodeInvalidYearLevel = "invalid_year_level"
	ErrCodeIDMismatch       = "id_mismatch"

	// Resources
	ErrCodeNotFound      = "not_found"
	ErrCodeTopicNotFound = "topic_not_found"
	ErrCodeUnknownDrill  = "unknown_drill_topic"
	ErrCodeNoQuestions   = "no_questions"

	// Server
	ErrCodeInternalError = "internal_error"
	ErrCodeUpstreamError = "upstream_error"
)
