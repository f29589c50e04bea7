package httputil

// Machine-readable error codes returned alongside error messages.
const (
	CodeInvalidRequestBody   = "invalid_request_body"
	CodeInvalidQueryParam    = "invalid_query_param"
	CodeValidationFailed     = "validation_failed"
	CodeEmailRequired        = "email_required"
	CodeInvalidEmailFormat   = "invalid_email_format"
	CodePasswordRequired     = "password_required"
	CodePasswordTooShort     = "password_too_short"
	CodeEmailAlreadyExists   = "email_already_exists"
	CodeInvalidCredentials   = "invalid_credentials"
	CodeMissingAuth          = "missing_authentication"
	CodeInvalidAuthHeader    = "invalid_auth_header"
	CodeInvalidToken         = "invalid_token"
	CodeTokenExpired         = "token_expired"
	CodeInvalidTokenUserID   = "invalid_token_user_id"
	CodeRefreshTokenRequired = "refresh_token_required"
	CodeInvalidRefreshToken  = "invalid_refresh_token"
	CodeNotFound             = "not_found"
	CodeImageRequired        = "image_required"
	CodeImageTooLarge        = "image_too_large"
	CodeUnsupportedImageType = "unsupported_image_type"
	CodeTooManyRequests      = "too_many_requests"
	CodeInternalError        = "internal_error"
)
