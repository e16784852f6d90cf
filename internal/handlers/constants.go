package handlers

const (
	ErrInvalidRequestBody  = "Invalid request body"
	ErrUnauthorized        = "Unauthorized"
	ErrInternalServerError = "Internal server error"
	ErrTooManyRequests     = "Too many requests, please try again later"
	ErrInvalidCSRFToken    = "Invalid CSRF token"
	ErrBackendUnavailable  = "Could not reach the vocabulary service"

	MsgNoMatchingWords = "No words match this filter."
)
