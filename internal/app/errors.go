package app

import "errors"

// Closed set of failure kinds crossing the service boundary. Handlers map
// these to HTTP status and numeric code exactly once; vendor error detail
// stays in logs.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrServiceUnavailable = errors.New("required external service is not initialized")
	ErrParseValidation    = errors.New("parsed case failed validation")
	ErrUpsertFailed       = errors.New("legal case upsert failed")
	ErrSearchFailed       = errors.New("legal case search failed")
	ErrQuestionFailed     = errors.New("question answering failed")
	ErrDeleteFailed       = errors.New("legal case delete failed")

	ErrUsernameExists    = errors.New("username already exists")
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidCredential = errors.New("invalid username or password")
)
