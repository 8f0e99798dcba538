package domain

import "errors"

var (
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidRequest indicates invalid request
	ErrInvalidRequest = errors.New("invalid request")
	// ErrBackendNotConfigured indicates the chatbot backend address is missing
	ErrBackendNotConfigured = errors.New("chatbot backend address not configured")
	// ErrTimeout indicates the backend did not respond within the deadline
	ErrTimeout = errors.New("chatbot backend timed out")
	// ErrInvalidPayload indicates a malformed message payload
	ErrInvalidPayload = errors.New("invalid message payload")
	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")
)
