package errors

import (
	"chat/internal/errors"
)

// Kind classifies an error by how the connection handling it must react.
type Kind string

const (
	// KindProtocol covers malformed frames, unknown types and types used in the wrong state.
	KindProtocol Kind = "protocol"
	// KindValidation covers request fields that are out of bounds.
	KindValidation Kind = "validation"
	// KindAuth covers bad credentials, bad tokens and duplicate usernames.
	KindAuth Kind = "auth"
	// KindTransport covers resets and write failures on a connection.
	KindTransport Kind = "transport"
	// KindStore covers credential and history store I/O failures.
	KindStore Kind = "store"
	// KindInternal is everything else.
	KindInternal Kind = "internal"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	Kind() Kind        // Error category
	ErrorCode() string // Stable machine-readable code sent to clients
	Message() string   // Client-safe error message
	Details() string   // Detailed error information (optional, never sent to clients)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	kind      Kind
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(kind Kind, errorCode, message, details string) *BaseError {
	return &BaseError{
		kind:      kind,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.details != "" {
		return e.message + ": " + e.details
	}

	return e.message
}

// Is matches on error code so copies made by WithDetails still compare equal.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}

	return t.errorCode == e.errorCode
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// Kind returns the error category
func (e *BaseError) Kind() Kind {
	return e.kind
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		kind:      e.kind,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// WithMessage returns a copy carrying a more specific client-facing message.
func (e *BaseError) WithMessage(message string) *BaseError {
	return &BaseError{
		kind:      e.kind,
		errorCode: e.errorCode,
		message:   message,
		details:   e.details,
	}
}

// Predefined error types
var (
	// Protocol errors
	ErrMalformedFrame = NewBaseError(
		KindProtocol,
		"MALFORMED_FRAME",
		"Invalid JSON format",
		"",
	)

	ErrMissingType = NewBaseError(
		KindProtocol,
		"MISSING_TYPE",
		"Message type is required",
		"",
	)

	ErrUnknownType = NewBaseError(
		KindProtocol,
		"UNKNOWN_TYPE",
		"Unknown request type",
		"",
	)

	ErrNotAuthenticated = NewBaseError(
		KindProtocol,
		"NOT_AUTHENTICATED",
		"You must be logged in to do that",
		"",
	)

	ErrAlreadyAuthenticated = NewBaseError(
		KindProtocol,
		"ALREADY_AUTHENTICATED",
		"Already logged in on this connection",
		"",
	)

	ErrFrameTooLarge = NewBaseError(
		KindProtocol,
		"FRAME_TOO_LARGE",
		"Frame exceeds maximum size",
		"",
	)

	ErrTooManyProtocolErrors = NewBaseError(
		KindProtocol,
		"TOO_MANY_PROTOCOL_ERRORS",
		"Too many invalid frames",
		"",
	)

	// Validation errors
	ErrValidationFailed = NewBaseError(
		KindValidation,
		"VALIDATION_FAILED",
		"Invalid request",
		"",
	)

	// Authentication errors
	ErrUsernameTaken = NewBaseError(
		KindAuth,
		"USERNAME_TAKEN",
		"Username already exists",
		"",
	)

	ErrInvalidCredentials = NewBaseError(
		KindAuth,
		"INVALID_CREDENTIALS",
		"Invalid username or password",
		"",
	)

	ErrInvalidToken = NewBaseError(
		KindAuth,
		"INVALID_TOKEN",
		"Invalid or expired token",
		"",
	)

	ErrPasswordHashFailed = NewBaseError(
		KindInternal,
		"PASSWORD_HASH_FAILED",
		"Password processing failed",
		"",
	)

	// Session errors
	ErrDuplicateSession = NewBaseError(
		KindInternal,
		"DUPLICATE_SESSION",
		"Session already registered",
		"",
	)

	ErrSlowConsumer = NewBaseError(
		KindTransport,
		"SLOW_CONSUMER",
		"Outbound queue is full",
		"",
	)

	ErrSessionClosed = NewBaseError(
		KindTransport,
		"SESSION_CLOSED",
		"Session is closed",
		"",
	)

	// Store errors
	ErrStoreFailure = NewBaseError(
		KindStore,
		"STORE_FAILURE",
		"Server storage error, please try again",
		"",
	)

	// General errors
	ErrInternalError = NewBaseError(
		KindInternal,
		"INTERNAL_ERROR",
		"Internal server error",
		"",
	)
)

// StoreError wraps an adapter I/O failure, implementing the AppError interface.
// The wrapped cause is kept for logs; clients only see the generic message.
type StoreError struct {
	err       error
	operation string
}

// NewStoreError creates a store-related error for the named operation
func NewStoreError(err error, operation string) AppError {
	return &StoreError{
		err:       err,
		operation: operation,
	}
}

// Error implements the error interface
func (e *StoreError) Error() string {
	return errors.Wrapf(e.err, "store %s failed", e.operation).Error()
}

// Unwrap exposes the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.err
}

// Is lets errors.Is(err, ErrStoreFailure) match any store error.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreFailure
}

// Kind returns KindStore
func (e *StoreError) Kind() Kind {
	return KindStore
}

// ErrorCode returns the business error code
func (e *StoreError) ErrorCode() string {
	return ErrStoreFailure.ErrorCode()
}

// Message returns the user-friendly error message
func (e *StoreError) Message() string {
	return ErrStoreFailure.Message()
}

// Details returns the failed operation name
func (e *StoreError) Details() string {
	return e.operation
}

// From extracts the AppError carried by err. Errors without one map to
// ErrInternalError so internal text never reaches a client.
func From(err error) AppError {
	if err == nil {
		return nil
	}

	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalError
}

// KindOf returns the Kind of err, KindInternal when it carries none.
func KindOf(err error) Kind {
	if appErr := From(err); appErr != nil {
		return appErr.Kind()
	}

	return KindInternal
}
