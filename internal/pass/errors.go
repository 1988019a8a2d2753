package pass

// errors.go defines the error taxonomy of the issuance pipeline.
//
// Every stage reports failures as a *PassError so the API layer can map them to a status code
// and a sanitized message. The wrapped error carries the detail for server-side logs only.

import (
	"errors"
	"fmt"
	"time"
)

type ErrorCode string

const (
	// ErrCodeValidation - missing or malformed card profile fields.
	ErrCodeValidation ErrorCode = "validation"

	// ErrCodeAuth - missing or invalid API credentials / identity.
	ErrCodeAuth ErrorCode = "auth"

	// ErrCodeRateLimit - the caller identity exceeded its issuance quota.
	ErrCodeRateLimit ErrorCode = "rate_limit"

	// ErrCodeAsset - asset loading failed. Only fatal for the bundled static assets;
	// profile image failures are recovered by the asset pipeline.
	ErrCodeAsset ErrorCode = "asset"

	// ErrCodeManifest - the manifest could not be built.
	ErrCodeManifest ErrorCode = "manifest"

	// ErrCodeSigning - keystore, certificate or signature failures.
	ErrCodeSigning ErrorCode = "signing"

	// ErrCodeArchive - the archive could not be packaged.
	ErrCodeArchive ErrorCode = "archive"

	// ErrCodeInternal - unexpected failures (nil dependencies, store errors).
	ErrCodeInternal ErrorCode = "internal"
)

// PassError represents a structured error from the issuance pipeline.
type PassError struct {
	code    ErrorCode
	message string
	wrapped error

	// retryAfter is set for rate limit errors
	retryAfter time.Duration
}

func (e *PassError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *PassError) Code() ErrorCode { return e.code }
func (e *PassError) Unwrap() error   { return e.wrapped }

// Message returns the message without the wrapped error.
func (e *PassError) Message() string { return e.message }

// RetryAfter returns how long the caller should wait before retrying (rate limit errors only).
func (e *PassError) RetryAfter() time.Duration { return e.retryAfter }

// CodeOf returns the ErrorCode of the first PassError in err's chain, or ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	var passErr *PassError
	if errors.As(err, &passErr) {
		return passErr.code
	}
	return ErrCodeInternal
}

// NewValidationError creates a validation error for invalid card profile input.
func NewValidationError(msg string) error {
	return &PassError{code: ErrCodeValidation, message: msg}
}

// WrapValidationError wraps an existing error as a validation error.
func WrapValidationError(err error, msg string) error {
	return &PassError{code: ErrCodeValidation, message: msg, wrapped: err}
}

// NewAuthError creates an authentication error.
func NewAuthError(msg string) error {
	return &PassError{code: ErrCodeAuth, message: msg}
}

// WrapAuthError wraps an existing error as an authentication error.
func WrapAuthError(err error, msg string) error {
	return &PassError{code: ErrCodeAuth, message: msg, wrapped: err}
}

// NewRateLimitError creates a rate limit error.
// retryAfter is the time remaining in the caller's current window.
func NewRateLimitError(msg string, retryAfter time.Duration) error {
	return &PassError{code: ErrCodeRateLimit, message: msg, retryAfter: retryAfter}
}

// NewAssetError creates an asset error.
func NewAssetError(msg string) error {
	return &PassError{code: ErrCodeAsset, message: msg}
}

// WrapAssetError wraps an existing error as an asset error.
func WrapAssetError(err error, msg string) error {
	return &PassError{code: ErrCodeAsset, message: msg, wrapped: err}
}

// NewManifestError creates a manifest error.
func NewManifestError(msg string) error {
	return &PassError{code: ErrCodeManifest, message: msg}
}

// WrapManifestError wraps an existing error as a manifest error.
func WrapManifestError(err error, msg string) error {
	return &PassError{code: ErrCodeManifest, message: msg, wrapped: err}
}

// NewSigningError creates a signing error.
func NewSigningError(msg string) error {
	return &PassError{code: ErrCodeSigning, message: msg}
}

// WrapSigningError wraps an existing error (typically a crypto.CryptoError) as a signing error.
func WrapSigningError(err error, msg string) error {
	return &PassError{code: ErrCodeSigning, message: msg, wrapped: err}
}

// NewArchiveError creates an archive error.
func NewArchiveError(msg string) error {
	return &PassError{code: ErrCodeArchive, message: msg}
}

// WrapArchiveError wraps an existing error as an archive error.
func WrapArchiveError(err error, msg string) error {
	return &PassError{code: ErrCodeArchive, message: msg, wrapped: err}
}

// NewInternalError creates an internal error for unexpected failures.
func NewInternalError(msg string) error {
	return &PassError{code: ErrCodeInternal, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
func WrapInternalError(err error, msg string) error {
	return &PassError{code: ErrCodeInternal, message: msg, wrapped: err}
}
