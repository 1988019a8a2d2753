package crypto

import "fmt"

// Error represents a structured error from the crypto package
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	ErrCodeValidation       ErrorCode = "validation"
	ErrCodeInvalidChecksum  ErrorCode = "invalid_checksum"
	ErrCodeInvalidSignature ErrorCode = "invalid_signature"
	ErrCodeCertificate      ErrorCode = "certificate"
	ErrCodeKeyManagement    ErrorCode = "key_management"
	ErrCodeInternal         ErrorCode = "internal"
)

// CryptoError represents a structured error from the crypto package
type CryptoError struct {

	// code is the crypto error code
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *CryptoError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *CryptoError) Code() ErrorCode { return e.code }
func (e *CryptoError) Unwrap() error   { return e.wrapped }

// NewValidationError creates a validation error for invalid input.
// Use this for errors related to bad PEM/DER encoding, empty content or unsupported key types.
//
// The returned error will have code ErrCodeValidation.
func NewValidationError(msg string) error {
	return &CryptoError{code: ErrCodeValidation, message: msg}
}

// WrapValidationError wraps an existing error as a validation error.
//
// The returned error will have code ErrCodeValidation.
func WrapValidationError(err error, msg string) error {
	return &CryptoError{code: ErrCodeValidation, message: msg, wrapped: err}
}

// NewChecksumError creates a checksum verification error.
// Use this for manifest digest mismatches.
//
// The returned error will have code ErrCodeInvalidChecksum.
func NewChecksumError(msg string) error {
	return &CryptoError{code: ErrCodeInvalidChecksum, message: msg}
}

// WrapChecksumError wraps an existing error as a checksum error.
//
// The returned error will have code ErrCodeInvalidChecksum.
func WrapChecksumError(err error, msg string) error {
	return &CryptoError{code: ErrCodeInvalidChecksum, message: msg, wrapped: err}
}

// NewSignatureError creates a signature error.
// Use this for failures creating a PKCS#7 container or verifying one.
//
// The returned error will have code ErrCodeInvalidSignature.
func NewSignatureError(msg string) error {
	return &CryptoError{code: ErrCodeInvalidSignature, message: msg}
}

// WrapSignatureError wraps an existing error as a signature error.
//
// The returned error will have code ErrCodeInvalidSignature.
func WrapSignatureError(err error, msg string) error {
	return &CryptoError{code: ErrCodeInvalidSignature, message: msg, wrapped: err}
}

// NewCertificateError creates a certificate error.
// Use this for expired or not yet valid certificates, certificates that do not match
// the keystore private key, or chain validation failures.
//
// The returned error will have code ErrCodeCertificate.
func NewCertificateError(msg string) error {
	return &CryptoError{code: ErrCodeCertificate, message: msg}
}

// WrapCertificateError wraps an existing error as a certificate error.
//
// The returned error will have code ErrCodeCertificate.
func WrapCertificateError(err error, msg string) error {
	return &CryptoError{code: ErrCodeCertificate, message: msg, wrapped: err}
}

// NewKeyManagementError creates a key management error.
// Use this for errors related to keystore loading, wrong passphrases,
// or key generation failures.
//
// The returned error will have code ErrCodeKeyManagement.
func NewKeyManagementError(msg string) error {
	return &CryptoError{code: ErrCodeKeyManagement, message: msg}
}

// WrapKeyManagementError wraps an existing error as a key management error.
//
// The returned error will have code ErrCodeKeyManagement.
func WrapKeyManagementError(err error, msg string) error {
	return &CryptoError{code: ErrCodeKeyManagement, message: msg, wrapped: err}
}

// NewInternalError creates an internal error for unexpected failures.
//
// The returned error will have code ErrCodeInternal.
func NewInternalError(msg string) error {
	return &CryptoError{code: ErrCodeInternal, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
//
// The returned error will have code ErrCodeInternal.
func WrapInternalError(err error, msg string) error {
	return &CryptoError{code: ErrCodeInternal, message: msg, wrapped: err}
}
