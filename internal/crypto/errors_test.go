package crypto

import (
	"errors"
	"testing"
)

func TestCryptoError_Code(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
		wantMsg  string
	}{
		{"validation", NewValidationError("bad input"), ErrCodeValidation, "bad input"},
		{"checksum", WrapChecksumError(cause, "digest mismatch"), ErrCodeInvalidChecksum, "digest mismatch: boom"},
		{"signature", NewSignatureError("bad signature"), ErrCodeInvalidSignature, "bad signature"},
		{"certificate", WrapCertificateError(cause, "cert expired"), ErrCodeCertificate, "cert expired: boom"},
		{"key_management", WrapKeyManagementError(cause, "wrong passphrase"), ErrCodeKeyManagement, "wrong passphrase: boom"},
		{"internal", NewInternalError("unexpected"), ErrCodeInternal, "unexpected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cryptoErr *CryptoError
			if !errors.As(tt.err, &cryptoErr) {
				t.Fatal("error is not a CryptoError")
			}
			if cryptoErr.Code() != tt.wantCode {
				t.Errorf("Code() = %q, want %q", cryptoErr.Code(), tt.wantCode)
			}
			if tt.err.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.wantMsg)
			}
		})
	}

	// wrapped causes stay reachable
	if !errors.Is(WrapInternalError(cause, "x"), cause) {
		t.Error("wrapped cause not found with errors.Is")
	}
}
