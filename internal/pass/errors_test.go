package pass

import (
	"errors"
	"testing"
	"time"
)

func TestPassErrorCodes(t *testing.T) {
	cause := errors.New("underlying")

	testCases := []struct {
		name     string
		err      error
		wantCode ErrorCode
		wantMsg  string
	}{
		{"validation", NewValidationError("name is required"), ErrCodeValidation, "name is required"},
		{"wrapped validation", WrapValidationError(cause, "publicURL is invalid"), ErrCodeValidation, "publicURL is invalid: underlying"},
		{"auth", NewAuthError("invalid API key"), ErrCodeAuth, "invalid API key"},
		{"rate limit", NewRateLimitError("quota exceeded", time.Minute), ErrCodeRateLimit, "quota exceeded"},
		{"asset", WrapAssetError(cause, "icon.png missing"), ErrCodeAsset, "icon.png missing: underlying"},
		{"manifest", NewManifestError("no members"), ErrCodeManifest, "no members"},
		{"signing", WrapSigningError(cause, "failed to sign"), ErrCodeSigning, "failed to sign: underlying"},
		{"archive", NewArchiveError("signature is empty"), ErrCodeArchive, "signature is empty"},
		{"internal", WrapInternalError(cause, "store failed"), ErrCodeInternal, "store failed: underlying"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CodeOf(tc.err); got != tc.wantCode {
				t.Errorf("CodeOf() = %q, want %q", got, tc.wantCode)
			}
			if tc.err.Error() != tc.wantMsg {
				t.Errorf("Error() = %q, want %q", tc.err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestCodeOfNonPassError(t *testing.T) {
	if got := CodeOf(errors.New("plain")); got != ErrCodeInternal {
		t.Errorf("CodeOf(plain error) = %q, want %q", got, ErrCodeInternal)
	}
}

func TestRateLimitErrorRetryAfter(t *testing.T) {
	err := NewRateLimitError("quota exceeded", 90*time.Second)

	var passErr *PassError
	if !errors.As(err, &passErr) {
		t.Fatal("expected *PassError")
	}
	if passErr.RetryAfter() != 90*time.Second {
		t.Errorf("RetryAfter() = %v, want 90s", passErr.RetryAfter())
	}
	if passErr.Message() != "quota exceeded" {
		t.Errorf("Message() = %q", passErr.Message())
	}
}

func TestWrappedCauseIsReachable(t *testing.T) {
	cause := errors.New("disk on fire")
	err := WrapArchiveError(cause, "failed to finalise archive")
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}
