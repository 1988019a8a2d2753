package crypto_test

import (
	"crypto/x509"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cardpass/pass-issuer/internal/crypto"
	"github.com/cardpass/pass-issuer/internal/crypto/cryptotest"
)

func TestLoadKeystore(t *testing.T) {
	valid := cryptotest.NewIdentity(t)
	expired := cryptotest.NewIdentityWithOptions(t, cryptotest.Options{
		NotBefore: time.Now().Add(-48 * time.Hour),
		NotAfter:  time.Now().Add(-24 * time.Hour),
	})
	notYetValid := cryptotest.NewIdentityWithOptions(t, cryptotest.Options{
		NotBefore: time.Now().Add(24 * time.Hour),
		NotAfter:  time.Now().Add(48 * time.Hour),
	})

	corrupt := append([]byte{}, valid.Blob...)
	corrupt[len(corrupt)/2] ^= 0xff

	testCases := []struct {
		name       string
		blob       []byte
		passphrase string
		wantCode   crypto.ErrorCode
		wantError  string
	}{
		{
			name:       "valid keystore",
			blob:       valid.Blob,
			passphrase: cryptotest.Passphrase,
		},
		{
			name:       "wrong passphrase",
			blob:       valid.Blob,
			passphrase: "not-the-passphrase",
			wantCode:   crypto.ErrCodeKeyManagement,
			wantError:  "passphrase",
		},
		{
			name:       "empty keystore",
			blob:       nil,
			passphrase: cryptotest.Passphrase,
			wantCode:   crypto.ErrCodeKeyManagement,
			wantError:  "keystore is empty",
		},
		{
			name:       "corrupt keystore",
			blob:       corrupt,
			passphrase: cryptotest.Passphrase,
			wantCode:   crypto.ErrCodeKeyManagement,
		},
		{
			name:       "expired certificate",
			blob:       expired.Blob,
			passphrase: cryptotest.Passphrase,
			wantCode:   crypto.ErrCodeCertificate,
			wantError:  "expired",
		},
		{
			name:       "certificate not yet valid",
			blob:       notYetValid.Blob,
			passphrase: cryptotest.Passphrase,
			wantCode:   crypto.ErrCodeCertificate,
			wantError:  "not valid before",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ks, err := crypto.LoadKeystore(tc.blob, tc.passphrase)

			if tc.wantCode != "" {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				var cryptoErr *crypto.CryptoError
				if !errors.As(err, &cryptoErr) {
					t.Fatalf("expected CryptoError, got %T", err)
				}
				if cryptoErr.Code() != tc.wantCode {
					t.Errorf("Code() = %q, want %q (err: %v)", cryptoErr.Code(), tc.wantCode, err)
				}
				if tc.wantError != "" && !strings.Contains(err.Error(), tc.wantError) {
					t.Errorf("expected error containing %q, got %q", tc.wantError, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := crypto.PassTypeIdentifierFromCertificate(ks.Certificate()); got != cryptotest.PassTypeIdentifier {
				t.Errorf("pass type identifier = %q, want %q", got, cryptotest.PassTypeIdentifier)
			}
			if len(ks.Chain()) != 1 {
				t.Errorf("expected 1 chain certificate, got %d", len(ks.Chain()))
			}
			if strings.Contains(ks.String(), cryptotest.Passphrase) {
				t.Error("keystore description must not contain the passphrase")
			}
		})
	}
}

func TestKeystoreWithIntermediates(t *testing.T) {
	identity := cryptotest.NewIdentity(t)

	// the CA is already in the chain, so adding it again is a no-op
	ks := identity.Keystore.WithIntermediates(identity.CA.Certificate)
	if len(ks.Chain()) != 1 {
		t.Fatalf("expected duplicate intermediate to be skipped, got %d certs", len(ks.Chain()))
	}

	other := cryptotest.NewIdentity(t)
	ks = identity.Keystore.WithIntermediates(other.CA.Certificate)
	if len(ks.Chain()) != 2 {
		t.Fatalf("expected 2 chain certificates, got %d", len(ks.Chain()))
	}
	if len(identity.Keystore.Chain()) != 1 {
		t.Error("WithIntermediates must not modify the original keystore")
	}
}

func TestEncodeKeystoreRejectsMismatchedKey(t *testing.T) {
	identity := cryptotest.NewIdentity(t)

	otherKey, err := crypto.GenerateRSAKeyPair(2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	_, err = crypto.EncodeKeystore(otherKey, identity.Keystore.Certificate(), []*x509.Certificate{identity.CA.Certificate}, "x")
	if err == nil {
		t.Fatal("expected mismatch error, got nil")
	}
	if !strings.Contains(err.Error(), "does not match") {
		t.Errorf("unexpected error: %v", err)
	}
}
