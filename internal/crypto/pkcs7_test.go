package crypto_test

import (
	"bytes"
	"crypto/x509"
	"testing"

	"github.com/cardpass/pass-issuer/internal/crypto"
	"github.com/cardpass/pass-issuer/internal/crypto/cryptotest"
)

func TestSignDetached(t *testing.T) {
	identity := cryptotest.NewIdentity(t)
	manifest := []byte(`{"icon.png":"2aae6c35c94fcfb415dbe95f408b9ce91ee846ed","pass.json":"0beec7b5ea3f0fdbc95d0dd47f3c5bc275da8a33"}`)

	signature, err := crypto.SignDetached(manifest, identity.Keystore)
	if err != nil {
		t.Fatalf("SignDetached() error = %v", err)
	}

	if bytes.Contains(signature, manifest) {
		t.Error("signature must be detached (content embedded)")
	}

	certs, err := crypto.SignatureCertificates(signature)
	if err != nil {
		t.Fatalf("SignatureCertificates() error = %v", err)
	}
	if len(certs) != 2 {
		t.Fatalf("expected signer + CA certificates embedded, got %d", len(certs))
	}

	t.Run("verifies against the signed manifest", func(t *testing.T) {
		if err := crypto.VerifyDetached(signature, manifest, nil); err != nil {
			t.Fatalf("VerifyDetached() error = %v", err)
		}
	})

	t.Run("verifies with the issuing root", func(t *testing.T) {
		if err := crypto.VerifyDetached(signature, manifest, identity.Roots); err != nil {
			t.Fatalf("VerifyDetached() with roots error = %v", err)
		}
	})

	t.Run("fails with an unrelated root", func(t *testing.T) {
		other := cryptotest.NewIdentity(t)
		if err := crypto.VerifyDetached(signature, manifest, other.Roots); err == nil {
			t.Fatal("expected chain verification to fail")
		}
	})

	t.Run("single byte change breaks verification", func(t *testing.T) {
		for i := range manifest {
			tampered := append([]byte{}, manifest...)
			tampered[i] ^= 0x01
			if err := crypto.VerifyDetached(signature, tampered, nil); err == nil {
				t.Fatalf("expected verification failure after flipping byte %d", i)
			}
		}
	})

	t.Run("concatenated signature and certificate is rejected", func(t *testing.T) {
		adHoc := append([]byte{}, []byte("raw-signature-bytes")...)
		adHoc = append(adHoc, identity.Keystore.Certificate().Raw...)
		if err := crypto.VerifyDetached(adHoc, manifest, nil); err == nil {
			t.Fatal("expected ad hoc container to be rejected")
		}
	})
}

func TestSignDetachedErrors(t *testing.T) {
	identity := cryptotest.NewIdentity(t)

	if _, err := crypto.SignDetached(nil, identity.Keystore); err == nil {
		t.Error("expected error for empty content")
	}
	if _, err := crypto.SignDetached([]byte("{}"), nil); err == nil {
		t.Error("expected error for nil keystore")
	}
}

func TestValidateCertificateChain(t *testing.T) {
	identity := cryptotest.NewIdentity(t)
	chain := append([]*x509.Certificate{identity.Keystore.Certificate()}, identity.Keystore.Chain()...)

	if err := crypto.ValidateCertificateChain(chain, identity.Roots); err != nil {
		t.Fatalf("ValidateCertificateChain() error = %v", err)
	}

	if err := crypto.ValidateCertificateChain(nil, identity.Roots); err == nil {
		t.Error("expected error for empty chain")
	}

	other := cryptotest.NewIdentity(t)
	if err := crypto.ValidateCertificateChain(chain, other.Roots); err == nil {
		t.Error("expected error for untrusted root")
	}
}

func TestParseCertificateChain(t *testing.T) {
	identity := cryptotest.NewIdentity(t)
	pemData := crypto.EncodeCertificatesPEM([]*x509.Certificate{identity.Keystore.Certificate(), identity.CA.Certificate})

	// leading non-certificate blocks are skipped
	pemData = append([]byte("-----BEGIN COMMENT-----\nAAAA\n-----END COMMENT-----\n"), pemData...)

	certs, err := crypto.ParseCertificateChain(pemData)
	if err != nil {
		t.Fatalf("ParseCertificateChain() error = %v", err)
	}
	if len(certs) != 2 {
		t.Fatalf("expected 2 certificates, got %d", len(certs))
	}
	if !certs[0].Equal(identity.Keystore.Certificate()) {
		t.Error("expected leaf certificate first")
	}

	if _, err := crypto.ParseCertificateChain([]byte("not pem")); err == nil {
		t.Error("expected error for data without certificates")
	}
}
