// Package cryptotest provides signing identities for tests.
package cryptotest

import (
	"crypto/rsa"
	"crypto/x509"
	"sync"
	"testing"
	"time"

	"github.com/cardpass/pass-issuer/internal/crypto"
)

const (
	// Passphrase protects every keystore blob created by this package.
	Passphrase = "test-passphrase"

	PassTypeIdentifier = "pass.com.example.card"
	TeamIdentifier     = "TEAM123456"
)

// RSA key generation is slow, so the keys are shared by every test in the binary.
var (
	keysOnce sync.Once
	caKey    *rsa.PrivateKey
	leafKey  *rsa.PrivateKey
	keysErr  error
)

func keys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	keysOnce.Do(func() {
		caKey, keysErr = crypto.GenerateRSAKeyPair(2048)
		if keysErr != nil {
			return
		}
		leafKey, keysErr = crypto.GenerateRSAKeyPair(2048)
	})
	if keysErr != nil {
		t.Fatalf("failed to generate test keys: %v", keysErr)
	}
	return caKey, leafKey
}

// Identity is a development signing identity.
type Identity struct {
	// Blob is the PKCS#12 encoding of the identity, protected by Passphrase
	Blob []byte

	// Keystore is Blob already imported
	Keystore *crypto.Keystore

	// Roots contains the development root CA
	Roots *x509.CertPool

	CA *crypto.CertificateAuthority
}

// Options tweak the generated pass type certificate.
type Options struct {
	NotBefore time.Time
	NotAfter  time.Time
}

// NewIdentity returns a valid signing identity issued by a fresh development CA.
func NewIdentity(t *testing.T) *Identity {
	t.Helper()
	return NewIdentityWithOptions(t, Options{})
}

// NewIdentityWithOptions returns a signing identity whose certificate validity is set by opts.
// The Keystore field is nil when the certificate would be rejected by crypto.LoadKeystore
// (e.g. an expired certificate) - use Blob to exercise that path.
func NewIdentityWithOptions(t *testing.T, opts Options) *Identity {
	t.Helper()

	rootKey, signingKey := keys(t)

	ca, err := crypto.NewCertificateAuthority("pass-issuer test root", rootKey, 24*time.Hour)
	if err != nil {
		t.Fatalf("failed to create test CA: %v", err)
	}

	leaf, err := ca.IssuePassTypeCertificate(crypto.PassTypeCertificateRequest{
		PassTypeIdentifier: PassTypeIdentifier,
		TeamIdentifier:     TeamIdentifier,
		PublicKey:          signingKey.Public(),
		NotBefore:          opts.NotBefore,
		NotAfter:           opts.NotAfter,
	})
	if err != nil {
		t.Fatalf("failed to issue test certificate: %v", err)
	}

	blob, err := crypto.EncodeKeystore(signingKey, leaf, []*x509.Certificate{ca.Certificate}, Passphrase)
	if err != nil {
		t.Fatalf("failed to encode test keystore: %v", err)
	}

	roots := x509.NewCertPool()
	roots.AddCert(ca.Certificate)

	identity := &Identity{Blob: blob, Roots: roots, CA: ca}

	ks, err := crypto.LoadKeystore(blob, Passphrase)
	if err == nil {
		identity.Keystore = ks
	}

	return identity
}
