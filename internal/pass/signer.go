package pass

import (
	"context"
	"time"

	"github.com/cardpass/pass-issuer/internal/crypto"
)

// Signer produces the detached signature stored in the archive's signature member.
type Signer interface {
	Sign(ctx context.Context, manifest []byte) ([]byte, error)
}

// KeystoreSigner signs manifests with the process-wide signing identity.
type KeystoreSigner struct {
	keystore *crypto.Keystore
	now      func() time.Time
}

// NewKeystoreSigner returns a Signer backed by a keystore that was imported at startup.
func NewKeystoreSigner(ks *crypto.Keystore) (*KeystoreSigner, error) {
	if ks == nil {
		return nil, NewSigningError("keystore is not loaded")
	}
	return &KeystoreSigner{keystore: ks, now: time.Now}, nil
}

// Sign returns a DER encoded PKCS#7 detached signature over manifest.
//
// The certificate is checked again at signing time: a long running process must stop issuing
// passes once its certificate expires.
func (s *KeystoreSigner) Sign(ctx context.Context, manifest []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, WrapInternalError(err, "signing cancelled")
	}
	if len(manifest) == 0 {
		return nil, NewSigningError("manifest is empty")
	}

	if err := s.keystore.CheckValid(s.now()); err != nil {
		return nil, WrapSigningError(err, "signing certificate is not valid")
	}

	signature, err := crypto.SignDetached(manifest, s.keystore)
	if err != nil {
		return nil, WrapSigningError(err, "failed to sign manifest")
	}
	return signature, nil
}

// String describes the signing identity for logs.
func (s *KeystoreSigner) String() string {
	return s.keystore.String()
}

// CheckReady reports whether the signer can currently sign.
func (s *KeystoreSigner) CheckReady() error {
	if err := s.keystore.CheckValid(s.now()); err != nil {
		return WrapSigningError(err, "signing certificate is not valid")
	}
	return nil
}
