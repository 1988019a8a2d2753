// keystore.go loads the pass signing identity from a PKCS#12 (.p12) keystore.
//
// The keystore holds the private key and the pass type certificate issued by the wallet
// platform. It is parsed once at process start and then shared read-only by every request:
// the raw blob and the passphrase are not retained.

package crypto

import (
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

// Keystore is the immutable signing identity used to sign pass manifests.
type Keystore struct {
	privateKey crypto.PrivateKey

	// leaf is the pass type (signing) certificate
	leaf *x509.Certificate

	// chain holds the intermediate certificates embedded in signatures (e.g. the WWDR certificate).
	chain []*x509.Certificate
}

// LoadKeystore imports a PKCS#12 blob protected by passphrase.
//
// The private key and leaf certificate are extracted, any CA certificates in the blob are
// kept as the embedded chain, and the leaf is checked for validity and for matching the key.
//
// Errors:
//   - wrong passphrase or corrupt data: key management error
//   - expired, not yet valid, or mismatched certificate: certificate error
func LoadKeystore(blob []byte, passphrase string) (*Keystore, error) {
	if len(blob) == 0 {
		return nil, NewKeyManagementError("keystore is empty")
	}

	privateKey, leaf, caCerts, err := pkcs12.DecodeChain(blob, passphrase)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return nil, NewKeyManagementError("keystore passphrase is incorrect")
		}
		return nil, WrapKeyManagementError(err, "failed to decode keystore")
	}

	if leaf == nil {
		return nil, NewKeyManagementError("keystore does not contain a certificate")
	}

	if err := ValidateCertificateMatchesKey(leaf, privateKey); err != nil {
		return nil, err
	}

	if err := CheckValidityPeriod(leaf, time.Now()); err != nil {
		return nil, err
	}

	return &Keystore{
		privateKey: privateKey,
		leaf:       leaf,
		chain:      caCerts,
	}, nil
}

// ReadKeystoreFile reads and imports a PKCS#12 keystore file.
//
// Parameters:
//   - path: The file path (e.g., "./keys/pass.p12")
//   - passphrase: the keystore passphrase (never logged)
func ReadKeystoreFile(path, passphrase string) (*Keystore, error) {
	root, err := os.OpenRoot(filepath.Dir(path))
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to open keystore directory")
	}
	defer root.Close()

	blob, err := root.ReadFile(filepath.Base(path))
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to read keystore")
	}

	return LoadKeystore(blob, passphrase)
}

// WithIntermediates returns a copy of the keystore with extra chain certificates appended.
// Certificates already present in the chain are skipped.
func (k *Keystore) WithIntermediates(certs ...*x509.Certificate) *Keystore {
	chain := make([]*x509.Certificate, 0, len(k.chain)+len(certs))
	chain = append(chain, k.chain...)

	for _, cert := range certs {
		duplicate := false
		for _, existing := range chain {
			if existing.Equal(cert) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			chain = append(chain, cert)
		}
	}

	return &Keystore{
		privateKey: k.privateKey,
		leaf:       k.leaf,
		chain:      chain,
	}
}

// Certificate returns the signing certificate.
func (k *Keystore) Certificate() *x509.Certificate { return k.leaf }

// Chain returns a copy of the intermediate certificates embedded with each signature.
func (k *Keystore) Chain() []*x509.Certificate {
	return append([]*x509.Certificate(nil), k.chain...)
}

// CheckValid returns an error if the signing certificate is not valid at now.
func (k *Keystore) CheckValid(now time.Time) error {
	return CheckValidityPeriod(k.leaf, now)
}

// String describes the keystore without exposing key material.
func (k *Keystore) String() string {
	return fmt.Sprintf("keystore(subject=%q, serial=%s, notAfter=%s, chain=%d)",
		k.leaf.Subject.CommonName,
		k.leaf.SerialNumber.Text(16),
		k.leaf.NotAfter.UTC().Format(time.RFC3339),
		len(k.chain))
}

// EncodeKeystore serialises a private key, certificate and CA chain into a PKCS#12 blob
// protected by passphrase. Used by the passkit CLI to generate development keystores.
func EncodeKeystore(privateKey crypto.PrivateKey, cert *x509.Certificate, caCerts []*x509.Certificate, passphrase string) ([]byte, error) {
	if err := ValidateCertificateMatchesKey(cert, privateKey); err != nil {
		return nil, err
	}

	blob, err := pkcs12.Modern.Encode(privateKey, cert, caCerts, passphrase)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to encode keystore")
	}
	return blob, nil
}
