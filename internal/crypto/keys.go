// this file contains functions to generate signing keys and development certificates
//
// Production pass type certificates are issued by the wallet platform. For local development and
// tests the service can sign with a self-issued chain: a development root CA, and a pass type
// certificate issued by it. Such passes verify with the passkit CLI but are rejected by devices.
//
// PEM files are in PKCS#8 format (https://datatracker.ietf.org/doc/html/rfc5208)

package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"time"
)

// oidUserID is the LDAP UID attribute; pass type certificates carry the pass type identifier in it.
var oidUserID = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}

// GenerateRSAKeyPair generates a new RSA key pair with the specified bit size
// minimum key size is 2048 bits - key size must be a multiple of 256
func GenerateRSAKeyPair(bits int) (*rsa.PrivateKey, error) {
	if bits < 2048 {
		return nil, fmt.Errorf("key size must be at least 2048 bits")
	}

	if bits%256 != 0 {
		return nil, fmt.Errorf("key size should be a multiple of 256")
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	return privateKey, nil
}

// CertificateAuthority is a development CA used to issue pass type certificates.
type CertificateAuthority struct {
	Certificate *x509.Certificate
	PrivateKey  crypto.Signer
}

// NewCertificateAuthority creates a self-signed root CA valid from one hour ago for validity.
func NewCertificateAuthority(commonName string, key crypto.Signer, validity time.Duration) (*CertificateAuthority, error) {
	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}

	notBefore := time.Now().Add(-1 * time.Hour)
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: commonName, Organization: []string{"pass-issuer development"}},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(validity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	if err != nil {
		return nil, WrapInternalError(err, "failed to create CA certificate")
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, WrapInternalError(err, "failed to parse CA certificate")
	}

	return &CertificateAuthority{Certificate: cert, PrivateKey: key}, nil
}

// PassTypeCertificateRequest describes a pass type certificate to issue.
type PassTypeCertificateRequest struct {
	PassTypeIdentifier string
	TeamIdentifier     string
	PublicKey          crypto.PublicKey
	NotBefore          time.Time
	NotAfter           time.Time
}

// IssuePassTypeCertificate issues a code signing certificate for a pass type identifier.
// The subject mirrors the layout of platform issued certificates:
// UID=<pass type id>, CN=Pass Type ID: <pass type id>, OU=<team id>.
func (ca *CertificateAuthority) IssuePassTypeCertificate(req PassTypeCertificateRequest) (*x509.Certificate, error) {
	if req.PassTypeIdentifier == "" {
		return nil, NewValidationError("pass type identifier is required")
	}
	if req.PublicKey == nil {
		return nil, NewValidationError("public key is required")
	}

	notBefore := req.NotBefore
	if notBefore.IsZero() {
		notBefore = time.Now().Add(-1 * time.Hour)
	}
	notAfter := req.NotAfter
	if notAfter.IsZero() {
		notAfter = notBefore.Add(365 * 24 * time.Hour)
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}

	subject := pkix.Name{
		CommonName: "Pass Type ID: " + req.PassTypeIdentifier,
		ExtraNames: []pkix.AttributeTypeAndValue{
			{Type: oidUserID, Value: req.PassTypeIdentifier},
		},
	}
	if req.TeamIdentifier != "" {
		subject.OrganizationalUnit = []string{req.TeamIdentifier}
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      subject,
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageCodeSigning},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, ca.Certificate, req.PublicKey, ca.PrivateKey)
	if err != nil {
		return nil, WrapInternalError(err, "failed to create pass type certificate")
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, WrapInternalError(err, "failed to parse pass type certificate")
	}
	return cert, nil
}

// PassTypeIdentifierFromCertificate returns the pass type identifier carried in a
// certificate's UID attribute, or "" if it has none.
func PassTypeIdentifierFromCertificate(cert *x509.Certificate) string {
	for _, name := range cert.Subject.Names {
		if name.Type.Equal(oidUserID) {
			if s, ok := name.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}

// SaveCertificatesToPEMFile writes certs to a PEM file
//
// Parameters:
//   - baseDir: The base directory to scope file access (e.g., "./keys")
//   - filename: The filename within the base directory (e.g., "ca.pem")
func SaveCertificatesToPEMFile(certs []*x509.Certificate, baseDir, filename string) error {
	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return fmt.Errorf("failed to open root directory %s: %w", baseDir, err)
	}
	defer root.Close()

	if err := root.WriteFile(filename, EncodeCertificatesPEM(certs), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// SaveRSAPrivateKeyToPEMFile saves an RSA private key to a PEM file in PKCS#8 format
//
// Parameters:
//   - baseDir: The base directory to scope file access (e.g., "./keys")
//   - filename: The filename within the base directory (e.g., "ca.key")
func SaveRSAPrivateKeyToPEMFile(privateKey *rsa.PrivateKey, baseDir, filename string) error {
	privBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return fmt.Errorf("failed to open root directory %s: %w", baseDir, err)
	}
	defer root.Close()

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privBytes})
	if err := root.WriteFile(filename, pemBytes, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// SaveKeystoreFile writes a PKCS#12 blob with owner-only permissions.
func SaveKeystoreFile(blob []byte, baseDir, filename string) error {
	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return fmt.Errorf("failed to open root directory %s: %w", baseDir, err)
	}
	defer root.Close()

	if err := root.WriteFile(filename, blob, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func randomSerial() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, WrapInternalError(err, "failed to generate certificate serial")
	}
	return serial, nil
}
