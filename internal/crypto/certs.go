package crypto

// certs.go - Functions for parsing and checking the X.509 certificates used to sign passes.
//
// The signing certificate (and its intermediates, e.g. the Apple WWDR certificate) are embedded
// in the PKCS#7 signature. Trust is anchored by the wallet platform, so the service only
// checks that the certificate is currently valid and belongs to the keystore private key.

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ParseCertificateChain parses one or more X.509 certificates from PEM-encoded data.
// The certificates are returned in the order they appear in the PEM data.
//
// Non-certificate blocks are skipped.
func ParseCertificateChain(pemData []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	var block *pem.Block
	remaining := pemData

	for {
		block, remaining = pem.Decode(remaining)
		if block == nil {
			break
		}

		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, WrapCertificateError(err, "failed to parse certificate")
		}

		certs = append(certs, cert)
	}

	if len(certs) == 0 {
		return nil, NewValidationError("no certificates found in PEM data")
	}

	return certs, nil
}

// ReadCertChainFromPEMFile loads a certificate chain from a PEM file.
//
// Parameters:
//   - path: The file path (e.g., "./certs/wwdr.pem")
func ReadCertChainFromPEMFile(path string) ([]*x509.Certificate, error) {
	dir := filepath.Dir(path)
	filename := filepath.Base(path)

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, WrapInternalError(err, fmt.Sprintf("failed to open directory %s", dir))
	}
	defer root.Close()

	pemData, err := root.ReadFile(filename)
	if err != nil {
		return nil, WrapInternalError(err, fmt.Sprintf("failed to read %s", filename))
	}

	return ParseCertificateChain(pemData)
}

// EncodeCertificatesPEM returns the PEM encoding of certs, in order.
func EncodeCertificatesPEM(certs []*x509.Certificate) []byte {
	var out []byte
	for _, cert := range certs {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})...)
	}
	return out
}

// LoadCustomRootCAs loads custom root CAs from a PEM file into a cert pool.
func LoadCustomRootCAs(path string) (*x509.CertPool, error) {
	if path == "" {
		return nil, fmt.Errorf("nil custom roots path received")
	}

	certs, err := ReadCertChainFromPEMFile(path)
	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()
	for _, cert := range certs {
		pool.AddCert(cert)
	}

	return pool, nil
}

// CheckValidityPeriod returns a certificate error if cert is expired or not yet valid at now.
func CheckValidityPeriod(cert *x509.Certificate, now time.Time) error {
	if cert == nil {
		return NewInternalError("nil certificate")
	}
	if now.Before(cert.NotBefore) {
		return NewCertificateError(fmt.Sprintf("certificate %q is not valid before %s",
			cert.Subject.CommonName, cert.NotBefore.UTC().Format(time.RFC3339)))
	}
	if now.After(cert.NotAfter) {
		return NewCertificateError(fmt.Sprintf("certificate %q expired at %s",
			cert.Subject.CommonName, cert.NotAfter.UTC().Format(time.RFC3339)))
	}
	return nil
}

// ValidateCertificateChain validates an X.509 certificate chain against a set of trusted root CAs.
//
// The service does not need this to sign passes; passkit inspect --roots uses it to check the
// certificates embedded in an archive's signature against known roots.
//
// Parameters:
//   - certChain: Certificate chain (leaf first, root last)
//   - roots: Root CA pool (nil = system roots, custom pool = testing/private CA)
func ValidateCertificateChain(certChain []*x509.Certificate, roots *x509.CertPool) error {
	if len(certChain) == 0 {
		return NewInternalError("empty certificate chain")
	}

	intermediates := x509.NewCertPool()
	if len(certChain) > 1 {
		for _, cert := range certChain[1:] {
			intermediates.AddCert(cert)
		}
	}

	verifyOpts := x509.VerifyOptions{
		Roots:         roots, // nil = system roots
		Intermediates: intermediates,
		CurrentTime:   time.Now(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}

	leaf := certChain[0]
	chains, err := leaf.Verify(verifyOpts)
	if err != nil {
		return WrapCertificateError(err, "certificate chain validation failed")
	}
	if len(chains) == 0 {
		return NewCertificateError("no valid certificate chains found")
	}

	return nil
}

// ValidateCertificateMatchesKey checks that the leaf certificate's public key belongs to privateKey.
//
// A keystore whose certificate does not match its key would produce signatures that parse but
// fail verification on the device, so the mismatch is rejected when the keystore is loaded.
//
// Supported private keys: *rsa.PrivateKey and *ecdsa.PrivateKey
func ValidateCertificateMatchesKey(cert *x509.Certificate, privateKey crypto.PrivateKey) error {
	if cert == nil {
		return NewInternalError("nil certificate")
	}

	switch key := privateKey.(type) {
	case *rsa.PrivateKey:
		certKey, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return NewCertificateError(fmt.Sprintf("certificate contains %T key, but expected *rsa.PublicKey", cert.PublicKey))
		}
		if !key.PublicKey.Equal(certKey) {
			return NewCertificateError("certificate public key does not match the RSA private key")
		}

	case *ecdsa.PrivateKey:
		certKey, ok := cert.PublicKey.(*ecdsa.PublicKey)
		if !ok {
			return NewCertificateError(fmt.Sprintf("certificate contains %T key, but expected *ecdsa.PublicKey", cert.PublicKey))
		}
		if !key.PublicKey.Equal(certKey) {
			return NewCertificateError("certificate public key does not match the ECDSA private key")
		}

	default:
		return NewValidationError(fmt.Sprintf("unsupported private key type: %T (expected *rsa.PrivateKey or *ecdsa.PrivateKey)", privateKey))
	}

	return nil
}
