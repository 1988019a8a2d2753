// pkcs7.go creates and verifies the detached signature stored in the "signature" member of a pass.
//
// The wallet platform expects a DER encoded PKCS#7 (CMS) SignedData structure:
//   - detached: the signed content (manifest.json) is not embedded
//   - SHA-256 digest algorithm
//   - signed attributes: content type, message digest and signing time
//   - the signing certificate and its intermediates embedded in the certificates set
//
// Concatenating raw signature bytes with certificate bytes is not a valid container: the archive
// still unpacks but the device rejects the pass. The container is built with smallstep/pkcs7.

package crypto

import (
	"crypto/x509"

	"github.com/smallstep/pkcs7"
)

// SignDetached signs content with the keystore identity and returns the DER encoded
// detached PKCS#7 signature.
func SignDetached(content []byte, ks *Keystore) ([]byte, error) {
	if ks == nil {
		return nil, NewInternalError("keystore is nil")
	}
	if len(content) == 0 {
		return nil, NewValidationError("content to sign is empty")
	}

	signedData, err := pkcs7.NewSignedData(content)
	if err != nil {
		return nil, WrapSignatureError(err, "failed to initialise signed data")
	}

	signedData.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)

	if err := signedData.AddSignerChain(ks.leaf, ks.privateKey, ks.chain, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, WrapSignatureError(err, "failed to add signer")
	}

	signedData.Detach()

	der, err := signedData.Finish()
	if err != nil {
		return nil, WrapSignatureError(err, "failed to encode signature")
	}

	return der, nil
}

// VerifyDetached verifies a detached PKCS#7 signature over content.
//
// When roots is nil only the signature itself is checked (against the embedded signer
// certificate); otherwise the signer chain must also lead to one of roots.
func VerifyDetached(signature, content []byte, roots *x509.CertPool) error {
	p7, err := pkcs7.Parse(signature)
	if err != nil {
		return WrapSignatureError(err, "failed to parse PKCS#7 signature")
	}

	if len(p7.Content) != 0 {
		return NewSignatureError("signature is not detached")
	}
	p7.Content = content

	if roots == nil {
		err = p7.Verify()
	} else {
		err = p7.VerifyWithChain(roots)
	}
	if err != nil {
		return WrapSignatureError(err, "signature verification failed")
	}

	return nil
}

// SignatureCertificates returns the certificates embedded in a PKCS#7 signature.
func SignatureCertificates(signature []byte) ([]*x509.Certificate, error) {
	p7, err := pkcs7.Parse(signature)
	if err != nil {
		return nil, WrapSignatureError(err, "failed to parse PKCS#7 signature")
	}
	return p7.Certificates, nil
}
