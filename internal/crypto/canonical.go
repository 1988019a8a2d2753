// pass.json and manifest.json are serialised as canonical JSON (RFC 8785) so that
// identical inputs always produce identical bytes, and therefore identical digests.
// this implementation uses the gowebpki/jcs library to perform this canonicalization
package crypto

import (
	"github.com/gowebpki/jcs"
)

// CanonicalizeJSON converts JSON to canonical form per RFC 8785
//
// If the input is not valid JSON, an error is returned (handled by jcs library).
func CanonicalizeJSON(jsonData []byte) ([]byte, error) {
	canonical, err := jcs.Transform(jsonData)
	if err != nil {
		return nil, WrapValidationError(err, "failed to canonicalize JSON")
	}
	return canonical, nil
}
