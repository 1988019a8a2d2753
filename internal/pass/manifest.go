package pass

// manifest.go builds the manifest.json member of a pass.
//
// The manifest maps every other archive member to the hex-encoded SHA-1 digest of its bytes.
// It does not list itself or the signature. The signature is computed over the exact manifest
// bytes returned by BuildManifest, so those bytes must be stored in the archive unchanged.

import (
	"encoding/json"
	"fmt"

	"github.com/cardpass/pass-issuer/internal/crypto"
)

// Manifest maps archive member name to lowercase hex SHA-1 digest.
type Manifest map[string]string

// BuildManifest computes the manifest for members and returns it with its canonical JSON encoding.
func BuildManifest(members Members) (Manifest, []byte, error) {
	if members.Len() == 0 {
		return nil, nil, NewManifestError("no members to include in the manifest")
	}
	if !members.Has(DescriptorMember) {
		return nil, nil, NewManifestError("members do not include " + DescriptorMember)
	}

	manifest := make(Manifest, members.Len())
	for _, name := range members.Names() {
		if err := ValidateMemberName(name); err != nil {
			return nil, nil, WrapManifestError(err, "invalid archive member")
		}
		manifest[name] = crypto.CalculateSHA1Hex(members.files[name])
	}

	data, err := manifest.Encode()
	if err != nil {
		return nil, nil, err
	}
	return manifest, data, nil
}

// Encode returns the canonical JSON encoding of the manifest.
func (m Manifest) Encode() ([]byte, error) {
	raw, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, WrapManifestError(err, "failed to encode manifest")
	}
	canonical, err := crypto.CanonicalizeJSON(raw)
	if err != nil {
		return nil, WrapManifestError(err, "failed to canonicalize manifest")
	}
	return canonical, nil
}

// ParseManifest decodes manifest.json bytes.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, WrapManifestError(err, "failed to decode manifest")
	}
	return m, nil
}

// VerifyManifest checks that manifest lists exactly the given members and that every digest
// matches the member's bytes.
func VerifyManifest(manifest Manifest, members Members) error {
	for name, digest := range manifest {
		data, ok := members.files[name]
		if !ok {
			return NewManifestError(fmt.Sprintf("manifest lists %q but the member is missing", name))
		}
		if !crypto.VerifyChecksum(data, digest) {
			return WrapManifestError(crypto.NewChecksumError(fmt.Sprintf("digest mismatch for %q", name)), "manifest verification failed")
		}
	}
	for _, name := range members.Names() {
		if _, ok := manifest[name]; !ok {
			return NewManifestError(fmt.Sprintf("member %q is not listed in the manifest", name))
		}
	}
	return nil
}
