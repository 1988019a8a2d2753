// this file contains functions to calculate and verify the checksums used in pass archives
//
// The wallet platform requires that manifest.json lists a lowercase hex SHA-1 digest for every
// file in the pass archive. SHA-1 is only used for the manifest entries; the manifest itself is
// protected by the SHA-256 PKCS#7 signature (see pkcs7.go).

package crypto

import (
	"crypto/sha1" // #nosec G505 -- SHA-1 is mandated by the pass manifest format
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// CalculateSHA1Hex calculates the SHA-1 digest of data and returns it as a lowercase hex string.
// This is the digest used for manifest entries.
func CalculateSHA1Hex(data []byte) string {
	sum := sha1.Sum(data) // #nosec G401
	return hex.EncodeToString(sum[:])
}

// CalculateSHA256Hex calculates the SHA-256 checksum of data and returns it as a hex string
func CalculateSHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum verifies that data matches the expected manifest (SHA-1) digest
func VerifyChecksum(data []byte, expectedChecksum string) bool {
	checksum := CalculateSHA1Hex(data)
	return subtle.ConstantTimeCompare([]byte(checksum), []byte(expectedChecksum)) == 1
}

// EqualSHA256 reports whether the SHA-256 digest of secret matches the expected hex digest.
// The comparison is constant time. Used to check API keys against their configured hashes.
func EqualSHA256(secret []byte, expectedHex string) bool {
	checksum := CalculateSHA256Hex(secret)
	return subtle.ConstantTimeCompare([]byte(checksum), []byte(expectedHex)) == 1
}
