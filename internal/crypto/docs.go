// crypto package provides the cryptographic primitives used to issue passes:
// manifest checksums, canonical JSON, PKCS#12 keystore import and PKCS#7 detached signatures.
//
// these are low level functions - the pass package wraps them for the issuance pipeline.
package crypto
