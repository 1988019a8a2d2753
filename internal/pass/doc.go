// Package pass builds wallet pass archives (.pkpass).
//
// A pass is assembled in four steps, each a plain function over immutable inputs:
//
//  1. BuildDescriptor merges the static Template with a CardProfile into the pass.json Descriptor.
//  2. The encoded descriptor and the resolved image assets are frozen into a Members set.
//  3. BuildManifest hashes every member into manifest.json and a Signer produces a detached
//     PKCS#7 signature over the manifest bytes.
//  4. BuildArchive packages members, manifest and signature into the ZIP container.
//
// Failures are reported as *PassError values whose code identifies the failing stage.
package pass
