// Package issuance orchestrates one pass issuance request.
//
// A request moves through fixed stages:
//
//	Received -> AuthChecked -> RateLimitChecked -> DescriptorBuilt -> AssetsResolved ->
//	ManifestBuilt -> Signed -> Archived -> Responded
//
// Any failure stops the pipeline and returns the error of the stage that failed; nothing is
// returned for a failed request. The rate limit is checked before the card profile is validated,
// so rejected requests still use quota.
//
// The Service is built from explicit dependencies and holds no per-request state, so one
// instance serves all requests concurrently.
package issuance
