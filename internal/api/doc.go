// Package api holds the HTTP request and response types of the pass issuance API and the
// mapping from pipeline errors to status codes.
//
// Status codes:
//   - 400: invalid card profile or malformed request body
//   - 403: missing or invalid credentials, or a tenant mismatch
//   - 413: request body too large
//   - 429: issuance quota exceeded (with Retry-After)
//   - 500: signing, manifest, archive, static asset and internal failures
package api
