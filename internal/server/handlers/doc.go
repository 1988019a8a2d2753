// Package handlers provides the HTTP handlers of the pass server: pass issuance and the
// infrastructure endpoints (health, readiness, version).
package handlers
