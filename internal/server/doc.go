// Package server provides the HTTP server for the pass issuer.
//
// the server is configured through environment variables
// (see internal/config/config.go for details)
//
// At start up the server loads the signing keystore, the pass template and the static assets,
// and fails fast if any of them is unusable. Per request state is limited to the rate limit
// counters and the pass records.
//
// middleware is in internal/server/middleware, handlers in internal/server/handlers
package server
