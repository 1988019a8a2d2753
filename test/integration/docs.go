// Package integration contains end-to-end tests for the pass server.
//
// The server is started in-process with pass records in a temporary PostgreSQL database (migrations
// applied before startup) and the issuance quota in Redis (an in-process miniredis). The tests check
// that re-issue state survives in the database and that quota state is shared through Redis.
//
// These tests assume the pass and crypto packages are working correctly (tested separately).
// If bugs are introduced in lower-level packages, there will be cascading failures here -
// fix the low-level problems first.
package integration
