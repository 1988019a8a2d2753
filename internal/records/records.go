// Package records keeps one PassRecord per issued card.
//
// The record decides whether an issuance creates a new pass or updates an existing one, and
// holds the authentication token devices use with the pass web service. The token is set when
// the record is created and never changes, so re-issued passes keep working on devices.
package records

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Lookup when no record exists.
var ErrNotFound = errors.New("pass record not found")

// PassRecord is the bookkeeping for one (tenant, card serial) pair.
type PassRecord struct {
	ID                  uuid.UUID
	TenantID            string
	CardSerial          string
	SerialNumber        string
	AuthenticationToken string
	Version             int64
	ManifestChecksum    string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Created reports whether this save created the record.
func (r PassRecord) Created() bool {
	return r.Version == 1
}

// Store persists pass records.
type Store interface {
	// Lookup returns the record for tenantID and cardSerial, or ErrNotFound.
	Lookup(ctx context.Context, tenantID, cardSerial string) (PassRecord, error)

	// Save inserts rec with version 1, or if a record already exists for its tenant and card
	// serial, increments the version and replaces the manifest checksum and updated time.
	// The ID, serial number, authentication token and creation time of an existing record are kept.
	// The stored record is returned.
	Save(ctx context.Context, rec PassRecord) (PassRecord, error)

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error
}
