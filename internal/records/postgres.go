package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a Store backed by the pass_records table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const selectRecord = `
SELECT id, tenant_id, card_serial, serial_number, authentication_token,
       version, manifest_checksum, created_at, updated_at
FROM pass_records
WHERE tenant_id = $1 AND card_serial = $2`

// the conflict branch keeps the id, serial number, token and created_at of the existing row
const upsertRecord = `
INSERT INTO pass_records (
    id, tenant_id, card_serial, serial_number, authentication_token,
    version, manifest_checksum, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, 1, $6, $7, $7)
ON CONFLICT (tenant_id, card_serial) DO UPDATE
SET version = pass_records.version + 1,
    manifest_checksum = EXCLUDED.manifest_checksum,
    updated_at = EXCLUDED.updated_at
RETURNING id, tenant_id, card_serial, serial_number, authentication_token,
          version, manifest_checksum, created_at, updated_at`

func scanRecord(row pgx.Row) (PassRecord, error) {
	var rec PassRecord
	err := row.Scan(
		&rec.ID,
		&rec.TenantID,
		&rec.CardSerial,
		&rec.SerialNumber,
		&rec.AuthenticationToken,
		&rec.Version,
		&rec.ManifestChecksum,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	return rec, err
}

func (s *PostgresStore) Lookup(ctx context.Context, tenantID, cardSerial string) (PassRecord, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, selectRecord, tenantID, cardSerial))
	if errors.Is(err, pgx.ErrNoRows) {
		return PassRecord{}, ErrNotFound
	}
	if err != nil {
		return PassRecord{}, fmt.Errorf("failed to look up pass record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec PassRecord) (PassRecord, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	saved, err := scanRecord(s.pool.QueryRow(ctx, upsertRecord,
		rec.ID,
		rec.TenantID,
		rec.CardSerial,
		rec.SerialNumber,
		rec.AuthenticationToken,
		rec.ManifestChecksum,
		rec.UpdatedAt,
	))
	if err != nil {
		return PassRecord{}, fmt.Errorf("failed to save pass record: %w", err)
	}
	return saved, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
