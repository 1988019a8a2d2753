package records

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is a Store held in process memory. Records are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]PassRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]PassRecord)}
}

func recordKey(tenantID, cardSerial string) string {
	return tenantID + "/" + cardSerial
}

func (s *MemoryStore) Lookup(ctx context.Context, tenantID, cardSerial string) (PassRecord, error) {
	if err := ctx.Err(); err != nil {
		return PassRecord{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[recordKey(tenantID, cardSerial)]
	if !ok {
		return PassRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Save(ctx context.Context, rec PassRecord) (PassRecord, error) {
	if err := ctx.Err(); err != nil {
		return PassRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey(rec.TenantID, rec.CardSerial)

	existing, ok := s.records[key]
	if !ok {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		rec.Version = 1
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = rec.UpdatedAt
		}
		s.records[key] = rec
		return rec, nil
	}

	existing.Version++
	existing.ManifestChecksum = rec.ManifestChecksum
	existing.UpdatedAt = rec.UpdatedAt
	s.records[key] = existing
	return existing, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
