package proof

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Store errors.
var (
	// ErrNotFound is returned when no record exists for a proof id.
	ErrNotFound = errors.New("proof not found")

	// ErrDuplicate is returned when a record with the same proof id was
	// already stored. Proof ids are random per creation, so hitting this
	// outside of a replayed save indicates a bug.
	ErrDuplicate = errors.New("proof already stored")
)

// Store persists full records keyed by proof id. Saved records are
// immutable: there is no update or delete operation.
type Store interface {
	Save(ctx context.Context, record *Record) error
	GetByID(ctx context.Context, proofID string) (*Record, error)
}

// ============================================================================
// In-Memory Store (for development/testing)
// ============================================================================

// MemoryStore keeps records in memory. It backs local development when no
// database is configured, and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
	}
}

// Save stores a copy of the record keyed by its proof id.
func (s *MemoryStore) Save(_ context.Context, record *Record) error {
	if err := record.checkStructure(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.ProofID]; ok {
		return fmt.Errorf("saving proof %s: %w", record.ProofID, ErrDuplicate)
	}
	s.records[record.ProofID] = record.Clone()
	return nil
}

// GetByID returns a copy of the stored record, or ErrNotFound.
func (s *MemoryStore) GetByID(_ context.Context, proofID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[proofID]
	if !ok {
		return nil, ErrNotFound
	}
	return record.Clone(), nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
