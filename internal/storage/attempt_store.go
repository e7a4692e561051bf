package storage

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/thanhnp/proof-of-reserves/internal/models"
)

// AttemptStore persists one audit record per verification request,
// keyed for reverse-chronological scans.
type AttemptStore struct {
	db *PebbleDB
}

// NewAttemptStore creates a new AttemptStore
func NewAttemptStore(db *PebbleDB) *AttemptStore {
	return &AttemptStore{db: db}
}

// attemptKey orders records newest-first: keys ascend as timestamps
// descend.
func attemptKey(unixNano int64) []byte {
	return []byte(fmt.Sprintf("%020d", math.MaxInt64-unixNano))
}

// Save appends one attempt record
func (s *AttemptStore) Save(attempt *models.Attempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to marshal attempt: %w", err)
	}
	return s.db.Put(CFAttempts, attemptKey(attempt.Timestamp.UnixNano()), data)
}

// Recent returns up to limit attempts, newest first
func (s *AttemptStore) Recent(limit int) ([]*models.Attempt, error) {
	iter, err := s.db.NewPrefixIterator(CFAttempts, nil)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var attempts []*models.Attempt
	for ; iter.Valid() && len(attempts) < limit; iter.Next() {
		var attempt models.Attempt
		if err := json.Unmarshal(iter.Value(), &attempt); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attempt: %w", err)
		}
		attempts = append(attempts, &attempt)
	}
	return attempts, nil
}
