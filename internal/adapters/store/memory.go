package store

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/evfeat/internal/domain/feature"
	"github.com/okian/evfeat/pkg/logger"
)

// MemoryStore serves feature rows from memory. It backs local runs without
// remote credentials and tests. Rows are fixed at construction, so reads need
// no locking.
type MemoryStore struct {
	records []feature.Record
	failure error
	logger  logger.Logger
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Driver implements Store.
func (s *MemoryStore) Driver() string { return DriverMemory }

// FetchFeatures implements Store.
func (s *MemoryStore) FetchFeatures(ctx context.Context, eventID int64) (map[string]feature.RemoteFeature, error) {
	start := time.Now()
	empty := map[string]feature.RemoteFeature{}

	if err := validateEventID(eventID); err != nil {
		observe(DriverMemory, start, 0, err)
		return empty, err
	}
	if err := ctx.Err(); err != nil {
		err = fmt.Errorf("%w: %w", ErrRemoteFetch, err)
		observe(DriverMemory, start, 0, err)
		return empty, err
	}
	if s.failure != nil {
		err := fmt.Errorf("%w: %w", ErrRemoteFetch, s.failure)
		observe(DriverMemory, start, 0, err)
		return empty, err
	}

	var matched []feature.Record
	for _, r := range s.records {
		if r.EventID == eventID {
			matched = append(matched, r)
		}
	}
	observe(DriverMemory, start, len(matched), nil)
	return collect(ctx, s.logger, eventID, matched), nil
}
