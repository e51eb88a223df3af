// Package store reads per-event feature enablement rows from the remote
// feature table.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/evfeat/internal/domain/feature"
	"github.com/okian/evfeat/pkg/logger"
	"github.com/okian/evfeat/pkg/metrics"
)

// Supported drivers.
const (
	DriverAirtable = "airtable"
	DriverMemory   = "memory"
)

// Store provides read access to the remote feature table.
type Store interface {
	// FetchFeatures returns the rows of eventID keyed by feature key.
	// The returned map is never nil; on failure it is empty and the error
	// wraps ErrRemoteFetch.
	FetchFeatures(ctx context.Context, eventID int64) (map[string]feature.RemoteFeature, error)

	// Driver names the backing implementation.
	Driver() string
}

// collect folds records into the fetch mapping. Rows without a feature key
// are skipped; when a key repeats, the later row wins.
func collect(ctx context.Context, log logger.Logger, eventID int64, records []feature.Record) map[string]feature.RemoteFeature {
	out := make(map[string]feature.RemoteFeature, len(records))
	for _, r := range records {
		if r.FeatureKey == "" {
			continue
		}
		if prev, dup := out[r.FeatureKey]; dup && log != nil {
			log.Warn(ctx, "duplicate feature row; keeping the later one",
				logger.Int64("event_id", eventID),
				logger.String("feature_key", r.FeatureKey),
				logger.String("dropped_record", prev.RecordID),
				logger.String("kept_record", r.RecordID))
		}
		out[r.FeatureKey] = feature.RemoteFeature{RecordID: r.RecordID, Enabled: r.Enabled}
	}
	return out
}

func validateEventID(eventID int64) error {
	if eventID < 0 {
		return fmt.Errorf("%w: %w: %d", ErrRemoteFetch, ErrInvalidEventID, eventID)
	}
	return nil
}

// observe records fetch metrics.
func observe(driver string, start time.Time, n int, err error) {
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.RecordStoreFetch(driver, outcome, float64(time.Since(start).Microseconds())/1000, n)
}
