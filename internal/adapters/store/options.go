package store

import (
	"net/http"
	"strings"
	"time"

	"github.com/okian/evfeat/internal/domain/feature"
	"github.com/okian/evfeat/pkg/logger"
)

// AirtableOption configures an AirtableStore.
type AirtableOption func(*AirtableStore)

// WithBaseURL overrides the API root, e.g. for a proxy or a test server.
func WithBaseURL(baseURL string) AirtableOption {
	return func(s *AirtableStore) {
		if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
			s.baseURL = baseURL
		}
	}
}

// WithTable sets the table name.
func WithTable(table string) AirtableOption {
	return func(s *AirtableStore) {
		if table != "" {
			s.table = table
		}
	}
}

// WithTimeout bounds every request. Zero disables the timeout.
func WithTimeout(timeout time.Duration) AirtableOption {
	return func(s *AirtableStore) {
		if timeout >= 0 {
			s.timeout = timeout
		}
	}
}

// WithPageSize sets the number of rows requested per page (1..100).
func WithPageSize(size int) AirtableOption {
	return func(s *AirtableStore) {
		if size > 0 && size <= maxPageSize {
			s.pageSize = size
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) AirtableOption {
	return func(s *AirtableStore) {
		if c != nil {
			s.client = c
		}
	}
}

// WithAirtableLogger sets the logger.
func WithAirtableLogger(l logger.Logger) AirtableOption {
	return func(s *AirtableStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithRecords seeds the store.
func WithRecords(records ...feature.Record) MemoryOption {
	return func(s *MemoryStore) {
		s.records = append(s.records, records...)
	}
}

// WithFailure makes every fetch fail with err.
func WithFailure(err error) MemoryOption {
	return func(s *MemoryStore) {
		s.failure = err
	}
}

// WithMemoryLogger sets the logger.
func WithMemoryLogger(l logger.Logger) MemoryOption {
	return func(s *MemoryStore) {
		if l != nil {
			s.logger = l
		}
	}
}
