package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/evfeat/internal/domain/feature"
	"github.com/okian/evfeat/pkg/logger"
)

// Airtable defaults.
const (
	DefaultAirtableURL = "https://api.airtable.com"
	DefaultTable       = "event_features"
	defaultTimeout     = 10 * time.Second
	defaultPageSize    = 100
	maxPageSize        = 100
	maxPages           = 100
	maxErrorBody       = 4 << 10
)

// Field names of the remote table.
const (
	fieldEventID    = "event_id"
	fieldFeatureKey = "feature_key"
	fieldEnabled    = "enabled"
)

// AirtableStore reads feature rows through the Airtable REST API.
// It is safe for concurrent use.
type AirtableStore struct {
	client   *http.Client
	baseURL  string
	baseID   string
	apiKey   string
	table    string
	pageSize int
	timeout  time.Duration
	logger   logger.Logger
}

// NewAirtableStore creates a store for the given base and personal access token.
func NewAirtableStore(baseID, apiKey string, opts ...AirtableOption) *AirtableStore {
	s := &AirtableStore{
		client:   &http.Client{},
		baseURL:  DefaultAirtableURL,
		baseID:   baseID,
		apiKey:   apiKey,
		table:    DefaultTable,
		pageSize: defaultPageSize,
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Driver implements Store.
func (s *AirtableStore) Driver() string { return DriverAirtable }

type listResponse struct {
	Records []struct {
		ID     string `json:"id"`
		Fields struct {
			FeatureKey string          `json:"feature_key"`
			Enabled    json.RawMessage `json:"enabled"`
		} `json:"fields"`
	} `json:"records"`
	Offset string `json:"offset"`
}

// FetchFeatures implements Store. It follows pagination until the table
// reports no further offset.
func (s *AirtableStore) FetchFeatures(ctx context.Context, eventID int64) (features map[string]feature.RemoteFeature, err error) {
	start := time.Now()
	var records []feature.Record
	defer func() {
		if err != nil {
			features = map[string]feature.RemoteFeature{}
		}
		observe(DriverAirtable, start, len(records), err)
	}()

	if err := validateEventID(eventID); err != nil {
		return nil, err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	offset := ""
	for page := 0; ; page++ {
		if page == maxPages {
			return nil, fmt.Errorf("%w: more than %d pages for event %d", ErrRemoteFetch, maxPages, eventID)
		}
		resp, err := s.list(ctx, eventID, offset)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRemoteFetch, err)
		}
		for _, r := range resp.Records {
			records = append(records, feature.Record{
				RecordID:   r.ID,
				EventID:    eventID,
				FeatureKey: r.Fields.FeatureKey,
				Enabled:    truthy(r.Fields.Enabled),
			})
		}
		if resp.Offset == "" {
			break
		}
		offset = resp.Offset
	}

	return collect(ctx, s.logger, eventID, records), nil
}

// list requests one page of rows matching eventID.
func (s *AirtableStore) list(ctx context.Context, eventID int64, offset string) (*listResponse, error) {
	q := url.Values{}
	q.Set("filterByFormula", Formula(eventID))
	q.Set("pageSize", strconv.Itoa(s.pageSize))
	q.Add("fields[]", fieldFeatureKey)
	q.Add("fields[]", fieldEnabled)
	if offset != "" {
		q.Set("offset", offset)
	}
	endpoint := fmt.Sprintf("%s/v0/%s/%s?%s", s.baseURL, url.PathEscape(s.baseID), url.PathEscape(s.table), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, describeError(body))
	}

	var out listResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// truthy reads a cell leniently. Checkbox cells are booleans, but a number,
// text or formula field may sit in the enabled column: non-zero numbers and
// non-empty values count as enabled, anything else does not.
func truthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return false
	}
}

// Formula returns the filter matching rows of one event.
func Formula(eventID int64) string {
	return fmt.Sprintf("{%s} = %d", fieldEventID, eventID)
}

// describeError extracts the message of an Airtable error body. The API
// sends either {"error": "CODE"} or {"error": {"type": ..., "message": ...}}.
func describeError(body []byte) string {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Error) == 0 {
		return string(body)
	}
	var code string
	if err := json.Unmarshal(env.Error, &code); err == nil {
		return code
	}
	var detail struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(env.Error, &detail); err == nil && detail.Type != "" {
		if detail.Message == "" {
			return detail.Type
		}
		return detail.Type + ": " + detail.Message
	}
	return string(env.Error)
}
