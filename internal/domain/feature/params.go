package feature

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultConfigureURL is the external tool features are configured in.
const DefaultConfigureURL = "https://hostquestions.streamlit.app"

// UnspecifiedEventID is used when the request carries no usable event id.
const UnspecifiedEventID int64 = 0

// ParseEventID converts a raw query value to an event id. Absent,
// non-numeric and negative values resolve to UnspecifiedEventID.
func ParseEventID(raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 0 {
		return UnspecifiedEventID
	}
	return id
}

// ConfigureURL builds the link to the external configuration tool for one
// feature of one event.
func ConfigureURL(base string, eventID int64, key string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q must be an absolute http(s) url", ErrInvalidURL, base)
	}
	q := u.Query()
	q.Set("event_id", strconv.FormatInt(eventID, 10))
	q.Set("feature", key)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
