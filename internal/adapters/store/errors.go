package store

import "errors"

// Sentinel kinds for store errors.
var (
	// ErrRemoteFetch wraps every failure to read the remote feature table.
	ErrRemoteFetch    = errors.New("remote feature fetch failed")
	ErrInvalidEventID = errors.New("invalid event id")
	ErrUnknownDriver  = errors.New("unknown store driver")
)
