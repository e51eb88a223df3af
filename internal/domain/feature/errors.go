package feature

import "errors"

// Sentinel kinds for feature errors.
var (
	ErrInvalidCatalog = errors.New("invalid feature catalog")
	ErrUnknownFeature = errors.New("unknown feature")
	ErrInvalidURL     = errors.New("invalid configure url")
)
