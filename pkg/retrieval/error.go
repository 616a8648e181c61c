package retrieval

import "errors"

var (
	// ErrInvalidArgument is returned for malformed request parameters,
	// before any embedding or index work is attempted.
	ErrInvalidArgument = errors.New("invalid argument")
)
