package answer

import "errors"

var (
	// ErrGeneration is returned when the model backend cannot produce an answer.
	ErrGeneration = errors.New("answer generation failure")
)
