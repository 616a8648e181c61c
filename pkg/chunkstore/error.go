package chunkstore

import "errors"

// ErrIO is returned when the backing storage cannot be read or written.
// Callers own any retry policy; the store never retries internally.
var ErrIO = errors.New("chunk store I/O failure")
