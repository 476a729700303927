package docstore

import "errors"

// Sentinel errors for store operations.
var (
	ErrClosed      = errors.New("store closed")
	ErrNotMirrored = errors.New("store is not mirrored")
)
