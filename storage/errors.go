package storage

import "errors"

// Sentinel errors for resolution and backing-store I/O.
var (
	ErrWrongLocation = errors.New("no location for storage class")
	ErrIO            = errors.New("backing store i/o failed")
	ErrNotFound      = errors.New("blob not found")
)
