// Package storage is the backing-store boundary for docstore. It resolves a
// (storage class, document name) pair to a concrete location and performs
// whole-blob byte reads and writes against that location.
package storage

import "context"

// Class selects the logical location family a document lives in.
type Class string

const (
	// ClassDocuments holds durable user documents.
	ClassDocuments Class = "documents"
	// ClassCache holds reclaimable cached state.
	ClassCache Class = "cache"
)

// Location is a concrete backing-store address. Callers treat it as opaque;
// only the Backend that produced the Resolver interprets it.
type Location string

// Resolver maps a storage class and document name to a concrete location.
// Resolution fails with ErrWrongLocation when the environment provides no
// location for the class.
type Resolver interface {
	Resolve(class Class, name string) (Location, error)
}

// Backend performs blocking whole-blob I/O against resolved locations.
// Implementations are stateless — they perform I/O on each call without
// caching. Writes must be atomic: a failed write never leaves a partial blob.
type Backend interface {
	// ReadAll returns the full blob stored at loc.
	ReadAll(ctx context.Context, loc Location) ([]byte, error)
	// WriteAll replaces the blob stored at loc with data.
	WriteAll(ctx context.Context, loc Location, data []byte) error
}
