package storage

import (
	"fmt"
	"path/filepath"
)

// Config holds the root directory for each storage class. An empty root
// disables the class: resolution against it fails with ErrWrongLocation.
type Config struct {
	DocumentsRoot string `json:"documents_root,omitempty"`
	CacheRoot     string `json:"cache_root,omitempty"`
}

// DefaultConfig returns the default storage configuration (no classes
// available until roots are set).
func DefaultConfig() Config {
	return Config{}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.DocumentsRoot != "" {
		c.DocumentsRoot = source.DocumentsRoot
	}
	if source.CacheRoot != "" {
		c.CacheRoot = source.CacheRoot
	}
}

// NewResolver creates a Resolver that maps each class to a file path under
// that class's configured root.
func NewResolver(cfg *Config) Resolver {
	return &pathResolver{
		roots: map[Class]string{
			ClassDocuments: cfg.DocumentsRoot,
			ClassCache:     cfg.CacheRoot,
		},
	}
}

type pathResolver struct {
	roots map[Class]string
}

func (r *pathResolver) Resolve(class Class, name string) (Location, error) {
	root, ok := r.roots[class]
	if !ok || root == "" {
		return "", fmt.Errorf("%w: %s", ErrWrongLocation, class)
	}
	if name == "" {
		return "", fmt.Errorf("%w: empty document name", ErrWrongLocation)
	}
	return Location(filepath.Join(root, filepath.FromSlash(name))), nil
}
