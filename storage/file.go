package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

type fileBackend struct{}

// NewFileBackend creates a Backend that treats locations as filesystem paths.
// Writes go through a temp file and rename so a crash or I/O failure never
// leaves a truncated blob at the location.
func NewFileBackend() Backend {
	return fileBackend{}
}

func (fileBackend) ReadAll(_ context.Context, loc Location) ([]byte, error) {
	data, err := os.ReadFile(string(loc))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrIO, loc, err)
	}
	return data, nil
}

func (fileBackend) WriteAll(_ context.Context, loc Location, data []byte) error {
	path := string(loc)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIO, loc, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIO, loc, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrIO, loc, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrIO, loc, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrIO, loc, err)
	}

	return nil
}
