package docstore

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tailored-agentic-units/docstore/storage"
)

const defaultStreamBuffer = 16

// Config holds initialization parameters for a Store. Class and Name identify
// the document; Mirror and DebounceWindow select the caching behavior.
type Config struct {
	// Class selects the logical location family ("documents" or "cache").
	Class storage.Class `json:"class,omitempty"`

	// Name is the document identifier resolved to a location within the class.
	Name string `json:"name"`

	// Mirror enables synchronous in-memory reads and writes with debounced
	// background persistence. When false every read and write goes to the
	// backing store.
	Mirror bool `json:"mirror,omitempty"`

	// DebounceWindow is the trailing-edge coalescing delay before a mirrored
	// write is flushed. Zero flushes as soon as the worker can run.
	DebounceWindow time.Duration `json:"debounce_window,omitempty"`

	// StreamBuffer is the per-subscriber event channel capacity. Snapshots
	// published to a full subscriber are dropped, never blocking the writer.
	StreamBuffer int `json:"stream_buffer,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults: durable documents
// class, no mirror, immediate flushes.
func DefaultConfig() Config {
	return Config{
		Class:        storage.ClassDocuments,
		StreamBuffer: defaultStreamBuffer,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Class != "" {
		c.Class = source.Class
	}
	if source.Name != "" {
		c.Name = source.Name
	}
	if source.Mirror {
		c.Mirror = true
	}
	if source.DebounceWindow > 0 {
		c.DebounceWindow = source.DebounceWindow
	}
	if source.StreamBuffer > 0 {
		c.StreamBuffer = source.StreamBuffer
	}
}

// LoadConfig reads a JSON config file, merges it with defaults, and returns
// the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
