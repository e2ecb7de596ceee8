package backend

import (
	"context"

	"akunting/internal/feed"
	"akunting/internal/ports"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// BackendResult bundles the store with the change feed that goes with it.
type BackendResult struct {
	Store      ports.Store
	Publisher  feed.Publisher
	Subscriber feed.Subscriber
	// Remote is true when events cross process boundaries (AMQP).
	Remote  bool
	Cleanup CleanupFunc
	// Checks are probed by the readiness endpoint, keyed by dependency.
	Checks map[string]HealthCheck
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Class names seeded into an empty store
	SeedClassesFile string

	// Change feed; an empty URL selects the in-process hub. An empty
	// queue gives every subscriber its own exclusive queue.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
