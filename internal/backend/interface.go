package backend

import (
	"context"

	"budget/internal/amqp"
	"budget/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds the store selected by configuration and the optional change
// event client.
type Result struct {
	Store storage.Store

	// Events is nil when AMQP is not configured or unreachable.
	Events *amqp.Client

	// Ready reports whether the store is usable; nil means always ready.
	Ready func(ctx context.Context) error

	// Cleanup closes the event client and the store.
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// File specific
	DataFile string

	// SQLite specific
	SQLiteDBPath string

	// Change events, optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	FileBackend   BackendType = "file"
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
	case FileBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
