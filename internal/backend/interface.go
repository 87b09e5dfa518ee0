package backend

import (
	"context"

	"budgetdash/internal/records"
	"budgetdash/internal/reference"
	"budgetdash/internal/services"
)

// Backend bundles the record store with the services built on top of it.
type Backend struct {
	Store      records.Store
	Records    *services.RecordService
	Allocation *services.AllocationService
	// Publishing reports whether change events reach a broker.
	Publishing bool
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config, catalog *reference.Catalog) (*BackendResult, error)
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks the store when it supports it; memory stores are always ready.
func (b *Backend) Ping(ctx context.Context) error {
	if p, ok := b.Store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// SeedDemoData inserts the demo records missing from the store.
	SeedDemoData bool

	// Change events; empty URL disables publishing
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
