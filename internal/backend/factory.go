package backend

import (
	"context"
	"fmt"

	"budgetdash/internal/amqp"
	"budgetdash/internal/log"
	"budgetdash/internal/records"
	"budgetdash/internal/records/memory"
	"budgetdash/internal/reference"
	"budgetdash/internal/services"
	"budgetdash/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend opens the store, seeds it when asked and wires the record
// and allocation services. AMQP is optional: a broker that cannot be reached
// at startup only disables change events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config, catalog *reference.Catalog) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if catalog == nil {
		catalog = reference.Default()
	}

	store, err := f.openStore(config)
	if err != nil {
		return nil, err
	}

	if config.SeedDemoData {
		created, err := records.Seed(ctx, store)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
		f.logger.InfoContext(ctx, "Seeded demo data", log.FieldCount, created)
	}

	var publisher services.Publisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events",
				log.FieldError, err)
		} else {
			publisher = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	recordService := services.NewRecordService(store, catalog, publisher, f.logger)
	b := &Backend{
		Store:      store,
		Records:    recordService,
		Allocation: services.NewAllocationService(store, catalog, f.logger),
		Publishing: publisher != nil,
	}

	f.logger.InfoContext(ctx, "Initialized backend",
		"type", config.Type,
		"amqp_enabled", b.Publishing,
		"departments", len(catalog.Departments()),
		"categories", len(catalog.Categories()))

	return &BackendResult{
		Backend: b,
		Cleanup: recordService.Close,
	}, nil
}

func (f *DefaultFactory) openStore(config Config) (records.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Opened SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case MemoryBackend:
		f.logger.Info("Using in-memory store; records are lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
