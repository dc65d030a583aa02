package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/amqp"
	"budget/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend opens the configured store and, when an AMQP URL is set, the
// change event client. An unreachable broker is logged and skipped.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	switch config.Type {
	case FileBackend:
		res, err = f.createFileBackend(config)
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case MemoryBackend:
		res = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events", "error", err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			res.Events = client
		}
	}

	res.Cleanup = closeAll(res.Events, res.Store)
	return res, nil
}

func (f *DefaultFactory) createFileBackend(config Config) (*Result, error) {
	store, err := storage.NewFileStore(config.DataFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}
	f.logger.Info("Initialized file backend", "path", store.Path())
	return &Result{Store: store}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath, "schema_version", store.SchemaVersion())
	return &Result{Store: store, Ready: store.Ping}, nil
}

func (f *DefaultFactory) createMemoryBackend() *Result {
	f.logger.Warn("Initialized memory backend, changes are lost on exit")
	return &Result{Store: storage.NewMemoryStore()}
}

func closeAll(events *amqp.Client, store storage.Store) CleanupFunc {
	return func() error {
		var errs []error
		if events != nil {
			if err := events.Close(); err != nil {
				errs = append(errs, fmt.Errorf("amqp: %w", err))
			}
		}
		if store != nil {
			if err := store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("storage: %w", err))
			}
		}
		return errors.Join(errs...)
	}
}
