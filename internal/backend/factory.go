package backend

import (
	"context"
	"fmt"

	"gestor/internal/amqp"
	"gestor/internal/kafka"
	"gestor/internal/log"
	gsheet "gestor/internal/sheets/google"
	"gestor/internal/sheets/memory"
	"gestor/internal/storage"
	"gestor/internal/store"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(ctx, config)
	case SheetsBackend:
		result, err = f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		result, err = f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	notifier, closeNotifiers := f.createNotifiers(ctx, config)
	result.Notifier = notifier
	result.Cleanup = chain(result.Cleanup, closeNotifiers)
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Backend: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	client, err := gsheet.New(ctx, config.GoogleSpreadsheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)
	return &BackendResult{Backend: client, Cleanup: func() error { return nil }}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	var st *memory.Store
	if config.DataDirectory != "" {
		st = memory.NewFromFiles(config.DataDirectory)
	} else {
		st = memory.New()
	}
	f.logger.InfoContext(ctx, "Initialized memory backend", "seed_dir", config.DataDirectory)
	return &BackendResult{Backend: st, Cleanup: func() error { return nil }}, nil
}

// createNotifiers connects the configured brokers. A broker that cannot be
// reached is skipped with a warning; snapshots are still written.
func (f *DefaultFactory) createNotifiers(ctx context.Context, config Config) (store.CommitNotifier, CleanupFunc) {
	var (
		notifiers store.Notifiers
		closers   []CleanupFunc
	)

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without it", log.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
			notifiers = append(notifiers, client)
			closers = append(closers, client.Close)
		}
	}
	if len(config.KafkaBrokers) > 0 {
		pub := kafka.NewPublisher(config.KafkaBrokers, config.KafkaTopic)
		f.logger.InfoContext(ctx, "Initialized Kafka publisher", "brokers", config.KafkaBrokers, "topic", config.KafkaTopic)
		notifiers = append(notifiers, pub)
		closers = append(closers, pub.Close)
	}

	switch len(notifiers) {
	case 0:
		return nil, nil
	case 1:
		return notifiers[0], chain(closers...)
	default:
		return notifiers, chain(closers...)
	}
}

// chain runs every non-nil cleanup and returns the first error.
func chain(fns ...CleanupFunc) CleanupFunc {
	return func() error {
		var first error
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if err := fn(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
}
