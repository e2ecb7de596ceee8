package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"akunting/internal/amqp"
	"akunting/internal/core"
	"akunting/internal/feed"
	"akunting/internal/memory"
	"akunting/internal/ports"
	"akunting/internal/storage"

	"github.com/google/uuid"
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

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	if config.SeedClassesFile != "" {
		n, err := SeedClasses(ctx, repo, memory.ReadClassNames(config.SeedClassesFile))
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("seed classes: %w", err)
		}
		if n > 0 {
			f.logger.Info("Seeded classes", "count", n, "file", config.SeedClassesFile)
		}
	}

	result := &BackendResult{
		Store:  repo,
		Checks: map[string]HealthCheck{"database": repo.Ping},
	}

	var client *amqp.Client
	if config.AMQPURL != "" {
		client, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, changes stay in this process", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	if client != nil {
		result.Publisher = client
		result.Subscriber = client
		result.Remote = true
		result.Checks["amqp"] = func(context.Context) error { return client.Ping() }
		result.Cleanup = closeAll(client.Close, repo.Close)
	} else {
		hub := feed.NewHub(feed.DefaultBuffer)
		result.Publisher = hub
		result.Subscriber = hub
		result.Cleanup = closeAll(hub.Close, repo.Close)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", result.Remote)

	return result, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store := memory.NewFromFile(config.SeedClassesFile)
	hub := feed.NewHub(feed.DefaultBuffer)

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedClassesFile)

	return &BackendResult{
		Store:      store,
		Publisher:  hub,
		Subscriber: hub,
		Cleanup:    closeAll(hub.Close, store.Close),
	}, nil
}

// SeedClasses inserts the named classes when the store has none yet and
// returns how many were added.
func SeedClasses(ctx context.Context, store ports.ClassStore, names []string) (int, error) {
	existing, err := store.ListClasses(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	for i, name := range names {
		c := core.Class{ID: uuid.New(), Name: name, CreatedAt: now, UpdatedAt: now}
		if err := c.Validate(); err != nil {
			return i, fmt.Errorf("class %q: %w", name, err)
		}
		if err := store.InsertClass(ctx, c); err != nil {
			return i, err
		}
	}
	return len(names), nil
}

func closeAll(fns ...func() error) CleanupFunc {
	return func() error {
		var errs []error
		for _, fn := range fns {
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
