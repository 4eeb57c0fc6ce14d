package cli

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Jokerealm/ai-slides/internal/backends/sqldb"
	"github.com/Jokerealm/ai-slides/internal/config"
	"github.com/Jokerealm/ai-slides/internal/database"
	"github.com/Jokerealm/ai-slides/internal/executor"
	"github.com/Jokerealm/ai-slides/internal/lock"
	"github.com/Jokerealm/ai-slides/internal/logger"
	"github.com/Jokerealm/ai-slides/internal/notify"
	"github.com/Jokerealm/ai-slides/internal/state/gormtracker"
	"github.com/Jokerealm/ai-slides/migrations"
)

// Runtime is everything a command needs to run migrations against the configured database
type Runtime struct {
	Config   *config.Config
	DB       *gorm.DB
	Executor *executor.Executor

	locker   lock.Locker
	notifier notify.Publisher
}

// loadConfig reads the configuration and applies its logging settings
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetFormat(cfg.Log.Format)
	return cfg, nil
}

// openDatabase connects to the configured database
func openDatabase(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

// OpenRuntime connects to the database and wires the executor with its optional
// history, lock and publisher. The caller must Close it.
func OpenRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, db, err := openDatabase(configPath)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Config: cfg, DB: db}

	if err := rt.init(ctx); err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) init(ctx context.Context) error {
	if _, err := executor.NewLoader(rt.Config.Migrations.Dir).LoadAll(migrations.GlobalRegistry); err != nil {
		return err
	}

	sqlDB, err := database.SQLDB(rt.DB)
	if err != nil {
		return err
	}
	backend, err := sqldb.NewBackend(rt.Config.Database.Type, sqlDB)
	if err != nil {
		return err
	}
	rt.Executor = executor.NewExecutor(migrations.GlobalRegistry, backend)

	if rt.Config.Migrations.History {
		tracker, err := gormtracker.NewTracker(ctx, rt.DB)
		if err != nil {
			return err
		}
		rt.Executor.SetStateTracker(tracker)
	}

	rt.locker, err = lock.New(rt.Config.Lock)
	if err != nil {
		return fmt.Errorf("failed to create migration lock: %w", err)
	}
	rt.Executor.SetLocker(rt.locker)

	rt.notifier, err = notify.New(rt.Config.Notify)
	if err != nil {
		return fmt.Errorf("failed to create result publisher: %w", err)
	}
	rt.Executor.SetNotifier(rt.notifier)
	return nil
}

// Close releases the publisher, the lock client and the database handle
func (rt *Runtime) Close() error {
	if rt.notifier != nil {
		if err := rt.notifier.Close(); err != nil {
			logger.Warnf("Failed to close result publisher: %v", err)
		}
	}
	if rt.locker != nil {
		if err := rt.locker.Close(); err != nil {
			logger.Warnf("Failed to close migration lock: %v", err)
		}
	}
	return database.Close(rt.DB)
}
