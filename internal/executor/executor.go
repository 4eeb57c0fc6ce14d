package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Jokerealm/ai-slides/internal/backends"
	"github.com/Jokerealm/ai-slides/internal/lock"
	"github.com/Jokerealm/ai-slides/internal/logger"
	"github.com/Jokerealm/ai-slides/internal/notify"
	"github.com/Jokerealm/ai-slides/internal/registry"
	"github.com/Jokerealm/ai-slides/internal/state"
)

// Context keys for execution metadata
type contextKey string

const (
	executedByKey       contextKey = "executed_by"
	executionMethodKey  contextKey = "execution_method"
	executionContextKey contextKey = "execution_context"
)

// SetExecutionContext sets execution context in the context
func SetExecutionContext(ctx context.Context, executedBy, executionMethod string, executionContext map[string]interface{}) context.Context {
	ctx = context.WithValue(ctx, executedByKey, executedBy)
	ctx = context.WithValue(ctx, executionMethodKey, executionMethod)
	if executionContext != nil {
		ctxBytes, _ := json.Marshal(executionContext)
		ctx = context.WithValue(ctx, executionContextKey, string(ctxBytes))
	}
	return ctx
}

// GetExecutionContext extracts execution context from context
func GetExecutionContext(ctx context.Context) (executedBy, executionMethod, executionContext string) {
	executedBy = "system"
	executionMethod = state.MethodCLI
	executionContext = ""

	if val := ctx.Value(executedByKey); val != nil {
		if s, ok := val.(string); ok {
			executedBy = s
		}
	}
	if val := ctx.Value(executionMethodKey); val != nil {
		if s, ok := val.(string); ok {
			executionMethod = s
		}
	}
	if val := ctx.Value(executionContextKey); val != nil {
		if s, ok := val.(string); ok {
			executionContext = s
		}
	}
	return executedBy, executionMethod, executionContext
}

// Executor runs registered migrations against one backend
type Executor struct {
	registry     registry.Registry
	backend      backends.Backend
	stateTracker state.StateTracker // optional
	locker       lock.Locker
	notifier     notify.Publisher
	mu           sync.Mutex
}

// NewExecutor creates a new migration executor. History, locking and publishing are
// disabled until the matching setter is called.
func NewExecutor(reg registry.Registry, backend backends.Backend) *Executor {
	return &Executor{
		registry: reg,
		backend:  backend,
		locker:   lock.Noop{},
		notifier: notify.Noop{},
	}
}

// SetStateTracker enables history recording
func (e *Executor) SetStateTracker(tracker state.StateTracker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stateTracker = tracker
}

// SetLocker sets the lock taken around every run
func (e *Executor) SetLocker(locker lock.Locker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if locker == nil {
		locker = lock.Noop{}
	}
	e.locker = locker
}

// SetNotifier sets where results are published
func (e *Executor) SetNotifier(notifier notify.Publisher) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if notifier == nil {
		notifier = notify.Noop{}
	}
	e.notifier = notifier
}

// GetRegistry returns the migration registry
func (e *Executor) GetRegistry() registry.Registry {
	return e.registry
}

// GetBackend returns the backend migrations run on
func (e *Executor) GetBackend() backends.Backend {
	return e.backend
}

// Migrations returns the migrations available for the executor's backend, oldest first
func (e *Executor) Migrations() []*backends.MigrationScript {
	return e.registry.GetByBackend(e.backend.Name())
}

// Find returns the migration called name for the executor's backend
func (e *Executor) Find(name string) (*backends.MigrationScript, error) {
	return e.registry.Find(name, e.backend.Name())
}

// Execute runs one direction of the named migration.
//
// The returned error covers failures that kept the migration from running (unknown
// name, lock, unparsable script). Statement failures are reported in the result.
func (e *Executor) Execute(ctx context.Context, name string, direction backends.Direction) (*backends.MigrationResult, error) {
	migration, err := e.Find(name)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, migration, direction)
}

// Up runs the upgrade of the named migration
func (e *Executor) Up(ctx context.Context, name string) (*backends.MigrationResult, error) {
	return e.Execute(ctx, name, backends.Up)
}

// Down runs the downgrade of the named migration
func (e *Executor) Down(ctx context.Context, name string) (*backends.MigrationResult, error) {
	return e.Execute(ctx, name, backends.Down)
}

func (e *Executor) execute(ctx context.Context, migration *backends.MigrationScript, direction backends.Direction) (*backends.MigrationResult, error) {
	if direction == backends.Down && migration.DownSQL == "" {
		return nil, fmt.Errorf("migration %s does not have rollback SQL", migration.ID())
	}

	e.mu.Lock()
	locker, notifier, tracker := e.locker, e.notifier, e.stateTracker
	e.mu.Unlock()

	key := fmt.Sprintf("%s/%s", migration.Backend, migration.Name)
	release, err := locker.Acquire(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire migration lock %s: %w", key, err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.Warnf("Failed to release migration lock %s: %v", key, err)
		}
	}()

	logger.Debugf("Running %s of %s on %s", direction.Verb(), migration.ID(), migration.Backend)
	result, err := e.backend.ExecuteMigration(ctx, migration, direction)
	if err != nil {
		return nil, err
	}

	if tracker != nil {
		executedBy, executionMethod, executionContext := GetExecutionContext(ctx)
		record := state.NewRecord(result, migration.Connection, executedBy, executionMethod, executionContext)
		if err := tracker.RecordMigration(ctx, record); err != nil {
			logger.Warnf("Failed to record migration %s: %v", migration.ID(), err)
		}
	}

	if err := notifier.Publish(ctx, result); err != nil {
		logger.Warnf("Failed to publish result of %s: %v", migration.ID(), err)
	}

	logger.WithFields(map[string]interface{}{
		"migration": migration.ID(),
		"direction": string(direction),
		"status":    result.Status(),
		"duration":  result.Duration.String(),
	}).Info("Migration finished")
	return result, nil
}

// ExecuteResult summarizes a batch run
type ExecuteResult struct {
	Success bool
	Applied []string
	Skipped []string
	Errors  []string
	Results []*backends.MigrationResult
}

// ExecuteUp upgrades every migration matching target that is not applied yet, in
// version order, and stops at the first failure. Without a state tracker nothing is
// considered applied.
func (e *Executor) ExecuteUp(ctx context.Context, target *registry.MigrationTarget) (*ExecuteResult, error) {
	if target == nil {
		target = &registry.MigrationTarget{}
	}
	scoped := *target
	scoped.Backend = e.backend.Name()

	migrations, err := e.registry.FindByTarget(&scoped)
	if err != nil {
		return nil, fmt.Errorf("failed to find migrations: %w", err)
	}

	result := &ExecuteResult{
		Applied: []string{},
		Skipped: []string{},
		Errors:  []string{},
	}

	for _, migration := range migrations {
		applied, err := e.IsMigrationApplied(ctx, migration)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to check migration status for %s: %v", migration.ID(), err))
			break
		}
		if applied {
			result.Skipped = append(result.Skipped, migration.ID())
			continue
		}

		run, err := e.execute(ctx, migration, backends.Up)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", migration.ID(), err))
			break
		}
		result.Results = append(result.Results, run)
		if !run.Success {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", migration.ID(), run.FirstError()))
			break
		}
		result.Applied = append(result.Applied, migration.ID())
	}

	result.Success = len(result.Errors) == 0
	return result, nil
}

// IsMigrationApplied reports whether the latest recorded run of migration was a
// successful upgrade
func (e *Executor) IsMigrationApplied(ctx context.Context, migration *backends.MigrationScript) (bool, error) {
	e.mu.Lock()
	tracker := e.stateTracker
	e.mu.Unlock()
	if tracker == nil {
		return false, nil
	}

	last, err := tracker.GetLastStatus(ctx, migration.ID())
	if err != nil {
		return false, err
	}
	return last != nil && last.Direction == string(backends.Up) && last.Status == "success", nil
}

// History retrieves recorded runs, newest first
func (e *Executor) History(ctx context.Context, filters *state.MigrationFilters) ([]*state.MigrationRecord, error) {
	e.mu.Lock()
	tracker := e.stateTracker
	e.mu.Unlock()
	if tracker == nil {
		return nil, fmt.Errorf("migration history is not enabled")
	}
	return tracker.GetMigrationHistory(ctx, filters)
}

// HealthCheck performs health checks on the executor
func (e *Executor) HealthCheck(ctx context.Context) error {
	if err := e.backend.HealthCheck(ctx); err != nil {
		return fmt.Errorf("backend health check failed: %w", err)
	}

	e.mu.Lock()
	tracker := e.stateTracker
	e.mu.Unlock()
	if tracker != nil {
		if err := tracker.Initialize(ctx); err != nil {
			return fmt.Errorf("state tracker health check failed: %w", err)
		}
	}
	return nil
}
