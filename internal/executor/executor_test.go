package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Jokerealm/ai-slides/internal/backends"
	"github.com/Jokerealm/ai-slides/internal/lock"
	"github.com/Jokerealm/ai-slides/internal/registry"
	"github.com/Jokerealm/ai-slides/internal/state"
)

// mockBackend is a mock implementation of backends.Backend
type mockBackend struct {
	name       string
	executed   []string
	failOn     map[string]bool
	executeErr error
	healthErr  error
	mu         sync.Mutex
}

func newMockBackend(name string) *mockBackend {
	return &mockBackend{name: name, failOn: make(map[string]bool)}
}

func (m *mockBackend) Name() string { return m.name }

func (m *mockBackend) ExecuteMigration(_ context.Context, migration *backends.MigrationScript, direction backends.Direction) (*backends.MigrationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.executeErr != nil {
		return nil, m.executeErr
	}
	m.executed = append(m.executed, migration.Name+":"+string(direction))

	stmt := backends.StatementResult{Index: 0, SQL: migration.SQL(direction), Status: backends.StatementSuccess}
	success := true
	if m.failOn[migration.Name] {
		stmt.Status = backends.StatementFailed
		stmt.Error = "no such table"
		success = false
	}
	return &backends.MigrationResult{
		MigrationID: migration.ID(),
		Name:        migration.Name,
		Version:     migration.Version,
		Backend:     m.name,
		Direction:   direction,
		Statements:  []backends.StatementResult{stmt},
		Success:     success,
		StartedAt:   time.Now(),
	}, nil
}

func (m *mockBackend) TableExists(context.Context, string) (bool, error) { return false, nil }

func (m *mockBackend) HealthCheck(context.Context) error { return m.healthErr }

// mockStateTracker is a mock implementation of state.StateTracker
type mockStateTracker struct {
	records   []*state.MigrationRecord
	recordErr error
	initErr   error
}

func (m *mockStateTracker) Initialize(context.Context) error { return m.initErr }

func (m *mockStateTracker) RecordMigration(_ context.Context, record *state.MigrationRecord) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockStateTracker) GetMigrationHistory(context.Context, *state.MigrationFilters) ([]*state.MigrationRecord, error) {
	return m.records, nil
}

func (m *mockStateTracker) GetLastStatus(_ context.Context, migrationID string) (*state.MigrationRecord, error) {
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].MigrationID == migrationID {
			return m.records[i], nil
		}
	}
	return nil, nil
}

// mockLocker records the keys it hands out
type mockLocker struct {
	acquired []string
	released []string
	err      error
}

func (m *mockLocker) Acquire(_ context.Context, key string) (lock.Release, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.acquired = append(m.acquired, key)
	return func(context.Context) error {
		m.released = append(m.released, key)
		return nil
	}, nil
}

func (m *mockLocker) Close() error { return nil }

// mockNotifier collects published results
type mockNotifier struct {
	published []*backends.MigrationResult
	err       error
}

func (m *mockNotifier) Publish(_ context.Context, result *backends.MigrationResult) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, result)
	return nil
}

func (m *mockNotifier) Close() error { return nil }

func newTestRegistry(t *testing.T) registry.Registry {
	t.Helper()
	reg := registry.NewInMemoryRegistry()
	for _, m := range []*backends.MigrationScript{
		{Version: "20250610000000", Name: "remove_auth_tables", Connection: "core", Backend: "sqlite", UpSQL: "DROP TABLE IF EXISTS users;", DownSQL: "CREATE TABLE users (id INTEGER);"},
		{Version: "20250612000000", Name: "remove_speech_scripts_table", Connection: "core", Backend: "sqlite", UpSQL: "DROP TABLE IF EXISTS speech_scripts;"},
		{Version: "20250610000000", Name: "remove_auth_tables", Connection: "core", Backend: "postgresql", UpSQL: "DROP TABLE IF EXISTS users;"},
	} {
		if err := reg.Register(m); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}
	return reg
}

func TestExecutor_Execute(t *testing.T) {
	backend := newMockBackend("sqlite")
	tracker := &mockStateTracker{}
	locker := &mockLocker{}
	notifier := &mockNotifier{}

	exec := NewExecutor(newTestRegistry(t), backend)
	exec.SetStateTracker(tracker)
	exec.SetLocker(locker)
	exec.SetNotifier(notifier)

	ctx := SetExecutionContext(context.Background(), "alice", state.MethodScript, map[string]interface{}{"test": true})
	result, err := exec.Up(ctx, "remove_auth_tables")
	if err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	if !result.Success {
		t.Errorf("expected success, got %+v", result)
	}

	if len(locker.acquired) != 1 || locker.acquired[0] != "sqlite/remove_auth_tables" {
		t.Errorf("acquired locks = %v", locker.acquired)
	}
	if len(locker.released) != 1 {
		t.Errorf("expected lock to be released, got %v", locker.released)
	}
	if len(notifier.published) != 1 {
		t.Errorf("expected 1 published result, got %d", len(notifier.published))
	}

	if len(tracker.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(tracker.records))
	}
	record := tracker.records[0]
	if record.MigrationID != "core_20250610000000_remove_auth_tables" {
		t.Errorf("MigrationID = %s", record.MigrationID)
	}
	if record.ExecutedBy != "alice" || record.ExecutionMethod != state.MethodScript {
		t.Errorf("execution metadata = %s/%s", record.ExecutedBy, record.ExecutionMethod)
	}
	if record.ExecutionContext != `{"test":true}` {
		t.Errorf("ExecutionContext = %s", record.ExecutionContext)
	}
	if record.Status != "success" || record.Direction != "up" {
		t.Errorf("record = %s/%s", record.Direction, record.Status)
	}
}

func TestExecutor_ExecuteErrors(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(*mockBackend, *Executor)
		migration   string
		direction   backends.Direction
		errContains string
	}{
		{
			name:        "unknown migration",
			migration:   "missing",
			direction:   backends.Up,
			errContains: "migration not found",
		},
		{
			name:        "down without rollback SQL",
			migration:   "remove_speech_scripts_table",
			direction:   backends.Down,
			errContains: "does not have rollback SQL",
		},
		{
			name: "lock failure",
			setup: func(_ *mockBackend, e *Executor) {
				e.SetLocker(&mockLocker{err: errors.New("etcd unavailable")})
			},
			migration:   "remove_auth_tables",
			direction:   backends.Up,
			errContains: "failed to acquire migration lock",
		},
		{
			name: "backend error",
			setup: func(b *mockBackend, _ *Executor) {
				b.executeErr = errors.New("failed to parse up sql")
			},
			migration:   "remove_auth_tables",
			direction:   backends.Up,
			errContains: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newMockBackend("sqlite")
			exec := NewExecutor(newTestRegistry(t), backend)
			if tt.setup != nil {
				tt.setup(backend, exec)
			}
			_, err := exec.Execute(context.Background(), tt.migration, tt.direction)
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Execute() error = %v, want containing %q", err, tt.errContains)
			}
		})
	}
}

func TestExecutor_SideEffectFailuresDoNotFailRun(t *testing.T) {
	exec := NewExecutor(newTestRegistry(t), newMockBackend("sqlite"))
	exec.SetStateTracker(&mockStateTracker{recordErr: errors.New("disk full")})
	exec.SetNotifier(&mockNotifier{err: errors.New("broker down")})

	result, err := exec.Down(context.Background(), "remove_auth_tables")
	if err != nil {
		t.Fatalf("Down() error = %v", err)
	}
	if !result.Success {
		t.Error("expected success despite tracker and notifier failures")
	}
}

func TestExecutor_FailedStatementIsRecorded(t *testing.T) {
	backend := newMockBackend("sqlite")
	backend.failOn["remove_auth_tables"] = true
	tracker := &mockStateTracker{}

	exec := NewExecutor(newTestRegistry(t), backend)
	exec.SetStateTracker(tracker)

	result, err := exec.Up(context.Background(), "remove_auth_tables")
	if err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	if result.Success {
		t.Error("expected failure")
	}
	if len(tracker.records) != 1 || tracker.records[0].Status != "failed" || tracker.records[0].ErrorMessage != "no such table" {
		t.Errorf("records = %+v", tracker.records)
	}
}

func TestExecutor_ExecuteUp(t *testing.T) {
	backend := newMockBackend("sqlite")
	tracker := &mockStateTracker{}
	exec := NewExecutor(newTestRegistry(t), backend)
	exec.SetStateTracker(tracker)
	ctx := context.Background()

	result, err := exec.ExecuteUp(ctx, nil)
	if err != nil {
		t.Fatalf("ExecuteUp() error = %v", err)
	}
	if !result.Success || len(result.Applied) != 2 || len(result.Skipped) != 0 {
		t.Errorf("first run = %+v", result)
	}
	if len(backend.executed) != 2 || backend.executed[0] != "remove_auth_tables:up" {
		t.Errorf("executed = %v", backend.executed)
	}

	result, err = exec.ExecuteUp(ctx, &registry.MigrationTarget{Backend: "postgresql"})
	if err != nil {
		t.Fatalf("ExecuteUp() error = %v", err)
	}
	if len(result.Applied) != 0 || len(result.Skipped) != 2 {
		t.Errorf("second run = %+v", result)
	}

	// A downgrade makes the migration pending again.
	if _, err := exec.Down(ctx, "remove_auth_tables"); err != nil {
		t.Fatalf("Down() error = %v", err)
	}
	result, _ = exec.ExecuteUp(ctx, nil)
	if len(result.Applied) != 1 || result.Applied[0] != "core_20250610000000_remove_auth_tables" {
		t.Errorf("third run = %+v", result)
	}
}

func TestExecutor_ExecuteUpStopsAtFailure(t *testing.T) {
	backend := newMockBackend("sqlite")
	backend.failOn["remove_auth_tables"] = true
	exec := NewExecutor(newTestRegistry(t), backend)

	result, err := exec.ExecuteUp(context.Background(), nil)
	if err != nil {
		t.Fatalf("ExecuteUp() error = %v", err)
	}
	if result.Success {
		t.Error("expected failure")
	}
	if len(backend.executed) != 1 {
		t.Errorf("expected execution to stop after the failure, executed %v", backend.executed)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "no such table") {
		t.Errorf("Errors = %v", result.Errors)
	}
}

func TestExecutor_Migrations(t *testing.T) {
	exec := NewExecutor(newTestRegistry(t), newMockBackend("sqlite"))
	got := exec.Migrations()
	if len(got) != 2 {
		t.Fatalf("expected 2 sqlite migrations, got %d", len(got))
	}
	if got[0].Version > got[1].Version {
		t.Error("expected migrations ordered by version")
	}
}

func TestExecutor_History(t *testing.T) {
	exec := NewExecutor(newTestRegistry(t), newMockBackend("sqlite"))
	if _, err := exec.History(context.Background(), nil); err == nil {
		t.Error("expected error without a state tracker")
	}

	exec.SetStateTracker(&mockStateTracker{})
	if _, err := exec.Up(context.Background(), "remove_auth_tables"); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	history, err := exec.History(context.Background(), nil)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected 1 record, got %d", len(history))
	}
}

func TestExecutor_HealthCheck(t *testing.T) {
	backend := newMockBackend("sqlite")
	exec := NewExecutor(newTestRegistry(t), backend)
	if err := exec.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	exec.SetStateTracker(&mockStateTracker{initErr: errors.New("locked")})
	if err := exec.HealthCheck(context.Background()); err == nil {
		t.Error("expected state tracker failure")
	}

	backend.healthErr = errors.New("connection refused")
	if err := exec.HealthCheck(context.Background()); err == nil || !strings.Contains(err.Error(), "backend") {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestGetExecutionContext_Defaults(t *testing.T) {
	by, method, execCtx := GetExecutionContext(context.Background())
	if by != "system" || method != state.MethodCLI || execCtx != "" {
		t.Errorf("defaults = %s/%s/%s", by, method, execCtx)
	}
}

func TestLoader_LoadAll(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "sqlite", "core")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"20250610000000_remove_auth_tables.up.sql": "DROP TABLE IF EXISTS users;",
		"20250701000000_add_theme_column.up.sql":   "ALTER TABLE projects ADD COLUMN theme TEXT;",
		"20250701000000_add_theme_column.down.sql": "ALTER TABLE projects DROP COLUMN theme;",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	reg := newTestRegistry(t)
	n, err := NewLoader(root).LoadAll(reg)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 new migration, got %d", n)
	}

	m, err := reg.Find("add_theme_column", "sqlite")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if m.DownSQL != "ALTER TABLE projects DROP COLUMN theme;" {
		t.Errorf("DownSQL = %q", m.DownSQL)
	}

	if n, err := NewLoader(filepath.Join(root, "missing")).LoadAll(reg); err != nil || n != 0 {
		t.Errorf("missing directory: n=%d err=%v", n, err)
	}
	if n, err := NewLoader("").LoadAll(reg); err != nil || n != 0 {
		t.Errorf("empty path: n=%d err=%v", n, err)
	}
}
