package backends

import (
	"context"
	"fmt"
	"time"
)

// Direction selects which half of a migration runs.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Verb returns the word used in console output ("upgrade" / "downgrade").
func (d Direction) Verb() string {
	if d == Down {
		return "downgrade"
	}
	return "upgrade"
}

// ParseDirection accepts "up"/"upgrade" and "down"/"downgrade".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up", "upgrade":
		return Up, nil
	case "down", "downgrade":
		return Down, nil
	default:
		return "", fmt.Errorf("unknown migration direction: %q", s)
	}
}

// MigrationScript represents a migration script
type MigrationScript struct {
	Version    string // Required: version timestamp (YYYYMMDDHHMMSS)
	Name       string
	Connection string
	Backend    string
	UpSQL      string
	DownSQL    string
}

// ID returns the unique migration identifier: {connection}_{version}_{name}
func (m *MigrationScript) ID() string {
	return fmt.Sprintf("%s_%s_%s", m.Connection, m.Version, m.Name)
}

// SQL returns the script text for a direction.
func (m *MigrationScript) SQL(direction Direction) string {
	if direction == Down {
		return m.DownSQL
	}
	return m.UpSQL
}

// Backend represents a database backend that can execute migrations.
// The connection handle is injected at construction; a Backend never opens one itself.
type Backend interface {
	// Name returns the name of the backend (e.g., "sqlite", "postgresql", "mysql")
	Name() string

	// ExecuteMigration runs one direction of a migration script and reports every statement.
	// The returned error is reserved for failures that prevent execution from starting.
	ExecuteMigration(ctx context.Context, migration *MigrationScript, direction Direction) (*MigrationResult, error)

	// TableExists checks whether a table is present
	TableExists(ctx context.Context, table string) (bool, error)

	// HealthCheck verifies the backend is accessible
	HealthCheck(ctx context.Context) error
}

// Statement outcome values.
const (
	StatementSuccess    = "success"
	StatementFailed     = "failed"
	StatementSkipped    = "skipped"
	StatementRolledBack = "rolled_back" // ran, then undone with its transaction
)

// StatementResult is the outcome of a single statement.
type StatementResult struct {
	Index    int           `json:"index"`
	SQL      string        `json:"sql"`
	Step     string        `json:"step,omitempty"`     // printed on success
	OnError  string        `json:"on_error,omitempty"` // printed before the error on failure
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Code     string        `json:"code,omitempty"` // engine error code when available
	Duration time.Duration `json:"duration"`
}

// Failed reports whether the statement was attempted and failed.
func (s StatementResult) Failed() bool {
	return s.Status == StatementFailed
}

// MigrationResult represents the result of a migration execution
type MigrationResult struct {
	MigrationID string            `json:"migration_id"`
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Backend     string            `json:"backend"`
	Direction   Direction         `json:"direction"`
	Policy      string            `json:"policy"`
	Message     string            `json:"message,omitempty"` // summary printed when the run succeeds
	Statements  []StatementResult `json:"statements"`
	Success     bool              `json:"success"`
	RolledBack  bool              `json:"rolled_back"`
	Error       string            `json:"error,omitempty"` // transaction-level failure (begin/commit)
	StartedAt   time.Time         `json:"started_at"`
	Duration    time.Duration     `json:"duration"`
}

// FailedCount returns the number of statements that failed.
func (r *MigrationResult) FailedCount() int {
	n := 0
	for _, s := range r.Statements {
		if s.Failed() {
			n++
		}
	}
	return n
}

// Status summarizes the run for history records: success, failed or rolled_back.
func (r *MigrationResult) Status() string {
	switch {
	case r.Success:
		return "success"
	case r.RolledBack:
		return "rolled_back"
	default:
		return "failed"
	}
}

// FirstError returns the first statement or transaction error message.
func (r *MigrationResult) FirstError() string {
	for _, s := range r.Statements {
		if s.Failed() {
			return s.Error
		}
	}
	return r.Error
}
