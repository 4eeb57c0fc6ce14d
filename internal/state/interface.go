package state

import (
	"context"
	"time"

	"github.com/Jokerealm/ai-slides/internal/backends"
)

// Execution methods.
const (
	MethodCLI    = "cli"
	MethodScript = "script"
)

// MigrationRecord represents a migration execution record in state tracking
type MigrationRecord struct {
	ID               uint
	MigrationID      string // {connection}_{version}_{name}
	Name             string
	Version          string
	Connection       string
	Backend          string
	Direction        string // "up", "down"
	Status           string // "success", "failed", "rolled_back"
	ErrorMessage     string
	Statements       int
	FailedStatements int
	Duration         time.Duration
	ExecutedBy       string
	ExecutionMethod  string // "cli", "script"
	ExecutionContext string // JSON with additional context
	AppliedAt        time.Time
}

// MigrationFilters specifies filters for querying migration history. Zero values match everything.
type MigrationFilters struct {
	MigrationID string
	Name        string
	Connection  string
	Backend     string
	Direction   string
	Status      string
	Limit       int
}

// StateTracker manages migration state tracking
type StateTracker interface {
	// Initialize sets up the state tracking tables
	Initialize(ctx context.Context) error

	// RecordMigration records a migration execution
	RecordMigration(ctx context.Context, record *MigrationRecord) error

	// GetMigrationHistory retrieves migration history, newest first
	GetMigrationHistory(ctx context.Context, filters *MigrationFilters) ([]*MigrationRecord, error)

	// GetLastStatus returns the latest record of a migration, or nil when it never ran
	GetLastStatus(ctx context.Context, migrationID string) (*MigrationRecord, error)
}

// NewRecord builds the history record of a migration run.
func NewRecord(result *backends.MigrationResult, connection, executedBy, executionMethod, executionContext string) *MigrationRecord {
	return &MigrationRecord{
		MigrationID:      result.MigrationID,
		Name:             result.Name,
		Version:          result.Version,
		Connection:       connection,
		Backend:          result.Backend,
		Direction:        string(result.Direction),
		Status:           result.Status(),
		ErrorMessage:     result.FirstError(),
		Statements:       len(result.Statements),
		FailedStatements: result.FailedCount(),
		Duration:         result.Duration,
		ExecutedBy:       executedBy,
		ExecutionMethod:  executionMethod,
		ExecutionContext: executionContext,
		AppliedAt:        result.StartedAt,
	}
}
