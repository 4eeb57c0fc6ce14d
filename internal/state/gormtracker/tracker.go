// Package gormtracker stores migration history in the application database through the ORM.
package gormtracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Jokerealm/ai-slides/internal/state"
)

const historyTable = "migrations_history"

type historyRow struct {
	ID               uint      `gorm:"primaryKey"`
	MigrationID      string    `gorm:"size:255;not null;index:idx_migrations_history_migration_id"`
	Name             string    `gorm:"size:255;not null"`
	Version          string    `gorm:"size:50;not null"`
	Connection       string    `gorm:"size:255;not null"`
	Backend          string    `gorm:"size:50;not null"`
	Direction        string    `gorm:"size:10;not null"`
	Status           string    `gorm:"size:20;not null;index:idx_migrations_history_status"`
	ErrorMessage     string    `gorm:"type:text"`
	Statements       int       `gorm:"not null;default:0"`
	FailedStatements int       `gorm:"not null;default:0"`
	DurationMs       int64     `gorm:"not null;default:0"`
	ExecutedBy       string    `gorm:"size:255"`
	ExecutionMethod  string    `gorm:"size:20;not null"`
	ExecutionContext string    `gorm:"type:text"`
	AppliedAt        time.Time `gorm:"not null;index:idx_migrations_history_applied_at"`
}

func (historyRow) TableName() string {
	return historyTable
}

// Tracker implements state.StateTracker on a gorm handle
type Tracker struct {
	db *gorm.DB
}

// NewTracker creates a tracker and makes sure its table exists
func NewTracker(ctx context.Context, db *gorm.DB) (*Tracker, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	tracker := &Tracker{db: db}
	if err := tracker.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize tracker: %w", err)
	}
	return tracker, nil
}

// Initialize creates the migrations_history table
func (t *Tracker) Initialize(ctx context.Context) error {
	if err := t.db.WithContext(ctx).AutoMigrate(&historyRow{}); err != nil {
		return fmt.Errorf("failed to create %s table: %w", historyTable, err)
	}
	return nil
}

// RecordMigration records a migration execution
func (t *Tracker) RecordMigration(ctx context.Context, record *state.MigrationRecord) error {
	row := toRow(record)
	if err := t.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to insert into %s: %w", historyTable, err)
	}
	record.ID = row.ID
	return nil
}

// GetMigrationHistory retrieves migration history with optional filters, newest first
func (t *Tracker) GetMigrationHistory(ctx context.Context, filters *state.MigrationFilters) ([]*state.MigrationRecord, error) {
	query := t.db.WithContext(ctx).Model(&historyRow{})

	if filters != nil {
		if filters.MigrationID != "" {
			query = query.Where("migration_id = ?", filters.MigrationID)
		}
		if filters.Name != "" {
			query = query.Where("name = ?", filters.Name)
		}
		if filters.Connection != "" {
			query = query.Where("connection = ?", filters.Connection)
		}
		if filters.Backend != "" {
			query = query.Where("backend = ?", filters.Backend)
		}
		if filters.Direction != "" {
			query = query.Where("direction = ?", filters.Direction)
		}
		if filters.Status != "" {
			query = query.Where("status = ?", filters.Status)
		}
		if filters.Limit > 0 {
			query = query.Limit(filters.Limit)
		}
	}

	var rows []historyRow
	if err := query.Order("applied_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}

	records := make([]*state.MigrationRecord, 0, len(rows))
	for i := range rows {
		records = append(records, fromRow(&rows[i]))
	}
	return records, nil
}

// GetLastStatus returns the most recent record of a migration, or nil when it never ran
func (t *Tracker) GetLastStatus(ctx context.Context, migrationID string) (*state.MigrationRecord, error) {
	var row historyRow
	err := t.db.WithContext(ctx).
		Where("migration_id = ?", migrationID).
		Order("applied_at DESC").Order("id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last status of %s: %w", migrationID, err)
	}
	return fromRow(&row), nil
}

func toRow(r *state.MigrationRecord) *historyRow {
	appliedAt := r.AppliedAt
	if appliedAt.IsZero() {
		appliedAt = time.Now()
	}
	method := r.ExecutionMethod
	if method == "" {
		method = state.MethodCLI
	}
	executedBy := r.ExecutedBy
	if executedBy == "" {
		executedBy = "system"
	}
	return &historyRow{
		MigrationID:      r.MigrationID,
		Name:             r.Name,
		Version:          r.Version,
		Connection:       r.Connection,
		Backend:          r.Backend,
		Direction:        r.Direction,
		Status:           r.Status,
		ErrorMessage:     r.ErrorMessage,
		Statements:       r.Statements,
		FailedStatements: r.FailedStatements,
		DurationMs:       r.Duration.Milliseconds(),
		ExecutedBy:       executedBy,
		ExecutionMethod:  method,
		ExecutionContext: r.ExecutionContext,
		AppliedAt:        appliedAt.UTC(),
	}
}

func fromRow(row *historyRow) *state.MigrationRecord {
	return &state.MigrationRecord{
		ID:               row.ID,
		MigrationID:      row.MigrationID,
		Name:             row.Name,
		Version:          row.Version,
		Connection:       row.Connection,
		Backend:          row.Backend,
		Direction:        row.Direction,
		Status:           row.Status,
		ErrorMessage:     row.ErrorMessage,
		Statements:       row.Statements,
		FailedStatements: row.FailedStatements,
		Duration:         time.Duration(row.DurationMs) * time.Millisecond,
		ExecutedBy:       row.ExecutedBy,
		ExecutionMethod:  row.ExecutionMethod,
		ExecutionContext: row.ExecutionContext,
		AppliedAt:        row.AppliedAt,
	}
}
