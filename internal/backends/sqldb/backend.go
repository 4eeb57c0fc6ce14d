package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Jokerealm/ai-slides/internal/backends"
	"github.com/Jokerealm/ai-slides/internal/logger"
	"github.com/Jokerealm/ai-slides/internal/sqlscript"
)

type dialect struct {
	name             string
	transactionalDDL bool
	tableExistsSQL   string
}

var dialects = map[string]dialect{
	"sqlite": {
		name:             "sqlite",
		transactionalDDL: true,
		tableExistsSQL:   `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
	},
	"postgresql": {
		name:             "postgresql",
		transactionalDDL: true,
		tableExistsSQL: `SELECT count(*) FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1`,
	},
	// MySQL commits implicitly around DDL, so statements run outside a transaction.
	"mysql": {
		name:             "mysql",
		transactionalDDL: false,
		tableExistsSQL: `SELECT count(*) FROM information_schema.tables
			WHERE table_schema = DATABASE() AND table_name = ?`,
	},
}

// Backend implements backends.Backend on top of database/sql.
type Backend struct {
	db      *sql.DB
	dialect dialect
}

// NewBackend wraps an already opened database handle.
func NewBackend(name string, db *sql.DB) (*Backend, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	d, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("unsupported backend: %s (supported: sqlite, postgresql, mysql)", name)
	}
	return &Backend{db: db, dialect: d}, nil
}

// Name returns the backend name
func (b *Backend) Name() string {
	return b.dialect.name
}

// TableExists checks if a table exists in the current schema/database
func (b *Backend) TableExists(ctx context.Context, table string) (bool, error) {
	var count int
	if err := b.db.QueryRowContext(ctx, b.dialect.tableExistsSQL, table).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}
	return count > 0, nil
}

// HealthCheck verifies the backend is accessible
func (b *Backend) HealthCheck(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// DefaultPolicy is used when a script does not declare one: upgrades isolate failures,
// downgrades stop at the first one.
func DefaultPolicy(direction backends.Direction) sqlscript.Policy {
	if direction == backends.Down {
		return sqlscript.Stop
	}
	return sqlscript.Continue
}

// ExecuteMigration executes one direction of a migration script on a single connection.
func (b *Backend) ExecuteMigration(ctx context.Context, migration *backends.MigrationScript, direction backends.Direction) (*backends.MigrationResult, error) {
	script, err := sqlscript.Parse(migration.SQL(direction))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s sql for %s: %w", direction, migration.ID(), err)
	}

	policy := script.Policy
	if policy == "" {
		policy = DefaultPolicy(direction)
	}

	result := &backends.MigrationResult{
		MigrationID: migration.ID(),
		Name:        migration.Name,
		Version:     migration.Version,
		Backend:     b.dialect.name,
		Direction:   direction,
		Policy:      string(policy),
		Message:     script.Message,
		Statements:  make([]backends.StatementResult, 0, len(script.Statements)),
		StartedAt:   time.Now(),
	}

	conn, err := b.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if b.dialect.transactionalDDL {
		err = b.runInTx(ctx, conn, script.Statements, policy, result)
	} else {
		b.runDirect(ctx, conn, script.Statements, policy, result)
	}
	if err != nil {
		return nil, err
	}

	result.Duration = time.Since(result.StartedAt)
	result.Success = result.Error == "" && result.FailedCount() == 0 && !result.RolledBack
	return result, nil
}

// execer is satisfied by both *sql.Conn and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (b *Backend) runInTx(ctx context.Context, conn *sql.Conn, stmts []sqlscript.Statement, policy sqlscript.Policy, result *backends.MigrationResult) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range stmts {
		var savepoint string
		if policy == sqlscript.Continue {
			savepoint = fmt.Sprintf("stmt_%d", i)
			if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
				return fmt.Errorf("failed to create savepoint: %w", err)
			}
		}

		res := execStatement(ctx, tx, i, stmt)
		result.Statements = append(result.Statements, res)

		if !res.Failed() {
			if savepoint != "" {
				if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
					return fmt.Errorf("failed to release savepoint: %w", err)
				}
			}
			continue
		}

		logger.Warnf("Statement %d of %s (%s) failed: %s", i+1, result.MigrationID, result.Direction, res.Error)

		if policy == sqlscript.Stop {
			skipRemaining(result, stmts, i+1)
			if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
				result.Error = fmt.Sprintf("rollback: %v", err)
			}
			result.RolledBack = true
			markRolledBack(result)
			return nil
		}

		if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); err != nil {
			return fmt.Errorf("failed to roll back to savepoint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		result.Error = fmt.Sprintf("commit: %v", err)
		markRolledBack(result)
	}
	return nil
}

func (b *Backend) runDirect(ctx context.Context, conn *sql.Conn, stmts []sqlscript.Statement, policy sqlscript.Policy, result *backends.MigrationResult) {
	for i, stmt := range stmts {
		res := execStatement(ctx, conn, i, stmt)
		result.Statements = append(result.Statements, res)
		if res.Failed() {
			logger.Warnf("Statement %d of %s (%s) failed: %s", i+1, result.MigrationID, result.Direction, res.Error)
			if policy == sqlscript.Stop {
				skipRemaining(result, stmts, i+1)
				return
			}
		}
	}
}

func execStatement(ctx context.Context, ex execer, index int, stmt sqlscript.Statement) backends.StatementResult {
	res := backends.StatementResult{
		Index:   index,
		SQL:     stmt.SQL,
		Step:    stmt.Step,
		OnError: stmt.OnError,
		Status:  backends.StatementSuccess,
	}

	start := time.Now()
	_, err := ex.ExecContext(ctx, stmt.SQL)
	res.Duration = time.Since(start)

	if err != nil {
		res.Status = backends.StatementFailed
		res.Error = err.Error()
		res.Code = ErrorCode(err)
	}
	return res
}

// markRolledBack flags the statements that succeeded inside a transaction that did not commit.
func markRolledBack(result *backends.MigrationResult) {
	for i := range result.Statements {
		if result.Statements[i].Status == backends.StatementSuccess {
			result.Statements[i].Status = backends.StatementRolledBack
		}
	}
}

func skipRemaining(result *backends.MigrationResult, stmts []sqlscript.Statement, from int) {
	for i := from; i < len(stmts); i++ {
		result.Statements = append(result.Statements, backends.StatementResult{
			Index:   i,
			SQL:     stmts[i].SQL,
			Step:    stmts[i].Step,
			OnError: stmts[i].OnError,
			Status:  backends.StatementSkipped,
		})
	}
}
