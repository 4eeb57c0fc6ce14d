package builtin

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Jokerealm/ai-slides/internal/backends"
	"github.com/Jokerealm/ai-slides/internal/backends/sqldb"
	"github.com/Jokerealm/ai-slides/internal/sqlscript"
	"github.com/Jokerealm/ai-slides/migrations"
)

func TestBuiltinMigrationsRegistered(t *testing.T) {
	for _, backend := range []string{"sqlite", "postgresql"} {
		for _, name := range []string{"remove_auth_tables", "remove_speech_scripts_table"} {
			m, err := migrations.GlobalRegistry.Find(name, backend)
			require.NoError(t, err, "%s/%s", backend, name)
			assert.Equal(t, "core", m.Connection)
			assert.NotEmpty(t, m.UpSQL)
			assert.NotEmpty(t, m.DownSQL)
		}
	}
}

func TestBuiltinMigrationsParse(t *testing.T) {
	for _, m := range migrations.GlobalRegistry.GetAll() {
		up, err := sqlscript.Parse(m.UpSQL)
		require.NoError(t, err, m.ID())
		assert.Equal(t, sqlscript.Continue, up.Policy, m.ID())
		assert.NotEmpty(t, up.Message, m.ID())
		for _, stmt := range up.Statements {
			assert.NotEmpty(t, stmt.Step, "%s: %s", m.ID(), stmt.SQL)
			assert.NotEmpty(t, stmt.OnError, "%s: %s", m.ID(), stmt.SQL)
		}

		down, err := sqlscript.Parse(m.DownSQL)
		require.NoError(t, err, m.ID())
		assert.Equal(t, sqlscript.Stop, down.Policy, m.ID())
		assert.NotEmpty(t, down.Message, m.ID())
	}
}

func newBackend(t *testing.T) (*sqldb.Backend, *gorm.DB) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "builtin.db") + "?_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	b, err := sqldb.NewBackend("sqlite", sqlDB)
	require.NoError(t, err)
	return b, db
}

func run(t *testing.T, b *sqldb.Backend, name string, direction backends.Direction) *backends.MigrationResult {
	t.Helper()
	m, err := migrations.GlobalRegistry.Find(name, "sqlite")
	require.NoError(t, err)
	result, err := b.ExecuteMigration(context.Background(), m, direction)
	require.NoError(t, err)
	return result
}

func TestRemoveAuthTables_SQLite(t *testing.T) {
	b, db := newBackend(t)
	ctx := context.Background()

	// Upgrade on a database without the tables is a no-op and may be repeated.
	for i := 0; i < 2; i++ {
		result := run(t, b, "remove_auth_tables", backends.Up)
		assert.True(t, result.Success)
		assert.Equal(t, "Authentication tables removal completed successfully!", result.Message)
		require.Len(t, result.Statements, 2)
		assert.Equal(t, "Dropped user_sessions table", result.Statements[0].Step)
		assert.Equal(t, "Dropped users table", result.Statements[1].Step)
	}

	result := run(t, b, "remove_auth_tables", backends.Down)
	require.True(t, result.Success, result.FirstError())
	assert.Equal(t, "Authentication tables recreated successfully!", result.Message)

	var columns []string
	cols, err := db.Migrator().ColumnTypes("users")
	require.NoError(t, err)
	for _, c := range cols {
		columns = append(columns, c.Name())
	}
	sort.Strings(columns)
	assert.Equal(t, []string{"created_at", "email", "id", "is_active", "is_admin", "last_login", "password_hash", "username"}, columns)

	for _, idx := range []string{"ix_users_username", "ix_users_email"} {
		assert.True(t, db.Migrator().HasIndex("users", idx), idx)
	}
	assert.True(t, db.Migrator().HasIndex("user_sessions", "ix_user_sessions_session_id"))

	var count int64
	require.NoError(t, db.Table("users").Count(&count).Error)
	assert.Zero(t, count)

	// Downgrade is idempotent thanks to IF NOT EXISTS.
	assert.True(t, run(t, b, "remove_auth_tables", backends.Down).Success)

	result = run(t, b, "remove_auth_tables", backends.Up)
	assert.True(t, result.Success)
	for _, table := range []string{"users", "user_sessions"} {
		exists, err := b.TableExists(ctx, table)
		require.NoError(t, err)
		assert.False(t, exists, table)
	}
}

func TestRemoveSpeechScripts_SQLite(t *testing.T) {
	b, db := newBackend(t)
	ctx := context.Background()

	result := run(t, b, "remove_speech_scripts_table", backends.Up)
	assert.True(t, result.Success)
	assert.Equal(t, "Speech scripts table removal completed successfully!", result.Message)

	// SQLite does not check the referenced table at CREATE time, so the downgrade
	// succeeds even without projects.
	result = run(t, b, "remove_speech_scripts_table", backends.Down)
	require.True(t, result.Success, result.FirstError())
	assert.Equal(t, "Recreated speech_scripts table", result.Statements[0].Step)

	cols, err := db.Migrator().ColumnTypes("speech_scripts")
	require.NoError(t, err)
	assert.Len(t, cols, 18)
	assert.True(t, db.Migrator().HasIndex("speech_scripts", "ix_speech_scripts_project_id"))

	result = run(t, b, "remove_speech_scripts_table", backends.Up)
	assert.True(t, result.Success)
	exists, err := b.TableExists(ctx, "speech_scripts")
	require.NoError(t, err)
	assert.False(t, exists)
}
