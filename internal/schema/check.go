package schema

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"
)

// Drift kinds.
const (
	MissingTable  = "missing_table"
	MissingColumn = "missing_column"
	MissingIndex  = "missing_index"

	MissingForeignKey = "missing_foreign_key"
)

// Drift is one difference between the catalog and a live database.
type Drift struct {
	Table string `json:"table"`
	Kind  string `json:"kind"`
	Name  string `json:"name,omitempty"`
}

func (d Drift) String() string {
	if d.Name == "" {
		return fmt.Sprintf("%s: %s", d.Kind, d.Table)
	}
	return fmt.Sprintf("%s: %s.%s", d.Kind, d.Table, d.Name)
}

// Check reports every catalog table, column, named index and foreign key that the
// database lacks. Extra objects in the database are not reported.
func Check(ctx context.Context, db *gorm.DB, c *Catalog) ([]Drift, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	migrator := db.WithContext(ctx).Migrator()

	var drifts []Drift
	for _, t := range c.Tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !migrator.HasTable(t.Name) {
			drifts = append(drifts, Drift{Table: t.Name, Kind: MissingTable})
			continue
		}
		for _, col := range t.Columns {
			if !migrator.HasColumn(t.Name, col.Name) {
				drifts = append(drifts, Drift{Table: t.Name, Kind: MissingColumn, Name: col.Name})
			}
		}
		for _, idx := range t.Indexes {
			if !migrator.HasIndex(t.Name, idx.Name) {
				drifts = append(drifts, Drift{Table: t.Name, Kind: MissingIndex, Name: idx.Name})
			}
		}

		missing, err := missingForeignKeys(ctx, db, t)
		if err != nil {
			return nil, err
		}
		for _, fk := range missing {
			drifts = append(drifts, Drift{Table: t.Name, Kind: MissingForeignKey, Name: fk.Name})
		}
	}
	return drifts, nil
}

type sqliteForeignKey struct {
	Table string
	From  string
	To    sql.NullString
}

// missingForeignKeys returns the catalog foreign keys of t that the database does not enforce.
// SQLite is matched by columns since its constraints may be unnamed; other engines by name.
func missingForeignKeys(ctx context.Context, db *gorm.DB, t Table) ([]ForeignKey, error) {
	if len(t.ForeignKeys) == 0 {
		return nil, nil
	}

	if db.Dialector.Name() != SQLite {
		migrator := db.WithContext(ctx).Migrator()
		var missing []ForeignKey
		for _, fk := range t.ForeignKeys {
			if !migrator.HasConstraint(t.Name, fk.Name) {
				missing = append(missing, fk)
			}
		}
		return missing, nil
	}

	var existing []sqliteForeignKey
	if err := db.WithContext(ctx).Raw(fmt.Sprintf("PRAGMA foreign_key_list(%q)", t.Name)).Scan(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to list foreign keys of %s: %w", t.Name, err)
	}

	var missing []ForeignKey
	for _, fk := range t.ForeignKeys {
		found := false
		for _, e := range existing {
			// A NULL target column means the referenced table's primary key.
			to := e.To.String
			if !e.To.Valid {
				to = "id"
			}
			if e.From == fk.Column && e.Table == fk.RefTable && to == fk.RefColumn {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, fk)
		}
	}
	return missing, nil
}

// Apply executes the catalog's DDL for the handle's dialect inside one transaction.
func Apply(ctx context.Context, db *gorm.DB, c *Catalog, dialectName string) error {
	stmts, err := c.CreateStatements(dialectName)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range stmts {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		return nil
	})
}
