package schema

import (
	"fmt"
	"strings"
)

// Supported dialects.
const (
	SQLite     = "sqlite"
	PostgreSQL = "postgresql"
	MySQL      = "mysql"
)

type dialect struct {
	quote       func(string) string
	primaryKey  string
	types       map[Kind]string
	ifNotExists bool // CREATE INDEX IF NOT EXISTS
}

func doubleQuote(s string) string { return `"` + s + `"` }
func backQuote(s string) string   { return "`" + s + "`" }

var dialects = map[string]dialect{
	SQLite: {
		quote:      doubleQuote,
		primaryKey: "INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT",
		types: map[Kind]string{
			Integer: "INTEGER",
			String:  "VARCHAR(%d)",
			Text:    "TEXT",
			Float:   "FLOAT",
			Boolean: "BOOLEAN",
			JSON:    "JSON",
		},
		ifNotExists: true,
	},
	PostgreSQL: {
		quote:      doubleQuote,
		primaryKey: "SERIAL PRIMARY KEY",
		types: map[Kind]string{
			Integer: "INTEGER",
			String:  "VARCHAR(%d)",
			Text:    "TEXT",
			Float:   "DOUBLE PRECISION",
			Boolean: "BOOLEAN",
			JSON:    "JSONB",
		},
		ifNotExists: true,
	},
	MySQL: {
		quote:      backQuote,
		primaryKey: "INT NOT NULL AUTO_INCREMENT PRIMARY KEY",
		types: map[Kind]string{
			Integer: "INT",
			String:  "VARCHAR(%d)",
			Text:    "TEXT",
			Float:   "DOUBLE",
			Boolean: "BOOLEAN",
			JSON:    "JSON",
		},
	},
}

func lookupDialect(name string) (dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported dialect: %s (supported: sqlite, postgresql, mysql)", name)
	}
	return d, nil
}

// CreateStatements renders the DDL that creates every table and index, each table
// followed by its indexes, in foreign key dependency order.
func (c *Catalog) CreateStatements(dialectName string) ([]string, error) {
	d, err := lookupDialect(dialectName)
	if err != nil {
		return nil, err
	}
	tables, err := c.Ordered()
	if err != nil {
		return nil, err
	}

	var stmts []string
	for _, t := range tables {
		stmt, err := d.createTable(t)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		for _, idx := range t.Indexes {
			stmts = append(stmts, d.createIndex(t.Name, idx))
		}
	}
	return stmts, nil
}

// DropStatements renders DROP TABLE statements in reverse dependency order.
func (c *Catalog) DropStatements() ([]string, error) {
	tables, err := c.Ordered()
	if err != nil {
		return nil, err
	}
	stmts := make([]string, 0, len(tables))
	for i := len(tables) - 1; i >= 0; i-- {
		stmts = append(stmts, "DROP TABLE IF EXISTS "+tables[i].Name)
	}
	return stmts, nil
}

func (d dialect) createTable(t Table) (string, error) {
	defs := make([]string, 0, len(t.Columns)+len(t.ForeignKeys))
	for _, col := range t.Columns {
		def, err := d.columnDef(col)
		if err != nil {
			return "", fmt.Errorf("table %s: %w", t.Name, err)
		}
		defs = append(defs, def)
	}
	for _, fk := range t.ForeignKeys {
		if _, ok := t.Column(fk.Column); !ok {
			return "", fmt.Errorf("table %s: foreign key on unknown column %s", t.Name, fk.Column)
		}
		def := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			d.quote(fk.Column), d.quote(fk.RefTable), d.quote(fk.RefColumn))
		if fk.Name != "" {
			def = "CONSTRAINT " + d.quote(fk.Name) + " " + def
		}
		defs = append(defs, def)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		d.quote(t.Name), strings.Join(defs, ",\n\t")), nil
}

func (d dialect) columnDef(col Column) (string, error) {
	if col.PrimaryKey {
		return d.quote(col.Name) + " " + d.primaryKey, nil
	}

	typ, ok := d.types[col.Kind]
	if !ok {
		return "", fmt.Errorf("column %s: unknown kind %q", col.Name, col.Kind)
	}
	if col.Kind == String {
		if col.Size <= 0 {
			return "", fmt.Errorf("column %s: string columns need a size", col.Name)
		}
		typ = fmt.Sprintf(typ, col.Size)
	}

	var b strings.Builder
	b.WriteString(d.quote(col.Name))
	b.WriteString(" ")
	b.WriteString(typ)
	if col.NotNull {
		b.WriteString(" NOT NULL")
	}
	if col.Unique {
		b.WriteString(" UNIQUE")
	}
	if col.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(col.Default)
	}
	return b.String(), nil
}

func (d dialect) createIndex(table string, idx Index) string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if idx.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ")
	if d.ifNotExists {
		b.WriteString("IF NOT EXISTS ")
	}

	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		cols[i] = d.quote(c)
	}
	fmt.Fprintf(&b, "%s ON %s (%s)", d.quote(idx.Name), d.quote(table), strings.Join(cols, ", "))
	return b.String()
}
