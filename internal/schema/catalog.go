// Package schema is the explicit description of the application's tables: columns,
// foreign keys by identifier and named indexes. It renders DDL for the supported
// engines and compares a live database against the description.
package schema

import (
	"errors"
	"fmt"
)

// Kind is an engine-neutral column type.
type Kind string

const (
	Integer Kind = "integer"
	String  Kind = "string"
	Text    Kind = "text"
	Float   Kind = "float"
	Boolean Kind = "boolean"
	JSON    Kind = "json"
)

// Column describes one column. Default is an SQL literal valid on every engine ("'draft'", "0", "TRUE").
type Column struct {
	Name       string
	Kind       Kind
	Size       int
	PrimaryKey bool
	NotNull    bool
	Unique     bool
	Default    string
}

// ForeignKey references a column of another table by name. Name is the constraint
// name, fk_{table}_{relation} as the ORM derives it.
type ForeignKey struct {
	Name      string
	Column    string
	RefTable  string
	RefColumn string
}

// Index is a named secondary index.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Table describes one table.
type Table struct {
	Name        string
	Columns     []Column
	ForeignKeys []ForeignKey
	Indexes     []Index
}

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Catalog is an ordered set of tables.
type Catalog struct {
	Tables []Table
}

// ErrCycle is returned when foreign keys form a cycle between tables.
var ErrCycle = errors.New("foreign key cycle between tables")

// Table looks up a table by name.
func (c *Catalog) Table(name string) (*Table, bool) {
	for i := range c.Tables {
		if c.Tables[i].Name == name {
			return &c.Tables[i], true
		}
	}
	return nil, false
}

// Names returns the table names in declaration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Tables))
	for i, t := range c.Tables {
		names[i] = t.Name
	}
	return names
}

// Ordered returns the tables so that every table comes after the tables it references.
// Ties keep declaration order.
func (c *Catalog) Ordered() ([]Table, error) {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[string]int, len(c.Tables))
	ordered := make([]Table, 0, len(c.Tables))

	var visit func(t *Table) error
	visit = func(t *Table) error {
		switch state[t.Name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: %s", ErrCycle, t.Name)
		}
		state[t.Name] = visiting

		for _, fk := range t.ForeignKeys {
			if fk.RefTable == t.Name {
				continue
			}
			ref, ok := c.Table(fk.RefTable)
			if !ok {
				return fmt.Errorf("table %s references unknown table %s", t.Name, fk.RefTable)
			}
			if err := visit(ref); err != nil {
				return err
			}
		}

		state[t.Name] = done
		ordered = append(ordered, *t)
		return nil
	}

	for i := range c.Tables {
		if err := visit(&c.Tables[i]); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

func id() Column {
	return Column{Name: "id", Kind: Integer, PrimaryKey: true}
}

func projectRef() Column {
	return Column{Name: "project_id", Kind: String, Size: 36}
}

func timestamps() []Column {
	return []Column{
		{Name: "created_at", Kind: Float},
		{Name: "updated_at", Kind: Float},
	}
}

func fkProject(table string) ForeignKey {
	return ForeignKey{Name: "fk_" + table + "_project", Column: "project_id", RefTable: "projects", RefColumn: "project_id"}
}

// Default returns the catalog of the application's seven tables.
func Default() *Catalog {
	return &Catalog{Tables: []Table{
		{
			Name: "projects",
			Columns: append([]Column{
				id(),
				projectRef(),
				{Name: "title", Kind: String, Size: 255, NotNull: true},
				{Name: "scenario", Kind: String, Size: 100, NotNull: true},
				{Name: "topic", Kind: String, Size: 255, NotNull: true},
				{Name: "requirements", Kind: Text},
				{Name: "status", Kind: String, Size: 50, Default: "'draft'"},
				{Name: "outline", Kind: JSON},
				{Name: "slides_html", Kind: Text},
				{Name: "slides_data", Kind: JSON},
				{Name: "confirmed_requirements", Kind: JSON},
				{Name: "project_metadata", Kind: JSON},
				{Name: "version", Kind: Integer, Default: "1"},
				{Name: "share_token", Kind: String, Size: 64},
				{Name: "share_enabled", Kind: Boolean, Default: "FALSE"},
			}, timestamps()...),
			Indexes: []Index{
				{Name: "ix_projects_project_id", Columns: []string{"project_id"}, Unique: true},
				{Name: "ix_projects_share_token", Columns: []string{"share_token"}, Unique: true},
			},
		},
		{
			Name: "todo_boards",
			Columns: append([]Column{
				id(),
				{Name: "project_id", Kind: String, Size: 36, Unique: true},
				{Name: "current_stage_index", Kind: Integer, Default: "0"},
				{Name: "overall_progress", Kind: Float, Default: "0"},
			}, timestamps()...),
			ForeignKeys: []ForeignKey{fkProject("todo_boards")},
		},
		{
			Name: "todo_stages",
			Columns: append([]Column{
				id(),
				{Name: "todo_board_id", Kind: Integer},
				projectRef(),
				{Name: "stage_id", Kind: String, Size: 100, NotNull: true},
				{Name: "stage_index", Kind: Integer, NotNull: true},
				{Name: "title", Kind: String, Size: 255, NotNull: true},
				{Name: "description", Kind: Text, NotNull: true},
				{Name: "status", Kind: String, Size: 50, Default: "'pending'"},
				{Name: "progress", Kind: Float, Default: "0"},
				{Name: "result", Kind: JSON},
			}, timestamps()...),
			ForeignKeys: []ForeignKey{
				{Name: "fk_todo_stages_todo_board", Column: "todo_board_id", RefTable: "todo_boards", RefColumn: "id"},
				fkProject("todo_stages"),
			},
			Indexes: []Index{
				{Name: "ix_todo_stages_project_id", Columns: []string{"project_id"}},
				{Name: "ix_todo_stages_stage_id", Columns: []string{"stage_id"}},
				{Name: "ix_todo_stages_status", Columns: []string{"status"}},
			},
		},
		{
			Name: "project_versions",
			Columns: []Column{
				id(),
				projectRef(),
				{Name: "version", Kind: Integer, NotNull: true},
				{Name: "timestamp", Kind: Float},
				{Name: "data", Kind: JSON, NotNull: true},
				{Name: "description", Kind: String, Size: 500, NotNull: true},
			},
			ForeignKeys: []ForeignKey{fkProject("project_versions")},
		},
		{
			Name: "slide_data",
			Columns: append([]Column{
				id(),
				projectRef(),
				{Name: "slide_index", Kind: Integer, NotNull: true},
				{Name: "slide_id", Kind: String, Size: 100, NotNull: true},
				{Name: "title", Kind: String, Size: 255, NotNull: true},
				{Name: "content_type", Kind: String, Size: 50, NotNull: true},
				{Name: "html_content", Kind: Text, NotNull: true},
				{Name: "slide_metadata", Kind: JSON},
				{Name: "template_id", Kind: Integer},
				{Name: "is_user_edited", Kind: Boolean, NotNull: true, Default: "FALSE"},
			}, timestamps()...),
			ForeignKeys: []ForeignKey{
				fkProject("slide_data"),
				{Name: "fk_slide_data_template", Column: "template_id", RefTable: "ppt_templates", RefColumn: "id"},
			},
		},
		{
			Name: "ppt_templates",
			Columns: append([]Column{
				id(),
				projectRef(),
				{Name: "template_type", Kind: String, Size: 50, NotNull: true},
				{Name: "template_name", Kind: String, Size: 255, NotNull: true},
				{Name: "description", Kind: Text},
				{Name: "html_template", Kind: Text, NotNull: true},
				{Name: "applicable_scenarios", Kind: JSON},
				{Name: "style_config", Kind: JSON},
				{Name: "usage_count", Kind: Integer, Default: "0"},
			}, timestamps()...),
			ForeignKeys: []ForeignKey{fkProject("ppt_templates")},
			Indexes: []Index{
				{Name: "ix_ppt_templates_template_type", Columns: []string{"template_type"}},
			},
		},
		{
			Name: "global_master_templates",
			Columns: append([]Column{
				id(),
				{Name: "template_name", Kind: String, Size: 255, NotNull: true, Unique: true},
				{Name: "description", Kind: Text},
				{Name: "html_template", Kind: Text, NotNull: true},
				{Name: "preview_image", Kind: Text},
				{Name: "style_config", Kind: JSON},
				{Name: "tags", Kind: JSON},
				{Name: "is_default", Kind: Boolean, Default: "FALSE"},
				{Name: "is_active", Kind: Boolean, Default: "TRUE"},
				{Name: "usage_count", Kind: Integer, Default: "0"},
				{Name: "created_by", Kind: String, Size: 100},
			}, timestamps()...),
		},
	}}
}
