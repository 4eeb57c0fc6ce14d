package migrations

// GoFileTemplate renders the registration file of one migration. DownFileName may be
// empty for migrations that cannot be reverted.
const GoFileTemplate = `// Code generated by slidesdb build. DO NOT EDIT.

package {{.PackageName}}

import (
	_ "embed"

	"github.com/Jokerealm/ai-slides/migrations"
)

//go:embed {{.UpFileName}}
var {{.VarPrefix}}UpSQL string
{{if .DownFileName}}
//go:embed {{.DownFileName}}
var {{.VarPrefix}}DownSQL string
{{end}}
func init() {
	migrations.MustRegister(&migrations.MigrationScript{
		Version:    "{{.Version}}",
		Name:       "{{.Name}}",
		Connection: "{{.Connection}}",
		Backend:    "{{.Backend}}",
		UpSQL:      {{.VarPrefix}}UpSQL,
{{- if .DownFileName}}
		DownSQL:    {{.VarPrefix}}DownSQL,
{{- end}}
	})
}
`
