// Package codegen discovers migration scripts on disk and generates the Go files
// that embed and register them.
//
// The directory layout is {root}/{backend}/{connection}/{version}_{name}.up.sql with an
// optional matching .down.sql next to it.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/Jokerealm/ai-slides/migrations"
)

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

var (
	fileNamePattern = regexp.MustCompile(`^(\d{14})_(.+)$`)
	invalidIdent    = regexp.MustCompile(`[^a-zA-Z0-9_]`)
	goFileTemplate  = template.Must(template.New("migration").Parse(migrations.GoFileTemplate))
)

// MigrationFile describes one migration found on disk
type MigrationFile struct {
	Dir         string // directory holding the scripts
	UpFile      string
	DownFile    string // empty when the migration has no down script
	Version     string
	Name        string
	Backend     string
	Connection  string
	PackageName string
}

// Key identifies the migration within a root directory.
func (f *MigrationFile) Key() string {
	return fmt.Sprintf("%s/%s/%s_%s", f.Backend, f.Connection, f.Version, f.Name)
}

// GoFileName is the name of the generated registration file.
func (f *MigrationFile) GoFileName() string {
	return fmt.Sprintf("%s_%s.go", f.Version, f.Name)
}

// VarPrefix is the lower camel case identifier the embedded variables start with.
func (f *MigrationFile) VarPrefix() string {
	parts := strings.FieldsFunc(invalidIdent.ReplaceAllString(f.Name, "_"), func(r rune) bool { return r == '_' })
	var b strings.Builder
	for i, p := range parts {
		if i == 0 {
			b.WriteString(strings.ToLower(p[:1]) + p[1:])
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]) + p[1:])
	}
	prefix := b.String()
	if prefix == "" || (prefix[0] >= '0' && prefix[0] <= '9') {
		prefix = "m" + prefix
	}
	return prefix
}

// ReadScripts returns the contents of the up and down scripts. A missing down
// script yields an empty string.
func (f *MigrationFile) ReadScripts() (up, down string, err error) {
	upSQL, err := os.ReadFile(filepath.Join(f.Dir, f.UpFile))
	if err != nil {
		return "", "", fmt.Errorf("failed to read up migration file: %w", err)
	}
	if f.DownFile == "" {
		return string(upSQL), "", nil
	}
	downSQL, err := os.ReadFile(filepath.Join(f.Dir, f.DownFile))
	if err != nil {
		return "", "", fmt.Errorf("failed to read down migration file: %w", err)
	}
	return string(upSQL), string(downSQL), nil
}

// Discover walks root and returns every migration, sorted by backend, connection and version.
// A down script without its up script is an error.
func Discover(root string) ([]*MigrationFile, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("migrations path does not exist: %s", root)
	}

	found := make(map[string]*MigrationFile)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		filename := info.Name()
		var baseName string
		var isUp bool
		switch {
		case strings.HasSuffix(filename, upSuffix):
			baseName, isUp = strings.TrimSuffix(filename, upSuffix), true
		case strings.HasSuffix(filename, downSuffix):
			baseName = strings.TrimSuffix(filename, downSuffix)
		default:
			return nil
		}

		matches := fileNamePattern.FindStringSubmatch(baseName)
		if len(matches) != 3 {
			return fmt.Errorf("invalid filename format: %s (expected: {version}_{name}.up.sql)", filename)
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(relPath, string(filepath.Separator))
		if len(parts) != 3 {
			return fmt.Errorf("invalid directory structure for %s (expected: {backend}/{connection}/{filename})", path)
		}

		m := &MigrationFile{
			Dir:         filepath.Dir(path),
			Version:     matches[1],
			Name:        matches[2],
			Backend:     parts[0],
			Connection:  parts[1],
			PackageName: sanitizePackageName(parts[1]),
		}
		if existing, ok := found[m.Key()]; ok {
			m = existing
		} else {
			found[m.Key()] = m
		}
		if isUp {
			m.UpFile = filename
		} else {
			m.DownFile = filename
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	files := make([]*MigrationFile, 0, len(found))
	for key, m := range found {
		if m.UpFile == "" {
			return nil, fmt.Errorf("missing up file for migration: %s", key)
		}
		files = append(files, m)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Key() < files[j].Key() })
	return files, nil
}

// Render produces the formatted Go source registering f.
func Render(f *MigrationFile) ([]byte, error) {
	var buf bytes.Buffer
	err := goFileTemplate.Execute(&buf, struct {
		PackageName  string
		UpFileName   string
		DownFileName string
		VarPrefix    string
		Version      string
		Name         string
		Connection   string
		Backend      string
	}{
		PackageName:  f.PackageName,
		UpFileName:   f.UpFile,
		DownFileName: f.DownFile,
		VarPrefix:    f.VarPrefix(),
		Version:      f.Version,
		Name:         f.Name,
		Connection:   f.Connection,
		Backend:      f.Backend,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", f.Key(), err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format %s: %w", f.Key(), err)
	}
	return src, nil
}

// Generate writes a registration file next to every migration under root and returns
// the paths written. With dryRun nothing is written.
func Generate(root string, dryRun bool) ([]string, error) {
	files, err := Discover(root)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		src, err := Render(f)
		if err != nil {
			return nil, err
		}

		goFilePath := filepath.Join(f.Dir, f.GoFileName())
		if !dryRun {
			if err := os.WriteFile(goFilePath, src, 0o644); err != nil {
				return nil, fmt.Errorf("failed to create file %s: %w", goFilePath, err)
			}
		}
		paths = append(paths, goFilePath)
	}
	return paths, nil
}

// sanitizePackageName converts a connection name to a valid Go package name
func sanitizePackageName(name string) string {
	result := invalidIdent.ReplaceAllString(name, "_")

	if len(result) > 0 && result[0] >= '0' && result[0] <= '9' {
		result = "_" + result
	}
	if result == "" {
		result = "migration"
	}
	return result
}
