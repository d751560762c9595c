// Package report renders capture sessions into HTML through html/template.
package report

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DefaultTemplate is the bundled gallery template used when no name is given.
const DefaultTemplate = "screenshots.html"

//go:embed templates/*.html
var bundled embed.FS

// TemplateNotFoundError is returned when a named template is neither in the
// configured directory nor bundled.
type TemplateNotFoundError struct {
	Name string
	Dir  string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("report: template %q not found in %s or bundled templates", e.Name, e.Dir)
}

// Renderer looks templates up in one directory, then in the bundled set.
type Renderer struct {
	dir string
}

// New returns a Renderer that searches dir before the bundled templates.
// An empty dir means the working directory.
func New(dir string) *Renderer {
	if dir == "" {
		dir = "."
	}
	return &Renderer{dir: dir}
}

var funcs = template.FuncMap{
	"base": path.Base,
}

// Render executes the template called name with data and writes the result to w.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	tmpl, err := r.lookup(name)
	if err != nil {
		return err
	}

	// Render into a buffer so a failing template writes nothing.
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("report: render %s: %w", tmpl.Name(), err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// RenderFile renders into the file at dst, replacing its contents.
func (r *Renderer) RenderFile(dst, name string, data any) error {
	var buf bytes.Buffer
	if err := r.Render(&buf, name, data); err != nil {
		return err
	}
	if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", dst, err)
	}
	return nil
}

func (r *Renderer) lookup(name string) (*template.Template, error) {
	dir := r.dir
	if name == "" {
		name = DefaultTemplate
	}
	if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		dir, name = filepath.Split(name)
	}

	src, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		src, err = bundled.ReadFile("templates/" + name)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &TemplateNotFoundError{Name: name, Dir: dir}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("report: read template %s: %w", name, err)
	}

	tmpl, err := template.New(name).Funcs(funcs).Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("report: parse template %s: %w", name, err)
	}
	return tmpl, nil
}
