// Package template loads the pongo2 templates behind the HTML form renderer.
// Templates come from an fs.FS, a directory on disk, or both; a template
// found on disk shadows the one with the same name in the FS.
package template

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// ErrNoSource is returned by New when neither a directory nor an FS is set.
var ErrNoSource = errors.New("template: no template source configured")

// Option configures New.
type Option func(*sources)

type sources struct {
	dir   string
	files fs.FS
}

// WithDir reads templates from dir.
func WithDir(dir string) Option {
	return func(s *sources) {
		s.dir = strings.TrimSpace(dir)
	}
}

// WithFS reads templates from files.
func WithFS(files fs.FS) Option {
	return func(s *sources) {
		s.files = files
	}
}

// Engine executes named templates. Parsed templates are kept for the life of
// the engine, so edits on disk need a new engine.
type Engine struct {
	set *pongo2.TemplateSet

	mu     sync.Mutex
	parsed map[string]*pongo2.Template
}

// New builds an engine over the configured sources.
func New(options ...Option) (*Engine, error) {
	var src sources
	for _, opt := range options {
		if opt != nil {
			opt(&src)
		}
	}

	loaders := make([]pongo2.TemplateLoader, 0, 2)
	if src.dir != "" {
		local, err := pongo2.NewLocalFileSystemLoader(src.dir)
		if err != nil {
			return nil, fmt.Errorf("template: dir %s: %w", src.dir, err)
		}
		loaders = append(loaders, local)
	}
	if src.files != nil {
		loaders = append(loaders, pongo2.NewFSLoader(src.files))
	}
	if len(loaders) == 0 {
		return nil, ErrNoSource
	}

	return &Engine{
		set:    pongo2.NewSet("operatorio-forms", loaders...),
		parsed: make(map[string]*pongo2.Template),
	}, nil
}

// Execute renders the template file name into w.
func (e *Engine) Execute(w io.Writer, name string, data map[string]any) error {
	tmpl, err := e.template(name)
	if err != nil {
		return err
	}
	if err := tmpl.ExecuteWriter(pongo2.Context(data), w); err != nil {
		return fmt.Errorf("template: execute %s: %w", name, err)
	}
	return nil
}

// Render is Execute into a string.
func (e *Engine) Render(name string, data map[string]any) (string, error) {
	var b strings.Builder
	if err := e.Execute(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (e *Engine) template(name string) (*pongo2.Template, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if tmpl, ok := e.parsed[name]; ok {
		return tmpl, nil
	}
	tmpl, err := e.set.FromFile(name)
	if err != nil {
		return nil, fmt.Errorf("template: load %s: %w", name, err)
	}
	e.parsed[name] = tmpl
	return tmpl, nil
}

// FilterFunc rewrites the string form of a template value.
type FilterFunc func(string) string

var filterMu sync.Mutex

// RegisterFilter installs fn under name for every template set in the
// process; pongo2 keeps filters global. The first registration of a name
// wins and later ones are no-ops. Output of a safe filter skips autoescaping.
func RegisterFilter(name string, fn FilterFunc, safe bool) error {
	if strings.TrimSpace(name) == "" || fn == nil {
		return errors.New("template: filter name and function are required")
	}

	filterMu.Lock()
	defer filterMu.Unlock()
	if pongo2.FilterExists(name) {
		return nil
	}
	return pongo2.RegisterFilter(name, func(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		out := fn(in.String())
		if safe {
			return pongo2.AsSafeValue(out), nil
		}
		return pongo2.AsValue(out), nil
	})
}
