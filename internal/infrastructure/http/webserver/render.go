package webserver

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pantrypilot/web/internal/application/generate"
	"github.com/pantrypilot/web/internal/domain/recipe"
)

//go:embed templates/*
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// EmbeddedTemplates returns the templates compiled into the binary
func EmbeddedTemplates() fs.FS {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Renderer executes page layouts and HTMX fragments. Pages are parsed as
// clones of the shared layout and partials so each can define "content".
type Renderer struct {
	fsys   fs.FS
	logger *zap.Logger

	mu    sync.RWMutex
	base  *template.Template
	pages map[string]*template.Template
}

// NewRenderer parses the templates of fsys
func NewRenderer(fsys fs.FS, logger *zap.Logger) (*Renderer, error) {
	r := &Renderer{fsys: fsys, logger: logger}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-parses every template. The previous set stays active when
// parsing fails.
func (r *Renderer) Reload() error {
	base, err := template.New("").Funcs(funcMap()).ParseFS(r.fsys, "layout.html", "partials/*.html")
	if err != nil {
		return fmt.Errorf("failed to parse layout: %w", err)
	}

	files, err := fs.Glob(r.fsys, "pages/*.html")
	if err != nil {
		return fmt.Errorf("failed to list pages: %w", err)
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		clone, err := base.Clone()
		if err != nil {
			return fmt.Errorf("failed to clone layout: %w", err)
		}
		if _, err := clone.ParseFS(r.fsys, file); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", file, err)
		}
		pages[strings.TrimSuffix(path.Base(file), ".html")] = clone
	}

	r.mu.Lock()
	r.base = base
	r.pages = pages
	r.mu.Unlock()

	r.logger.Debug("Templates loaded", zap.Int("pages", len(pages)))
	return nil
}

// Page renders the named page inside the layout
func (r *Renderer) Page(w io.Writer, name string, data interface{}) error {
	r.mu.RLock()
	t, ok := r.pages[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return execute(w, t, "layout", data)
}

// Fragment renders a named partial
func (r *Renderer) Fragment(w io.Writer, name string, data interface{}) error {
	r.mu.RLock()
	t := r.base
	r.mu.RUnlock()
	return execute(w, t, name, data)
}

// execute renders into a buffer first so a failing template writes nothing
func execute(w io.Writer, t *template.Template, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("Jan 2, 2006")
		},
		"truncate": func(length int, s string) string {
			runes := []rune(s)
			if len(runes) <= length {
				return s
			}
			return string(runes[:length]) + "…"
		},
		"title": func(s string) string {
			if s == "" {
				return ""
			}
			return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
		},
		"urlQuery":          url.QueryEscape,
		"cuisineLabel":      recipe.CuisineLabel,
		"quickCuisineLabel": recipe.QuickCuisineLabel,
		"timeLabel":         generate.TimeLabel,
		"rating": func(r recipe.Recipe) string {
			v, ok := r.DisplayRating()
			if !ok {
				return ""
			}
			return fmt.Sprintf("%.1f", v)
		},
		"stars": func(v float64) []bool {
			out := make([]bool, 5)
			for i := range out {
				out[i] = float64(i+1) <= v+0.5
			}
			return out
		},
		"saveButton": func(recipeID string, saved bool) saveButtonView {
			return saveButtonView{RecipeID: recipeID, Saved: saved}
		},
		"join": func(sep string, elems []string) string {
			return strings.Join(elems, sep)
		},
		"add": func(a, b int) int {
			return a + b
		},
		"seq": func(start, end int) []int {
			var result []int
			for i := start; i <= end; i++ {
				result = append(result, i)
			}
			return result
		},
	}
}
