package web

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/support1122/flashfire-dashboard/internal/dates"
)

//go:embed templates
var embedded embed.FS

// TemplateEngine handles HTML template rendering
type TemplateEngine struct {
	fsys      fs.FS
	templates *template.Template
	reload    bool // dev mode: reload on each request
}

// NewTemplateEngine creates a template engine over a directory. An empty
// dir uses the templates compiled into the binary.
func NewTemplateEngine(templatesDir string, reload bool) *TemplateEngine {
	var fsys fs.FS
	if templatesDir == "" {
		fsys, _ = fs.Sub(embedded, "templates")
		reload = false
	} else {
		fsys = os.DirFS(templatesDir)
	}
	return &TemplateEngine{fsys: fsys, reload: reload}
}

var funcs = template.FuncMap{
	"dict": func(values ...interface{}) (map[string]interface{}, error) {
		if len(values)%2 != 0 {
			return nil, errors.New("dict: odd number of arguments")
		}
		dict := make(map[string]interface{}, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				return nil, errors.New("dict: keys must be strings")
			}
			dict[key] = values[i+1]
		}
		return dict, nil
	},
	"lower": strings.ToLower,
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
	// day renders a stored date in the dashboard's zone, or "" when unreadable
	"day": func(s string) string {
		t, ok := dates.Parse(s)
		if !ok {
			return ""
		}
		return t.In(dates.Zone).Format("2 Jan 2006")
	},
}

// Load parses all templates outside the pages directory.
func (te *TemplateEngine) Load() error {
	tmpl := template.New("").Funcs(funcs)

	err := fs.WalkDir(te.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip pages directory - these are loaded on-demand
		if d.IsDir() && d.Name() == "pages" {
			return fs.SkipDir
		}

		if !d.IsDir() && path.Ext(p) == ".html" {
			_, err = tmpl.ParseFS(te.fsys, p)
			return err
		}
		return nil
	})

	if err != nil {
		return err
	}

	te.templates = tmpl
	return nil
}

func (te *TemplateEngine) page(name string) (*template.Template, error) {
	if te.reload || te.templates == nil {
		if err := te.Load(); err != nil {
			return nil, err
		}
	}

	// Clone base templates and parse page-specific template
	tmpl, err := te.templates.Clone()
	if err != nil {
		return nil, err
	}
	return tmpl.ParseFS(te.fsys, path.Join("pages", name+".html"))
}

// Render renders a page inside the layout.
func (te *TemplateEngine) Render(w io.Writer, name string, data interface{}) error {
	tmpl, err := te.page(name)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

// RenderContent renders only the content template without layout (for HTMX)
func (te *TemplateEngine) RenderContent(w io.Writer, name string, data interface{}) error {
	tmpl, err := te.page(name)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, "content", data)
}

// RenderPartial renders a named template (partial)
func (te *TemplateEngine) RenderPartial(w io.Writer, name string, data interface{}) error {
	if te.reload || te.templates == nil {
		if err := te.Load(); err != nil {
			return err
		}
	}
	return te.templates.ExecuteTemplate(w, name, data)
}
