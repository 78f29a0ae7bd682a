// Package layout renders the shared page chrome and adapts html/template views to templ
// components.
package layout

import (
	"context"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"time"

	"github.com/a-h/templ"

	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/httpserver/middleware"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/templates/helpers"
)

//go:embed base.tmpl
var files embed.FS

// HTMXScript is the pinned htmx build loaded by every page.
const HTMXScript = "https://unpkg.com/htmx.org@2.0.3/dist/htmx.min.js"

// Chrome carries request scoped values shared by every view.
type Chrome struct {
	Title       string
	BasePath    string
	CSRFToken   string
	Environment string
	Production  bool
	UserName    string
	UserEmail   string
	SignedIn    bool
	HTMXScript  string
	Now         time.Time
	can         map[string]bool
}

// Allowed reports whether the operator holds capability.
func (c Chrome) Allowed(capability string) bool {
	return c.can[capability]
}

// Href joins p with the mount base path.
func (c Chrome) Href(p string) string {
	return helpers.Path(c.BasePath, p)
}

// ChromeFromContext collects the page chrome from request context.
func ChromeFromContext(ctx context.Context, title string) Chrome {
	info := middleware.ConsoleInfoFromContext(ctx)
	chrome := Chrome{
		Title:       title,
		BasePath:    info.BasePath,
		CSRFToken:   middleware.CSRFTokenFromContext(ctx),
		Environment: info.Environment,
		Production:  info.Production,
		HTMXScript:  HTMXScript,
		Now:         time.Now(),
		can:         helpers.Capabilities(ctx),
	}
	if user, ok := middleware.UserFromContext(ctx); ok {
		chrome.SignedIn = true
		chrome.UserEmail = user.Email
		chrome.UserName = user.Name
		if chrome.UserName == "" {
			chrome.UserName = user.Email
		}
		if chrome.UserName == "" {
			chrome.UserName = user.UID
		}
	}
	return chrome
}

// View is the value every template executes against.
type View struct {
	Chrome Chrome
	Data   any
}

// Funcs returns the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"date":        helpers.Date,
		"iso":         helpers.ISO,
		"relative":    helpers.Relative,
		"host":        helpers.Host,
		"statusBadge": helpers.StatusBadgeClass,
		"typeBadge":   helpers.TypeBadgeClass,
		"tone":        helpers.ToneClass,
		"envBadge":    helpers.EnvironmentBadge,
		"view": func(chrome Chrome, data any) View {
			return View{Chrome: chrome, Data: data}
		},
	}
}

// Parse builds a template set containing the base layout plus the views matched by
// patterns in fsys. It panics on malformed templates.
func Parse(fsys fs.FS, patterns ...string) *template.Template {
	set := template.Must(template.New("layout").Funcs(Funcs()).ParseFS(files, "base.tmpl"))
	return template.Must(set.ParseFS(fsys, patterns...))
}

// Component renders the named template as a templ component. The chrome is resolved
// from the render context.
func Component(set *template.Template, name, title string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return set.ExecuteTemplate(w, name, View{Chrome: ChromeFromContext(ctx, title), Data: data})
	})
}
