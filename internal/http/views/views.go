// Package views renders the HTML pages. Each page is a templ.Component
// backed by an embedded html/template set, which escapes every value for
// the context it lands in, so stored text can never become markup.
package views

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"sync"

	"github.com/a-h/templ"

	"github.com/aanand-mishra/student-records/internal/session"
	"github.com/aanand-mishra/student-records/internal/types"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Page names.
const (
	Login    = "login"
	Register = "register"
	Index    = "index"
	Edit     = "edit"
)

// Page is the data every template receives.
type Page struct {
	Title    string
	LoggedIn bool
	Flash    *session.Flash
	Error    string

	// Username pre-fills the login and register forms.
	Username string

	Students []types.Student
	Student  *types.Student
	Grades   []types.Grade
}

// Views holds one parsed template set per page.
type Views struct {
	pages map[string]*template.Template
}

// New parses the embedded templates.
func New() (*Views, error) {
	base, err := template.ParseFS(templateFiles, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("views: parse base: %w", err)
	}

	v := &Views{pages: make(map[string]*template.Template)}
	for _, name := range []string{Login, Register, Index, Edit} {
		page, err := template.Must(base.Clone()).ParseFS(templateFiles, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("views: parse %s: %w", name, err)
		}
		v.pages[name] = page
	}
	return v, nil
}

// Component returns the named page bound to page as a templ.Component.
func (v *Views) Component(name string, page Page) (templ.Component, error) {
	tmpl, ok := v.pages[name]
	if !ok {
		return nil, fmt.Errorf("views: unknown page %q", name)
	}
	if page.Grades == nil {
		page.Grades = types.Grades
	}
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if err := tmpl.ExecuteTemplate(w, "base", page); err != nil {
			return fmt.Errorf("views: render %s: %w", name, err)
		}
		return nil
	}), nil
}

var renderBufferPool = sync.Pool{
	New: func() any {
		return &bytes.Buffer{}
	},
}

// Render writes the named page to w with status. The page is rendered into
// a buffer first: when Render returns an error nothing has been written.
func (v *Views) Render(ctx context.Context, w http.ResponseWriter, status int, name string, page Page) error {
	component, err := v.Component(name, page)
	if err != nil {
		return err
	}

	buf := renderBufferPool.Get().(*bytes.Buffer) //nolint:forcetypeassert // pool only holds buffers
	defer renderBufferPool.Put(buf)
	buf.Reset()

	if err := component.Render(ctx, buf); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}
