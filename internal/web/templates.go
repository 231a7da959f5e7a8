package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/parsascontentcorner/discordmedals/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"landing", "guild", "medal", "user", "medal_form", "error"}

// view is the data every page template receives
type view struct {
	Title    string
	ViewerID string
	BaseURL  string
	Data     any
}

type errorView struct {
	Status  int
	Message string
}

type medalFormView struct {
	Guild *models.Guild
	Medal *models.Medal
	Input models.MedalInput
	Error string
}

type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	funcs := template.FuncMap{
		"date":  func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 MST") },
		"tiers": func() []models.Tier { return models.Tiers },
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &renderer{pages: pages}, nil
}

// render executes the page fully before writing any of it
func (rd *renderer) render(w http.ResponseWriter, status int, name string, v *view) error {
	tmpl, ok := rd.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %s", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", v); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
