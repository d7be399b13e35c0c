package handlers

import (
	"fmt"
	"html/template"
	"path/filepath"
	"time"
)

// TemplateFuncs are the helpers available to every page template
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Local().Format("Jan 2, 2006 15:04")
		},
		"percent": func(p float64) string {
			return fmt.Sprintf("%.0f%%", p)
		},
		"formatSeconds": func(seconds int) string {
			return formatDuration(time.Duration(seconds) * time.Second)
		},
		"formatMillis": func(ms int64) string {
			return formatDuration(time.Duration(ms) * time.Millisecond)
		},
	}
}

// LoadTemplates parses base.tmpl and every page under pages/ into one set.
// Pages are executed by file name, e.g. "home.tmpl".
func LoadTemplates(templatesPath string) (*template.Template, error) {
	files := []string{filepath.Join(templatesPath, "base.tmpl")}

	pages, err := filepath.Glob(filepath.Join(templatesPath, "pages", "*.tmpl"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob page templates: %w", err)
	}
	files = append(files, pages...)

	tmpl, err := template.New("").Funcs(TemplateFuncs()).ParseFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}
