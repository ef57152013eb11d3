package web

import (
	"embed"
	"html/template"
	"strings"
)

//go:embed templates
var Assets embed.FS

var funcMap = template.FuncMap{
	"percent": func(score float32) float32 { return score * 100 },
	"join":    strings.Join,
}

// Pages holds one template set per page, each layered on base.html so the
// "content" blocks don't collide.
type Pages struct {
	Home   *template.Template
	Search *template.Template
}

// ParsePages builds the page templates from the embedded filesystem.
func ParsePages() (*Pages, error) {
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(Assets, "templates/base.html")
	if err != nil {
		return nil, err
	}

	home, err := template.Must(base.Clone()).ParseFS(Assets, "templates/home.html")
	if err != nil {
		return nil, err
	}
	search, err := template.Must(base.Clone()).ParseFS(Assets, "templates/search.html")
	if err != nil {
		return nil, err
	}

	return &Pages{Home: home, Search: search}, nil
}
