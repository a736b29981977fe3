package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html static/*
var content embed.FS

// Templates parses the page templates. Every page shares the blocks in layout.html.
func Templates() (*template.Template, error) {
	return template.ParseFS(content, "templates/*.html")
}

// StaticFS returns the embedded static assets rooted at static/
func StaticFS() fs.FS {
	staticFS, err := fs.Sub(content, "static")
	if err != nil {
		panic(err) // static/ is embedded above
	}
	return staticFS
}
