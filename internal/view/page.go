package view

import (
	_ "embed"
	"html/template"
	"io"
	"time"
)

//go:embed page.html
var pageHTML string

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"stamp": func(t time.Time) string { return t.UTC().Format(time.RFC1123) },
}).Parse(pageHTML))

func Render(w io.Writer, p Page) error {
	return pageTemplate.Execute(w, p)
}
