package blogapi

import (
	"context"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/blogapi/internal/markup"
	"github.com/eringen/blogapi/internal/store"
)

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Name}}</title>
<link rel="alternate" type="application/rss+xml" title="{{.Name}}" href="/feed.xml">
<style>body{font-family:system-ui,sans-serif;max-width:42rem;margin:2rem auto;padding:0 1rem;line-height:1.5}</style>
</head>
<body>
<h1>{{.Name}}</h1>
<p>Welcome to {{.Name}}. The JSON API lives at this address; send <code>Accept: application/json</code> to use it.</p>
<h2>Latest posts</h2>
{{if .Posts}}<ul>{{range .Posts}}
<li><a href="/posts/{{.ID}}">{{.Title}}</a> <small>{{.Date.Format "2006-01-02"}}</small>{{if .Excerpt}}<br>{{.Excerpt}}{{end}}</li>{{end}}
</ul>{{else}}<p>No published posts yet.</p>{{end}}
</body>
</html>
`))

type indexEntry struct {
	ID      int64
	Title   string
	Date    time.Time
	Excerpt string
}

// indexPage renders the HTML landing page listing recent published posts.
func indexPage(name string, posts []store.Post) templ.Component {
	entries := make([]indexEntry, 0, len(posts))
	for _, p := range posts {
		entries = append(entries, indexEntry{
			ID:      p.ID,
			Title:   p.Title,
			Date:    p.PublicationDate,
			Excerpt: markup.Excerpt(p.Content, 160),
		})
	}
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return indexTmpl.Execute(w, struct {
			Name  string
			Posts []indexEntry
		}{name, entries})
	})
}

func (a *App) handleIndex(c echo.Context) error {
	if !strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML) {
		return c.JSON(http.StatusOK, map[string]string{"message": "Welcome to " + a.Config.Name})
	}
	posts, err := a.Feed.Published(c.Request().Context())
	if err != nil {
		return err
	}
	if len(posts) > feedItems {
		posts = posts[:feedItems]
	}
	return Render(c, indexPage(a.Config.Name, posts))
}
