package blogapi

import (
	"encoding/xml"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/blogapi/internal/markup"
	"github.com/eringen/blogapi/internal/store"
)

const (
	feedItems  = 20
	excerptLen = 280
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func (a *App) postURL(p store.Post) string {
	return BuildURL(a.Config.URL, "posts", strconv.FormatInt(p.ID, 10))
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Feed.Published(c.Request().Context())
	if err != nil {
		return err
	}
	if len(posts) > feedItems {
		posts = posts[:feedItems]
	}
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		link := a.postURL(p)
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        link,
			Description: markup.Excerpt(p.Content, excerptLen),
			PubDate:     p.PublicationDate.Format(time.RFC1123Z),
			GUID:        link,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        BuildURL(a.Config.URL),
			Description: a.Config.Description,
			Items:       items,
		},
	}
	return writeXML(c, "application/rss+xml; charset=utf-8", feed)
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Feed.Published(c.Request().Context())
	if err != nil {
		return err
	}
	urls := []sitemapURL{
		{Loc: BuildURL(a.Config.URL)},
	}
	for _, p := range posts {
		urls = append(urls, sitemapURL{
			Loc:     a.postURL(p),
			LastMod: p.PublicationDate.Format("2006-01-02"),
		})
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	return writeXML(c, "application/xml; charset=utf-8", sitemap)
}

func writeXML(c echo.Context, contentType string, v any) error {
	c.Response().Header().Set(echo.HeaderContentType, contentType)
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	return xml.NewEncoder(c.Response()).Encode(v)
}
