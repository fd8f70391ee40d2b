package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/lysyi3m/news-harvest/app/cfg"
	"github.com/lysyi3m/news-harvest/app/database"
	"github.com/samber/lo"
)

// Channel describes the RSS channel wrapped around a list of articles.
type Channel struct {
	Title       string
	Link        string
	Description string
	SelfLink    string
}

// Generator renders stored articles back out as RSS 2.0.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(channel Channel, articles []database.Article) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/" xmlns:atom="http://www.w3.org/2005/Atom" xmlns:dc="http://purl.org/dc/elements/1.1/">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", channel.Title, 4)
	g.writeElement(&buf, "link", channel.Link, 4)
	g.writeElement(&buf, "description", lo.CoalesceOrEmpty(channel.Description, fmt.Sprintf("Articles for %s", channel.Title)), 4)

	if channel.SelfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(channel.SelfLink)))
	}

	lastBuildDate := time.Now().In(time.Local)
	if len(articles) > 0 {
		lastBuildDate = articleDate(articles[0])
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("News-Harvest/%s", cfg.GetVersion()), 4)

	for _, article := range articles {
		g.writeItem(&buf, article)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, article database.Article) {
	buf.WriteString("    <item>\n")

	buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(article.Link)))
	xml.EscapeText(buf, []byte(article.Link))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", article.Title, 6)
	g.writeElement(buf, "link", article.Link, 6)
	g.writeElement(buf, "description", lo.CoalesceOrEmpty(article.Summary, "No description available"), 6)
	g.writeElement(buf, "pubDate", articleDate(article).Format(time.RFC1123Z), 6)
	// RSS <author> must be an email address; stored authors are names.
	g.writeElement(buf, "dc:creator", article.Author, 6)

	for _, tag := range article.Tags {
		g.writeElement(buf, "category", tag, 6)
	}

	if article.OriginFeed != "" && article.Source != "" {
		buf.WriteString(fmt.Sprintf("      <source url=\"%s\">", html.EscapeString(article.OriginFeed)))
		xml.EscapeText(buf, []byte(article.Source))
		buf.WriteString("</source>\n")
	}

	if article.ImageURL != "" {
		buf.WriteString(fmt.Sprintf("      <media:content url=\"%s\" medium=\"image\" />\n",
			html.EscapeString(article.ImageURL)))
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}

// articleDate is the published time, or the ingestion time for undated articles.
func articleDate(article database.Article) time.Time {
	if article.PublishedAt != nil {
		return *article.PublishedAt
	}
	return article.IngestedAt
}
