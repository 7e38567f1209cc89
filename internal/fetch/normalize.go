package fetch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ContentAdapter selects the main content of pages from one kind of site
type ContentAdapter interface {
	Name() string
	CanHandle(url string) bool
	// Main returns the selection holding the page's readable content
	Main(doc *goquery.Document) *goquery.Selection
}

// Registry picks a ContentAdapter per URL, falling back to a generic one
type Registry struct {
	adapters []ContentAdapter
	generic  ContentAdapter
}

// NewRegistry creates a registry with the built-in adapters
func NewRegistry() *Registry {
	r := &Registry{generic: genericAdapter{}}
	r.Register(wikipediaAdapter{})
	r.Register(legalAdapter{})
	return r
}

// Register adds an adapter; earlier registrations win
func (r *Registry) Register(a ContentAdapter) {
	r.adapters = append(r.adapters, a)
}

// Find returns the adapter for url
func (r *Registry) Find(url string) ContentAdapter {
	for _, a := range r.adapters {
		if a.CanHandle(url) {
			return a
		}
	}
	return r.generic
}

// boilerplate is removed before text extraction
const boilerplate = "script, style, noscript, iframe, svg, canvas, template, nav, header, footer, aside, " +
	"[role=navigation], [role=banner], [role=contentinfo], [aria-hidden=true], .cookie-banner, #cookie-banner"

// HTMLToText parses an HTML page and returns its title and readable text
func (r *Registry) HTMLToText(pageURL, body string) (title, text string, err error) {
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", "", err
	}
	doc := goquery.NewDocumentFromNode(root)

	title = pageTitle(doc)

	doc.Find(boilerplate).Remove()

	main := r.Find(pageURL).Main(doc)
	if main == nil || main.Length() == 0 {
		main = doc.Find("body")
	}
	if main.Length() == 0 {
		main = doc.Selection
	}

	var b strings.Builder
	for _, n := range main.Nodes {
		writeText(&b, n)
	}

	return title, CleanText(b.String()), nil
}

func pageTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "ul": true, "ol": true, "dl": true, "dt": true, "dd": true,
	"table": true, "tr": true, "blockquote": true, "pre": true, "figure": true,
	"figcaption": true, "br": true, "hr": true, "caption": true,
}

// writeText walks the node tree emitting text, with line breaks around block elements
func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "td", "th":
			b.WriteString(" ")
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		b.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteString("\n")
	}
}

type genericAdapter struct{}

func (genericAdapter) Name() string          { return "generic" }
func (genericAdapter) CanHandle(string) bool { return true }
func (genericAdapter) Main(doc *goquery.Document) *goquery.Selection {
	for _, sel := range []string{"article", "main", "[role=main]", "#content", ".content"} {
		if s := doc.Find(sel).First(); s.Length() > 0 && strings.TrimSpace(s.Text()) != "" {
			return s
		}
	}
	return doc.Find("body")
}

// wikipediaAdapter keeps the article body and drops editing chrome
type wikipediaAdapter struct{}

func (wikipediaAdapter) Name() string { return "wikipedia" }

func (wikipediaAdapter) CanHandle(url string) bool {
	return strings.Contains(url, "wikipedia.org/")
}

func (wikipediaAdapter) Main(doc *goquery.Document) *goquery.Selection {
	content := doc.Find("#mw-content-text .mw-parser-output").First()
	if content.Length() == 0 {
		content = doc.Find("#mw-content-text").First()
	}
	content.Find(".mw-editsection, .navbox, .metadata, .mw-empty-elt, .reference, .hatnote, #toc, .toc").Remove()
	return content
}

// legalAdapter targets legislation sites whose body sits in a known container
type legalAdapter struct{}

func (legalAdapter) Name() string { return "legal" }

func (legalAdapter) CanHandle(url string) bool {
	return strings.Contains(url, "legislation.gov.uk") || strings.Contains(url, "eur-lex.europa.eu")
}

func (legalAdapter) Main(doc *goquery.Document) *goquery.Selection {
	for _, sel := range []string{"#viewLegContents", "#viewLegSnippet", "#document1", "#text", "#content"} {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return nil
}
