// Package render turns document text into sanitized HTML and extracts the
// parts of a document the viewer navigates by: headings and links.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// ContentRootID is the id of the element wrapping rendered document content.
// Fragment lookups are restricted to it.
const ContentRootID = "content"

// DefaultStyle is the chroma style used for code block classes.
const DefaultStyle = "github"

// Renderer converts markdown to HTML.
type Renderer struct {
	md goldmark.Markdown
}

// New creates a renderer with GFM, hard line breaks, generated heading ids
// and class-based syntax highlighting.
func New() *Renderer {
	return &Renderer{md: newMarkdown()}
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(DefaultStyle),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)
}

// Render converts source to a sanitized HTML fragment: raw HTML is omitted
// and link destinations with script or file schemes are emptied.
func (r *Renderer) Render(source string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// Heading is one heading of a document with its generated id.
type Heading struct {
	Level int
	ID    string
	Text  string
}

// Headings lists the headings of source in document order.
func (r *Renderer) Headings(source string) []Heading {
	src := []byte(source)
	doc := r.md.Parser().Parse(text.NewReader(src))

	var headings []Heading
	ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		heading, ok := node.(*ast.Heading)
		if !ok || !entering {
			return ast.WalkContinue, nil
		}
		item := Heading{Level: heading.Level, Text: plainText(heading, src)}
		if id, ok := heading.AttributeString("id"); ok {
			if value, ok := id.([]byte); ok {
				item.ID = string(value)
			}
		}
		headings = append(headings, item)
		return ast.WalkSkipChildren, nil
	})
	return headings
}

func plainText(node ast.Node, source []byte) string {
	var builder strings.Builder
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			builder.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return builder.String()
}

// Link is one anchor of a rendered fragment.
type Link struct {
	Href string
	Text string
}

// Links lists the links of source in document order, with their
// destinations as written. Script hrefs are left out.
func (r *Renderer) Links(source string) []Link {
	src := []byte(source)
	doc := r.md.Parser().Parse(text.NewReader(src))

	var links []Link
	ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		var link Link
		switch n := node.(type) {
		case *ast.Link:
			link = Link{Href: string(n.Destination), Text: strings.TrimSpace(plainText(n, src))}
		case *ast.AutoLink:
			url := string(n.URL(src))
			if n.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(strings.ToLower(url), "mailto:") {
				url = "mailto:" + url
			}
			link = Link{Href: url, Text: string(n.Label(src))}
		default:
			return ast.WalkContinue, nil
		}
		if link.Href != "" && !IsScriptURL(link.Href) {
			links = append(links, link)
		}
		return ast.WalkSkipChildren, nil
	})
	return links
}

// IsScriptURL reports whether href runs script when followed.
func IsScriptURL(href string) bool {
	scheme := strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(scheme, "javascript:") || strings.HasPrefix(scheme, "vbscript:")
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title><style>{{.CSS}}</style></head>
<body><main id="{{.RootID}}">{{.Content}}</main></body></html>
`))

// Page wraps a rendered fragment in a full HTML page whose content root
// carries ContentRootID.
func Page(title string, fragment string) (string, error) {
	css, err := HighlightCSS(DefaultStyle)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	err = pageTemplate.Execute(&buf, struct {
		Title   string
		CSS     template.CSS
		RootID  string
		Content template.HTML
	}{title, template.CSS(css), ContentRootID, template.HTML(fragment)})
	if err != nil {
		return "", fmt.Errorf("executing page template: %w", err)
	}
	return buf.String(), nil
}

// HighlightCSS returns the stylesheet for the code classes of styleName.
func HighlightCSS(styleName string) (string, error) {
	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, styles.Get(styleName)); err != nil {
		return "", fmt.Errorf("writing highlight css: %w", err)
	}
	return buf.String(), nil
}
