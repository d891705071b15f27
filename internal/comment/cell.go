package comment

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	sanitizer = bluemonday.UGCPolicy()

	// cellContext is the element violation text is parsed inside of.
	cellContext = &html.Node{Type: html.ElementNode, Data: "td", DataAtom: atom.Td}
)

// Cell converts violation text to the form it takes inside a table cell:
// markdown rendered to HTML, a lone paragraph unwrapped, sanitized, and
// serialized the way the HTML parser reads it back. Text that went
// through Cell once comes back unchanged from a parsed comment, which is
// what makes row matching exact.
func Cell(text string) string {
	var buf bytes.Buffer
	out := text
	if err := mdRenderer.Convert([]byte(text), &buf); err == nil {
		out = unwrapParagraph(buf.String())
	}
	return normalize(sanitizer.Sanitize(out))
}

func unwrapParagraph(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "<p>") || !strings.HasSuffix(s, "</p>") {
		return s
	}
	inner := s[len("<p>") : len(s)-len("</p>")]
	if strings.Contains(inner, "<p>") {
		return s
	}
	return inner
}

// normalize parses an HTML fragment in cell context and renders it back.
func normalize(fragment string) string {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), cellContext)
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return renderNodes(nodes)
}

func renderNodes(nodes []*html.Node) string {
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return ""
		}
	}
	return strings.TrimSpace(buf.String())
}
