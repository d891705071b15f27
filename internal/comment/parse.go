package comment

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dshills/danger/internal/host"
	"github.com/dshills/danger/internal/ledger"
)

// Previous is what an earlier run left on the request.
type Previous struct {
	Found     bool
	CommentID string
	Body      string
	// Violations holds the sticky row texts of each kind in the order they
	// were rendered, resolved rows included.
	Violations map[ledger.Kind][]string
}

// NewPrevious parses c when found is set and returns the empty state
// otherwise.
func NewPrevious(c host.Comment, found bool) Previous {
	if !found {
		return Previous{Violations: map[ledger.Kind][]string{}}
	}
	return Previous{
		Found:      true,
		CommentID:  c.ID,
		Body:       c.Body,
		Violations: Parse(c.Body),
	}
}

// Parse extracts the rows of every danger table in body. Only rows marked
// sticky are returned. Resolved rows come back without their
// strike-through and render struck again for as long as they stay
// unreported. Bodies that are not HTML, or have no danger tables, give an
// empty map.
func Parse(body string) map[ledger.Kind][]string {
	out := map[ledger.Kind][]string{}
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return out
	}
	for _, table := range findAll(doc, atom.Table) {
		kind, ok := tableKind(table)
		if !ok {
			continue
		}
		for _, tbody := range children(table, atom.Tbody) {
			for _, tr := range children(tbody, atom.Tr) {
				if text, ok := stickyRow(tr); ok {
					out[kind] = append(out[kind], text)
				}
			}
		}
	}
	return out
}

// tableKind reads the kind from the header cell of a danger table.
func tableKind(table *html.Node) (ledger.Kind, bool) {
	for _, thead := range children(table, atom.Thead) {
		for _, tr := range children(thead, atom.Tr) {
			for _, th := range children(tr, atom.Th) {
				if attr(th, "data-danger-table") != "true" {
					continue
				}
				if k, err := ledger.ParseKind(attr(th, "data-kind")); err == nil {
					return k, true
				}
				// Older bodies carry the kind only in the title text.
				fields := strings.Fields(textOf(th))
				if len(fields) == 0 {
					return "", false
				}
				k, err := ledger.ParseKind(fields[len(fields)-1])
				return k, err == nil
			}
		}
	}
	return "", false
}

// stickyRow returns the text of a sticky row. A resolved row, marked by
// the resolved icon, yields the text inside its strike-through so that it
// is carried into the next comment unchanged.
func stickyRow(tr *html.Node) (string, bool) {
	cells := children(tr, atom.Td)
	for i, td := range cells {
		v, ok := lookupAttr(td, "data-sticky")
		if !ok {
			continue
		}
		if v != "true" {
			return "", false
		}
		content := td
		if i > 0 && strings.TrimSpace(textOf(cells[0])) == resolvedIcon {
			if del := strikeWrapper(td); del != nil {
				content = del
			}
		}
		var nodes []*html.Node
		for c := content.FirstChild; c != nil; c = c.NextSibling {
			nodes = append(nodes, c)
		}
		return renderNodes(nodes), true
	}
	return "", false
}

// strikeWrapper returns the <del> element wrapping all of td's content, or
// nil when the cell holds anything else beside it.
func strikeWrapper(td *html.Node) *html.Node {
	var del *html.Node
	for c := td.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode && strings.TrimSpace(c.Data) == "":
		case c.Type == html.ElementNode && c.DataAtom == atom.Del && del == nil:
			del = c
		default:
			return nil
		}
	}
	return del
}

func children(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			out = append(out, c)
		}
	}
	return out
}

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == a {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
