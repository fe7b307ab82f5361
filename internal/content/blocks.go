package content

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blockElements = map[atom.Atom]struct{}{
	atom.Address:    {},
	atom.Article:    {},
	atom.Aside:      {},
	atom.Blockquote: {},
	atom.Body:       {},
	atom.Caption:    {},
	atom.Dd:         {},
	atom.Details:    {},
	atom.Dialog:     {},
	atom.Div:        {},
	atom.Dl:         {},
	atom.Dt:         {},
	atom.Fieldset:   {},
	atom.Figcaption: {},
	atom.Figure:     {},
	atom.Footer:     {},
	atom.Form:       {},
	atom.H1:         {},
	atom.H2:         {},
	atom.H3:         {},
	atom.H4:         {},
	atom.H5:         {},
	atom.H6:         {},
	atom.Head:       {},
	atom.Header:     {},
	atom.Hgroup:     {},
	atom.Legend:     {},
	atom.Li:         {},
	atom.Main:       {},
	atom.Nav:        {},
	atom.Ol:         {},
	atom.Option:     {},
	atom.P:          {},
	atom.Pre:        {},
	atom.Section:    {},
	atom.Summary:    {},
	atom.Table:      {},
	atom.Tbody:      {},
	atom.Td:         {},
	atom.Tfoot:      {},
	atom.Th:         {},
	atom.Thead:      {},
	atom.Title:      {},
	atom.Tr:         {},
	atom.Ul:         {},
}

// blockText collects text in document order, breaking lines at block-level
// element boundaries and at <br>/<hr>. Newlines inside text nodes are plain
// whitespace here; only structure produces lines.
func blockText(root *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(flattenNewlines(n.Data))
			return
		case html.ElementNode:
			if n.DataAtom == atom.Br || n.DataAtom == atom.Hr {
				sb.WriteByte('\n')
				return
			}
			_, block := blockElements[n.DataAtom]
			if block {
				sb.WriteByte('\n')
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
			if block {
				sb.WriteByte('\n')
			}
			return
		case html.CommentNode, html.DoctypeNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	var lines []string
	for _, line := range strings.Split(sb.String(), "\n") {
		if collapsed := CollapseWhitespace(line); collapsed != "" {
			lines = append(lines, collapsed)
		}
	}
	return strings.Join(lines, "\n")
}

func flattenNewlines(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
