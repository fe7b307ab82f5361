package diff

import (
	"fmt"
	"html"
	"strings"
)

const (
	addStyle = "color: green;"
	delStyle = "color: red;"
)

// RenderHTML renders each line as a block element: insertions green,
// deletions red, context lines unadorned. Line text is escaped.
func RenderHTML(lines []Line) string {
	var sb strings.Builder
	for _, l := range lines {
		text := html.EscapeString(l.Text)
		switch l.Op {
		case OpInsert:
			fmt.Fprintf(&sb, `<div class="diff-line diff-add" style="%s">%s</div>`, addStyle, text)
		case OpDelete:
			fmt.Fprintf(&sb, `<div class="diff-line diff-del" style="%s">%s</div>`, delStyle, text)
		default:
			fmt.Fprintf(&sb, `<div class="diff-line diff-ctx">%s</div>`, text)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Render diffs a against b with the default context and renders the result.
// The fragment is empty when the texts are identical.
func Render(a, b string) string {
	return RenderHTML(Compute(a, b, DefaultContext))
}
