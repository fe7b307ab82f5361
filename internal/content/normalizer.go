package content

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Mode selects how line structure survives normalization.
type Mode string

const (
	// ModeCollapse folds every whitespace run, newlines included, into one
	// space. A page always normalizes to a single line.
	ModeCollapse Mode = "collapse"
	// ModeBlocks keeps one line per block-level element.
	ModeBlocks Mode = "blocks"
)

// removedSelector lists elements whose whole subtree never reaches the output.
const removedSelector = "script, style, link"

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeCollapse:
		return ModeCollapse, nil
	case ModeBlocks:
		return ModeBlocks, nil
	default:
		return "", fmt.Errorf("unknown normalization mode %q", s)
	}
}

func (m Mode) String() string {
	if m == "" {
		return string(ModeCollapse)
	}
	return string(m)
}

type VisibleTextNormalizer struct {
	mode Mode
}

func NewVisibleTextNormalizer(mode Mode) *VisibleTextNormalizer {
	if mode == "" {
		mode = ModeCollapse
	}
	return &VisibleTextNormalizer{mode: mode}
}

func (n *VisibleTextNormalizer) Mode() Mode {
	return n.mode
}

// Normalize turns an arbitrary, possibly malformed HTML document into its
// canonical visible text. It never fails: the parser repairs broken markup
// and anything it cannot make sense of is kept as text.
func (n *VisibleTextNormalizer) Normalize(htmlContent string) string {
	if strings.TrimSpace(htmlContent) == "" {
		return ""
	}

	// Scripting is disabled so <noscript> bodies parse as elements instead of
	// leaking their markup as raw text.
	root, err := html.ParseWithOptions(strings.NewReader(htmlContent), html.ParseOptionEnableScripting(false))
	if err != nil {
		return CollapseWhitespace(htmlContent)
	}

	doc := goquery.NewDocumentFromNode(root)
	doc.Find(removedSelector).Remove()
	doc.Find("[style]").RemoveAttr("style")

	if n.mode == ModeBlocks {
		return blockText(root)
	}
	return CollapseWhitespace(doc.Text())
}

// VisibleText normalizes htmlContent in collapse mode.
func VisibleText(htmlContent string) string {
	return NewVisibleTextNormalizer(ModeCollapse).Normalize(htmlContent)
}

// CollapseWhitespace replaces every run of Unicode whitespace with a single
// ASCII space and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
