// Package diff computes and renders line-level differences between two
// texts using unified diff semantics: changed regions surrounded by up to
// DefaultContext unchanged lines, deletions before insertions.
package diff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultContext is the number of unchanged lines kept around each change,
// the same default as unified diff.
const DefaultContext = 3

type Op int

const (
	OpEqual Op = iota
	OpDelete
	OpInsert
)

func (o Op) String() string {
	switch o {
	case OpEqual:
		return "equal"
	case OpDelete:
		return "delete"
	case OpInsert:
		return "insert"
	default:
		return "unknown"
	}
}

func (o Op) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Line is one content line of a diff. Hunk numbers start at zero and
// increase each time unchanged lines were skipped between changes.
type Line struct {
	Op   Op     `json:"op"`
	Text string `json:"text"`
	Hunk int    `json:"hunk"`
}

// Compute returns the content lines of the unified diff between a and b.
// Identical inputs produce no lines. A negative context uses DefaultContext.
func Compute(a, b string, context int) []Line {
	if context < 0 {
		context = DefaultContext
	}

	left, right := SplitLines(a), SplitLines(b)
	m := difflib.NewMatcher(left, right)

	var out []Line
	for hunk, group := range m.GetGroupedOpCodes(context) {
		for _, code := range group {
			switch code.Tag {
			case 'e':
				for _, text := range left[code.I1:code.I2] {
					out = append(out, Line{Op: OpEqual, Text: text, Hunk: hunk})
				}
				continue
			case 'r', 'd':
				for _, text := range left[code.I1:code.I2] {
					out = append(out, Line{Op: OpDelete, Text: text, Hunk: hunk})
				}
			}
			if code.Tag == 'r' || code.Tag == 'i' {
				for _, text := range right[code.J1:code.J2] {
					out = append(out, Line{Op: OpInsert, Text: text, Hunk: hunk})
				}
			}
		}
	}
	return out
}

// Stats counts inserted and deleted lines.
func Stats(lines []Line) (added, removed int) {
	for _, l := range lines {
		switch l.Op {
		case OpInsert:
			added++
		case OpDelete:
			removed++
		}
	}
	return added, removed
}

// SplitLines splits s at \n, \r\n and \r. A trailing line break does not
// start another line and the empty string has no lines.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
