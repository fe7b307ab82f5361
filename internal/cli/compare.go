package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/baxromumarov/page-diff/internal/content"
	"github.com/baxromumarov/page-diff/internal/core"
	"github.com/baxromumarov/page-diff/internal/diff"
)

var (
	compareMode    string
	compareHTML    bool
	compareJSON    bool
	compareContext int
	compareTimeout time.Duration
	compareVerbose bool
	compareWidth   int
)

var compareCmd = &cobra.Command{
	Use:   "compare [url1] [url2]",
	Short: "Diff the visible text of two pages",
	Long: `Fetches both URLs, strips scripts, styles and markup, and prints the
lines removed from the first page in red and the lines added by the
second in green. URLs without a scheme are fetched over https.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVarP(&compareMode, "mode", "m", "", "text mode: collapse or blocks (default from config)")
	compareCmd.Flags().BoolVar(&compareHTML, "html", false, "print the HTML diff fragment")
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "print the full result as JSON")
	compareCmd.Flags().IntVarP(&compareContext, "context", "c", -1, "unchanged lines shown around each change, 0 for changes only (default from config)")
	compareCmd.Flags().DurationVar(&compareTimeout, "timeout", 0, "per-page fetch timeout (default from config)")
	compareCmd.Flags().IntVarP(&compareWidth, "width", "w", 0, "truncate terminal lines to this many columns (0 keeps full lines)")
	compareCmd.Flags().BoolVarP(&compareVerbose, "verbose", "v", false, "log fetch and comparison details to stderr")
	compareCmd.MarkFlagsMutuallyExclusive("html", "json")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if compareContext >= 0 {
		cfg.Diff.ContextLines = compareContext
	}
	if compareTimeout > 0 {
		cfg.Fetch.Timeout = compareTimeout
	}

	level := slog.LevelWarn
	if compareVerbose {
		level = slog.LevelDebug
	}
	setLogger(cmd.ErrOrStderr(), level, false)

	var mode content.Mode
	if compareMode != "" {
		mode, err = content.ParseMode(compareMode)
		if err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := newCompareService(cfg).Compare(ctx, args[0], args[1], mode)
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	out := cmd.OutOrStdout()
	switch {
	case compareJSON:
		return outputCompareJSON(out, res)
	case compareHTML:
		return outputCompareHTML(out, res)
	default:
		outputCompareTerminal(out, res, compareWidth)
		return nil
	}
}

func outputCompareJSON(w io.Writer, res *core.Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func outputCompareHTML(w io.Writer, res *core.Result) error {
	fragment := res.Fragment
	if res.Identical {
		fragment = core.IdenticalHTML + "\n"
	}
	_, err := io.WriteString(w, fragment)
	return err
}

type diffStyles struct {
	added   lipgloss.Style
	removed lipgloss.Style
	context lipgloss.Style
	muted   lipgloss.Style
	notice  lipgloss.Style
}

func newDiffStyles(w io.Writer) diffStyles {
	r := lipgloss.NewRenderer(w)
	return diffStyles{
		added:   r.NewStyle().Foreground(lipgloss.Color("#22C55E")),
		removed: r.NewStyle().Foreground(lipgloss.Color("#EF4444")),
		context: r.NewStyle(),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		notice:  r.NewStyle().Foreground(lipgloss.Color("#3B82F6")),
	}
}

func outputCompareTerminal(w io.Writer, res *core.Result, width int) {
	styles := newDiffStyles(w)

	if res.Identical {
		fmt.Fprintln(w, styles.notice.Render(core.IdenticalMessage))
		return
	}

	for i, line := range res.Lines {
		if i > 0 && line.Hunk != res.Lines[i-1].Hunk {
			fmt.Fprintln(w, styles.muted.Render("..."))
		}
		fmt.Fprintln(w, renderTerminalLine(styles, line, width))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.muted.Render(fmt.Sprintf("%d removed, %d added (%s mode)", res.Removed, res.Added, res.Mode)))
}

// renderTerminalLine prefixes a diff line with its marker and colours it.
// A positive width truncates the result by display columns, so wide runes
// count double.
func renderTerminalLine(styles diffStyles, line diff.Line, width int) string {
	style, marker := styles.context, "  "
	switch line.Op {
	case diff.OpInsert:
		style, marker = styles.added, "+ "
	case diff.OpDelete:
		style, marker = styles.removed, "- "
	}

	text := marker + line.Text
	if width > 0 {
		text = runewidth.Truncate(text, width, "…")
	}
	return style.Render(text)
}
