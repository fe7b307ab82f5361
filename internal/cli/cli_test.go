package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/page-diff/internal/diff"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/a":       `<html><body><p>line1</p><script>x()</script></body></html>`,
		"/b":       `<html><body><p>line1 changed</p></body></html>`,
		"/same":    `<p>Same text</p>`,
		"/blocks1": `<h1>Title</h1><p>kept</p><p>old</p>`,
		"/blocks2": `<h1>Title</h1><p>kept</p><p>new</p>`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// execute runs the root command with fresh flag values and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, fs := range []*pflag.FlagSet{rootCmd.PersistentFlags(), compareCmd.Flags(), serveCmd.Flags()} {
		fs.VisitAll(func(f *pflag.Flag) {
			require.NoError(t, f.Value.Set(f.DefValue))
			f.Changed = false
		})
	}
	for _, name := range []string{"PORT", "PAGEDIFF_ADDR", "PAGEDIFF_MODE", "PAGEDIFF_CONTEXT_LINES"} {
		t.Setenv(name, "")
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	out, err := execute(t, "version")

	assert.NoError(t, err)
	assert.Contains(t, out, "pagediff version test-version-1.0.0")
}

func TestCompareCmd_RequiresTwoArgs(t *testing.T) {
	_, err := execute(t, "compare", "https://example.com")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestCompareCmd_Flags(t *testing.T) {
	for name, def := range map[string]string{"mode": "", "html": "false", "json": "false", "context": "-1", "timeout": "0s", "width": "0"} {
		flag := compareCmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, def, flag.DefValue, name)
	}
	assert.Equal(t, "m", compareCmd.Flags().Lookup("mode").Shorthand)
}

func TestCompareCmd_Terminal(t *testing.T) {
	upstream := newUpstream(t)

	out, err := execute(t, "compare", upstream.URL+"/a", upstream.URL+"/b")

	require.NoError(t, err)
	assert.Contains(t, out, "- line1\n")
	assert.Contains(t, out, "+ line1 changed\n")
	assert.Contains(t, out, "1 removed, 1 added (collapse mode)")
	assert.NotContains(t, out, "x()")
}

func TestCompareCmd_Width(t *testing.T) {
	upstream := newUpstream(t)

	out, err := execute(t, "compare", "--width", "8", upstream.URL+"/a", upstream.URL+"/b")

	require.NoError(t, err)
	assert.Contains(t, out, "- line1\n")
	assert.Contains(t, out, "+ line1…\n")
	assert.NotContains(t, out, "line1 changed")
}

func TestRenderTerminalLine_WideRunes(t *testing.T) {
	styles := newDiffStyles(new(bytes.Buffer))
	line := diff.Line{Op: diff.OpEqual, Text: "日本語テキスト"}

	assert.Equal(t, "  日本語テキスト", renderTerminalLine(styles, line, 0))
	assert.Equal(t, "  日本…", renderTerminalLine(styles, line, 8))
}

func TestCompareCmd_Identical(t *testing.T) {
	upstream := newUpstream(t)

	out, err := execute(t, "compare", upstream.URL+"/same", upstream.URL+"/same")

	require.NoError(t, err)
	assert.Contains(t, out, "The HTML content is identical.")

	out, err = execute(t, "compare", "--html", upstream.URL+"/same", upstream.URL+"/same")
	require.NoError(t, err)
	assert.Equal(t, `<p style="color: blue;">The HTML content is identical.</p>`+"\n", out)
}

func TestCompareCmd_HTML(t *testing.T) {
	upstream := newUpstream(t)

	out, err := execute(t, "compare", "--html", upstream.URL+"/a", upstream.URL+"/b")

	require.NoError(t, err)
	assert.Equal(t,
		`<div class="diff-line diff-del" style="color: red;">line1</div>`+"\n"+
			`<div class="diff-line diff-add" style="color: green;">line1 changed</div>`+"\n",
		out)
}

func TestCompareCmd_JSONBlocks(t *testing.T) {
	upstream := newUpstream(t)

	out, err := execute(t, "compare", "--json", "--mode", "blocks", "--context", "1",
		upstream.URL+"/blocks1", upstream.URL+"/blocks2")
	require.NoError(t, err)

	var got struct {
		Mode      string `json:"mode"`
		Identical bool   `json:"identical"`
		Lines     []struct {
			Op   string `json:"op"`
			Text string `json:"text"`
		} `json:"lines"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "blocks", got.Mode)
	assert.False(t, got.Identical)
	require.Len(t, got.Lines, 3)
	assert.Equal(t, "equal", got.Lines[0].Op)
	assert.Equal(t, "kept", got.Lines[0].Text)
	assert.Equal(t, "delete", got.Lines[1].Op)
	assert.Equal(t, "insert", got.Lines[2].Op)
}

func TestCompareCmd_ZeroContext(t *testing.T) {
	upstream := newUpstream(t)

	out, err := execute(t, "compare", "--mode", "blocks", "--context", "0",
		upstream.URL+"/blocks1", upstream.URL+"/blocks2")

	require.NoError(t, err)
	assert.Contains(t, out, "- old\n")
	assert.Contains(t, out, "+ new\n")
	assert.NotContains(t, out, "kept")
	assert.NotContains(t, out, "Title")
}

func TestCompareCmd_Errors(t *testing.T) {
	upstream := newUpstream(t)

	_, err := execute(t, "compare", "--mode", "dom", upstream.URL+"/a", upstream.URL+"/b")
	assert.ErrorContains(t, err, "unknown normalization mode")

	_, err = execute(t, "compare", upstream.URL+"/a", upstream.URL+"/missing")
	assert.ErrorContains(t, err, "comparison failed: url2:")

	_, err = execute(t, "compare", "ftp://example.com/x", upstream.URL+"/b")
	assert.ErrorContains(t, err, "url1:")

	_, err = execute(t, "compare", "--html", "--json", upstream.URL+"/a", upstream.URL+"/b")
	assert.Error(t, err)

	_, err = execute(t, "compare", "--config", filepath.Join(t.TempDir(), "none.yaml"), upstream.URL+"/a", upstream.URL+"/b")
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestServeCmd_ConfigError(t *testing.T) {
	_, err := execute(t, "serve", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	flag := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
}
