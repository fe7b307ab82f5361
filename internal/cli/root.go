// Package cli implements the pagediff command line.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/baxromumarov/page-diff/internal/config"
	"github.com/baxromumarov/page-diff/internal/core"
	"github.com/baxromumarov/page-diff/internal/httpx"
)

// version is set at build time with -ldflags "-X .../internal/cli.version=...".
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "pagediff",
	Short: "Compare the visible text of two web pages",
	Long: `pagediff fetches two pages, strips markup, scripts and styles,
and shows a line diff of the text a reader would see.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func newFetcher(cfg *config.Config) *httpx.CollyFetcher {
	return httpx.NewCollyFetcher(httpx.Options{
		UserAgent:     cfg.Fetch.UserAgent,
		Timeout:       cfg.Fetch.Timeout,
		MaxBodyBytes:  cfg.Fetch.MaxBodyBytes,
		RespectRobots: cfg.Fetch.RespectRobots,
	})
}

func newCompareService(cfg *config.Config) *core.CompareService {
	return core.NewCompareService(newFetcher(cfg), core.Options{
		ContextLines: cfg.Diff.ContextLines,
		DefaultMode:  cfg.Mode(),
	})
}

func setLogger(w io.Writer, level slog.Level, json bool) {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		slog.SetDefault(slog.New(slog.NewJSONHandler(w, opts)))
		return
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, opts)))
}
