package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/htmldepth/internal/config"
	"github.com/nao1215/htmldepth/internal/database"
	"github.com/nao1215/htmldepth/internal/model"
	"github.com/nao1215/htmldepth/internal/report"
)

// historyOptions holds the history command settings.
type historyOptions struct {
	dbDir    string
	url      string
	listURLs bool
	limit    int
	json     bool
	markdown bool
	verbose  bool
}

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show previously recorded analyses",
		Long: `History shows analyses recorded by the analyze command.

With a URL it prints a summary of every stored result for that URL followed
by the most recent analyses. Without a URL it prints the most recent
analyses of all URLs.

The history database is stored in the XDG data directory
(~/.local/share/htmldepth/history.db on Linux).

Examples:
  # Show the latest analyses of every URL
  htmldepth history

  # Show the history of one URL
  htmldepth history https://example.com/

  # List every analyzed URL
  htmldepth history --list-urls

  # Export the full history of one URL as JSON
  htmldepth history --json --limit 0 https://example.com/`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-urls", "L", false,
		"List every analyzed URL")
	cmd.Flags().IntP("limit", "n", config.DefaultHistoryLimit,
		"Maximum number of analyses to show (0 = all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts := historyOptions{
		dbDir:   config.XDGDataDir(),
		verbose: getVerboseFlag(cmd),
	}
	if len(args) > 0 {
		opts.url = args[0]
	}

	var err error
	if opts.listURLs, err = cmd.Flags().GetBool("list-urls"); err != nil {
		return err
	}
	if opts.limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}

	return runHistory(cmd.Context(), opts, cmd.OutOrStdout())
}

// runHistory reads the history database and writes the requested view.
// A missing database is reported as an empty history.
func runHistory(ctx context.Context, opts historyOptions, output io.Writer) error {
	if opts.json && opts.markdown {
		return fmt.Errorf("configuration error: %w", config.ErrConflictingReportFormats)
	}
	if opts.limit < 0 {
		return errors.New("invalid limit: must be zero or positive")
	}

	w := newReportWriter(opts.json, opts.markdown, opts.verbose, output)

	db, err := database.Open(opts.dbDir, database.Options{})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if opts.listURLs {
				_, err = w.WriteURLs(nil)
				return err
			}
			_, err = w.WriteHistory(&report.History{URL: opts.url, Summary: emptySummary(opts.url)})
			return err
		}
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	if opts.listURLs {
		urls, err := db.ListURLs(ctx)
		if err != nil {
			return err
		}
		_, err = w.WriteURLs(urls)
		return err
	}

	history := &report.History{URL: opts.url}
	if opts.url != "" {
		history.Summary, err = db.Summary(ctx, opts.url)
		if err != nil {
			return err
		}
	}

	history.Analyses, err = db.ListAnalyses(ctx, opts.url, opts.limit)
	if err != nil {
		return err
	}

	_, err = w.WriteHistory(history)
	return err
}

// emptySummary returns a zero summary for url, or nil when url is empty.
func emptySummary(url string) *model.Summary {
	if url == "" {
		return nil
	}
	return &model.Summary{URL: url}
}
