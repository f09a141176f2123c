package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/htmldepth/internal/config"
	"github.com/nao1215/htmldepth/internal/database"
	"github.com/nao1215/htmldepth/internal/fetch"
	htmllog "github.com/nao1215/htmldepth/internal/log"
	"github.com/nao1215/htmldepth/internal/model"
	"github.com/nao1215/htmldepth/internal/pipeline"
	"github.com/nao1215/htmldepth/internal/report"
	"github.com/nao1215/htmldepth/internal/tor"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <url>...",
		Short: "Print the deepest text of one or more documents",
		Long: `Analyze fetches each URL and prints the text line nested deepest in
its element tree.

For every URL exactly one result is printed:
- the deepest text line, trimmed of surrounding whitespace
- "malformed HTML" when the document breaks the line-oriented form
- "URL connection error" when the document cannot be retrieved

With several URLs each line is prefixed with its URL, in argument order.

Examples:
  # Analyze a single document
  htmldepth analyze https://example.com/page.html

  # Analyze several documents, four at a time
  htmldepth analyze -n 4 https://a.example/ https://b.example/

  # Analyze an onion service through an embedded Tor daemon
  htmldepth analyze --embedded-tor http://<address>.onion/

  # Use an existing Tor SOCKS proxy
  htmldepth analyze --proxy 127.0.0.1:9050 http://<address>.onion/

  # Write a Markdown report to a file
  htmldepth analyze -m -o report.md https://example.com/

Configuration file (.htmldepth) example:
  defaults:
    userAgent: "Mozilla/5.0"
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAnalyzeCmd,
	}

	// Request flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each fetch")
	cmd.Flags().StringP("user-agent", "A", config.DefaultUserAgent,
		"User-Agent header sent with each request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Largest document accepted, in bytes")
	cmd.Flags().Float64P("rate", "r", 0,
		"Maximum requests per second across all URLs (0 = unlimited)")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of documents analyzed at once")

	// Tor flags
	cmd.Flags().StringP("proxy", "x", "",
		"Route requests through a SOCKS5 proxy (e.g., 127.0.0.1:9050)")
	cmd.Flags().BoolP("embedded-tor", "e", false,
		"Start an embedded Tor daemon and route requests through it")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .htmldepth in current, XDG config, or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-history", false,
		"Do not record results in the history database")

	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := htmllog.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runAnalyze(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the config file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = flags.GetFloat64("rate"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.EmbeddedTor, err = flags.GetBool("embedded-tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory
	cfg.Verbose = getVerboseFlag(cmd)

	// An explicit config path must exist; the default locations are optional.
	if configPath := config.FindConfigFile(cfg.ConfigFilePath); configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.Targets = args

	return cfg, nil
}

// runAnalyze fetches and analyzes every target, records the results, and
// writes the report. Per-URL failures are part of the report, not errors.
func runAnalyze(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	logger.Info("starting analysis",
		"targets", len(cfg.Targets),
		"concurrency", cfg.Concurrency,
		"embeddedTor", cfg.EmbeddedTor,
		"proxy", cfg.ProxyAddress,
		"saveHistory", cfg.SaveHistory,
	)

	var db *database.HistoryDB
	if cfg.SaveHistory {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
		logger.Debug("history database opened", "path", db.Path())
	}

	proxyAddr := cfg.ProxyAddress
	if cfg.EmbeddedTor {
		embeddedTor, addr, err := startEmbeddedTor(ctx, cfg, stderr, logger)
		if err != nil {
			return err
		}
		defer func() {
			logger.Info("stopping embedded Tor daemon")
			if err := embeddedTor.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}()
		proxyAddr = addr
	}

	warnOnionTargets(cfg.Targets, proxyAddr, logger)

	client, err := newFetcher(cfg, proxyAddr, logger)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return pipeline.NewAnalysisPipeline(client, logger)
		},
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
	)

	start := time.Now()
	analyses, batchErr := bp.ProcessBatch(ctx, cfg.Targets)
	logger.Info("analysis complete", "targets", len(cfg.Targets), "elapsed", time.Since(start))

	// Fetches cut short by an interrupt are not real connection errors.
	interrupted := ctx.Err() != nil
	if !interrupted {
		saveHistory(ctx, db, analyses, logger)
	}

	if err := writeReport(cfg, analyses, stdout); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if interrupted {
		return fmt.Errorf("analysis interrupted: %w", ctx.Err())
	}
	return batchErr
}

// newFetcher builds the HTTP client, applying per-host settings from the
// config file when one was loaded.
func newFetcher(cfg *config.Config, proxyAddr string, logger *slog.Logger) (*fetch.Client, error) {
	opts := []fetch.Option{
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithRateLimit(cfg.RateLimit),
		fetch.WithLogger(logger),
	}
	if proxyAddr != "" {
		opts = append(opts, fetch.WithProxy(proxyAddr))
	}
	if sites := cfg.SiteConfigs; sites != nil {
		opts = append(opts, fetch.WithRequestConfig(func(host string) fetch.RequestConfig {
			sc := sites.GetSiteConfig(host)
			return fetch.RequestConfig{
				Cookie:    sc.Cookie,
				Headers:   sc.Headers,
				UserAgent: sc.UserAgent,
			}
		}))
	}
	return fetch.NewClient(opts...)
}

// warnOnionTargets logs onion targets that will fail for lack of a proxy.
func warnOnionTargets(targets []string, proxyAddr string, logger *slog.Logger) {
	if proxyAddr != "" {
		return
	}
	for _, target := range targets {
		u, err := url.Parse(target)
		if err != nil {
			continue
		}
		if tor.IsOnionHost(u.Hostname()) {
			logger.Warn("onion URL requires --proxy or --embedded-tor", "url", target)
		}
	}
}

// startEmbeddedTor starts a Tor daemon and returns it with its SOCKS address.
func startEmbeddedTor(ctx context.Context, cfg *config.Config, stderr io.Writer, logger *slog.Logger) (*tor.EmbeddedTor, string, error) {
	fmt.Fprintln(stderr, "Starting embedded Tor daemon...")
	fmt.Fprintf(stderr, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embeddedTor := tor.NewEmbeddedTor(
		tor.WithStartupTimeout(cfg.TorStartupTimeout),
	)

	if err := embeddedTor.Start(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	addr, err := embeddedTor.ProxyAddr()
	if err != nil {
		_ = embeddedTor.Stop() //nolint:errcheck // best effort cleanup
		return nil, "", fmt.Errorf("failed to get embedded Tor proxy address: %w", err)
	}

	logger.Info("embedded Tor daemon started", "socksAddr", addr)
	return embeddedTor, addr, nil
}

// saveHistory records finished analyses. Failures are logged, never fatal.
// If db is nil, this function is a no-op.
func saveHistory(ctx context.Context, db *database.HistoryDB, analyses []*model.Analysis, logger *slog.Logger) {
	if db == nil {
		return
	}

	for _, a := range analyses {
		if a == nil {
			continue
		}
		if err := db.SaveAnalysis(ctx, a); err != nil {
			logger.Error("failed to save analysis", "url", a.URL, "error", err)
			continue
		}
		logger.Debug("analysis saved", "url", a.URL, "id", a.ID)
	}
}

// writeReport writes analyses in the requested format to the report file or stdout.
func writeReport(cfg *config.Config, analyses []*model.Analysis, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		f, err := createReportFile(cfg.ReportFile)
		if err != nil {
			return err
		}
		defer f.Close()
		output = f
	}

	_, err := newReportWriter(cfg.JSONReport, cfg.MarkdownReport, cfg.Verbose, output).Write(analyses)
	return err
}

// createReportFile creates path and its parent directories.
func createReportFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports can reveal which internal or onion URLs were analyzed.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// newReportWriter selects the report format.
func newReportWriter(jsonOutput, markdownOutput, verbose bool, output io.Writer) report.Writer {
	switch {
	case jsonOutput:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case markdownOutput:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(verbose))
	}
}
