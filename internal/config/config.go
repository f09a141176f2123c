package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "htmldepth"

	// DefaultTimeout bounds a single fetch, connection and body read included.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent identifies htmldepth in HTTP requests.
	DefaultUserAgent = "htmldepth/1.0 (+https://github.com/nao1215/htmldepth)"

	// DefaultMaxBodySize is the largest document accepted. Larger documents
	// are rejected rather than truncated.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultConcurrency is the number of documents analysed at once.
	DefaultConcurrency = 4

	// DefaultTorStartupTimeout bounds the embedded Tor bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultHistoryLimit is the number of records shown by the history command.
	DefaultHistoryLimit = 20
)

// Config holds all options for one htmldepth run. It is populated from CLI
// flags and the config file, then passed down explicitly.
type Config struct {
	// Targets are the document locators to analyse, in output order.
	Targets []string

	// Timeout bounds each fetch.
	Timeout time.Duration

	// UserAgent is the default User-Agent header. Per-host settings may override it.
	UserAgent string

	// MaxBodySize is the largest accepted document in bytes. Zero means the default.
	MaxBodySize int64

	// ProxyAddress is a SOCKS5 proxy ("host:port") for every request.
	// Required for .onion targets unless EmbeddedTor is set.
	ProxyAddress string

	// EmbeddedTor starts a Tor daemon and routes requests through it.
	EmbeddedTor bool

	// TorStartupTimeout bounds the embedded Tor bootstrap.
	TorStartupTimeout time.Duration

	// Concurrency is the number of documents fetched and analysed at once.
	Concurrency int

	// RateLimit caps requests per second across all targets. Zero disables it.
	RateLimit float64

	// ConfigFilePath is an explicit config file. When empty the default
	// locations are searched.
	ConfigFilePath string

	// SiteConfigs holds the loaded config file, or nil when none was found.
	SiteConfigs *File

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// Verbose enables debug logging and detailed plain-text output.
	Verbose bool

	// DBDir is the directory holding the history database.
	DBDir string

	// SaveHistory records every analysis in the history database.
	SaveHistory bool
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:           DefaultTimeout,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		TorStartupTimeout: DefaultTorStartupTimeout,
		Concurrency:       DefaultConcurrency,
		DBDir:             XDGDataDir(),
		SaveHistory:       true,
	}
}

// XDGDataDir returns the data directory, e.g. ~/.local/share/htmldepth on Linux.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory, e.g. ~/.config/htmldepth on Linux.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate returns the first problem found in the configuration.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.EmbeddedTor && c.ProxyAddress != "" {
		return ErrConflictingProxy
	}
	return nil
}
