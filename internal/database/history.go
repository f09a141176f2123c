package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/htmldepth/internal/analyzer"
	"github.com/nao1215/htmldepth/internal/model"
)

// FileName is the database file created in the data directory.
const FileName = "history.db"

var (
	// ErrNotFound is returned when no analysis has the requested ID.
	ErrNotFound = errors.New("analysis not found")

	// ErrIncompleteAnalysis is returned when saving an analysis without a status.
	ErrIncompleteAnalysis = errors.New("analysis has no status")
)

// HistoryDB stores completed analyses.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures Open.
type Options struct {
	// CreateIfNotExists creates the directory and database file when missing.
	CreateIfNotExists bool

	// EnableWAL enables write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns options that create the database with WAL enabled.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	// Concurrent htmldepth processes wait for the writer instead of failing.
	const pragmas = "&_pragma=busy_timeout(5000)"

	dsn := dbPath + "?mode=rw" + pragmas
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?mode=rwc" + pragmas
	} else if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, err)
		}
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // already returning an error
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck // already returning an error
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		status TEXT NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		depth INTEGER NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT '',
		line INTEGER NOT NULL DEFAULT 0,
		lines INTEGER NOT NULL DEFAULT 0,
		tags_opened INTEGER NOT NULL DEFAULT 0,
		max_nesting INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		document_hash TEXT NOT NULL DEFAULT '',
		document_size INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		duration_ns INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_url ON analyses(url);
	CREATE INDEX IF NOT EXISTS idx_analyses_started_at ON analyses(started_at);
	`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SaveAnalysis inserts a finished analysis, replacing any row with the same ID.
func (h *HistoryDB) SaveAnalysis(ctx context.Context, a *model.Analysis) error {
	if a.Status == model.StatusUnknown {
		return ErrIncompleteAnalysis
	}

	query := `
	INSERT INTO analyses (
		id, url, status, text, depth, reason, line,
		lines, tags_opened, max_nesting,
		error, document_hash, document_size, started_at, duration_ns
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		url = excluded.url,
		status = excluded.status,
		text = excluded.text,
		depth = excluded.depth,
		reason = excluded.reason,
		line = excluded.line,
		lines = excluded.lines,
		tags_opened = excluded.tags_opened,
		max_nesting = excluded.max_nesting,
		error = excluded.error,
		document_hash = excluded.document_hash,
		document_size = excluded.document_size,
		started_at = excluded.started_at,
		duration_ns = excluded.duration_ns
	`

	_, err := h.db.ExecContext(ctx, query,
		a.ID, a.URL, string(a.Status), a.Text, a.Depth, a.Reason, a.Line,
		a.Stats.Lines, a.Stats.TagsOpened, a.Stats.MaxNesting,
		a.Error, a.DocumentHash, a.DocumentSize,
		formatTimestamp(a.StartedAt), int64(a.Duration),
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, url, status, text, depth, reason, line,
		lines, tags_opened, max_nesting,
		error, document_hash, document_size, started_at, duration_ns
	FROM analyses`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*model.Analysis, error) {
	var (
		a         model.Analysis
		status    string
		startedAt string
		duration  int64
		stats     analyzer.Stats
	)

	err := row.Scan(
		&a.ID, &a.URL, &status, &a.Text, &a.Depth, &a.Reason, &a.Line,
		&stats.Lines, &stats.TagsOpened, &stats.MaxNesting,
		&a.Error, &a.DocumentHash, &a.DocumentSize, &startedAt, &duration,
	)
	if err != nil {
		return nil, err
	}

	a.Status = model.ParseStatus(status)
	a.Stats = stats
	a.StartedAt = parseTimestamp(startedAt)
	a.Duration = time.Duration(duration)
	return &a, nil
}

// GetAnalysis returns the analysis with the given ID, or ErrNotFound.
func (h *HistoryDB) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	a, err := scanAnalysis(h.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return a, nil
}

// ListAnalyses returns analyses newest first. An empty url lists every URL;
// a non-positive limit returns all rows.
func (h *HistoryDB) ListAnalyses(ctx context.Context, url string, limit int) ([]*model.Analysis, error) {
	query := selectColumns
	args := make([]any, 0, 2)
	if url != "" {
		query += ` WHERE url = ?`
		args = append(args, url)
	}
	query += ` ORDER BY started_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var results []*model.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

// ListURLs returns every analysed URL in lexical order.
func (h *HistoryDB) ListURLs(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT DISTINCT url FROM analyses ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list URLs: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

// Summary counts the stored analyses of url by status.
// A URL with no history yields a zero Summary.
func (h *HistoryDB) Summary(ctx context.Context, url string) (*model.Summary, error) {
	query := `
	SELECT status, COUNT(*), MIN(started_at), MAX(started_at)
	FROM analyses
	WHERE url = ?
	GROUP BY status
	`

	rows, err := h.db.QueryContext(ctx, query, url)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize analyses: %w", err)
	}
	defer rows.Close()

	summary := &model.Summary{URL: url}
	for rows.Next() {
		var (
			status        string
			count         int
			first, latest string
		)
		if err := rows.Scan(&status, &count, &first, &latest); err != nil {
			return nil, err
		}
		summary.Add(model.ParseStatus(status), count)

		if t := parseTimestamp(first); summary.FirstAnalyzed.IsZero() || t.Before(summary.FirstAnalyzed) {
			summary.FirstAnalyzed = t
		}
		if t := parseTimestamp(latest); t.After(summary.LastAnalyzed) {
			summary.LastAnalyzed = t
		}
	}
	return summary, rows.Err()
}

// timestampLayout has fixed width so stored values sort chronologically.
const timestampLayout = "2006-01-02 15:04:05.000000000"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats are tried in order when reading timestamps back.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

// parseTimestamp returns the zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
