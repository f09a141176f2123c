package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/htmldepth/internal/config"
	"github.com/nao1215/htmldepth/internal/database"
	"github.com/nao1215/htmldepth/internal/fetch"
	"github.com/nao1215/htmldepth/internal/model"
)

// testOnionURL has a valid v3 checksum.
const testOnionURL = "http://aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaam2dqd.onion/"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html>\n  <body>\n    <p>\n      Hello\n    </p>\n  </body>\n</html>\n")
	})
	mux.HandleFunc("/bad", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html>\n<body>\n</html>\n")
	})
	mux.HandleFunc("/cookie", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") == "session=abc123" {
			_, _ = io.WriteString(w, "<p>\nauthorized\n</p>")
			return
		}
		_, _ = io.WriteString(w, "<p>\ndenied\n</p>")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestConfig(t *testing.T, targets ...string) *config.Config {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Targets = targets
	cfg.Timeout = 5 * time.Second
	cfg.DBDir = t.TempDir()
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewAnalyzeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewAnalyzeCmd()

	if cmd.Name() != "analyze" {
		t.Errorf("expected name 'analyze', got %q", cmd.Name())
	}
	if cmd.Args == nil {
		t.Error("expected Args validator")
	}

	flags := []struct {
		name      string
		shorthand string
	}{
		{"timeout", "t"},
		{"user-agent", "A"},
		{"max-body-size", ""},
		{"rate", "r"},
		{"concurrency", "n"},
		{"proxy", "x"},
		{"embedded-tor", "e"},
		{"tor-timeout", "T"},
		{"config", "c"},
		{"json", "j"},
		{"markdown", "m"},
		{"output", "o"},
		{"no-history", ""},
	}

	for _, f := range flags {
		t.Run(f.name, func(t *testing.T) {
			t.Parallel()

			flag := cmd.Flags().Lookup(f.name)
			if flag == nil {
				t.Fatalf("expected %s flag", f.name)
			}
			if flag.Shorthand != f.shorthand {
				t.Errorf("expected shorthand %q, got %q", f.shorthand, flag.Shorthand)
			}
		})
	}
}

func TestRunAnalyze(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	t.Run("single URL prints only the result", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t, srv.URL+"/ok")
		cfg.SaveHistory = false

		var out bytes.Buffer
		if err := runAnalyze(context.Background(), cfg, &out, io.Discard, discardLogger()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.String() != "Hello\n" {
			t.Errorf("expected %q, got %q", "Hello\n", out.String())
		}
	})

	t.Run("multiple URLs keep argument order and are recorded", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t, srv.URL+"/ok", srv.URL+"/bad", srv.URL+"/missing")

		var out bytes.Buffer
		if err := runAnalyze(context.Background(), cfg, &out, io.Discard, discardLogger()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := srv.URL + "/ok: Hello\n" +
			srv.URL + "/bad: malformed HTML\n" +
			srv.URL + "/missing: URL connection error\n"
		if out.String() != want {
			t.Errorf("expected:\n%s\ngot:\n%s", want, out.String())
		}

		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open history: %v", err)
		}
		defer db.Close()

		analyses, err := db.ListAnalyses(context.Background(), "", 0)
		if err != nil {
			t.Fatalf("failed to list analyses: %v", err)
		}
		if len(analyses) != 3 {
			t.Fatalf("expected 3 recorded analyses, got %d", len(analyses))
		}

		summary, err := db.Summary(context.Background(), srv.URL+"/missing")
		if err != nil {
			t.Fatalf("failed to summarize: %v", err)
		}
		if summary.ConnectionErrors != 1 {
			t.Errorf("expected one connection error, got %+v", summary)
		}
	})

	t.Run("JSON report file", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t, srv.URL+"/ok")
		cfg.SaveHistory = false
		cfg.JSONReport = true
		cfg.ReportFile = filepath.Join(t.TempDir(), "reports", "result.json")

		var out bytes.Buffer
		if err := runAnalyze(context.Background(), cfg, &out, io.Discard, discardLogger()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Len() != 0 {
			t.Errorf("expected nothing on stdout, got %q", out.String())
		}

		data, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}

		var got struct {
			Analyses []*model.Analysis `json:"analyses"`
		}
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("invalid JSON report: %v", err)
		}
		if len(got.Analyses) != 1 || got.Analyses[0].Text != "Hello" || got.Analyses[0].Depth != 3 {
			t.Errorf("unexpected report %s", data)
		}
	})

	t.Run("Markdown report", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t, srv.URL+"/ok", srv.URL+"/bad")
		cfg.SaveHistory = false
		cfg.MarkdownReport = true

		var out bytes.Buffer
		if err := runAnalyze(context.Background(), cfg, &out, io.Discard, discardLogger()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "# htmldepth Report") {
			t.Errorf("expected Markdown report, got:\n%s", out.String())
		}
	})

	t.Run("onion URL without proxy is a connection error", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t, testOnionURL)
		cfg.SaveHistory = false

		var out bytes.Buffer
		if err := runAnalyze(context.Background(), cfg, &out, io.Discard, discardLogger()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.String() != "URL connection error\n" {
			t.Errorf("unexpected output %q", out.String())
		}
	})

	t.Run("invalid proxy address", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t, srv.URL+"/ok")
		cfg.SaveHistory = false
		cfg.ProxyAddress = "not-a-proxy"

		err := runAnalyze(context.Background(), cfg, io.Discard, io.Discard, discardLogger())
		if !errors.Is(err, fetch.ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})

	t.Run("interrupted run records nothing", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		cfg := newTestConfig(t, srv.URL+"/ok", srv.URL+"/bad")

		var out bytes.Buffer
		err := runAnalyze(ctx, cfg, &out, io.Discard, discardLogger())
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if out.Len() != 0 {
			t.Errorf("expected no results, got %q", out.String())
		}

		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open history: %v", err)
		}
		defer db.Close()

		analyses, err := db.ListAnalyses(context.Background(), "", 0)
		if err != nil {
			t.Fatalf("failed to list analyses: %v", err)
		}
		if len(analyses) != 0 {
			t.Errorf("expected no recorded analyses, got %d", len(analyses))
		}
	})
}

func TestAnalyzeCommand(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	execute := func(t *testing.T, args ...string) (string, error) {
		t.Helper()

		var out bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&out)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(append([]string{"analyze"}, args...))
		err := cmd.Execute()
		return out.String(), err
	}

	t.Run("applies config file cookie", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "htmldepth.yaml")
		content := "defaults:\n  cookie: \"session=abc123\"\n"
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		out, err := execute(t, "--no-history", "--config", configPath, srv.URL+"/cookie")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out != "authorized\n" {
			t.Errorf("expected cookie to be sent, got %q", out)
		}
	})

	t.Run("TOML config file", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "htmldepth.toml")
		content := "[defaults]\ncookie = \"session=abc123\"\n"
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		out, err := execute(t, "--no-history", "-c", configPath, srv.URL+"/cookie")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out != "authorized\n" {
			t.Errorf("expected cookie to be sent, got %q", out)
		}
	})

	t.Run("connection errors exit cleanly", func(t *testing.T) {
		t.Parallel()

		out, err := execute(t, "--no-history", "-c", writeEmptyConfig(t), srv.URL+"/missing")
		if err != nil {
			t.Fatalf("expected no error for a reported connection error, got %v", err)
		}
		if out != "URL connection error\n" {
			t.Errorf("unexpected output %q", out)
		}
	})

	errorTests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "conflicting report formats",
			args:    []string{"--no-history", "--json", "--markdown", "http://example.com/"},
			wantErr: config.ErrConflictingReportFormats,
		},
		{
			name:    "conflicting proxy settings",
			args:    []string{"--no-history", "--embedded-tor", "--proxy", "127.0.0.1:9050", "http://example.com/"},
			wantErr: config.ErrConflictingProxy,
		},
		{
			name:    "invalid concurrency",
			args:    []string{"--no-history", "-n", "0", "http://example.com/"},
			wantErr: config.ErrInvalidConcurrency,
		},
		{
			name:    "missing explicit config file",
			args:    []string{"--no-history", "--config", "/nonexistent/htmldepth.yaml", "http://example.com/"},
			wantErr: config.ErrConfigNotFound,
		},
	}

	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			args := tt.args
			if tt.wantErr != config.ErrConfigNotFound {
				args = append([]string{"-c", writeEmptyConfig(t)}, args...)
			}

			_, err := execute(t, args...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("requires a URL", func(t *testing.T) {
		t.Parallel()

		if _, err := execute(t); err == nil {
			t.Error("expected error without arguments")
		}
	})
}

// writeEmptyConfig isolates a test from config files in the working or home directory.
func writeEmptyConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("sites: {}\n"), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestWarnOnionTargets(t *testing.T) {
	t.Parallel()

	t.Run("warns without proxy", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		warnOnionTargets([]string{"https://example.com/", testOnionURL}, "", slog.New(slog.NewTextHandler(&buf, nil)))

		if strings.Count(buf.String(), "onion URL requires") != 1 {
			t.Errorf("expected one warning, got %q", buf.String())
		}
	})

	t.Run("silent with proxy", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		warnOnionTargets([]string{testOnionURL}, "127.0.0.1:9050", slog.New(slog.NewTextHandler(&buf, nil)))

		if buf.Len() != 0 {
			t.Errorf("expected no warning, got %q", buf.String())
		}
	})
}
