package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/htmldepth/internal/analyzer"
	"github.com/nao1215/htmldepth/internal/config"
	"github.com/nao1215/htmldepth/internal/database"
	"github.com/nao1215/htmldepth/internal/model"
)

// seedHistory records analyses of two URLs and returns the database directory.
func seedHistory(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	records := []struct {
		url string
		doc string
	}{
		{"https://a.example/", "<p>\nfirst\n</p>"},
		{"https://a.example/", "<p>\n</div>"},
		{"https://b.example/", "<div>\n<p>\nsecond\n</p>\n</div>"},
	}

	for i, r := range records {
		a := model.NewAnalysis(r.url)
		a.StartedAt = base.Add(time.Duration(i) * time.Hour)
		a.SetDocument(r.doc)
		a.ApplyResult(analyzer.Analyze(r.doc))
		if err := db.SaveAnalysis(context.Background(), a); err != nil {
			t.Fatalf("failed to save analysis: %v", err)
		}
	}
	return dir
}

func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	if cmd.Name() != "history" {
		t.Errorf("expected name 'history', got %q", cmd.Name())
	}

	for _, name := range []string{"list-urls", "limit", "json", "markdown"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}

	if flag := cmd.Flags().Lookup("limit"); flag != nil && flag.DefValue != "20" {
		t.Errorf("expected default limit 20, got %s", flag.DefValue)
	}
}

func TestRunHistory(t *testing.T) {
	t.Parallel()

	dir := seedHistory(t)
	ctx := context.Background()

	t.Run("single URL with summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		err := runHistory(ctx, historyOptions{dbDir: dir, url: "https://a.example/", limit: 20}, &buf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"History: https://a.example/",
			"Total: 2 (ok 1, malformed 1, connection errors 0)",
			"first",
			"malformed HTML",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, output)
			}
		}
		if strings.Contains(output, "second") {
			t.Errorf("expected other URLs to be excluded, got:\n%s", output)
		}

		// Newest first.
		if strings.Index(output, "malformed HTML") > strings.Index(output, "first") {
			t.Errorf("expected newest analysis first, got:\n%s", output)
		}
	})

	t.Run("all URLs with limit", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := runHistory(ctx, historyOptions{dbDir: dir, limit: 1}, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 1 {
			t.Fatalf("expected 1 line, got %d:\n%s", len(lines), buf.String())
		}
		if !strings.Contains(lines[0], "https://b.example/: second") {
			t.Errorf("expected latest analysis, got %q", lines[0])
		}
	})

	t.Run("list URLs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := runHistory(ctx, historyOptions{dbDir: dir, listURLs: true}, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "https://a.example/\nhttps://b.example/\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		err := runHistory(ctx, historyOptions{dbDir: dir, url: "https://b.example/", json: true}, &buf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got struct {
			Summary  *model.Summary    `json:"summary"`
			Analyses []*model.Analysis `json:"analyses"`
		}
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Summary == nil || got.Summary.OK != 1 {
			t.Errorf("unexpected summary %+v", got.Summary)
		}
		if len(got.Analyses) != 1 || got.Analyses[0].Text != "second" || got.Analyses[0].Depth != 2 {
			t.Errorf("unexpected analyses %s", buf.String())
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		err := runHistory(ctx, historyOptions{dbDir: dir, url: "https://a.example/", markdown: true}, &buf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "# History of https://a.example/") {
			t.Errorf("unexpected output:\n%s", buf.String())
		}
	})

	t.Run("conflicting formats", func(t *testing.T) {
		t.Parallel()

		err := runHistory(ctx, historyOptions{dbDir: dir, json: true, markdown: true}, &bytes.Buffer{})
		if !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})

	t.Run("negative limit", func(t *testing.T) {
		t.Parallel()

		if err := runHistory(ctx, historyOptions{dbDir: dir, limit: -1}, &bytes.Buffer{}); err == nil {
			t.Error("expected error for negative limit")
		}
	})
}

func TestRunHistoryWithoutDatabase(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	var buf bytes.Buffer
	if err := runHistory(context.Background(), historyOptions{dbDir: dir, url: "https://a.example/"}, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No analyses recorded.") {
		t.Errorf("unexpected output %q", buf.String())
	}

	buf.Reset()
	if err := runHistory(context.Background(), historyOptions{dbDir: dir, listURLs: true}, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "No analyses recorded.\n" {
		t.Errorf("unexpected output %q", buf.String())
	}

	if _, err := os.Stat(filepath.Join(dir, database.FileName)); !os.IsNotExist(err) {
		t.Error("expected history to stay read-only")
	}
}
