package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/htmldepth/internal/model"
)

func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })
		if bp.concurrency != defaultConcurrency {
			t.Errorf("expected default concurrency %d, got %d", defaultConcurrency, bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(5))
		if bp.concurrency != 5 {
			t.Errorf("expected concurrency 5, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency and nil logger", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(0), WithBatchLogger(nil))
		if bp.concurrency != defaultConcurrency {
			t.Errorf("expected default concurrency, got %d", bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})
}

func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("keeps input order and isolates failures", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{docs: map[string]string{
			"https://a.example/": "<a>\nA\n</a>",
			"https://c.example/": "<c>\n</d>",
		}}
		bp := NewBatchProcessor(func() *Pipeline { return NewAnalysisPipeline(fetcher, nil) }, WithConcurrency(2))

		urls := []string{"https://a.example/", "https://b.example/", "https://c.example/"}
		results, err := bp.ProcessBatch(context.Background(), urls)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != len(urls) {
			t.Fatalf("expected %d results, got %d", len(urls), len(results))
		}

		want := []model.Status{model.StatusOK, model.StatusConnectionError, model.StatusMalformed}
		for i, r := range results {
			if r == nil {
				t.Fatalf("result %d is nil", i)
			}
			if r.URL != urls[i] {
				t.Errorf("result %d: expected URL %s, got %s", i, urls[i], r.URL)
			}
			if r.Status != want[i] {
				t.Errorf("result %d: expected %s, got %s", i, want[i], r.Status)
			}
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, peak atomic.Int32
		slow := &mockStep{name: "slow", doFunc: func(context.Context, *model.Analysis) error {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			current.Add(-1)
			return nil
		}}

		bp := NewBatchProcessor(func() *Pipeline {
			p := New()
			p.AddStep(&mockStep{name: slow.name, doFunc: slow.doFunc})
			return p
		}, WithConcurrency(2))

		urls := make([]string, 8)
		for i := range urls {
			urls[i] = "https://example.com/"
		}
		if _, err := bp.ProcessBatch(context.Background(), urls); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("expected at most 2 concurrent analyses, saw %d", peak.Load())
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })
		results, err := bp.ProcessBatch(ctx, []string{"https://example.com/"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if results[0] != nil {
			t.Error("expected no result for an analysis that never started")
		}
	})
}

func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{docs: map[string]string{
		"https://a.example/": "A",
		"https://b.example/": "B",
	}}
	bp := NewBatchProcessor(func() *Pipeline { return NewAnalysisPipeline(fetcher, nil) })

	var mu sync.Mutex
	seen := make(map[int]string)
	err := bp.ProcessBatchWithCallback(context.Background(),
		[]string{"https://a.example/", "https://b.example/"},
		func(analysis *model.Analysis, index int) {
			mu.Lock()
			defer mu.Unlock()
			seen[index] = analysis.Output()
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen[0] != "A" || seen[1] != "B" {
		t.Errorf("unexpected callback results %v", seen)
	}
}
