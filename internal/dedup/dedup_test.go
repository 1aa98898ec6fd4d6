package dedup

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/news"
)

type embedderFunc func(ctx context.Context, texts []string) ([][]float64, error)

func (f embedderFunc) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	return f(ctx, texts)
}

func newTestDeduplicator(embedder Embedder, gen TextGenerator) *Deduplicator {
	return NewDeduplicator(embedder, NewMerger(gen, zerolog.Nop()), zerolog.Nop())
}

func TestDeduplicateEmptyAndSingleBatchShortCircuit(t *testing.T) {
	t.Parallel()

	embedder := embedderFunc(func(context.Context, []string) ([][]float64, error) {
		return nil, fmt.Errorf("embedder must not be called")
	})
	d := newTestDeduplicator(embedder, failingGenerator)

	out, err := d.Deduplicate(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("empty batch returned %d items", len(out))
	}

	single := []news.Item{itemFixture("solo", []string{"http://solo/1"}, time.Now().UTC())}
	out, err = d.Deduplicate(context.Background(), single)
	if err != nil {
		t.Fatalf("single batch: %v", err)
	}
	if len(out) != 1 || out[0].Title != "solo" || out[0].UpdatedAt != single[0].UpdatedAt {
		t.Fatalf("single batch must be returned unchanged, got %+v", out)
	}
}

func TestDeduplicateExactDuplicates(t *testing.T) {
	t.Parallel()

	// Identical combined text gets identical vectors from the fake embedder.
	embedder := embedderFunc(func(_ context.Context, texts []string) ([][]float64, error) {
		vectors := make([][]float64, 0, len(texts))
		for range texts {
			vectors = append(vectors, []float64{1, 0, 0})
		}
		return vectors, nil
	})
	d := newTestDeduplicator(embedder, failingGenerator)

	a := itemFixture("same story", []string{"http://a.example/article"}, time.Now().UTC())
	b := itemFixture("same story", []string{"http://b.example/article"}, time.Now().UTC())

	out, err := d.Deduplicate(context.Background(), []news.Item{a, b})
	if err != nil {
		t.Fatalf("deduplicate: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 merged item, got %d", len(out))
	}
	if len(out[0].Sources) != 2 {
		t.Fatalf("merged sources = %v, want both source URLs", out[0].Sources)
	}
}

func TestDeduplicateUnrelatedItemsUnchanged(t *testing.T) {
	t.Parallel()

	vectors := [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	embedder := embedderFunc(func(_ context.Context, texts []string) ([][]float64, error) {
		return vectors[:len(texts)], nil
	})

	gen := generatorFunc(func(context.Context, string) (string, error) {
		return "", fmt.Errorf("merge must not be invoked for unrelated items")
	})
	d := newTestDeduplicator(embedder, gen)

	items := []news.Item{
		itemFixture("economy", []string{"http://e/1"}, time.Now().UTC()),
		itemFixture("sports", []string{"http://s/1"}, time.Now().UTC()),
		itemFixture("weather", []string{"http://w/1"}, time.Now().UTC()),
	}

	out, err := d.Deduplicate(context.Background(), items)
	if err != nil {
		t.Fatalf("deduplicate: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 items, got %d", len(out))
	}
	for i := range items {
		if out[i].Title != items[i].Title {
			t.Fatalf("item %d changed: %q -> %q", i, items[i].Title, out[i].Title)
		}
	}
}

func TestDeduplicateNoSourceURLDuplicatedAcrossOutputs(t *testing.T) {
	t.Parallel()

	// Items 0 and 2 are the same story, item 1 is unrelated.
	vectors := [][]float64{{1, 0}, {0, 1}, {1, 0}}
	embedder := embedderFunc(func(_ context.Context, texts []string) ([][]float64, error) {
		return vectors[:len(texts)], nil
	})
	d := newTestDeduplicator(embedder, failingGenerator)

	items := []news.Item{
		itemFixture("story", []string{"http://story/1"}, time.Now().UTC()),
		itemFixture("other", []string{"http://other/1"}, time.Now().UTC()),
		itemFixture("story again", []string{"http://story/2"}, time.Now().UTC()),
	}

	out, err := d.Deduplicate(context.Background(), items)
	if err != nil {
		t.Fatalf("deduplicate: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 canonical items, got %d", len(out))
	}

	seen := make(map[string]int)
	for _, item := range out {
		for _, url := range item.Sources {
			seen[url]++
		}
	}
	for url, count := range seen {
		if count != 1 {
			t.Fatalf("source %q appears on %d canonical items", url, count)
		}
	}
}

func TestDeduplicateEmbedderFailureAbortsRun(t *testing.T) {
	t.Parallel()

	embedder := embedderFunc(func(context.Context, []string) ([][]float64, error) {
		return nil, fmt.Errorf("embedding service down")
	})
	d := newTestDeduplicator(embedder, failingGenerator)

	items := []news.Item{
		itemFixture("a", []string{"http://a/1"}, time.Now().UTC()),
		itemFixture("b", []string{"http://b/1"}, time.Now().UTC()),
	}
	if _, err := d.Deduplicate(context.Background(), items); err == nil {
		t.Fatalf("expected error when embedding fails")
	}
}

func TestDeduplicateVectorCountMismatch(t *testing.T) {
	t.Parallel()

	embedder := embedderFunc(func(context.Context, []string) ([][]float64, error) {
		return [][]float64{{1, 0}}, nil
	})
	d := newTestDeduplicator(embedder, failingGenerator)

	items := []news.Item{
		itemFixture("a", []string{"http://a/1"}, time.Now().UTC()),
		itemFixture("b", []string{"http://b/1"}, time.Now().UTC()),
	}
	if _, err := d.Deduplicate(context.Background(), items); err == nil {
		t.Fatalf("expected error on vector count mismatch")
	}
}
