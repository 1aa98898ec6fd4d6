package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	payloadschema "horse.fit/newsdesk/schema"

	"horse.fit/newsdesk/internal/dedup"
	"horse.fit/newsdesk/internal/news"
	"horse.fit/newsdesk/internal/topics"
)

type collectorFunc func(ctx context.Context, plan topics.Plan) ([]json.RawMessage, error)

func (f collectorFunc) Collect(ctx context.Context, plan topics.Plan) ([]json.RawMessage, error) {
	return f(ctx, plan)
}

type embedderFunc func(ctx context.Context, texts []string) ([][]float64, error)

func (f embedderFunc) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	return f(ctx, texts)
}

// orthogonalEmbedder gives every text its own axis so nothing clusters.
var orthogonalEmbedder = embedderFunc(func(_ context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vec := make([]float64, len(texts))
		vec[i] = 1
		vectors[i] = vec
	}
	return vectors, nil
})

type fakeStore struct {
	existing map[string]struct{}
	saved    []news.Item
	saveErr  error
}

func (s *fakeStore) CheckExistingURLs(_ context.Context, urls []string) map[string]struct{} {
	found := make(map[string]struct{})
	for _, url := range urls {
		if _, ok := s.existing[url]; ok {
			found[url] = struct{}{}
		}
	}
	return found
}

func (s *fakeStore) AllURLs(context.Context) map[string]struct{} {
	return s.existing
}

func (s *fakeStore) SaveItems(_ context.Context, items []news.Item) (int, error) {
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	s.saved = append(s.saved, items...)
	return len(items), nil
}

func payloadJSON(t *testing.T, title, summary string, sources ...string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"payload_version": "v1",
		"title":           title,
		"summary":         summary,
		"sources":         sources,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func validatedPayload(publishedDate string) *payloadschema.Payload {
	return &payloadschema.Payload{
		PayloadVersion: "v1",
		Title:          "Chip fab breaks ground in Arizona",
		Summary:        "Construction started on the new semiconductor plant this week.",
		Sources:        []string{"https://news.example/fab"},
		PublishedDate:  &publishedDate,
	}
}

func testRunner(collector Collector, store ItemStore) *Runner {
	logger := zerolog.Nop()
	deduplicator := dedup.NewDeduplicator(orthogonalEmbedder, dedup.NewMerger(nil, logger), logger)
	return NewRunner(collector, deduplicator, store, logger)
}

func TestRunContinuesPastFailingTopic(t *testing.T) {
	t.Parallel()

	collector := collectorFunc(func(_ context.Context, plan topics.Plan) ([]json.RawMessage, error) {
		switch plan.Topic {
		case "space":
			return []json.RawMessage{
				payloadJSON(t, "Starship launch window announced", "The next orbital test has a date.", "https://news.example/starship"),
				json.RawMessage(`{"payload_version":"v1","title":""}`),
			}, nil
		case "broken":
			return nil, fmt.Errorf("worker timed out")
		default:
			return nil, nil
		}
	})

	store := &fakeStore{}
	runner := testRunner(collector, store)

	plans := []topics.Plan{{Topic: "space"}, {Topic: "broken"}}
	result, err := runner.Run(context.Background(), plans)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.TopicsProcessed != 1 || result.TopicsFailed != 1 {
		t.Fatalf("topics processed=%d failed=%d, want 1 and 1", result.TopicsProcessed, result.TopicsFailed)
	}
	if result.Collected != 1 || result.Invalid != 1 {
		t.Fatalf("collected=%d invalid=%d, want 1 and 1", result.Collected, result.Invalid)
	}
	if result.Saved != 1 || len(store.saved) != 1 {
		t.Fatalf("saved=%d stored=%d, want 1 item saved", result.Saved, len(store.saved))
	}

	item := store.saved[0]
	if got, want := item.Topics[0], "space"; got != want {
		t.Fatalf("item topic = %q, want %q", got, want)
	}
	if item.CreatedAt.IsZero() || item.UpdatedAt.IsZero() {
		t.Fatal("item timestamps not set")
	}
}

func TestRunCapsItemsPerTopic(t *testing.T) {
	t.Parallel()

	collector := collectorFunc(func(_ context.Context, _ topics.Plan) ([]json.RawMessage, error) {
		return []json.RawMessage{
			payloadJSON(t, "Quake off the coast", "A magnitude six quake struck offshore.", "https://news.example/quake"),
			payloadJSON(t, "Aftershocks continue", "Several aftershocks followed overnight.", "https://news.example/aftershocks"),
			payloadJSON(t, "Cleanup begins", "Crews started clearing debris.", "https://news.example/cleanup"),
		}, nil
	})

	store := &fakeStore{}
	runner := testRunner(collector, store)

	result, err := runner.Run(context.Background(), []topics.Plan{{Topic: "earthquakes", MaxItems: 1}})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Collected != 1 {
		t.Fatalf("collected = %d, want 1 after per-topic cap", result.Collected)
	}
	if len(store.saved) != 1 || store.saved[0].Title != "Quake off the coast" {
		t.Fatalf("saved = %+v, want only the first payload", store.saved)
	}
}

func TestRunDropsFullyStoredItems(t *testing.T) {
	t.Parallel()

	collector := collectorFunc(func(_ context.Context, _ topics.Plan) ([]json.RawMessage, error) {
		return []json.RawMessage{
			payloadJSON(t, "Old story", "Already in the archive.", "https://news.example/old"),
			payloadJSON(t, "Half new story", "One URL is new.", "https://news.example/old2", "https://news.example/new"),
		}, nil
	})

	store := &fakeStore{existing: map[string]struct{}{
		"https://news.example/old":  {},
		"https://news.example/old2": {},
	}}
	runner := testRunner(collector, store)

	result, err := runner.Run(context.Background(), []topics.Plan{{Topic: "news"}})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.AlreadyStored != 1 {
		t.Fatalf("already stored = %d, want 1", result.AlreadyStored)
	}
	if len(store.saved) != 1 || store.saved[0].Title != "Half new story" {
		t.Fatalf("saved items = %+v, want only the half-new story", store.saved)
	}
}

func TestRunSaveFailureReportsZeroSaved(t *testing.T) {
	t.Parallel()

	collector := collectorFunc(func(_ context.Context, _ topics.Plan) ([]json.RawMessage, error) {
		return []json.RawMessage{
			payloadJSON(t, "Budget vote passes", "The chamber approved the budget.", "https://news.example/budget"),
		}, nil
	})

	store := &fakeStore{saveErr: fmt.Errorf("connection refused")}
	runner := testRunner(collector, store)

	result, err := runner.Run(context.Background(), []topics.Plan{{Topic: "politics"}})
	if err == nil {
		t.Fatal("Run returned nil error after save failure")
	}
	if result.Saved != 0 {
		t.Fatalf("saved = %d, want 0", result.Saved)
	}
}

func TestBuildItemNormalization(t *testing.T) {
	t.Parallel()

	runner := testRunner(nil, &fakeStore{})
	plan := topics.Plan{Topic: "technology", Groups: []string{"technology", "latest news"}}

	published := "2026-08-20T10:30:00Z"
	item := runner.buildItem(plan, validatedPayload(published))

	if got, want := item.Topics[0], "technology"; got != want {
		t.Fatalf("topic = %q, want %q", got, want)
	}
	if len(item.Groups) != 2 {
		t.Fatalf("groups = %v, want plan groups", item.Groups)
	}
	if item.PublishedDate == nil || item.PublishedDate.Format("2006-01-02") != "2026-08-20" {
		t.Fatalf("published date = %v, want 2026-08-20", item.PublishedDate)
	}
	if item.Language != "en" {
		t.Fatalf("language = %q, want en", item.Language)
	}
}

func TestBuildItemUnparseableDate(t *testing.T) {
	t.Parallel()

	runner := testRunner(nil, &fakeStore{})
	bad := "sometime last week maybe"
	item := runner.buildItem(topics.Plan{Topic: "science"}, validatedPayload(bad))

	if item.PublishedDate != nil {
		t.Fatalf("published date = %v, want nil for unparseable input", item.PublishedDate)
	}
}

func TestDirCollector(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	payloads := []json.RawMessage{payloadJSON(t, "Fusion milestone reached", "A reactor sustained net gain.", "https://news.example/fusion")}
	raw, err := json.Marshal(payloads)
	if err != nil {
		t.Fatalf("marshal payloads: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ai_research.json"), raw, 0o644); err != nil {
		t.Fatalf("write payload file: %v", err)
	}

	collector := NewDirCollector(dir)

	got, err := collector.Collect(context.Background(), topics.Plan{Topic: "AI Research"})
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("collected %d payloads, want 1", len(got))
	}

	got, err = collector.Collect(context.Background(), topics.Plan{Topic: "no such topic"})
	if err != nil {
		t.Fatalf("Collect for missing file returned error: %v", err)
	}
	if got != nil {
		t.Fatalf("collected %v for missing file, want nil", got)
	}
}

func TestTopicFileName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"AI Research":    "ai_research.json",
		"  US politics ": "us_politics.json",
		"tech/startups":  "tech_startups.json",
	}
	for topic, want := range cases {
		if got := TopicFileName(topic); got != want {
			t.Fatalf("TopicFileName(%q) = %q, want %q", topic, got, want)
		}
	}
}
