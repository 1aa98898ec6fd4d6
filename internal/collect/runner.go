// Package collect drives a full collection run: walk the configured topics in
// order, validate and normalize the payloads each topic's worker returns,
// deduplicate the combined batch, and persist what is genuinely new.
package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"

	payloadschema "horse.fit/newsdesk/schema"

	"horse.fit/newsdesk/internal/dedup"
	"horse.fit/newsdesk/internal/globaltime"
	"horse.fit/newsdesk/internal/langdetect"
	"horse.fit/newsdesk/internal/news"
	"horse.fit/newsdesk/internal/topics"
)

// Collector produces raw news payloads for one topic plan. Implementations
// wrap an external worker agent; a failing topic must not abort the run.
type Collector interface {
	Collect(ctx context.Context, plan topics.Plan) ([]json.RawMessage, error)
}

// ItemStore is the persistence surface a run needs.
type ItemStore interface {
	CheckExistingURLs(ctx context.Context, urls []string) map[string]struct{}
	AllURLs(ctx context.Context) map[string]struct{}
	SaveItems(ctx context.Context, items []news.Item) (int, error)
}

// Above this many candidate URLs a full index fetch beats a membership query.
const existingURLQueryLimit = 500

// Runner executes collection runs.
type Runner struct {
	collector    Collector
	deduplicator *dedup.Deduplicator
	store        ItemStore
	logger       zerolog.Logger
}

// Result summarizes one collection run.
type Result struct {
	TopicsProcessed int
	TopicsFailed    int
	Collected       int
	Invalid         int
	Deduplicated    int
	AlreadyStored   int
	Saved           int
}

func NewRunner(collector Collector, deduplicator *dedup.Deduplicator, store ItemStore, logger zerolog.Logger) *Runner {
	return &Runner{
		collector:    collector,
		deduplicator: deduplicator,
		store:        store,
		logger:       logger,
	}
}

// Run walks the plans strictly in order, accumulating validated items across
// topics, then deduplicates the whole batch once, drops items whose every
// source URL is already stored, and saves the remainder.
func (r *Runner) Run(ctx context.Context, plans []topics.Plan) (Result, error) {
	var result Result
	if r == nil || r.collector == nil || r.deduplicator == nil || r.store == nil {
		return result, fmt.Errorf("collect runner is not initialized")
	}

	var collected []news.Item
	for _, plan := range plans {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("collection run canceled: %w", err)
		}

		items, invalid, err := r.collectTopic(ctx, plan)
		if err != nil {
			result.TopicsFailed++
			r.logger.Error().Err(err).Str("topic", plan.Topic).Msg("topic collection failed; continuing with next topic")
			continue
		}

		result.TopicsProcessed++
		result.Collected += len(items)
		result.Invalid += invalid
		collected = append(collected, items...)
	}

	if len(collected) == 0 {
		r.logger.Info().Msg("collection run produced no valid news items")
		return result, nil
	}

	deduplicated, err := r.deduplicator.Deduplicate(ctx, collected)
	if err != nil {
		return result, fmt.Errorf("deduplicate collected items: %w", err)
	}
	result.Deduplicated = len(deduplicated)

	fresh := r.dropAlreadyStored(ctx, deduplicated)
	result.AlreadyStored = len(deduplicated) - len(fresh)

	saved, err := r.store.SaveItems(ctx, fresh)
	if err != nil {
		r.logger.Error().Err(err).Int("items", len(fresh)).Msg("saving news items failed; nothing persisted")
		return result, fmt.Errorf("save news items: %w", err)
	}
	result.Saved = saved

	r.logger.Info().
		Int("topics", result.TopicsProcessed).
		Int("collected", result.Collected).
		Int("deduplicated", result.Deduplicated).
		Int("saved", result.Saved).
		Msg("collection run complete")
	return result, nil
}

func (r *Runner) collectTopic(ctx context.Context, plan topics.Plan) ([]news.Item, int, error) {
	r.logger.Info().
		Str("topic", plan.Topic).
		Int("days_filter", plan.DaysFilter).
		Strs("tools", plan.Tools).
		Bool("research", plan.IsResearch).
		Msg("collecting topic")

	payloads, err := r.collector.Collect(ctx, plan)
	if err != nil {
		return nil, 0, fmt.Errorf("collect topic %q: %w", plan.Topic, err)
	}

	if plan.MaxItems > 0 && len(payloads) > plan.MaxItems {
		r.logger.Warn().
			Str("topic", plan.Topic).
			Int("collected", len(payloads)).
			Int("max_items", plan.MaxItems).
			Msg("truncating topic payloads to per-topic cap")
		payloads = payloads[:plan.MaxItems]
	}

	items := make([]news.Item, 0, len(payloads))
	invalid := 0
	for _, raw := range payloads {
		payload, err := payloadschema.ValidatePayload(raw)
		if err != nil {
			invalid++
			r.logger.Warn().Err(err).Str("topic", plan.Topic).Msg("skipping invalid payload")
			continue
		}
		items = append(items, r.buildItem(plan, payload))
	}

	r.logger.Info().
		Str("topic", plan.Topic).
		Int("valid", len(items)).
		Int("invalid", invalid).
		Msg("topic collection finished")
	return items, invalid, nil
}

// buildItem normalizes a validated payload into a news item: the topic plan
// supplies labels the worker omitted, the published date is parsed leniently,
// and the item text is language-tagged.
func (r *Runner) buildItem(plan topics.Plan, payload *payloadschema.Payload) news.Item {
	now := globaltime.UTC()

	item := news.Item{
		Title:       strings.TrimSpace(payload.Title),
		Summary:     strings.TrimSpace(payload.Summary),
		Sources:     payload.Sources,
		Topics:      payload.Topic,
		Groups:      payload.Groups,
		ToolSources: payload.ToolSource,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if len(item.Topics) == 0 {
		item.Topics = []string{plan.Topic}
	}
	if len(item.Groups) == 0 {
		item.Groups = append([]string(nil), plan.Groups...)
	}

	if payload.PublishedDate != nil {
		raw := strings.TrimSpace(*payload.PublishedDate)
		if raw != "" {
			parsed, err := dateparse.ParseAny(raw)
			if err != nil {
				r.logger.Warn().Err(err).Str("published_date", raw).Msg("unparseable published date; storing item without one")
			} else {
				utc := parsed.UTC()
				item.PublishedDate = &utc
			}
		}
	}

	item.Language = langdetect.DetectISO6391(item.CombinedText())

	return item
}

// dropAlreadyStored removes items whose every source URL is already in the
// store. An item with at least one unseen URL carries new information and is
// kept whole.
func (r *Runner) dropAlreadyStored(ctx context.Context, items []news.Item) []news.Item {
	urls := make([]string, 0, len(items))
	for _, item := range items {
		urls = append(urls, item.Sources...)
	}

	var existing map[string]struct{}
	if len(urls) > existingURLQueryLimit {
		existing = r.store.AllURLs(ctx)
	} else {
		existing = r.store.CheckExistingURLs(ctx, urls)
	}
	if len(existing) == 0 {
		return items
	}

	fresh := make([]news.Item, 0, len(items))
	for _, item := range items {
		if allSourcesExist(item, existing) {
			r.logger.Debug().Str("title", item.Title).Msg("dropping already stored news item")
			continue
		}
		fresh = append(fresh, item)
	}
	return fresh
}

func allSourcesExist(item news.Item, existing map[string]struct{}) bool {
	if len(item.Sources) == 0 {
		return false
	}
	for _, source := range item.Sources {
		if _, ok := existing[source]; !ok {
			return false
		}
	}
	return true
}
