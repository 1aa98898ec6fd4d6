package dedup

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/news"
)

// Embedder turns texts into fixed-length vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Deduplicator runs the embedding, clustering and merge passes over one full
// batch of collected items, producing one canonical item per cluster.
type Deduplicator struct {
	embedder Embedder
	merger   *Merger
	logger   zerolog.Logger
}

func NewDeduplicator(embedder Embedder, merger *Merger, logger zerolog.Logger) *Deduplicator {
	return &Deduplicator{
		embedder: embedder,
		merger:   merger,
		logger:   logger,
	}
}

// Deduplicate collapses similar items in the batch into canonical items.
// Batches of zero or one item are returned unchanged without an embedding
// call. The output preserves seed order: one item per cluster, clusters in
// ascending seed-index order, and no source URL appears on two outputs.
func (d *Deduplicator) Deduplicate(ctx context.Context, items []news.Item) ([]news.Item, error) {
	if len(items) <= 1 {
		d.logger.Info().Int("count", len(items)).Msg("no news items to deduplicate")
		return items, nil
	}
	if d.embedder == nil || d.merger == nil {
		return nil, fmt.Errorf("deduplicator is not initialized")
	}

	d.logger.Info().Int("count", len(items)).Msg("starting deduplication")

	texts := make([]string, 0, len(items))
	for _, item := range items {
		texts = append(texts, item.CombinedText())
	}

	vectors, err := d.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d news items: %w", len(items), err)
	}
	if len(vectors) != len(items) {
		return nil, fmt.Errorf("embedding count mismatch: requested=%d returned=%d", len(items), len(vectors))
	}

	clusters := Clusters(vectors, SimilarityThreshold)
	d.logger.Info().
		Int("clusters", len(clusters)).
		Float64("threshold", SimilarityThreshold).
		Msg("found unique news item groups")

	deduplicated := make([]news.Item, 0, len(clusters))
	for _, cluster := range clusters {
		members := make([]news.Item, 0, len(cluster))
		for _, idx := range cluster {
			members = append(members, items[idx])
		}
		deduplicated = append(deduplicated, d.merger.MergeCluster(ctx, members))
	}

	d.logger.Info().
		Int("before", len(items)).
		Int("after", len(deduplicated)).
		Msg("deduplication complete")
	return deduplicated, nil
}
