package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/news"
)

// Store persists canonical news items and maintains the source-URL existence
// index.
type Store struct {
	pool   *Pool
	logger zerolog.Logger
}

// LabelCount is one bucket of an aggregate breakdown.
type LabelCount struct {
	Label string `json:"_id"`
	Count int64  `json:"count"`
}

func NewStore(pool *Pool, logger zerolog.Logger) *Store {
	return &Store{
		pool:   pool,
		logger: logger,
	}
}

// SaveItems inserts the deduplicated items and their source URLs in one
// transaction. On failure nothing is persisted and zero is reported.
func (s *Store) SaveItems(ctx context.Context, items []news.Item) (int, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("news store is not initialized")
	}
	if len(items) == 0 {
		s.logger.Info().Msg("no news items to save")
		return 0, nil
	}

	tx, err := s.pool.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin save tx: %w", err)
	}

	saved := 0
	for _, item := range items {
		if err := insertItemTx(ctx, tx, item); err != nil {
			_ = tx.Rollback(ctx)
			return 0, err
		}
		saved++
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return 0, fmt.Errorf("commit save tx: %w", err)
	}

	s.logger.Info().Int("count", saved).Msg("saved news items")
	return saved, nil
}

func insertItemTx(ctx context.Context, tx Tx, item news.Item) error {
	if len(item.Sources) == 0 {
		return fmt.Errorf("news item %q has no source URLs", item.Title)
	}

	itemUUID := item.UUID
	if itemUUID == "" {
		itemUUID = uuid.NewString()
	}

	const q = `
INSERT INTO news.items (
	item_uuid,
	title,
	summary,
	language,
	published_date,
	sources,
	topics,
	groups,
	tool_sources,
	created_at,
	updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING item_id
`

	var itemID int64
	err := tx.QueryRow(
		ctx,
		q,
		itemUUID,
		item.Title,
		item.Summary,
		item.Language,
		item.PublishedDate,
		marshalStringArray(item.Sources),
		marshalStringArray(item.Topics),
		marshalStringArray(item.Groups),
		marshalStringArray(item.ToolSources),
		item.CreatedAt,
		item.UpdatedAt,
	).Scan(&itemID)
	if err != nil {
		return fmt.Errorf("insert news item %q: %w", item.Title, err)
	}

	const sourceQ = `INSERT INTO news.item_sources (item_id, url) VALUES ($1, $2)`
	for _, url := range item.Sources {
		if _, err := tx.Exec(ctx, sourceQ, itemID, url); err != nil {
			return fmt.Errorf("index source URL %q: %w", url, err)
		}
	}
	return nil
}

// CheckExistingURLs returns the subset of the given URLs already stored as a
// source on any item. Storage errors are logged and degrade to an empty
// result: ingestion proceeds and may reprocess rather than stall.
func (s *Store) CheckExistingURLs(ctx context.Context, urls []string) map[string]struct{} {
	existing := make(map[string]struct{})
	if s == nil || s.pool == nil || len(urls) == 0 {
		return existing
	}

	q, args := existingURLQuery(urls)
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		s.logger.Error().Err(err).Int("urls", len(urls)).Msg("check existing URLs failed; treating all as new")
		return existing
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			s.logger.Error().Err(err).Msg("scan existing URL failed; treating remainder as new")
			return existing
		}
		existing[url] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		s.logger.Error().Err(err).Msg("iterate existing URLs failed; treating all as new")
		return make(map[string]struct{})
	}
	return existing
}

// existingURLQuery expands the candidate URLs into an IN clause with one
// positional placeholder per URL.
func existingURLQuery(urls []string) (string, []any) {
	placeholders := make([]string, len(urls))
	args := make([]any, len(urls))
	for i, url := range urls {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = url
	}
	return `SELECT DISTINCT url FROM news.item_sources WHERE url IN (` + strings.Join(placeholders, ", ") + `)`, args
}

// AllURLs returns every source URL ever stored. Same fail-open policy as
// CheckExistingURLs.
func (s *Store) AllURLs(ctx context.Context) map[string]struct{} {
	urls := make(map[string]struct{})
	if s == nil || s.pool == nil {
		return urls
	}

	const q = `SELECT DISTINCT url FROM news.item_sources`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		s.logger.Error().Err(err).Msg("list all URLs failed; returning empty set")
		return urls
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			s.logger.Error().Err(err).Msg("scan URL failed; returning partial set")
			return urls
		}
		urls[url] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		s.logger.Error().Err(err).Msg("iterate URLs failed; returning empty set")
		return make(map[string]struct{})
	}
	return urls
}

// ListItems returns a time-sorted page of items: most recently published
// first, undated items last, creation time as tiebreaker.
func (s *Store) ListItems(ctx context.Context, limit, offset int) ([]news.Item, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("news store is not initialized")
	}
	if limit <= 0 {
		return nil, nil
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
SELECT
	item_uuid,
	title,
	summary,
	language,
	published_date,
	sources,
	topics,
	groups,
	tool_sources,
	created_at,
	updated_at
FROM news.items
ORDER BY published_date DESC NULLS LAST, created_at DESC
OFFSET $1
LIMIT $2
`

	rows, err := s.pool.Query(ctx, q, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list news items: %w", err)
	}
	defer rows.Close()

	items := make([]news.Item, 0, limit)
	for rows.Next() {
		var (
			item          news.Item
			publishedDate *time.Time
			sources       []byte
			topicsRaw     []byte
			groupsRaw     []byte
			toolSources   []byte
		)
		err := rows.Scan(
			&item.UUID,
			&item.Title,
			&item.Summary,
			&item.Language,
			&publishedDate,
			&sources,
			&topicsRaw,
			&groupsRaw,
			&toolSources,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan news item: %w", err)
		}

		item.PublishedDate = publishedDate
		item.Sources = unmarshalStringArray(sources)
		item.Topics = unmarshalStringArray(topicsRaw)
		item.Groups = unmarshalStringArray(groupsRaw)
		item.ToolSources = unmarshalStringArray(toolSources)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate news items: %w", err)
	}
	return items, nil
}

func (s *Store) CountItems(ctx context.Context) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("news store is not initialized")
	}

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM news.items`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count news items: %w", err)
	}
	return total, nil
}

// ToolSourceCounts unnests the tool_sources arrays and counts items per tool.
func (s *Store) ToolSourceCounts(ctx context.Context) ([]LabelCount, error) {
	const q = `
SELECT tool, COUNT(*)
FROM news.items, jsonb_array_elements_text(tool_sources) AS tool
GROUP BY tool
ORDER BY COUNT(*) DESC, tool
`
	return s.labelCounts(ctx, q)
}

// TopTopics returns the most frequent topic labels, largest first.
func (s *Store) TopTopics(ctx context.Context, limit int) ([]LabelCount, error) {
	const q = `
SELECT topic, COUNT(*)
FROM news.items, jsonb_array_elements_text(topics) AS topic
GROUP BY topic
ORDER BY COUNT(*) DESC, topic
LIMIT $1
`
	return s.labelCounts(ctx, q, limit)
}

func (s *Store) labelCounts(ctx context.Context, query string, args ...any) ([]LabelCount, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("news store is not initialized")
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate label counts: %w", err)
	}
	defer rows.Close()

	counts := make([]LabelCount, 0, 16)
	for rows.Next() {
		var lc LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, fmt.Errorf("scan label count: %w", err)
		}
		counts = append(counts, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate label counts: %w", err)
	}
	return counts, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("news store is not initialized")
	}
	return s.pool.Ping(ctx)
}

func marshalStringArray(values []string) json.RawMessage {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return json.RawMessage(`[]`)
	}
	return raw
}

func unmarshalStringArray(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}
	return values
}
