package dedup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/globaltime"
	"horse.fit/newsdesk/internal/news"
)

// TextGenerator is the external text-merge capability. It may fail on network
// or provider errors; the merger degrades to a deterministic fallback.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Merger collapses a cluster of similar items into one canonical item.
type Merger struct {
	gen    TextGenerator
	logger zerolog.Logger
}

func NewMerger(gen TextGenerator, logger zerolog.Logger) *Merger {
	return &Merger{
		gen:    gen,
		logger: logger,
	}
}

// MergeCluster folds the cluster left to right: the first item is the
// accumulator and each following item is merged into it pairwise. The order
// decides which title wins when the text-merge capability is unavailable, so
// callers must pass the cluster in seed order.
func (m *Merger) MergeCluster(ctx context.Context, items []news.Item) news.Item {
	if len(items) == 0 {
		return news.Item{}
	}

	merged := items[0]
	if len(items) == 1 {
		return merged
	}

	m.logger.Info().Int("cluster_size", len(items)).Msg("merging similar news items")
	for _, next := range items[1:] {
		merged = m.mergeTwo(ctx, merged, next)
	}
	return merged
}

// mergeTwo combines two items. Title and summary come from the text-merge
// capability when it succeeds and parses; everything else is combined
// deterministically. This function never fails.
func (m *Merger) mergeTwo(ctx context.Context, a, b news.Item) news.Item {
	title := a.Title
	summary := a.Summary + "\n\n" + b.Summary

	content, err := m.generateMergedText(ctx, a, b)
	if err != nil {
		m.logger.Warn().Err(err).Msg("text merge failed; using concatenation fallback")
	} else {
		parsedTitle, parsedSummary := parseMergedText(content)
		if parsedTitle != "" {
			title = parsedTitle
		}
		if parsedSummary != "" {
			summary = parsedSummary
		}
	}

	return news.Item{
		Title:         title,
		Summary:       summary,
		Sources:       unionStrings(a.Sources, b.Sources),
		PublishedDate: latestDate(a.PublishedDate, b.PublishedDate),
		Topics:        unionStrings(a.Topics, b.Topics),
		Groups:        unionStrings(a.Groups, b.Groups),
		ToolSources:   unionStrings(a.ToolSources, b.ToolSources),
		Language:      firstNonEmpty(a.Language, b.Language),
		CreatedAt:     earliestTime(a.CreatedAt, b.CreatedAt),
		UpdatedAt:     globaltime.UTC(),
	}
}

func (m *Merger) generateMergedText(ctx context.Context, a, b news.Item) (string, error) {
	if m.gen == nil {
		return "", fmt.Errorf("no text generator configured")
	}
	return m.gen.Generate(ctx, mergePrompt(a, b))
}

func mergePrompt(a, b news.Item) string {
	var sb strings.Builder
	sb.WriteString("You are tasked with merging two similar news items into one comprehensive item.\n\n")
	sb.WriteString("**News Item 1:**\n")
	sb.WriteString("Title: " + a.Title + "\n")
	sb.WriteString("Summary: " + a.Summary + "\n\n")
	sb.WriteString("**News Item 2:**\n")
	sb.WriteString("Title: " + b.Title + "\n")
	sb.WriteString("Summary: " + b.Summary + "\n\n")
	sb.WriteString("Please merge the title and summary:\n")
	sb.WriteString("1. For the title: Choose the most descriptive and accurate title from the two, OR if they cover significantly different aspects, create a merged title that captures both. Preserve the exact wording when possible.\n")
	sb.WriteString("2. For the summary: Combine information from both summaries into a comprehensive summary (150-250 words) that covers all key points from both items.\n\n")
	sb.WriteString("Return your response in this exact format:\n")
	sb.WriteString("TITLE: [selected or merged title]\n")
	sb.WriteString("SUMMARY: [merged summary]")
	return sb.String()
}

// parseMergedText extracts the TITLE:/SUMMARY: sections from generated text.
// Summaries may span multiple lines; missing tags yield empty strings.
func parseMergedText(content string) (title, summary string) {
	var summaryLines []string
	section := ""

	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "TITLE:"):
			title = strings.TrimSpace(strings.TrimPrefix(line, "TITLE:"))
			section = "title"
		case strings.HasPrefix(line, "SUMMARY:"):
			summaryLines = append(summaryLines, strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:")))
			section = "summary"
		case line != "" && section == "summary":
			summaryLines = append(summaryLines, line)
		}
	}

	summary = strings.TrimSpace(strings.Join(summaryLines, " "))
	return title, summary
}

// unionStrings merges two string sets, keeping first-seen order so merge
// results are deterministic.
func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	union := make([]string, 0, len(a)+len(b))
	for _, values := range [][]string{a, b} {
		for _, v := range values {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			union = append(union, v)
		}
	}
	return union
}

func latestDate(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	default:
		return a
	}
}

func earliestTime(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
