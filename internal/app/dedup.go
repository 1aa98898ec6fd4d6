package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/newsdesk/internal/cli"
	"horse.fit/newsdesk/internal/news"
)

// runDedup deduplicates a saved batch of news items offline: read a JSON
// array, collapse similar items, write the result. Useful for replaying a
// collection without touching the database.
func runDedup(args []string) int {
	fs := flag.NewFlagSet("dedup", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	inPath := fs.String("in", "", "JSON file holding an array of news items")
	outPath := fs.String("out", "", "Output file (default: stdout)")
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall run timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if strings.TrimSpace(*inPath) == "" {
		fmt.Fprintln(os.Stderr, "--in is required")
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		return 1
	}

	raw, err := os.ReadFile(*inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
		return 1
	}

	var items []news.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse input: %v\n", err)
		return 1
	}

	deduplicator, err := newDeduplicator(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("dedup failed to initialize")
		fmt.Fprintf(os.Stderr, "Failed to initialize deduplicator: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	deduplicated, err := deduplicator.Deduplicate(ctx, items)
	if err != nil {
		logger.Error().Err(err).Msg("deduplication failed")
		fmt.Fprintf(os.Stderr, "Deduplication failed: %v\n", err)
		return 1
	}

	encoded, err := json.MarshalIndent(deduplicated, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
		return 1
	}
	encoded = append(encoded, '\n')

	if strings.TrimSpace(*outPath) == "" {
		if _, err := os.Stdout.Write(encoded); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write result: %v\n", err)
			return 1
		}
	} else {
		if err := os.WriteFile(*outPath, encoded, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write result: %v\n", err)
			return 1
		}
	}

	fmt.Fprintf(os.Stderr, "dedup before=%d after=%d\n", len(items), len(deduplicated))
	return 0
}
