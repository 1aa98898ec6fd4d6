package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/config"
	"horse.fit/newsdesk/internal/dedup"
	"horse.fit/newsdesk/internal/embedding"
	"horse.fit/newsdesk/internal/logging"
	"horse.fit/newsdesk/internal/textgen"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "collect":
		return runCollect(args[1:])
	case "dedup":
		return runDedup(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "newsdesk CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  newsdesk <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health    Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  validate  Validate news payload JSON files against the v1 schema")
	fmt.Fprintln(os.Stderr, "  collect   Run a full topic collection, deduplicate and persist")
	fmt.Fprintln(os.Stderr, "  dedup     Deduplicate a JSON batch file offline and write the result")
	fmt.Fprintln(os.Stderr, "  serve     Start the news feed API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"newsdesk <command> -h\" for command-specific flags.")
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// newDeduplicator wires the embedding and text-generation clients into a
// batch deduplicator.
func newDeduplicator(cfg *config.Config, logger zerolog.Logger) (*dedup.Deduplicator, error) {
	embedder := embedding.NewClient(embedding.Options{
		Endpoint:       cfg.EmbeddingEndpoint,
		ModelName:      cfg.EmbeddingModel,
		BatchSize:      cfg.EmbeddingBatchSize,
		MaxLength:      cfg.EmbeddingMaxLen,
		RequestTimeout: cfg.EmbeddingRequestTimeout(),
	})

	var gen dedup.TextGenerator
	if strings.TrimSpace(cfg.TextGenAPIKey) != "" {
		chat, err := textgen.NewChatClient(textgen.Options{
			Provider:       cfg.TextGenProvider,
			BaseURL:        cfg.TextGenBaseURL,
			Model:          cfg.TextGenModel,
			APIKey:         cfg.TextGenAPIKey,
			RequestTimeout: cfg.TextGenRequestTimeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("initialize text generation client: %w", err)
		}
		gen = chat
	} else {
		logger.Warn().Msg("no text generation API key configured; merges will use the concatenation fallback")
	}

	merger := dedup.NewMerger(gen, logger)
	return dedup.NewDeduplicator(embedder, merger, logger), nil
}
