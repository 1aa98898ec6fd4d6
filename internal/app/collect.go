package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"horse.fit/newsdesk/internal/cli"
	"horse.fit/newsdesk/internal/collect"
	"horse.fit/newsdesk/internal/db"
	"horse.fit/newsdesk/internal/topics"
)

func runCollect(args []string) int {
	fs := flag.NewFlagSet("collect", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	topicsFile := fs.String("topics", "", "Topics YAML file (default: TOPICS_FILE from the environment)")
	payloadDir := fs.String("payloads", "", "Directory of per-topic payload JSON files")
	timeout := fs.Duration("timeout", 30*time.Minute, "Overall run timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if strings.TrimSpace(*payloadDir) == "" {
		fmt.Fprintln(os.Stderr, "--payloads is required")
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

	topicsPath := strings.TrimSpace(*topicsFile)
	if topicsPath == "" {
		topicsPath = cfg.TopicsFile
	}

	plans, err := topics.Load(topicsPath)
	if err != nil {
		logger.Error().Err(err).Str("path", topicsPath).Msg("loading topics failed")
		fmt.Fprintf(os.Stderr, "Failed to load topics: %v\n", err)
		return 1
	}
	for i := range plans {
		plans[i].MaxItems = cfg.MaxItemsPerTopic
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("collect failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	deduplicator, err := newDeduplicator(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("collect failed to initialize deduplicator")
		fmt.Fprintf(os.Stderr, "Failed to initialize deduplicator: %v\n", err)
		return 1
	}

	store := db.NewStore(pool, logger)
	runner := collect.NewRunner(collect.NewDirCollector(*payloadDir), deduplicator, store, logger)

	result, err := runner.Run(ctx, plans)
	if err != nil {
		logger.Error().Err(err).Msg("collection run failed")
		fmt.Fprintf(os.Stderr, "Collection run failed: %v\n", err)
		return 1
	}

	fmt.Printf(
		"collect topics=%d failed=%d collected=%d invalid=%d deduplicated=%d already_stored=%d saved=%d\n",
		result.TopicsProcessed,
		result.TopicsFailed,
		result.Collected,
		result.Invalid,
		result.Deduplicated,
		result.AlreadyStored,
		result.Saved,
	)
	return 0
}
