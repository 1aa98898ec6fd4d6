package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"horse.fit/newsdesk/internal/topics"
)

// DirCollector reads pre-collected payloads from a directory: one JSON file
// per topic, named after the slugified topic, each holding an array of raw
// payloads. It stands in for a live worker agent in offline and replay runs.
type DirCollector struct {
	dir string
}

func NewDirCollector(dir string) *DirCollector {
	return &DirCollector{dir: dir}
}

// Collect loads the topic's payload file. A topic with no file simply
// produced nothing this run.
func (c *DirCollector) Collect(ctx context.Context, plan topics.Plan) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(c.dir, TopicFileName(plan.Topic))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read payload file %s: %w", path, err)
	}

	var payloads []json.RawMessage
	if err := json.Unmarshal(data, &payloads); err != nil {
		return nil, fmt.Errorf("parse payload file %s: %w", path, err)
	}
	return payloads, nil
}

// TopicFileName slugifies a topic name into its payload file name:
// "AI Research" becomes "ai_research.json".
func TopicFileName(topic string) string {
	slug := strings.ToLower(strings.TrimSpace(topic))
	slug = strings.Join(strings.Fields(slug), "_")
	slug = strings.ReplaceAll(slug, "/", "_")
	return slug + ".json"
}
