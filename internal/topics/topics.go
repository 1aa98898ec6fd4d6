// Package topics loads the declarative topic configuration file and expands
// each topic into a collection plan: which groups it belongs to, how far back
// to look, and which tools the worker should use.
package topics

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one topic's raw configuration in the YAML file.
type Entry struct {
	Groups     []string `yaml:"groups"`
	Tools      []string `yaml:"tools"`
	Subreddits []string `yaml:"subreddits"`
}

// Plan is a fully resolved collection plan for one topic. Plans preserve the
// file's topic order: topics are processed strictly in sequence.
type Plan struct {
	Topic      string
	Groups     []string
	DaysFilter int
	Tools      []string
	Subreddits []string
	IsResearch bool

	// MaxItems caps how many payloads one topic may contribute to a run,
	// which also bounds the batch the clustering pass has to compare.
	// Zero means uncapped. Set by the caller, not the topics file.
	MaxItems int
}

var researchTopicKeywords = []string{
	"research", "paper", "preprint", "arxiv",
	"ml", "ai", "machine learning", "deep learning", "neural",
	"transformer", "nlp", "cv",
	"science", "biology", "physics", "math", "statistics",
}

var researchGroupKeywords = []string{"ai", "ml", "science", "research", "academia"}

// Load reads and expands the topics file. A missing or malformed file is an
// error; callers treat it as fatal at run start.
func Load(path string) ([]Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topics file %s: %w", path, err)
	}

	plans, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse topics file %s: %w", path, err)
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("topics file %s defines no topics", path)
	}
	return plans, nil
}

// Parse expands raw YAML into ordered plans. The YAML is a mapping of topic
// name to Entry; mapping order in the file is preserved.
func Parse(data []byte) ([]Plan, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("unmarshal topics YAML: %w", err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, nil
	}

	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("topics YAML root must be a mapping of topic name to config")
	}

	plans := make([]Plan, 0, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		name := strings.TrimSpace(mapping.Content[i].Value)
		if name == "" {
			return nil, fmt.Errorf("topics YAML contains an empty topic name")
		}

		var entry Entry
		if err := mapping.Content[i+1].Decode(&entry); err != nil {
			return nil, fmt.Errorf("decode topic %q: %w", name, err)
		}

		plans = append(plans, buildPlan(name, entry))
	}
	return plans, nil
}

func buildPlan(name string, entry Entry) Plan {
	tools := entry.Tools
	isResearch := false

	if len(tools) == 0 {
		isResearch = looksLikeResearchTopic(name, entry.Groups)
		if isResearch {
			tools = []string{"arxiv", "tavily", "wikipedia"}
		} else {
			tools = []string{"tavily", "wikipedia"}
		}
	} else {
		for _, tool := range tools {
			if strings.EqualFold(strings.TrimSpace(tool), "arxiv") {
				isResearch = true
				break
			}
		}
	}

	return Plan{
		Topic:      name,
		Groups:     augmentGroups(entry.Groups),
		DaysFilter: DaysFilterForGroups(entry.Groups),
		Tools:      tools,
		Subreddits: entry.Subreddits,
		IsResearch: isResearch,
	}
}

// DaysFilterForGroups decides how far back collected news may reach based on
// the topic's group categories. Fast-moving groups get a tighter window.
func DaysFilterForGroups(groups []string) int {
	switch {
	case groupsContain(groups, "politics"):
		return 2
	case groupsContain(groups, "technology"):
		return 4
	case groupsContain(groups, "science"), groupsContain(groups, "health"):
		return 7
	default:
		return 2
	}
}

func looksLikeResearchTopic(name string, groups []string) bool {
	topic := strings.ToLower(name)
	for _, kw := range researchTopicKeywords {
		if strings.Contains(topic, kw) {
			return true
		}
	}
	for _, group := range groups {
		lowered := strings.ToLower(group)
		for _, kw := range researchGroupKeywords {
			if strings.Contains(lowered, kw) {
				return true
			}
		}
	}
	return false
}

func augmentGroups(groups []string) []string {
	augmented := append([]string(nil), groups...)
	if groupsContain(groups, "us") || groupsContain(groups, "india") || groupsContain(groups, "world") {
		augmented = append(augmented, "breaking news", "politics")
	}
	return append(augmented, "recent events", "recent developments", "latest news")
}

func groupsContain(groups []string, want string) bool {
	for _, group := range groups {
		if strings.EqualFold(strings.TrimSpace(group), want) {
			return true
		}
	}
	return false
}
