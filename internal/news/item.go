package news

import "time"

// Item is the canonical unit of aggregated news. A persisted item owns its
// source URLs exclusively: no URL may appear on two different items at once.
type Item struct {
	UUID          string     `json:"uuid,omitempty"`
	Title         string     `json:"title"`
	Summary       string     `json:"summary"`
	Sources       []string   `json:"sources"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	Topics        []string   `json:"topic"`
	Groups        []string   `json:"groups"`
	ToolSources   []string   `json:"tool_source"`
	Language      string     `json:"language,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CombinedText is the text embedded for similarity comparison.
func (i Item) CombinedText() string {
	return i.Title + "\n" + i.Summary
}

// HasAnySource reports whether any of the item's source URLs is in the given set.
func (i Item) HasAnySource(urls map[string]struct{}) bool {
	for _, source := range i.Sources {
		if _, ok := urls[source]; ok {
			return true
		}
	}
	return false
}
