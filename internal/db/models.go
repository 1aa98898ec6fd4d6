package db

import (
	"encoding/json"
	"time"
)

// NewsItemRow maps news.items: one canonical deduplicated news item. The
// label sets are stored as jsonb arrays, mirroring the document shape served
// by the API.
type NewsItemRow struct {
	ItemID        int64           `gorm:"column:item_id;primaryKey;autoIncrement"`
	ItemUUID      string          `gorm:"column:item_uuid;type:uuid;not null;unique"`
	Title         string          `gorm:"column:title;type:text;not null"`
	Summary       string          `gorm:"column:summary;type:text;not null"`
	Language      string          `gorm:"column:language;type:text;not null;default:''"`
	PublishedDate *time.Time      `gorm:"column:published_date;type:timestamptz"`
	Sources       json.RawMessage `gorm:"column:sources;type:jsonb;not null"`
	Topics        json.RawMessage `gorm:"column:topics;type:jsonb;not null"`
	Groups        json.RawMessage `gorm:"column:groups;type:jsonb;not null"`
	ToolSources   json.RawMessage `gorm:"column:tool_sources;type:jsonb;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;type:timestamptz;not null"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;type:timestamptz;not null"`
}

func (NewsItemRow) TableName() string { return "news.items" }

// NewsItemSourceRow maps news.item_sources: the URL existence index. One row
// per (item, source URL); indexed on url for membership queries, not unique:
// duplicate rows from concurrent ingestion runs are harmless.
type NewsItemSourceRow struct {
	ItemSourceID int64  `gorm:"column:item_source_id;primaryKey;autoIncrement"`
	ItemID       int64  `gorm:"column:item_id;type:bigint;not null"`
	URL          string `gorm:"column:url;type:text;not null"`
}

func (NewsItemSourceRow) TableName() string { return "news.item_sources" }

func autoMigrateModels() []any {
	return []any{
		&NewsItemRow{},
		&NewsItemSourceRow{},
	}
}
