package models

import (
	"time"
)

// Article represents one ingested feed item, deduplicated by URL.
// The source is referenced by name (a plain string), not a foreign key,
// so renaming or deleting a Source never cascades into articles.
type Article struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	URL         string     `gorm:"uniqueIndex;not null" json:"url"`
	Source      string     `gorm:"index;not null" json:"source"`
	SourceURL   string     `json:"sourceUrl"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	PublishedAt *time.Time `gorm:"index" json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`
	ClusterID   *uint      `json:"clusterId,omitempty"`
}
