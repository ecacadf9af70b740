package models

import (
	"time"
)

// Country codes for source grouping in the UI tabs
const (
	CountryUS = "US"
	CountryKR = "KR"
)

// DefaultSourceColor is used when a source has no color assigned
const DefaultSourceColor = "#6B7280"

// Source represents a configured RSS feed with display metadata.
// Sources are admin-managed: created by seed or admin action, edited
// (active/color/url) by admin, never auto-deleted.
type Source struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	RSSURL    string    `gorm:"uniqueIndex;not null" json:"rssUrl"`
	Country   string    `gorm:"not null" json:"country"` // US or KR
	Active    bool      `gorm:"default:true" json:"active"`
	Color     string    `gorm:"default:'#6B7280'" json:"color"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// SeedSources is the default source set loaded by `techisy sources seed`.
var SeedSources = []Source{
	// Global
	{Name: "Techmeme", RSSURL: "https://www.techmeme.com/feed.xml", Country: CountryUS, Active: true, Color: "#DC2626"},
	{Name: "TechCrunch", RSSURL: "https://techcrunch.com/feed/", Country: CountryUS, Active: true, Color: "#16A34A"},
	{Name: "The Verge", RSSURL: "https://www.theverge.com/rss/index.xml", Country: CountryUS, Active: true, Color: "#7C3AED"},
	{Name: "Ars Technica", RSSURL: "https://feeds.arstechnica.com/arstechnica/index", Country: CountryUS, Active: true, Color: "#EA580C"},
	// Korea
	{Name: "바이라인네트워크", RSSURL: "https://byline.network/feed/", Country: CountryKR, Active: true, Color: "#0891B2"},
	{Name: "디지털투데이", RSSURL: "https://www.digitaltoday.co.kr/rss/allArticle.xml", Country: CountryKR, Active: true, Color: "#2563EB"},
	{Name: "아이티데일리", RSSURL: "https://www.itdaily.kr/rss/S1N9.xml", Country: CountryKR, Active: true, Color: "#DB2777"},
	{Name: "전자신문", RSSURL: "https://rss.etnews.com/Section901.xml", Country: CountryKR, Active: true, Color: "#CA8A04"},
}
