package main

import "time"

// Mode selects which set of sources a harvest runs against.
type Mode string

const (
	// ModeRSS scans the user-managed feed site list.
	ModeRSS Mode = "rss"
	// ModeNaver scans the fixed Korean outlets with per-source categories.
	ModeNaver Mode = "naver"
)

// SourceConfig is one named harvesting source. Locator is either a feed URL or
// a topical query string; Category is only set for outlet-style sources.
type SourceConfig struct {
	Name     string `json:"name"`
	Locator  string `json:"locator"`
	Category string `json:"category,omitempty"`
}

// HarvestedItem is one article extracted from a source during a harvest run.
// ID is assigned at creation and stable for the item's lifetime; Index is the
// batch-running counter shown to the user for selection.
type HarvestedItem struct {
	ID          string `json:"id"`
	Index       int    `json:"index"`
	SourceName  string `json:"source"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Link        string `json:"link"`
	PublishDate string `json:"date"`
	Category    string `json:"category,omitempty"`
}

// GroundingRef is one provider-supplied web citation.
type GroundingRef struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// GeneratedArticle is the immutable result of one article generation request.
type GeneratedArticle struct {
	RawText       string
	ImagePrompts  []string
	Tags          []string
	GroundingRefs []GroundingRef
	SearchQueries []string
}

// AccumulatedPost is one generated article appended to the working document.
type AccumulatedPost struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	RenderedHTML string    `json:"html"`
	Selected     bool      `json:"selected"`
	CreatedAt    time.Time `json:"created_at"`
}
