package domain

import "time"

// Source is a configured external news provider instance. One row per
// provider account; the APISlug selects the fetcher implementation.
type Source struct {
	ID       int64        `json:"id"`
	Name     string       `json:"name"`
	APISlug  string       `json:"api_slug"`
	Config   SourceConfig `json:"config"`
	IsActive bool         `json:"is_active"`
}

// SourceConfig carries provider-specific fetch parameters. All fields are
// optional; fetchers apply their own defaults.
type SourceConfig struct {
	Sections []string `json:"sections,omitempty"`
	Category string   `json:"category,omitempty"`
	Country  string   `json:"country,omitempty"`
	Language string   `json:"language,omitempty"`
	Query    string   `json:"q,omitempty"`
	Days     int      `json:"days,omitempty"`
	Period   int      `json:"period,omitempty"`
}

// NormalizedArticle is the canonical cross-provider article shape produced
// by every fetcher. SourceArticleID is stable and unique within a source;
// together with the source id it forms the persistence idempotency key.
type NormalizedArticle struct {
	SourceArticleID string         `json:"source_article_id"`
	Title           string         `json:"title"`
	Content         string         `json:"content"`
	Excerpt         string         `json:"excerpt,omitempty"`
	URL             string         `json:"url"`
	Author          string         `json:"author,omitempty"`
	Category        string         `json:"category,omitempty"`
	PublishedAt     time.Time      `json:"published_at"`
	ImageURL        string         `json:"image_url,omitempty"`
	RawPayload      map[string]any `json:"raw_payload,omitempty"`
}

// Article is the persisted entity. Created exactly once per
// (SourceID, SourceArticleID) pair; the pipeline never updates or deletes it.
type Article struct {
	ID              int64
	SourceID        int64
	SourceArticleID string
	Title           string
	Slug            string
	Excerpt         string
	Content         string
	URL             string
	ImageURL        string
	AuthorID        *int64
	CategoryID      *int64
	PublishedAt     time.Time
	ScrapedAt       time.Time
	RawPayload      map[string]any
	Language        string
}

// Author is a shared side entity keyed by the canonical (slugged) name.
// The display name is first-write-wins across repeat sightings.
type Author struct {
	ID            int64
	CanonicalName string
	Name          string
}

// Category is a shared side entity keyed by slug, first-write-wins like Author.
type Category struct {
	ID   int64
	Slug string
	Name string
}
