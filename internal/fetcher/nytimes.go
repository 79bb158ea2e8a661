package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/ports"
)

const (
	nytDefaultPeriod = 7

	// Internal tag recording which feed produced a raw item.
	feedTag = "_source_type"

	nytFeedTopStories  = "top_stories"
	nytFeedMostPopular = "most_popular"
)

var bylinePrefix = regexp.MustCompile(`(?i)^by\s+`)

// Multimedia formats accepted for the article image; document order decides
// between several matching entries.
var nytImageFormats = map[string]struct{}{
	"superJumbo":   {},
	"jumbo":        {},
	"articleLarge": {},
	"Normal":       {},
}

// NYTimesFetcher merges two independently-paginated NYT feeds per cycle:
// top-stories for each configured section plus the most-popular feed for the
// configured period. The merged batch is deduplicated by URL.
type NYTimesFetcher struct {
	source domain.Source
	apiKey string
	client *Client
	logger *slog.Logger

	baseURL string
	now     func() time.Time
}

var _ ports.Fetcher = (*NYTimesFetcher)(nil)

// NewNYTimesFetcher builds a fetcher bound to one configured source.
func NewNYTimesFetcher(source domain.Source, apiKey string, client *Client, logger *slog.Logger) *NYTimesFetcher {
	return &NYTimesFetcher{
		source:  source,
		apiKey:  apiKey,
		client:  client,
		logger:  logger,
		baseURL: "https://api.nytimes.com",
		now:     time.Now,
	}
}

// SourceSlug identifies the provider inside the factory enumeration.
func (f *NYTimesFetcher) SourceSlug() string {
	return string(ProviderNYTimes)
}

// FetchArticles merges top-stories and most-popular into one normalized
// batch. A missing API key or failing sub-requests yield an empty batch, not
// an error.
func (f *NYTimesFetcher) FetchArticles(ctx context.Context) ([]domain.NormalizedArticle, error) {
	if f.apiKey == "" {
		f.logger.Error("no API key configured", "source", f.source.Name)
		return nil, nil
	}

	sections := f.source.Config.Sections
	if len(sections) == 0 {
		sections = []string{"home"}
	}

	var raw []RawArticle
	for _, section := range sections {
		raw = append(raw, f.fetchTopStories(ctx, section)...)
	}
	raw = append(raw, f.fetchMostPopular(ctx)...)

	if len(raw) == 0 {
		return nil, nil
	}

	deduped := DeduplicateBy(raw, func(item RawArticle) string {
		return item.String("url")
	})

	articles := make([]domain.NormalizedArticle, 0, len(deduped))
	for _, item := range deduped {
		articles = append(articles, f.normalize(item))
	}

	return articles, nil
}

func (f *NYTimesFetcher) fetchTopStories(ctx context.Context, section string) []RawArticle {
	endpoint := fmt.Sprintf("%s/svc/topstories/v2/%s.json", f.baseURL, section)

	params := url.Values{}
	params.Set("api-key", f.apiKey)

	resp := f.client.GetJSON(ctx, endpoint, params)
	if resp == nil {
		return nil
	}

	items := RawArticle(resp).List("results")
	for _, item := range items {
		item[feedTag] = nytFeedTopStories
		item[sectionTag] = section
	}
	return items
}

func (f *NYTimesFetcher) fetchMostPopular(ctx context.Context) []RawArticle {
	period := f.source.Config.Period
	if period != 1 && period != 7 && period != 30 {
		period = nytDefaultPeriod
	}
	endpoint := fmt.Sprintf("%s/svc/mostpopular/v2/viewed/%d.json", f.baseURL, period)

	params := url.Values{}
	params.Set("api-key", f.apiKey)

	resp := f.client.GetJSON(ctx, endpoint, params)
	if resp == nil {
		return nil
	}

	items := RawArticle(resp).List("results")
	for _, item := range items {
		item[feedTag] = nytFeedMostPopular
	}
	return items
}

func (f *NYTimesFetcher) normalize(item RawArticle) domain.NormalizedArticle {
	id := item.String("url")
	if id == "" {
		id = SyntheticID("nytimes_")
	}

	title := item.String("title")
	if title == "" {
		title = "No title"
	}

	author := "The New York Times"
	if byline := item.String("byline"); byline != "" {
		author = bylinePrefix.ReplaceAllString(byline, "")
	}

	// A most-popular item without a section keeps a nil category rather than
	// inheriting a guessed one.
	category := ""
	if section := f.extractSection(item); section != "" {
		category = Capitalize(section)
	}

	published := item.String("published_date")
	if published == "" {
		published = item.String("created_date")
	}

	abstract := item.String("abstract")

	return domain.NormalizedArticle{
		SourceArticleID: id,
		Title:           title,
		Content:         abstract,
		Excerpt:         abstract,
		URL:             item.String("url"),
		Author:          author,
		Category:        category,
		PublishedAt:     ParseTime(published, f.now()),
		ImageURL:        f.extractImageURL(item),
		RawPayload:      item,
	}
}

func (f *NYTimesFetcher) extractSection(item RawArticle) string {
	if section := item.String("section"); section != "" {
		return strings.ToLower(section)
	}
	return strings.ToLower(item.String(sectionTag))
}

func (f *NYTimesFetcher) extractImageURL(item RawArticle) string {
	media := item.List("multimedia")
	for _, entry := range media {
		if entry.String("url") == "" {
			continue
		}
		if _, ok := nytImageFormats[entry.String("format")]; ok {
			return entry.String("url")
		}
	}

	if len(media) > 0 {
		return media[0].String("url")
	}
	return ""
}
