package fetcher

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/ports"
)

const (
	guardianPageSize     = 50
	guardianExcerptLimit = 200

	// Internal tag recording which configured section produced a raw item.
	sectionTag = "_section"
)

var defaultGuardianSections = []string{"technology", "business", "science", "sports", "entertainment"}

// GuardianFetcher pulls articles from the Guardian content API, one search
// request per configured section, merged and deduplicated by URL.
type GuardianFetcher struct {
	source domain.Source
	apiKey string
	client *Client
	logger *slog.Logger

	searchURL string
	now       func() time.Time
}

var _ ports.Fetcher = (*GuardianFetcher)(nil)

// NewGuardianFetcher builds a fetcher bound to one configured source.
func NewGuardianFetcher(source domain.Source, apiKey string, client *Client, logger *slog.Logger) *GuardianFetcher {
	return &GuardianFetcher{
		source:    source,
		apiKey:    apiKey,
		client:    client,
		logger:    logger,
		searchURL: "https://content.guardianapis.com/search",
		now:       time.Now,
	}
}

// SourceSlug identifies the provider inside the factory enumeration.
func (f *GuardianFetcher) SourceSlug() string {
	return string(ProviderGuardian)
}

// FetchArticles merges all configured sections into one normalized batch.
// A missing API key or failing sub-requests yield an empty batch, not an error.
func (f *GuardianFetcher) FetchArticles(ctx context.Context) ([]domain.NormalizedArticle, error) {
	if f.apiKey == "" {
		f.logger.Error("no API key configured", "source", f.source.Name)
		return nil, nil
	}

	sections := f.source.Config.Sections
	if len(sections) == 0 {
		sections = defaultGuardianSections
	}

	var raw []RawArticle
	for _, section := range sections {
		raw = append(raw, f.fetchSection(ctx, section)...)
	}

	if len(raw) == 0 {
		return nil, nil
	}

	deduped := DeduplicateBy(raw, func(item RawArticle) string {
		if u := item.String("fields", "short-url"); u != "" {
			return u
		}
		return item.String("webUrl")
	})

	articles := make([]domain.NormalizedArticle, 0, len(deduped))
	for _, item := range deduped {
		articles = append(articles, f.normalize(item))
	}

	return articles, nil
}

func (f *GuardianFetcher) fetchSection(ctx context.Context, section string) []RawArticle {
	params := url.Values{}
	params.Set("api-key", f.apiKey)
	params.Set("show-fields", "headline,byline,body,thumbnail,short-url")
	params.Set("show-tags", "contributor")
	params.Set("page-size", strconv.Itoa(guardianPageSize))
	params.Set("order-by", "newest")
	params.Set("section", section)

	resp := f.client.GetJSON(ctx, f.searchURL, params)
	if resp == nil {
		return nil
	}

	items := RawArticle(resp).List("response", "results")
	for _, item := range items {
		item[sectionTag] = section
	}
	return items
}

func (f *GuardianFetcher) normalize(item RawArticle) domain.NormalizedArticle {
	id := item.String("id")
	if id == "" {
		id = SyntheticID("guardian_")
	}

	title := item.String("fields", "headline")
	if title == "" {
		title = item.String("webTitle")
	}
	if title == "" {
		title = "No title"
	}

	articleURL := item.String("fields", "short-url")
	if articleURL == "" {
		articleURL = item.String("webUrl")
	}

	section := item.String(sectionTag)
	if section == "" {
		section = item.String("sectionName")
	}
	if section == "" {
		section = "general"
	}

	body := item.String("fields", "body")

	return domain.NormalizedArticle{
		SourceArticleID: id,
		Title:           title,
		Content:         body,
		Excerpt:         TextExcerpt(body, guardianExcerptLimit),
		URL:             articleURL,
		Author:          f.extractAuthor(item),
		Category:        Capitalize(section),
		PublishedAt:     ParseTime(item.String("webPublicationDate"), f.now()),
		ImageURL:        item.String("fields", "thumbnail"),
		RawPayload:      item,
	}
}

func (f *GuardianFetcher) extractAuthor(item RawArticle) string {
	if byline := item.String("fields", "byline"); byline != "" {
		return byline
	}

	for _, tag := range item.List("tags") {
		if tag.String("type") == "contributor" {
			return tag.String("webTitle")
		}
	}

	return ""
}
