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
	newsAPIDefaultQuery = "news OR technology OR science"
	newsAPIPageSize     = 50
	newsAPIDefaultDays  = 30
)

// NewsAPIFetcher pulls articles from newsapi.org. When a category is
// configured it merges top-headlines for that category with the windowed
// everything feed; the combined batch is deduplicated by URL.
type NewsAPIFetcher struct {
	source domain.Source
	apiKey string
	client *Client
	logger *slog.Logger

	topHeadlinesURL string
	everythingURL   string
	now             func() time.Time
}

var _ ports.Fetcher = (*NewsAPIFetcher)(nil)

// NewNewsAPIFetcher builds a fetcher bound to one configured source.
func NewNewsAPIFetcher(source domain.Source, apiKey string, client *Client, logger *slog.Logger) *NewsAPIFetcher {
	return &NewsAPIFetcher{
		source:          source,
		apiKey:          apiKey,
		client:          client,
		logger:          logger,
		topHeadlinesURL: "https://newsapi.org/v2/top-headlines",
		everythingURL:   "https://newsapi.org/v2/everything",
		now:             time.Now,
	}
}

// SourceSlug identifies the provider inside the factory enumeration.
func (f *NewsAPIFetcher) SourceSlug() string {
	return string(ProviderNewsAPI)
}

// FetchArticles merges the configured sub-feeds into one normalized batch.
// A missing API key or failing sub-requests yield an empty batch, not an error.
func (f *NewsAPIFetcher) FetchArticles(ctx context.Context) ([]domain.NormalizedArticle, error) {
	if f.apiKey == "" {
		f.logger.Error("no API key configured", "source", f.source.Name)
		return nil, nil
	}

	cfg := f.source.Config

	language := cfg.Language
	if language == "" {
		language = "en"
	}
	query := cfg.Query
	if query == "" {
		query = newsAPIDefaultQuery
	}

	var raw []RawArticle

	if cfg.Category != "" {
		country := cfg.Country
		if country == "" {
			country = "us"
		}
		params := url.Values{}
		params.Set("apiKey", f.apiKey)
		params.Set("category", cfg.Category)
		params.Set("country", country)
		params.Set("q", query)
		params.Set("pageSize", strconv.Itoa(newsAPIPageSize))

		if resp := f.client.GetJSON(ctx, f.topHeadlinesURL, params); resp != nil {
			raw = append(raw, RawArticle(resp).List("articles")...)
		}
	}

	days := cfg.Days
	if days < 1 {
		days = newsAPIDefaultDays
	}
	now := f.now()

	params := url.Values{}
	params.Set("apiKey", f.apiKey)
	params.Set("language", language)
	params.Set("q", query)
	params.Set("from", now.AddDate(0, 0, -days).Format("2006-01-02"))
	params.Set("to", now.Format("2006-01-02"))
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(newsAPIPageSize))

	if resp := f.client.GetJSON(ctx, f.everythingURL, params); resp != nil {
		raw = append(raw, RawArticle(resp).List("articles")...)
	}

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

func (f *NewsAPIFetcher) normalize(item RawArticle) domain.NormalizedArticle {
	id := item.String("url")
	if id == "" {
		id = SyntheticID("newsapi_")
	}

	title := item.String("title")
	if title == "" {
		title = "No title"
	}

	content := item.String("content")
	if content == "" {
		content = item.String("description")
	}

	author := item.String("author")
	if author == "" {
		author = item.String("source", "name")
	}

	category := f.source.Config.Category
	if category == "" {
		category = "General"
	}

	return domain.NormalizedArticle{
		SourceArticleID: id,
		Title:           title,
		Content:         content,
		Excerpt:         item.String("description"),
		URL:             item.String("url"),
		Author:          author,
		Category:        Capitalize(category),
		PublishedAt:     ParseTime(item.String("publishedAt"), f.now()),
		ImageURL:        item.String("urlToImage"),
		RawPayload:      item,
	}
}
