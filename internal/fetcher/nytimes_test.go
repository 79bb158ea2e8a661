package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/logging"
)

func newNYTimesForTest(cfg domain.SourceConfig, apiKey string) *NYTimesFetcher {
	source := domain.Source{ID: 3, Name: "The New York Times", APISlug: "nytimes", Config: cfg}
	f := NewNYTimesFetcher(source, apiKey, NewClient(5*time.Second, logging.New("error")), logging.New("error"))
	f.now = func() time.Time { return time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestNYTimesFetchMergesFeedsAndDeduplicates(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var results []any
		switch r.URL.Path {
		case "/svc/topstories/v2/home.json":
			results = []any{
				map[string]any{"url": "https://nyt.example/a", "title": "Top A", "byline": "By Ann Author"},
				map[string]any{"url": "https://nyt.example/b", "title": "Top B"},
			}
		case "/svc/mostpopular/v2/viewed/7.json":
			results = []any{
				// Same URL as a top-stories item: dropped by in-batch dedup.
				map[string]any{"url": "https://nyt.example/a", "title": "Popular A"},
				map[string]any{"url": "https://nyt.example/c", "title": "Popular C", "section": "Science"},
			}
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
	defer server.Close()

	f := newNYTimesForTest(domain.SourceConfig{}, "key")
	f.baseURL = server.URL

	articles, err := f.FetchArticles(context.Background())
	if err != nil {
		t.Fatalf("FetchArticles error: %v", err)
	}
	if len(articles) != 3 {
		t.Fatalf("expected 3 articles after dedup, got %d", len(articles))
	}
	if articles[0].Title != "Top A" {
		t.Fatalf("first occurrence must win, got title %q", articles[0].Title)
	}
}

func TestNYTimesBylineHandling(t *testing.T) {
	t.Parallel()

	f := newNYTimesForTest(domain.SourceConfig{}, "key")

	withByline := f.normalize(RawArticle{"url": "https://nyt.example/a", "byline": "BY Jane Q. Public"})
	if withByline.Author != "Jane Q. Public" {
		t.Fatalf("byline prefix must be stripped case-insensitively, got %q", withByline.Author)
	}

	withoutByline := f.normalize(RawArticle{"url": "https://nyt.example/b"})
	if withoutByline.Author != "The New York Times" {
		t.Fatalf("unexpected author fallback: %q", withoutByline.Author)
	}
}

func TestNYTimesCategoryFromSection(t *testing.T) {
	t.Parallel()

	f := newNYTimesForTest(domain.SourceConfig{}, "key")

	tagged := f.normalize(RawArticle{"url": "https://nyt.example/a", sectionTag: "technology"})
	if tagged.Category != "Technology" {
		t.Fatalf("unexpected category: %q", tagged.Category)
	}

	own := f.normalize(RawArticle{"url": "https://nyt.example/b", "section": "Science"})
	if own.Category != "Science" {
		t.Fatalf("item section must win, got %q", own.Category)
	}

	// A most-popular item carries no section tag; the category stays empty.
	popular := f.normalize(RawArticle{"url": "https://nyt.example/c", feedTag: nytFeedMostPopular})
	if popular.Category != "" {
		t.Fatalf("expected empty category, got %q", popular.Category)
	}
}

func TestNYTimesImageSelection(t *testing.T) {
	t.Parallel()

	f := newNYTimesForTest(domain.SourceConfig{}, "key")

	article := f.normalize(RawArticle{
		"url": "https://nyt.example/a",
		"multimedia": []any{
			map[string]any{"url": "https://img.example/thumb.jpg", "format": "Standard Thumbnail"},
			map[string]any{"url": "https://img.example/jumbo.jpg", "format": "jumbo"},
			map[string]any{"url": "https://img.example/super.jpg", "format": "superJumbo"},
		},
	})
	if article.ImageURL != "https://img.example/jumbo.jpg" {
		t.Fatalf("first accepted format in document order must win, got %q", article.ImageURL)
	}

	fallback := f.normalize(RawArticle{
		"url": "https://nyt.example/b",
		"multimedia": []any{
			map[string]any{"url": "https://img.example/thumb.jpg", "format": "Standard Thumbnail"},
		},
	})
	if fallback.ImageURL != "https://img.example/thumb.jpg" {
		t.Fatalf("first entry must be the fallback, got %q", fallback.ImageURL)
	}

	none := f.normalize(RawArticle{"url": "https://nyt.example/c"})
	if none.ImageURL != "" {
		t.Fatalf("expected empty image url, got %q", none.ImageURL)
	}
}

func TestNYTimesInvalidPeriodFallsBackToDefault(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/svc/mostpopular/v2/viewed/7.json" {
			_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{
				map[string]any{"url": "https://nyt.example/a", "title": "Popular A"},
			}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	}))
	defer server.Close()

	f := newNYTimesForTest(domain.SourceConfig{Period: 14}, "key")
	f.baseURL = server.URL

	articles, err := f.FetchArticles(context.Background())
	if err != nil {
		t.Fatalf("FetchArticles error: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected 1 article from the default period feed, got %d", len(articles))
	}
}
