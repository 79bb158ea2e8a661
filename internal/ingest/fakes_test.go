package ingest

import (
	"context"
	"errors"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/ports"
)

// memStore is an in-memory ports.Store for pipeline tests. Transact
// snapshots all tables and restores them when fn fails, mirroring the
// rollback behavior of the SQL store.
type memStore struct {
	sources    []domain.Source
	articles   []domain.Article
	authors    []domain.Author
	categories []domain.Category
	nextID     int64

	articleInserts  int
	authorInserts   int
	categoryInserts int

	listErr          error
	createArticleErr error
}

var _ ports.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{nextID: 1}
}

func (s *memStore) id() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *memStore) ListActiveSources(_ context.Context, slugFilter string) ([]domain.Source, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.Source
	for _, source := range s.sources {
		if !source.IsActive {
			continue
		}
		if slugFilter != "" && source.APISlug != slugFilter {
			continue
		}
		out = append(out, source)
	}
	return out, nil
}

func (s *memStore) FindOrCreateSource(_ context.Context, source domain.Source) (domain.Source, error) {
	for _, existing := range s.sources {
		if existing.APISlug == source.APISlug {
			return existing, nil
		}
	}
	source.ID = s.id()
	s.sources = append(s.sources, source)
	return source, nil
}

func (s *memStore) FindArticleBySourceAndExternalID(_ context.Context, sourceID int64, externalID string) (*domain.Article, error) {
	for i, article := range s.articles {
		if article.SourceID == sourceID && article.SourceArticleID == externalID {
			return &s.articles[i], nil
		}
	}
	return nil, nil
}

func (s *memStore) CreateArticle(_ context.Context, article domain.Article) (domain.Article, error) {
	if s.createArticleErr != nil {
		return domain.Article{}, s.createArticleErr
	}
	for _, existing := range s.articles {
		if existing.SourceID == article.SourceID && existing.SourceArticleID == article.SourceArticleID {
			return domain.Article{}, ports.ErrDuplicateArticle
		}
	}
	article.ID = s.id()
	s.articles = append(s.articles, article)
	s.articleInserts++
	return article, nil
}

func (s *memStore) FindOrCreateAuthor(_ context.Context, canonicalName, name string) (domain.Author, error) {
	for _, author := range s.authors {
		if author.CanonicalName == canonicalName {
			return author, nil
		}
	}
	author := domain.Author{ID: s.id(), CanonicalName: canonicalName, Name: name}
	s.authors = append(s.authors, author)
	s.authorInserts++
	return author, nil
}

func (s *memStore) FindOrCreateCategory(_ context.Context, categorySlug, name string) (domain.Category, error) {
	for _, category := range s.categories {
		if category.Slug == categorySlug {
			return category, nil
		}
	}
	category := domain.Category{ID: s.id(), Slug: categorySlug, Name: name}
	s.categories = append(s.categories, category)
	s.categoryInserts++
	return category, nil
}

func (s *memStore) Transact(_ context.Context, fn func(ports.Store) error) error {
	snapshot := *s
	snapshot.sources = append([]domain.Source(nil), s.sources...)
	snapshot.articles = append([]domain.Article(nil), s.articles...)
	snapshot.authors = append([]domain.Author(nil), s.authors...)
	snapshot.categories = append([]domain.Category(nil), s.categories...)

	if err := fn(s); err != nil {
		*s = snapshot
		return err
	}
	return nil
}

// stubFetcher yields a fixed batch or a fixed error.
type stubFetcher struct {
	slug     string
	articles []domain.NormalizedArticle
	err      error
}

var _ ports.Fetcher = (*stubFetcher)(nil)

func (f *stubFetcher) FetchArticles(context.Context) ([]domain.NormalizedArticle, error) {
	return f.articles, f.err
}

func (f *stubFetcher) SourceSlug() string { return f.slug }

// stubFactory maps slugs to stub fetchers; unknown slugs resolve to nil.
type stubFactory struct {
	fetchers map[string]ports.Fetcher
}

var _ ports.FetcherFactory = (*stubFactory)(nil)

func (f *stubFactory) Create(source domain.Source) ports.Fetcher {
	return f.fetchers[source.APISlug]
}

var errBoom = errors.New("boom")
