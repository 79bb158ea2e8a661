package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore implements ports.Store on database/sql. Find-or-create
// methods use insert-on-conflict-do-nothing followed by a re-read, so
// concurrent creators of the same key converge on one row and the first
// display name wins.
type PostgresStore struct {
	db *sql.DB
	q  querier
}

var _ ports.Store = (*PostgresStore)(nil)

// NewPostgresStore wires a sql.DB implementation.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

// Transact runs fn against a transactional view of the store. Nested calls
// reuse the enclosing transaction.
func (s *PostgresStore) Transact(ctx context.Context, fn func(ports.Store) error) error {
	if _, inTx := s.q.(*sql.Tx); inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&PostgresStore{db: s.db, q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListActiveSources returns active sources ordered by name, optionally
// filtered to one provider slug.
func (s *PostgresStore) ListActiveSources(ctx context.Context, slugFilter string) ([]domain.Source, error) {
	builder := psql.Select("id", "name", "api_slug", "config", "is_active").
		From("sources").
		Where(sq.Eq{"is_active": true}).
		OrderBy("name")
	if slugFilter != "" {
		builder = builder.Where(sq.Eq{"api_slug": slugFilter})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return sources, nil
}

// FindOrCreateSource resolves a source by its api_slug, creating it when
// absent. Existing configuration is not overwritten.
func (s *PostgresStore) FindOrCreateSource(ctx context.Context, source domain.Source) (domain.Source, error) {
	if existing, err := s.findSourceBySlug(ctx, source.APISlug); err != nil {
		return domain.Source{}, err
	} else if existing != nil {
		return *existing, nil
	}

	configJSON, err := json.Marshal(source.Config)
	if err != nil {
		return domain.Source{}, fmt.Errorf("encode source config: %w", err)
	}

	query, args, err := psql.Insert("sources").
		Columns("name", "api_slug", "config", "is_active").
		Values(source.Name, source.APISlug, configJSON, source.IsActive).
		Suffix("ON CONFLICT (api_slug) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return domain.Source{}, fmt.Errorf("build query: %w", err)
	}

	err = s.q.QueryRowContext(ctx, query, args...).Scan(&source.ID)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost the race; the winner's row is authoritative.
		existing, err := s.findSourceBySlug(ctx, source.APISlug)
		if err != nil {
			return domain.Source{}, err
		}
		if existing == nil {
			return domain.Source{}, fmt.Errorf("source %s vanished after conflict", source.APISlug)
		}
		return *existing, nil
	}
	if err != nil {
		return domain.Source{}, fmt.Errorf("insert source: %w", err)
	}

	return source, nil
}

func (s *PostgresStore) findSourceBySlug(ctx context.Context, apiSlug string) (*domain.Source, error) {
	query, args, err := psql.Select("id", "name", "api_slug", "config", "is_active").
		From("sources").
		Where(sq.Eq{"api_slug": apiSlug}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	source, err := scanSource(s.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &source, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (domain.Source, error) {
	var (
		source     domain.Source
		configJSON []byte
	)
	if err := row.Scan(&source.ID, &source.Name, &source.APISlug, &configJSON, &source.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Source{}, err
		}
		return domain.Source{}, fmt.Errorf("scan source: %w", err)
	}
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &source.Config); err != nil {
			return domain.Source{}, fmt.Errorf("decode source config: %w", err)
		}
	}
	return source, nil
}

// FindArticleBySourceAndExternalID returns (nil, nil) when no article
// matches the idempotency key.
func (s *PostgresStore) FindArticleBySourceAndExternalID(ctx context.Context, sourceID int64, externalID string) (*domain.Article, error) {
	query, args, err := psql.Select(
		"id", "source_id", "source_article_id", "title", "slug", "excerpt",
		"content", "url", "image_url", "author_id", "category_id",
		"published_at", "scraped_at", "raw_payload", "language").
		From("articles").
		Where(sq.Eq{"source_id": sourceID, "source_article_id": externalID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var (
		article    domain.Article
		excerpt    sql.NullString
		imageURL   sql.NullString
		authorID   sql.NullInt64
		categoryID sql.NullInt64
		rawPayload []byte
	)
	err = s.q.QueryRowContext(ctx, query, args...).Scan(
		&article.ID, &article.SourceID, &article.SourceArticleID,
		&article.Title, &article.Slug, &excerpt, &article.Content,
		&article.URL, &imageURL, &authorID, &categoryID,
		&article.PublishedAt, &article.ScrapedAt, &rawPayload, &article.Language)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query article: %w", err)
	}

	article.Excerpt = excerpt.String
	article.ImageURL = imageURL.String
	if authorID.Valid {
		article.AuthorID = &authorID.Int64
	}
	if categoryID.Valid {
		article.CategoryID = &categoryID.Int64
	}
	if len(rawPayload) > 0 {
		if err := json.Unmarshal(rawPayload, &article.RawPayload); err != nil {
			return nil, fmt.Errorf("decode raw payload: %w", err)
		}
	}

	return &article, nil
}

// CreateArticle inserts one article row. A conflict on the
// (source_id, source_article_id) unique constraint yields
// ports.ErrDuplicateArticle without aborting the enclosing transaction.
func (s *PostgresStore) CreateArticle(ctx context.Context, article domain.Article) (domain.Article, error) {
	payloadJSON, err := json.Marshal(article.RawPayload)
	if err != nil {
		return domain.Article{}, fmt.Errorf("encode raw payload: %w", err)
	}

	var authorID, categoryID any
	if article.AuthorID != nil {
		authorID = *article.AuthorID
	}
	if article.CategoryID != nil {
		categoryID = *article.CategoryID
	}

	query, args, err := psql.Insert("articles").
		Columns("source_id", "source_article_id", "title", "slug", "excerpt",
			"content", "url", "image_url", "author_id", "category_id",
			"published_at", "scraped_at", "raw_payload", "language").
		Values(article.SourceID, article.SourceArticleID, article.Title,
			article.Slug, nullableString(article.Excerpt), article.Content,
			article.URL, nullableString(article.ImageURL), authorID, categoryID,
			article.PublishedAt, article.ScrapedAt, payloadJSON, article.Language).
		Suffix("ON CONFLICT (source_id, source_article_id) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build query: %w", err)
	}

	err = s.q.QueryRowContext(ctx, query, args...).Scan(&article.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, ports.ErrDuplicateArticle
	}
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Article{}, ports.ErrDuplicateArticle
		}
		return domain.Article{}, fmt.Errorf("insert article: %w", err)
	}

	return article, nil
}

// FindOrCreateAuthor resolves an author by canonical name, creating it when
// absent; the first-created display name is kept.
func (s *PostgresStore) FindOrCreateAuthor(ctx context.Context, canonicalName, name string) (domain.Author, error) {
	id, err := s.findOrCreate(ctx, "authors", "canonical_name", canonicalName, name)
	if err != nil {
		return domain.Author{}, fmt.Errorf("find or create author %s: %w", canonicalName, err)
	}
	return s.findAuthor(ctx, id)
}

// FindOrCreateCategory resolves a category by slug, creating it when absent;
// the first-created display name is kept.
func (s *PostgresStore) FindOrCreateCategory(ctx context.Context, categorySlug, name string) (domain.Category, error) {
	id, err := s.findOrCreate(ctx, "categories", "slug", categorySlug, name)
	if err != nil {
		return domain.Category{}, fmt.Errorf("find or create category %s: %w", categorySlug, err)
	}
	return s.findCategory(ctx, id)
}

// findOrCreate is the shared two-step protocol: select by key, insert with
// ON CONFLICT DO NOTHING, re-read when the insert lost a race.
func (s *PostgresStore) findOrCreate(ctx context.Context, table, keyColumn, key, name string) (int64, error) {
	selectQuery, selectArgs, err := psql.Select("id").
		From(table).
		Where(sq.Eq{keyColumn: key}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var id int64
	err = s.q.QueryRowContext(ctx, selectQuery, selectArgs...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("select: %w", err)
	}

	insertQuery, insertArgs, err := psql.Insert(table).
		Columns(keyColumn, "name").
		Values(key, name).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO NOTHING RETURNING id", keyColumn)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	err = s.q.QueryRowContext(ctx, insertQuery, insertArgs...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("insert: %w", err)
	}

	// Lost the race; a concurrent creator holds the row now.
	if err := s.q.QueryRowContext(ctx, selectQuery, selectArgs...).Scan(&id); err != nil {
		return 0, fmt.Errorf("reread after conflict: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) findAuthor(ctx context.Context, id int64) (domain.Author, error) {
	query, args, err := psql.Select("id", "canonical_name", "name").
		From("authors").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Author{}, fmt.Errorf("build query: %w", err)
	}

	var author domain.Author
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(&author.ID, &author.CanonicalName, &author.Name); err != nil {
		return domain.Author{}, fmt.Errorf("query author: %w", err)
	}
	return author, nil
}

func (s *PostgresStore) findCategory(ctx context.Context, id int64) (domain.Category, error) {
	query, args, err := psql.Select("id", "slug", "name").
		From("categories").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Category{}, fmt.Errorf("build query: %w", err)
	}

	var category domain.Category
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(&category.ID, &category.Slug, &category.Name); err != nil {
		return domain.Category{}, fmt.Errorf("query category: %w", err)
	}
	return category, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
