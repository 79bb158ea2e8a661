package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gosimple/slug"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/ports"
)

// Persister handles article-level persistence jobs. Each job runs inside one
// transaction: author and category side records are found or created, the
// content is sanitized, and exactly one article row is inserted. A duplicate
// (source_id, source_article_id) pair is the idempotent no-op outcome, both
// on the pre-check and on a concurrent-insert conflict.
type Persister struct {
	store  ports.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewPersister wires the persistence boundary.
func NewPersister(store ports.Store, logger *slog.Logger) *Persister {
	return &Persister{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// HandleTask decodes a queued persistence task and runs it.
func (p *Persister) HandleTask(ctx context.Context, task ports.Task) error {
	var payload domain.ProcessArticleTask
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return fmt.Errorf("decode article task: %w", err)
	}
	return p.Handle(ctx, payload)
}

// Handle persists one normalized article atomically. Any error rolls back
// the whole task, including author/category creation, and is returned to the
// queue for retry or dead-lettering.
func (p *Persister) Handle(ctx context.Context, task domain.ProcessArticleTask) error {
	err := p.store.Transact(ctx, func(tx ports.Store) error {
		return p.persist(ctx, tx, task)
	})
	if err != nil {
		return fmt.Errorf("process article %s: %w", task.Article.SourceArticleID, err)
	}
	return nil
}

func (p *Persister) persist(ctx context.Context, tx ports.Store, task domain.ProcessArticleTask) error {
	normalized := task.Article

	existing, err := tx.FindArticleBySourceAndExternalID(ctx, task.SourceID, normalized.SourceArticleID)
	if err != nil {
		return fmt.Errorf("lookup article: %w", err)
	}
	if existing != nil {
		p.logger.Info("article already exists, skipping",
			"source_article_id", normalized.SourceArticleID,
			"source_id", task.SourceID)
		return nil
	}

	var authorID *int64
	if normalized.Author != "" {
		author, err := tx.FindOrCreateAuthor(ctx, slug.Make(normalized.Author), normalized.Author)
		if err != nil {
			return fmt.Errorf("find or create author: %w", err)
		}
		authorID = &author.ID
	}

	var categoryID *int64
	if normalized.Category != "" {
		category, err := tx.FindOrCreateCategory(ctx, slug.Make(normalized.Category), normalized.Category)
		if err != nil {
			return fmt.Errorf("find or create category: %w", err)
		}
		categoryID = &category.ID
	}

	article := domain.Article{
		SourceID:        task.SourceID,
		SourceArticleID: normalized.SourceArticleID,
		Title:           normalized.Title,
		Slug:            slug.Make(normalized.Title),
		Excerpt:         normalized.Excerpt,
		Content:         SanitizeContent(normalized.Content),
		URL:             normalized.URL,
		ImageURL:        normalized.ImageURL,
		AuthorID:        authorID,
		CategoryID:      categoryID,
		PublishedAt:     normalized.PublishedAt,
		ScrapedAt:       p.now(),
		RawPayload:      normalized.RawPayload,
		Language:        "en",
	}

	created, err := tx.CreateArticle(ctx, article)
	if errors.Is(err, ports.ErrDuplicateArticle) {
		// Lost a race with a concurrent persister for the same key.
		p.logger.Info("article already exists, skipping",
			"source_article_id", normalized.SourceArticleID,
			"source_id", task.SourceID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("create article: %w", err)
	}

	p.logger.Info("article processed", "article_id", created.ID, "title", created.Title)
	return nil
}
