package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/ports"
	"NewsAggregator/internal/queue"
)

// Dispatcher handles source-level fetch jobs: it resolves the source's
// fetcher, runs one fetch cycle, and fans out one persistence task per
// normalized article.
type Dispatcher struct {
	factory ports.FetcherFactory
	queue   ports.TaskQueue
	logger  *slog.Logger
}

// NewDispatcher wires the fetcher factory and the outbound task queue.
func NewDispatcher(factory ports.FetcherFactory, q ports.TaskQueue, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		factory: factory,
		queue:   q,
		logger:  logger,
	}
}

// HandleTask decodes a queued fetch task and dispatches it.
func (d *Dispatcher) HandleTask(ctx context.Context, task ports.Task) error {
	var payload domain.FetchSourceTask
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return fmt.Errorf("decode fetch task: %w", err)
	}
	return d.Handle(ctx, payload)
}

// Handle runs one fetch cycle for a source. An unresolvable fetcher is
// logged and absorbed; a fetcher error propagates so the job is retried.
// Persistence tasks enqueued before a failure stay enqueued.
func (d *Dispatcher) Handle(ctx context.Context, task domain.FetchSourceTask) error {
	source := task.Source
	d.logger.Info("starting to fetch articles", "source", source.Name)

	f := d.factory.Create(source)
	if f == nil {
		d.logger.Error("failed to create fetcher", "source", source.Name, "slug", source.APISlug)
		return nil
	}

	articles, err := f.FetchArticles(ctx)
	if err != nil {
		return fmt.Errorf("fetch articles from %s: %w", source.Name, err)
	}

	d.logger.Info("found articles", "source", source.Name, "count", len(articles))

	for _, article := range articles {
		payload, err := json.Marshal(domain.ProcessArticleTask{
			SourceID: source.ID,
			Article:  article,
		})
		if err != nil {
			return fmt.Errorf("encode article task: %w", err)
		}

		err = d.queue.Enqueue(ctx, ports.Task{
			ID:      uuid.New(),
			Queue:   queue.QueueProcessArticles,
			Kind:    queue.KindProcessArticle,
			Payload: payload,
		})
		if err != nil {
			return fmt.Errorf("enqueue article task: %w", err)
		}
	}

	d.logger.Info("queued articles", "source", source.Name, "count", len(articles))
	return nil
}
