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

// Summary reports one trigger run to the caller.
type Summary struct {
	SourcesFound   int
	JobsDispatched int
}

// Trigger is the scheduled or manual entry point: it lists active sources
// and enqueues one fetch job per source. Fetching itself happens on the
// queue workers, never inline.
type Trigger struct {
	store  ports.Store
	queue  ports.TaskQueue
	logger *slog.Logger
}

// NewTrigger wires the source listing and the outbound task queue.
func NewTrigger(store ports.Store, q ports.TaskQueue, logger *slog.Logger) *Trigger {
	return &Trigger{
		store:  store,
		queue:  q,
		logger: logger,
	}
}

// Run enqueues a fetch job for every active source, optionally filtered to
// one provider slug. Zero active sources is a successful no-op. A failed
// enqueue for one source is logged and does not block the others.
func (t *Trigger) Run(ctx context.Context, slugFilter string) (Summary, error) {
	t.logger.Info("starting article fetch process", "filter", slugFilter)

	sources, err := t.store.ListActiveSources(ctx, slugFilter)
	if err != nil {
		return Summary{}, fmt.Errorf("list active sources: %w", err)
	}

	summary := Summary{SourcesFound: len(sources)}
	if len(sources) == 0 {
		t.logger.Warn("no active sources found")
		return summary, nil
	}

	for _, source := range sources {
		payload, err := json.Marshal(domain.FetchSourceTask{Source: source})
		if err != nil {
			t.logger.Error("encode fetch task", "source", source.Name, "error", err)
			continue
		}

		err = t.queue.Enqueue(ctx, ports.Task{
			ID:      uuid.New(),
			Queue:   queue.QueueFetchArticles,
			Kind:    queue.KindFetchSource,
			Payload: payload,
		})
		if err != nil {
			t.logger.Error("enqueue fetch task", "source", source.Name, "error", err)
			continue
		}

		t.logger.Info("dispatched fetch job", "source", source.Name)
		summary.JobsDispatched++
	}

	t.logger.Info("fetch process dispatched",
		"sources", summary.SourcesFound,
		"jobs", summary.JobsDispatched)
	return summary, nil
}
