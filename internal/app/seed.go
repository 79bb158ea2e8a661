package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gosimple/slug"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/fetcher"
	"NewsAggregator/internal/ports"
)

var defaultCategories = []string{
	"Technology", "Business", "Health", "Science",
	"Sports", "Entertainment", "Politics", "World",
}

func defaultSources() []domain.Source {
	sections := []string{"technology", "business", "science", "sports", "entertainment"}

	return []domain.Source{
		{
			Name:     "NewsAPI",
			APISlug:  string(fetcher.ProviderNewsAPI),
			IsActive: true,
			Config: domain.SourceConfig{
				Language: "en",
				Days:     30,
			},
		},
		{
			Name:     "The Guardian",
			APISlug:  string(fetcher.ProviderGuardian),
			IsActive: true,
			Config: domain.SourceConfig{
				Sections: sections,
			},
		},
		{
			Name:     "The New York Times",
			APISlug:  string(fetcher.ProviderNYTimes),
			IsActive: true,
			Config: domain.SourceConfig{
				Sections: []string{
					"home", "technology", "business", "science",
					"sports", "arts", "world", "politics",
				},
				Period: 7,
			},
		},
	}
}

// Seed find-or-creates the default categories and provider sources. Running
// it repeatedly changes nothing: existing rows keep their configuration.
func Seed(ctx context.Context, store ports.Store, logger *slog.Logger) error {
	for _, name := range defaultCategories {
		if _, err := store.FindOrCreateCategory(ctx, slug.Make(name), name); err != nil {
			return fmt.Errorf("seed category %s: %w", name, err)
		}
	}

	for _, source := range defaultSources() {
		created, err := store.FindOrCreateSource(ctx, source)
		if err != nil {
			return fmt.Errorf("seed source %s: %w", source.APISlug, err)
		}
		logger.Info("seeded source", "slug", created.APISlug, "id", created.ID)
	}

	logger.Info("seed complete",
		"categories", len(defaultCategories),
		"sources", len(defaultSources()))
	return nil
}
