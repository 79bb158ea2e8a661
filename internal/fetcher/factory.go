package fetcher

import (
	"log/slog"

	"NewsAggregator/internal/config"
	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/ports"
)

// ProviderType is the closed enumeration of known fetcher implementations.
type ProviderType string

const (
	ProviderNewsAPI  ProviderType = "newsapi"
	ProviderGuardian ProviderType = "guardian"
	ProviderNYTimes  ProviderType = "nytimes"
)

// Factory resolves a source's provider slug to a concrete fetcher.
type Factory struct {
	providers config.ProviderConfig
	client    *Client
	logger    *slog.Logger
}

var _ ports.FetcherFactory = (*Factory)(nil)

// NewFactory wires provider credentials and the shared HTTP client.
func NewFactory(providers config.ProviderConfig, client *Client, logger *slog.Logger) *Factory {
	return &Factory{
		providers: providers,
		client:    client,
		logger:    logger,
	}
}

// Create returns the fetcher for the source's slug, or nil for unknown
// slugs. It never panics; callers must handle the nil case explicitly.
func (f *Factory) Create(source domain.Source) ports.Fetcher {
	switch ProviderType(source.APISlug) {
	case ProviderNewsAPI:
		return NewNewsAPIFetcher(source, f.providers.NewsAPIKey, f.client,
			f.logger.With("component", "fetcher.newsapi"))
	case ProviderGuardian:
		return NewGuardianFetcher(source, f.providers.GuardianAPIKey, f.client,
			f.logger.With("component", "fetcher.guardian"))
	case ProviderNYTimes:
		return NewNYTimesFetcher(source, f.providers.NYTimesAPIKey, f.client,
			f.logger.With("component", "fetcher.nytimes"))
	default:
		f.logger.Error("no fetcher for source slug", "slug", source.APISlug, "source", source.Name)
		return nil
	}
}
