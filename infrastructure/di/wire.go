//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"nodal/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideAWSClients,
	ProvideRedisClient,
	ProvideCanvasRules,
	ProvideCodec,
	ProvideStorage,
	ProvideEvents,
	ProvideEmbeddingCache,
	ProvideAIProviders,
	ProvidePersister,
	ProvideWorkspaceService,
	ProvideChatService,
	ProvideSmartViewService,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideRateLimiter,
	ProvideJWTValidator,
	ProvideErrorHandler,
	ProvideHealthChecks,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The returned cleanup
// flushes pending saves and releases connections.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
