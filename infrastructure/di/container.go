package di

import (
	"go.uber.org/zap"

	"nodal/application/services"
	"nodal/infrastructure/config"
	"nodal/interfaces/http/rest"
	"nodal/pkg/observability"
)

// Container holds the wired application
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *observability.Collector
	Rules      *CanvasRules
	Storage    *Storage
	Workspaces *services.WorkspaceService
	Router     *rest.Router
}
