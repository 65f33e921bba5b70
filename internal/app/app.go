package app

import (
	"github.com/zeroxblocks/zxb-deploy/internal/adapters/interactive"
	"github.com/zeroxblocks/zxb-deploy/internal/adapters/registry"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/config"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config  *config.RuntimeConfig
	Network models.NetworkContext

	// Shared dependencies
	Registry *registry.FileRegistry
	Prompter *interactive.Prompter

	// Use cases
	RunMigrations   *usecase.RunMigrations
	ShowPlan        *usecase.ShowPlan
	ListDeployments *usecase.ListDeployments
	ShowDeployment  *usecase.ShowDeployment
	ListNetworks    *usecase.ListNetworks
	BuildArtifacts  *usecase.BuildArtifacts
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	network models.NetworkContext,
	registry *registry.FileRegistry,
	prompter *interactive.Prompter,
	runMigrations *usecase.RunMigrations,
	showPlan *usecase.ShowPlan,
	listDeployments *usecase.ListDeployments,
	showDeployment *usecase.ShowDeployment,
	listNetworks *usecase.ListNetworks,
	buildArtifacts *usecase.BuildArtifacts,
) (*App, error) {
	return &App{
		Config:          cfg,
		Network:         network,
		Registry:        registry,
		Prompter:        prompter,
		RunMigrations:   runMigrations,
		ShowPlan:        showPlan,
		ListDeployments: listDeployments,
		ShowDeployment:  showDeployment,
		ListNetworks:    listNetworks,
		BuildArtifacts:  buildArtifacts,
	}, nil
}
