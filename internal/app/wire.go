//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/spf13/viper"
	"github.com/zeroxblocks/zxb-deploy/internal/adapters"
	"github.com/zeroxblocks/zxb-deploy/internal/config"
	"github.com/zeroxblocks/zxb-deploy/internal/logging"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

// InitApp creates a fully wired App instance
func InitApp(v *viper.Viper, sink usecase.ProgressSink) (*App, error) {
	wire.Build(
		config.Provider,
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewResolveParameters,
		usecase.NewEnsureDeployed,
		usecase.NewWireContract,
		usecase.NewRunMigrations,
		usecase.NewShowPlan,
		usecase.NewListDeployments,
		usecase.NewShowDeployment,
		usecase.NewListNetworks,
		usecase.NewBuildArtifacts,

		// App
		NewApp,
	)
	return nil, nil
}
