package adapters

import (
	"log/slog"

	"github.com/google/wire"
	"github.com/zeroxblocks/zxb-deploy/internal/adapters/chain"
	internalconfig "github.com/zeroxblocks/zxb-deploy/internal/adapters/config"
	"github.com/zeroxblocks/zxb-deploy/internal/adapters/contracts"
	"github.com/zeroxblocks/zxb-deploy/internal/adapters/environment"
	"github.com/zeroxblocks/zxb-deploy/internal/adapters/forge"
	"github.com/zeroxblocks/zxb-deploy/internal/adapters/interactive"
	"github.com/zeroxblocks/zxb-deploy/internal/adapters/plan"
	"github.com/zeroxblocks/zxb-deploy/internal/adapters/registry"
	"github.com/zeroxblocks/zxb-deploy/internal/config"
	domainconfig "github.com/zeroxblocks/zxb-deploy/internal/domain/config"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

// ProvideNetworkContext builds the immutable network context of the run
func ProvideNetworkContext(cfg *domainconfig.RuntimeConfig) (models.NetworkContext, error) {
	return config.NetworkContext(cfg)
}

// ProvideFileRegistry opens the registry of the selected network
func ProvideFileRegistry(cfg *domainconfig.RuntimeConfig, network models.NetworkContext, log *slog.Logger) *registry.FileRegistry {
	return registry.NewFileRegistry(cfg.DeploymentsDir, network, log)
}

// ProvideArtifactRepository indexes the configured artifact directories
func ProvideArtifactRepository(cfg *domainconfig.RuntimeConfig, log *slog.Logger) *contracts.ArtifactRepository {
	return contracts.NewArtifactRepository(cfg.ArtifactDirs, log)
}

// ProvideBuilder creates the compiler runner. A successful build drops the
// artifact index so fresh bytecode is picked up.
func ProvideBuilder(cfg *domainconfig.RuntimeConfig, artifacts *contracts.ArtifactRepository, log *slog.Logger) *forge.Builder {
	b := forge.NewBuilder(cfg.ProjectRoot, cfg.BuildCommand, cfg.Verbose, log)
	b.OnBuilt(artifacts.Refresh)
	return b
}

// ProvideChainClient configures the client for the selected network. Without
// a network the client fails on first use.
func ProvideChainClient(cfg *domainconfig.RuntimeConfig, log *slog.Logger) *chain.Client {
	if cfg.Network == nil {
		return chain.NewClient(chain.Config{}, log)
	}
	_, key := config.SignerKey(cfg.Deploy, cfg.Network.Name)
	return chain.NewClient(chain.Config{
		Network:    cfg.Network.Name,
		RPCURL:     cfg.Network.RPCURL,
		ChainID:    cfg.Network.ChainID,
		PrivateKey: key,
		TxTimeout:  cfg.Network.TxTimeout,
		GasPrice:   cfg.Network.GasPrice,
		GasLimit:   cfg.Network.GasLimit,
	}, log)
}

// ProvidePlanLoader reads the plan named by the configuration
func ProvidePlanLoader(cfg *domainconfig.RuntimeConfig, log *slog.Logger) *plan.FileLoader {
	return plan.NewFileLoader(cfg.PlanPath, log)
}

// ProvideEnvironment snapshots the process environment after .env loading
func ProvideEnvironment() environment.Snapshot {
	return environment.FromOS()
}

// ProvidePrompter creates the terminal prompter
func ProvidePrompter(cfg *domainconfig.RuntimeConfig) *interactive.Prompter {
	return interactive.NewPrompter(cfg.NonInteractive || cfg.JSON)
}

// RegistrySet provides the deployment registry
var RegistrySet = wire.NewSet(
	ProvideNetworkContext,
	ProvideFileRegistry,
	wire.Bind(new(usecase.ContractRegistry), new(*registry.FileRegistry)),
)

// ContractsSet provides artifact lookup and compilation
var ContractsSet = wire.NewSet(
	ProvideArtifactRepository,
	wire.Bind(new(usecase.ArtifactRepository), new(*contracts.ArtifactRepository)),

	ProvideBuilder,
	wire.Bind(new(usecase.ArtifactBuilder), new(*forge.Builder)),
)

// ChainSet provides the go-ethereum chain client
var ChainSet = wire.NewSet(
	ProvideChainClient,
	wire.Bind(new(usecase.ChainClient), new(*chain.Client)),
)

// PlanSet provides the plan loader and the parameter environment
var PlanSet = wire.NewSet(
	ProvidePlanLoader,
	wire.Bind(new(usecase.PlanLoader), new(*plan.FileLoader)),

	ProvideEnvironment,
	wire.Bind(new(usecase.EnvironmentSource), new(environment.Snapshot)),
)

// ConfigSet provides configuration-based implementations
var ConfigSet = wire.NewSet(
	config.ProvideNetworkResolver,
	internalconfig.NewNetworkListerAdapter,
	wire.Bind(new(usecase.NetworkLister), new(*internalconfig.NetworkListerAdapter)),
)

// InteractiveSet provides interactive implementations
var InteractiveSet = wire.NewSet(
	ProvidePrompter,
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	RegistrySet,
	ContractsSet,
	ChainSet,
	PlanSet,
	ConfigSet,
	InteractiveSet,
)
