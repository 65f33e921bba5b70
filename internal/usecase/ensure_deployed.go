package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/zeroxblocks/zxb-deploy/internal/domain"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
)

// DeployRequest describes the contract a deploy step wants to exist
type DeployRequest struct {
	Name     string
	Artifact string
	Strategy models.Strategy
	// Args are constructor args for plain deployments and initializer args
	// for proxies.
	Args    []models.Value
	Version string

	// Proxy strategy only
	ProxyArtifact      string
	Admin              common.Address
	Initializer        string
	ImplementationArgs []models.Value

	// Redeploy supersedes an existing record instead of reusing it
	Redeploy bool
}

// DeployOutcome is the result of EnsureDeployed
type DeployOutcome struct {
	Record *models.ContractRecord
	Reused bool
	TxHash string
}

// EnsureDeployed makes sure a named contract exists on the network, reusing
// the registry record when it is compatible.
type EnsureDeployed struct {
	registry  ContractRegistry
	artifacts ArtifactRepository
	chain     ChainClient
	progress  ProgressSink
	log       *slog.Logger
	now       func() time.Time
}

// NewEnsureDeployed creates the deployer use case
func NewEnsureDeployed(
	registry ContractRegistry,
	artifacts ArtifactRepository,
	chain ChainClient,
	progress ProgressSink,
	log *slog.Logger,
) *EnsureDeployed {
	return &EnsureDeployed{
		registry:  registry,
		artifacts: artifacts,
		chain:     chain,
		progress:  progress,
		log:       log.With("component", "EnsureDeployed"),
		now:       time.Now,
	}
}

// Ensure returns the existing compatible record or deploys the contract
func (u *EnsureDeployed) Ensure(ctx context.Context, req DeployRequest) (*DeployOutcome, error) {
	if req.Strategy == "" {
		req.Strategy = models.StrategyPlain
	}

	existing, err := u.registry.Lookup(ctx, req.Name)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up %s: %w", req.Name, err)
	}
	if errors.Is(err, domain.ErrNotFound) {
		existing = nil
	}

	if existing != nil && !req.Redeploy {
		if existing.IsProxy != (req.Strategy == models.StrategyProxy) {
			return nil, domain.StrategyMismatchError{
				Contract:       req.Name,
				RecordedProxy:  existing.IsProxy,
				RequestedProxy: req.Strategy == models.StrategyProxy,
			}
		}
		if err := checkABIVersion(req.Name, existing.ABIVersion, req.Version); err != nil {
			return nil, err
		}
		u.log.Debug("reusing deployment", "contract", req.Name, "address", existing.Address)
		return &DeployOutcome{Record: existing, Reused: true}, nil
	}

	artifactName := req.Artifact
	if artifactName == "" {
		artifactName = req.Name
	}
	artifact, err := u.artifacts.Get(ctx, artifactName)
	if err != nil {
		return nil, err
	}

	var record *models.ContractRecord
	switch req.Strategy {
	case models.StrategyPlain:
		record, err = u.deployPlain(ctx, req, artifact)
	case models.StrategyProxy:
		record, err = u.deployProxy(ctx, req, artifact)
	default:
		return nil, fmt.Errorf("unknown deployment strategy %q", req.Strategy)
	}
	if err != nil {
		return nil, err
	}

	if existing != nil {
		record.History = append(existing.History, existing.Revision(u.now()))
	}

	if err := u.registry.Record(ctx, record); err != nil {
		return nil, fmt.Errorf("deployed %s at %s but failed to record it: %w", req.Name, record.Address.Hex(), err)
	}

	return &DeployOutcome{Record: record, TxHash: record.TxHash}, nil
}

func (u *EnsureDeployed) deployPlain(ctx context.Context, req DeployRequest, artifact *models.Artifact) (*models.ContractRecord, error) {
	u.awaiting(ctx, fmt.Sprintf("Deploying %s", req.Name))
	receipt, err := u.chain.Deploy(ctx, artifact, req.Args)
	if err != nil {
		return nil, deploymentError(req.Name, err)
	}
	u.log.Info("deployed contract", "contract", req.Name, "address", receipt.ContractAddress, "tx", receipt.TxHash)

	return &models.ContractRecord{
		Name:            req.Name,
		Address:         receipt.ContractAddress,
		Artifact:        artifact.Name,
		ABIVersion:      req.Version,
		DeployedAtBlock: receipt.BlockNumber,
		TxHash:          receipt.TxHash.Hex(),
		Args:            req.Args,
		ABI:             artifact.RawABI,
		DeployedAt:      u.now().UTC(),
	}, nil
}

// deployProxy deploys the implementation, wraps it in a transparent proxy and
// initializes it through the proxy. Nothing is returned for recording unless
// all three transactions succeed.
func (u *EnsureDeployed) deployProxy(ctx context.Context, req DeployRequest, artifact *models.Artifact) (*models.ContractRecord, error) {
	initializer := req.Initializer
	if initializer == "" {
		initializer = models.DefaultInitializer
	}
	if !artifact.HasMethod(initializer) {
		return nil, fmt.Errorf("%s has no initializer %q", artifact.Name, initializer)
	}

	proxyName := req.ProxyArtifact
	if proxyName == "" {
		proxyName = models.DefaultProxyArtifact
	}
	proxyArtifact, err := u.artifacts.Get(ctx, proxyName)
	if err != nil {
		return nil, err
	}

	admin := req.Admin
	if admin == (common.Address{}) {
		admin, err = u.chain.Sender(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to determine proxy admin: %w", err)
		}
	}

	u.awaiting(ctx, fmt.Sprintf("Deploying %s implementation", req.Name))
	implReceipt, err := u.chain.Deploy(ctx, artifact, req.ImplementationArgs)
	if err != nil {
		return nil, deploymentError(req.Name, err)
	}
	implementation := implReceipt.ContractAddress

	proxyArgs, err := proxyConstructorArgs(proxyArtifact, implementation, admin)
	if err != nil {
		return nil, err
	}
	u.awaiting(ctx, fmt.Sprintf("Deploying %s proxy", req.Name))
	proxyReceipt, err := u.chain.Deploy(ctx, proxyArtifact, proxyArgs)
	if err != nil {
		return nil, deploymentError(req.Name+" proxy", err)
	}
	proxy := proxyReceipt.ContractAddress

	u.awaiting(ctx, fmt.Sprintf("Initializing %s", req.Name))
	if _, err := u.chain.Transact(ctx, proxy, &artifact.ABI, initializer, req.Args); err != nil {
		u.log.Warn("proxy initialization failed, not recording", "contract", req.Name, "proxy", proxy, "error", err)
		var reverted domain.TxRevertedError
		if !errors.As(err, &reverted) {
			return nil, fmt.Errorf("initialize %s (proxy %s): %w", req.Name, proxy.Hex(), err)
		}
		return nil, domain.InitializationRevertedError{
			Contract: req.Name,
			Proxy:    proxy.Hex(),
			Reason:   domain.RevertReason(err),
			Err:      err,
		}
	}
	u.log.Info("deployed proxy", "contract", req.Name, "proxy", proxy, "implementation", implementation)

	return &models.ContractRecord{
		Name:            req.Name,
		Address:         proxy,
		Artifact:        artifact.Name,
		ABIVersion:      req.Version,
		IsProxy:         true,
		Implementation:  &implementation,
		ProxyAdmin:      &admin,
		DeployedAtBlock: proxyReceipt.BlockNumber,
		TxHash:          proxyReceipt.TxHash.Hex(),
		Args:            req.Args,
		ABI:             artifact.RawABI,
		DeployedAt:      u.now().UTC(),
	}, nil
}

func (u *EnsureDeployed) awaiting(ctx context.Context, message string) {
	u.progress.OnProgress(ctx, ProgressEvent{Stage: StageAwaitingTx, Message: message, Spinner: true})
}

// proxyConstructorArgs supports (logic, admin) and (logic, admin, data) proxies
func proxyConstructorArgs(proxy *models.Artifact, logic, admin common.Address) ([]models.Value, error) {
	args := []models.Value{models.AddressValue(logic), models.AddressValue(admin)}
	switch n := len(proxy.ABI.Constructor.Inputs); n {
	case 2:
		return args, nil
	case 3:
		return append(args, models.BytesValue(nil)), nil
	default:
		return nil, fmt.Errorf("proxy artifact %s has an unsupported constructor with %d inputs", proxy.Name, n)
	}
}

// deploymentError maps a chain rejection to DeploymentRevertedError. Anything
// else (timeouts, transport, signer) is wrapped unchanged.
func deploymentError(contract string, err error) error {
	var reverted domain.TxRevertedError
	if !errors.As(err, &reverted) {
		return fmt.Errorf("deploy %s: %w", contract, err)
	}
	return domain.DeploymentRevertedError{Contract: contract, Reason: reverted.Reason, Err: err}
}

// checkABIVersion rejects reuse across major versions. Records without a
// version predate version tracking and are accepted.
func checkABIVersion(contract, recorded, requested string) error {
	if recorded == "" || requested == "" || recorded == requested {
		return nil
	}
	mismatch := domain.ABIVersionMismatchError{Contract: contract, Recorded: recorded, Requested: requested}

	rv, err1 := semver.NewVersion(recorded)
	qv, err2 := semver.NewVersion(requested)
	if err1 != nil || err2 != nil {
		return mismatch
	}
	if rv.Major() != qv.Major() {
		return mismatch
	}
	return nil
}
