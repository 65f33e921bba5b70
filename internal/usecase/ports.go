package usecase

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
)

// ContractRegistry tracks the contracts deployed on the current network.
// Lookup returns domain.ErrNotFound for unknown names. A Lookup following a
// Record for the same name returns the recorded value.
type ContractRegistry interface {
	Lookup(ctx context.Context, name string) (*models.ContractRecord, error)
	Record(ctx context.Context, record *models.ContractRecord) error
	List(ctx context.Context) ([]*models.ContractRecord, error)
}

// ChainClient is the transaction boundary. Every method blocks until the
// transaction is mined; a failed status surfaces as domain.TxRevertedError
// and a missed deadline as domain.TransactionTimeoutError.
type ChainClient interface {
	Sender(ctx context.Context) (common.Address, error)
	Deploy(ctx context.Context, artifact *models.Artifact, args []models.Value) (*models.Receipt, error)
	Transact(ctx context.Context, to common.Address, contractABI *abi.ABI, method string, args []models.Value) (*models.Receipt, error)
	Call(ctx context.Context, to common.Address, contractABI *abi.ABI, method string, args []models.Value) ([]models.Value, error)
}

// ArtifactRepository finds compiled contracts by name
type ArtifactRepository interface {
	Get(ctx context.Context, name string) (*models.Artifact, error)
	Names(ctx context.Context) ([]string, error)
}

// ArtifactBuilder compiles the project
type ArtifactBuilder interface {
	Build(ctx context.Context) error
}

// EnvironmentSource is a read-only snapshot of environment variables
type EnvironmentSource interface {
	Lookup(key string) (string, bool)
}

// PlanLoader loads and validates the deployment plan
type PlanLoader interface {
	Load(ctx context.Context) (*models.Plan, error)
}

// NetworkInfo describes a configured network for listing
type NetworkInfo struct {
	Name    string
	RPCURL  string
	ChainID uint64
	Source  string
	Error   error
}

// NetworkLister enumerates configured networks
type NetworkLister interface {
	ListNetworks(ctx context.Context) []NetworkInfo
}

// Progress tracking interfaces

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage    string
	Current  int
	Total    int
	Message  string
	Spinner  bool
	Metadata interface{}
}

// Progress stages emitted by RunMigrations
const (
	StagePlanSelected       = "plan_selected"
	StageStepStarting       = "step_starting"
	StageStepCompleted      = "step_completed"
	StageMigrationCompleted = "migration_completed"
	StageAwaitingTx         = "awaiting_tx"
)

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}
