package usecase_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeroxblocks/zxb-deploy/internal/adapters/registry"
	"github.com/zeroxblocks/zxb-deploy/internal/domain"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

const rewardsPlan = `
name: rewards
parameters:
  - {name: supply, type: uint256, literal: "1000 ether"}
steps:
  - id: deploy-token
    tags: [core]
    deploy: {contract: Token, args: [$supply]}
  - id: deploy-manager
    tags: [core]
    deploy: {contract: RewardManager, args: ["0x0000000000000000000000000000000000000000"]}
  - id: wire-manager-token
    tags: [core]
    depends_on: [RewardManager, Token]
    wire: {target: RewardManager, method: setToken, args: ["@Token"], guard: {read: token}}
  - id: wire-token-manager
    tags: [core]
    depends_on: [Token, RewardManager]
    wire: {target: Token, method: setRewardManager, args: ["@RewardManager"], guard: {read: rewardManager}}
`

type harness struct {
	chain    *fakeChain
	registry *registry.MemoryRegistry
	sink     *recordingSink
	runner   *usecase.RunMigrations
}

func newHarness(t *testing.T, doc string, network models.NetworkContext, env mapEnv, records ...*models.ContractRecord) *harness {
	t.Helper()
	h := &harness{
		chain:    newFakeChain(),
		registry: registry.NewMemoryRegistry(records...),
		sink:     &recordingSink{},
	}
	h.runner = h.build(t, doc, network, env)
	return h
}

// build wires a runner over the harness chain and registry, so a second
// runner can continue where the first one stopped.
func (h *harness) build(t *testing.T, doc string, network models.NetworkContext, env mapEnv) *usecase.RunMigrations {
	t.Helper()
	log := discardLogger()
	artifacts := newFakeArtifacts(t)
	resolver := usecase.NewResolveParameters(env)
	deployer := usecase.NewEnsureDeployed(h.registry, artifacts, h.chain, h.sink, log)
	wirer := usecase.NewWireContract(artifacts, h.chain, h.sink, log)
	return usecase.NewRunMigrations(staticPlan{mustPlan(t, doc)}, resolver, h.registry, deployer, wirer, network, h.sink, log)
}

func (h *harness) address(t *testing.T, name string) common.Address {
	t.Helper()
	record, err := h.registry.Lookup(context.Background(), name)
	require.NoError(t, err)
	return record.Address
}

func TestRunMigrations_FreshRun(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, rewardsPlan, fuji, mapEnv{})

	result, err := h.runner.Run(ctx, usecase.MigrateParams{Tags: []string{"core"}})
	require.NoError(t, err)

	assert.Equal(t, []models.Outcome{
		models.OutcomeDeployed,
		models.OutcomeDeployed,
		models.OutcomeWired,
		models.OutcomeWired,
	}, outcomes(result))
	assert.False(t, result.Failed())
	assert.Equal(t, usecase.PlanFinished, result.State)
	assert.Equal(t, 2, h.registry.Writes())

	token := h.address(t, "Token")
	manager := h.address(t, "RewardManager")
	assert.NotEqual(t, token, manager)

	// Later steps see the addresses produced by earlier ones
	assert.Equal(t, token.Hex(), h.chain.state[manager]["token"].Address.Hex())
	assert.Equal(t, manager.Hex(), h.chain.state[token]["rewardManager"].Address.Hex())

	stages := h.sink.stages()
	require.NotEmpty(t, stages)
	assert.Equal(t, usecase.StagePlanSelected, stages[0])
	assert.Equal(t, usecase.StageMigrationCompleted, stages[len(stages)-1])
}

func TestRunMigrations_RerunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, rewardsPlan, fuji, mapEnv{})

	_, err := h.runner.Run(ctx, usecase.MigrateParams{})
	require.NoError(t, err)
	txs := h.chain.transactions()
	writes := h.registry.Writes()

	result, err := h.runner.Run(ctx, usecase.MigrateParams{})
	require.NoError(t, err)

	assert.Equal(t, []models.Outcome{
		models.OutcomeReused,
		models.OutcomeReused,
		models.OutcomeSkipped,
		models.OutcomeSkipped,
	}, outcomes(result))
	assert.Equal(t, models.SkipSatisfied, result.Results[2].SkipReason)
	assert.Equal(t, txs, h.chain.transactions(), "a rerun must not send transactions")
	assert.Equal(t, writes, h.registry.Writes(), "a rerun must not rewrite records")
}

func TestRunMigrations_PreSatisfiedGuard(t *testing.T) {
	ctx := context.Background()
	doc := `
name: rewards
steps:
  - id: deploy-token
    tags: [core]
    deploy: {contract: Token, args: [1000]}
  - id: deploy-manager
    tags: [core]
    depends_on: [Token]
    deploy: {contract: RewardManager, args: ["@Token"]}
  - id: wire-manager-token
    tags: [core]
    depends_on: [RewardManager, Token]
    wire: {target: RewardManager, method: setToken, args: ["@Token"], guard: {read: token}}
  - id: wire-token-manager
    tags: [core]
    depends_on: [Token, RewardManager]
    wire: {target: Token, method: setRewardManager, args: ["@RewardManager"], guard: {read: rewardManager}}
`
	h := newHarness(t, doc, fuji, mapEnv{})
	// The manager constructor already links the token
	h.chain.ctorState["RewardManager"] = []string{"token"}

	result, err := h.runner.Run(ctx, usecase.MigrateParams{})
	require.NoError(t, err)

	assert.Equal(t, []models.Outcome{
		models.OutcomeDeployed,
		models.OutcomeDeployed,
		models.OutcomeSkipped,
		models.OutcomeWired,
	}, outcomes(result))
	assert.Equal(t, []string{"setRewardManager"}, h.chain.sent)
}

func TestRunMigrations_NetworkPredicate(t *testing.T) {
	doc := `
name: rewards
steps:
  - id: deploy-manager
    tags: [rewards]
    skip_networks: [avax]
    deploy: {contract: RewardManager, args: ["0x0000000000000000000000000000000000000000"]}
  - id: deploy-token
    tags: [rewards]
    deploy: {contract: Token, args: [1000]}
  - id: wire-manager-token
    tags: [rewards]
    depends_on: [RewardManager, Token]
    wire: {target: RewardManager, method: setToken, args: ["@Token"], guard: {read: token}}
`

	t.Run("skipped network", func(t *testing.T) {
		h := newHarness(t, doc, avax, mapEnv{})

		result, err := h.runner.Run(context.Background(), usecase.MigrateParams{Tags: []string{"rewards"}})
		require.NoError(t, err)

		assert.Equal(t, []models.Outcome{
			models.OutcomeSkipped,
			models.OutcomeDeployed,
			models.OutcomeSkipped,
		}, outcomes(result))
		assert.Equal(t, models.SkipPredicate, result.Results[0].SkipReason)
		assert.Equal(t, models.SkipDependency, result.Results[2].SkipReason)
		assert.Equal(t, []string{"Token"}, h.chain.deployed)
		assert.Empty(t, h.chain.sent)
		assert.False(t, result.Failed())
	})

	t.Run("recorded producer on a skipped network", func(t *testing.T) {
		manager := common.HexToAddress("0x00000000000000000000000000000000000000a7")
		h := newHarness(t, doc, avax, mapEnv{}, &models.ContractRecord{Name: "RewardManager", Address: manager})

		result, err := h.runner.Run(context.Background(), usecase.MigrateParams{Tags: []string{"rewards"}})
		require.NoError(t, err)

		assert.Equal(t, []models.Outcome{
			models.OutcomeSkipped,
			models.OutcomeDeployed,
			models.OutcomeSkipped,
		}, outcomes(result))
		assert.Equal(t, models.SkipDependency, result.Results[2].SkipReason)
		assert.Contains(t, result.Results[2].Detail, "RewardManager")
		assert.Empty(t, h.chain.sent, "the recorded manager must not be wired")
	})

	t.Run("other network", func(t *testing.T) {
		h := newHarness(t, doc, fuji, mapEnv{})

		result, err := h.runner.Run(context.Background(), usecase.MigrateParams{Tags: []string{"rewards"}})
		require.NoError(t, err)

		assert.Equal(t, []models.Outcome{
			models.OutcomeDeployed,
			models.OutcomeDeployed,
			models.OutcomeWired,
		}, outcomes(result))
	})
}

func TestRunMigrations_FailFastAndResume(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, rewardsPlan, fuji, mapEnv{})
	h.chain.failDeploy["RewardManager"] = domain.TxRevertedError{Reason: "out of gas"}

	result, err := h.runner.Run(ctx, usecase.MigrateParams{})
	require.NoError(t, err, "step failures are reported in the result")

	assert.Equal(t, []models.Outcome{models.OutcomeDeployed, models.OutcomeFailed}, outcomes(result))
	assert.True(t, result.Failed())
	assert.Len(t, result.NotAttempted(), 2)

	failed, ok := result.FailedStep()
	require.True(t, ok)
	assert.Equal(t, "deploy-manager", failed.StepID)
	var reverted domain.DeploymentRevertedError
	require.ErrorAs(t, failed.Err, &reverted)
	assert.Equal(t, "out of gas", reverted.Reason)

	_, err = h.registry.Lookup(ctx, "RewardManager")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, h.chain.sent, "no step after the failure may run")

	// Fix the cause and run again: completed work is reused
	delete(h.chain.failDeploy, "RewardManager")
	result, err = h.runner.Run(ctx, usecase.MigrateParams{})
	require.NoError(t, err)
	assert.Equal(t, []models.Outcome{
		models.OutcomeReused,
		models.OutcomeDeployed,
		models.OutcomeWired,
		models.OutcomeWired,
	}, outcomes(result))
	assert.Equal(t, []string{"Token", "RewardManager"}, h.chain.deployed)
}

func TestRunMigrations_Proxy(t *testing.T) {
	doc := `
name: rewards
parameters:
  - {name: deployer, type: address, account: deployer}
steps:
  - id: deploy-manager
    tags: [core]
    deploy:
      contract: RewardManager
      proxy:
        admin: $deployer
        implementation_args: ["0x0000000000000000000000000000000000000000"]
      args: ["5 ether"]
`

	t.Run("deploys implementation, proxy and initializes", func(t *testing.T) {
		ctx := context.Background()
		h := newHarness(t, doc, fuji, mapEnv{})

		result, err := h.runner.Run(ctx, usecase.MigrateParams{})
		require.NoError(t, err)
		require.Equal(t, []models.Outcome{models.OutcomeDeployed}, outcomes(result))

		assert.Equal(t, []string{"RewardManager", models.DefaultProxyArtifact}, h.chain.deployed)
		assert.Equal(t, []string{"initialize"}, h.chain.sent)

		record, err := h.registry.Lookup(ctx, "RewardManager")
		require.NoError(t, err)
		assert.True(t, record.IsProxy)
		require.NotNil(t, record.Implementation)
		require.NotNil(t, record.ProxyAdmin)
		assert.Equal(t, deployer, *record.ProxyAdmin)
		assert.NotEqual(t, record.Address, *record.Implementation)
	})

	t.Run("failed initializer is not recorded", func(t *testing.T) {
		ctx := context.Background()
		h := newHarness(t, doc, fuji, mapEnv{})
		h.chain.failTx["initialize"] = domain.TxRevertedError{TxHash: "0xabc", Reason: "already initialized"}

		result, err := h.runner.Run(ctx, usecase.MigrateParams{})
		require.NoError(t, err)
		require.Equal(t, []models.Outcome{models.OutcomeFailed}, outcomes(result))

		var initErr domain.InitializationRevertedError
		require.ErrorAs(t, result.Results[0].Err, &initErr)
		assert.Equal(t, "already initialized", initErr.Reason)
		assert.Equal(t, 0, h.registry.Writes())
		_, err = h.registry.Lookup(ctx, "RewardManager")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("strategy mismatch with the registry", func(t *testing.T) {
		plain := &models.ContractRecord{Name: "RewardManager", Address: common.HexToAddress("0x0000000000000000000000000000000000000a11")}
		h := newHarness(t, doc, fuji, mapEnv{}, plain)

		result, err := h.runner.Run(context.Background(), usecase.MigrateParams{})
		require.NoError(t, err)

		var mismatch domain.StrategyMismatchError
		require.ErrorAs(t, result.Results[0].Err, &mismatch)
		assert.False(t, mismatch.RecordedProxy)
		assert.True(t, mismatch.RequestedProxy)
		assert.Zero(t, h.chain.transactions())
	})
}

func TestRunMigrations_Redeploy(t *testing.T) {
	ctx := context.Background()
	old := common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	h := newHarness(t, rewardsPlan, fuji, mapEnv{}, &models.ContractRecord{Name: "Token", Address: old, TxHash: "0x01"})

	result, err := h.runner.Run(ctx, usecase.MigrateParams{Redeploy: []string{"Token"}})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeDeployed, result.Results[0].Outcome)

	record, err := h.registry.Lookup(ctx, "Token")
	require.NoError(t, err)
	assert.NotEqual(t, old, record.Address)
	require.Len(t, record.History, 1)
	assert.Equal(t, old, record.History[0].Address)

	t.Run("unknown contract", func(t *testing.T) {
		_, err := h.runner.Run(ctx, usecase.MigrateParams{Redeploy: []string{"Nope"}})
		assert.Error(t, err)
	})
}

func TestRunMigrations_ABIVersion(t *testing.T) {
	doc := `
name: rewards
steps:
  - id: deploy-token
    tags: [core]
    deploy: {contract: Token, args: [1000], version: "2.0.0"}
`
	addr := common.HexToAddress("0x0000000000000000000000000000000000000c0c")

	tests := []struct {
		name     string
		recorded string
		outcome  models.Outcome
	}{
		{name: "same major", recorded: "2.3.1", outcome: models.OutcomeReused},
		{name: "unversioned record", recorded: "", outcome: models.OutcomeReused},
		{name: "major bump", recorded: "1.4.0", outcome: models.OutcomeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, doc, fuji, mapEnv{}, &models.ContractRecord{Name: "Token", Address: addr, ABIVersion: tt.recorded})

			result, err := h.runner.Run(context.Background(), usecase.MigrateParams{})
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, result.Results[0].Outcome)
			if tt.outcome == models.OutcomeFailed {
				var mismatch domain.ABIVersionMismatchError
				assert.ErrorAs(t, result.Results[0].Err, &mismatch)
			}
			assert.Zero(t, h.chain.transactions())
		})
	}
}

func TestRunMigrations_DryRun(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh network", func(t *testing.T) {
		h := newHarness(t, rewardsPlan, fuji, mapEnv{})

		result, err := h.runner.Run(ctx, usecase.MigrateParams{DryRun: true})
		require.NoError(t, err)

		assert.Equal(t, []models.Outcome{
			models.OutcomePlanned,
			models.OutcomePlanned,
			models.OutcomePlanned,
			models.OutcomePlanned,
		}, outcomes(result))
		assert.True(t, result.DryRun)
		assert.False(t, result.Failed(), "steps awaiting a planned deployment complete cleanly")
		assert.Contains(t, result.Results[2].Detail, "awaits deployment of")
		assert.Zero(t, h.chain.transactions())
		assert.Zero(t, h.registry.Writes())
	})

	t.Run("after a real run", func(t *testing.T) {
		h := newHarness(t, rewardsPlan, fuji, mapEnv{})
		_, err := h.runner.Run(ctx, usecase.MigrateParams{})
		require.NoError(t, err)
		txs := h.chain.transactions()

		result, err := h.runner.Run(ctx, usecase.MigrateParams{DryRun: true})
		require.NoError(t, err)
		assert.Equal(t, []models.Outcome{
			models.OutcomeReused,
			models.OutcomeReused,
			models.OutcomeSkipped,
			models.OutcomeSkipped,
		}, outcomes(result))
		assert.Equal(t, txs, h.chain.transactions())
	})

	t.Run("drifted guard", func(t *testing.T) {
		h := newHarness(t, rewardsPlan, fuji, mapEnv{})
		_, err := h.runner.Run(ctx, usecase.MigrateParams{})
		require.NoError(t, err)
		h.chain.set(h.address(t, "RewardManager"), "token", models.AddressValue(common.Address{}))

		result, err := h.runner.Run(ctx, usecase.MigrateParams{DryRun: true})
		require.NoError(t, err)
		assert.Equal(t, models.OutcomePlanned, result.Results[2].Outcome)
		assert.Equal(t, models.OutcomeSkipped, result.Results[3].Outcome)
	})
}

func TestRunMigrations_Selection(t *testing.T) {
	ctx := context.Background()
	doc := `
name: rewards
steps:
  - id: deploy-token
    tags: [token]
    deploy: {contract: Token, args: [1000]}
  - id: deploy-manager
    tags: [manager]
    deploy: {contract: RewardManager, args: ["0x0000000000000000000000000000000000000000"]}
`

	t.Run("runs only tagged steps", func(t *testing.T) {
		h := newHarness(t, doc, fuji, mapEnv{})

		result, err := h.runner.Run(ctx, usecase.MigrateParams{Tags: []string{"Manager"}})
		require.NoError(t, err)
		require.Len(t, result.Results, 1)
		assert.Equal(t, "deploy-manager", result.Results[0].StepID)
		assert.Equal(t, []string{"RewardManager"}, h.chain.deployed)
	})

	t.Run("unknown tag", func(t *testing.T) {
		h := newHarness(t, doc, fuji, mapEnv{})

		_, err := h.runner.Run(ctx, usecase.MigrateParams{Tags: []string{"token", "tokn"}})
		var unknown domain.UnknownTagError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, []string{"tokn"}, unknown.Tags)
		assert.Zero(t, h.chain.transactions())
	})

	t.Run("no network", func(t *testing.T) {
		h := newHarness(t, doc, models.NetworkContext{}, mapEnv{})

		_, err := h.runner.Run(ctx, usecase.MigrateParams{})
		assert.Error(t, err)
	})
}

func TestRunMigrations_MissingParameter(t *testing.T) {
	doc := `
name: rewards
parameters:
  - {name: treasury, type: address, env: TREASURY_WALLET}
steps:
  - id: deploy-token
    tags: [core]
    deploy: {contract: Token, args: [1000]}
  - id: deploy-manager
    tags: [core]
    deploy: {contract: RewardManager, args: [$treasury]}
`

	t.Run("fails the step using it", func(t *testing.T) {
		h := newHarness(t, doc, fuji, mapEnv{})

		result, err := h.runner.Run(context.Background(), usecase.MigrateParams{})
		require.NoError(t, err)
		assert.Equal(t, []models.Outcome{models.OutcomeDeployed, models.OutcomeFailed}, outcomes(result))

		var missing domain.MissingParameterError
		require.ErrorAs(t, result.Results[1].Err, &missing)
		assert.Equal(t, "treasury", missing.Name)
	})

	t.Run("resolved from the environment", func(t *testing.T) {
		h := newHarness(t, doc, fuji, mapEnv{"TREASURY_WALLET": "0x00000000000000000000000000000000000000f0"})

		result, err := h.runner.Run(context.Background(), usecase.MigrateParams{})
		require.NoError(t, err)
		assert.False(t, result.Failed())
	})

	t.Run("override wins", func(t *testing.T) {
		h := newHarness(t, doc, fuji, mapEnv{})

		result, err := h.runner.Run(context.Background(), usecase.MigrateParams{
			Overrides: map[string]string{"treasury": "0x00000000000000000000000000000000000000f1"},
		})
		require.NoError(t, err)
		assert.False(t, result.Failed())
		assert.Equal(t, []string{"Token", "RewardManager"}, h.chain.deployed)
	})

	t.Run("misspelled override stops the run before any step", func(t *testing.T) {
		h := newHarness(t, doc, fuji, mapEnv{})

		result, err := h.runner.Run(context.Background(), usecase.MigrateParams{
			Overrides: map[string]string{"tresury": "0x00000000000000000000000000000000000000aa"},
		})
		assert.Nil(t, result)
		var unknown domain.UnknownParameterError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, []string{"tresury"}, unknown.Names)
		assert.Equal(t, []string{"treasury"}, unknown.Available)
		assert.Empty(t, h.chain.deployed)
		assert.Zero(t, h.registry.Writes())
	})
}
