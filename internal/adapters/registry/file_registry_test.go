package registry_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeroxblocks/zxb-deploy/internal/adapters/registry"
	"github.com/zeroxblocks/zxb-deploy/internal/domain"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
)

var (
	fuji = models.NewNetworkContext("fuji", 43113, 18, nil)
	log  = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func TestFileRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("record and reload", func(t *testing.T) {
		root := t.TempDir()
		impl := common.HexToAddress("0x00000000000000000000000000000000000000a1")
		record := &models.ContractRecord{
			Name:            "CONTRewardManagement",
			Address:         common.HexToAddress("0x00000000000000000000000000000000000000a2"),
			Artifact:        "CONTRewardManagement",
			ABIVersion:      "1.0.0",
			IsProxy:         true,
			Implementation:  &impl,
			DeployedAtBlock: 42,
			TxHash:          "0xabc",
			Args:            []models.Value{models.Int64Value(5), models.AddressValue(impl)},
			ABI:             []byte(`[{"type":"function","name":"token","inputs":[],"outputs":[{"name":"","type":"address"}]}]`),
			DeployedAt:      time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC),
		}

		reg := registry.NewFileRegistry(root, fuji, log)
		require.NoError(t, reg.Record(ctx, record))

		assert.FileExists(t, filepath.Join(root, "fuji", "CONTRewardManagement.json"))
		marker, err := os.ReadFile(filepath.Join(root, "fuji", registry.ChainIDFile))
		require.NoError(t, err)
		assert.Equal(t, "43113", string(marker))

		reopened := registry.NewFileRegistry(root, fuji, log)
		got, err := reopened.Lookup(ctx, "CONTRewardManagement")
		require.NoError(t, err)
		assert.Equal(t, record.Address, got.Address)
		assert.True(t, got.IsProxy)
		assert.Equal(t, impl, *got.Implementation)
		assert.Equal(t, uint64(42), got.DeployedAtBlock)
		assert.JSONEq(t, string(record.ABI), string(got.ABI))
		require.Len(t, got.Args, 2)
		assert.True(t, got.Args[1].Equal(models.AddressValue(impl)))
		assert.True(t, record.DeployedAt.Equal(got.DeployedAt))
	})

	t.Run("records are isolated per network", func(t *testing.T) {
		root := t.TempDir()
		avax := models.NewNetworkContext("avax", 43114, 18, nil)

		require.NoError(t, registry.NewFileRegistry(root, fuji, log).Record(ctx, &models.ContractRecord{Name: "Token"}))

		_, err := registry.NewFileRegistry(root, avax, log).Lookup(ctx, "Token")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		reg := registry.NewFileRegistry(t.TempDir(), fuji, log)
		require.NoError(t, reg.Record(ctx, &models.ContractRecord{Name: "Token", TxHash: "0x01"}))

		got, err := reg.Lookup(ctx, "Token")
		require.NoError(t, err)
		got.TxHash = "0x02"

		again, err := reg.Lookup(ctx, "Token")
		require.NoError(t, err)
		assert.Equal(t, "0x01", again.TxHash)
	})

	t.Run("list is sorted and skips hidden files", func(t *testing.T) {
		root := t.TempDir()
		reg := registry.NewFileRegistry(root, fuji, log)
		for _, name := range []string{"Zap", "LiquidityRouter", "ZeroXBlock"} {
			require.NoError(t, reg.Record(ctx, &models.ContractRecord{Name: name}))
		}
		require.NoError(t, os.WriteFile(filepath.Join(root, "fuji", ".notes.json"), []byte("{"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "fuji", "README.md"), []byte("#"), 0644))

		records, err := registry.NewFileRegistry(root, fuji, log).List(ctx)
		require.NoError(t, err)
		names := make([]string, len(records))
		for i, r := range records {
			names[i] = r.Name
		}
		assert.Equal(t, []string{"LiquidityRouter", "Zap", "ZeroXBlock"}, names)
	})

	t.Run("name defaults to the file name", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "fuji"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "fuji", "LPStaking.json"),
			[]byte(`{"address":"0x00000000000000000000000000000000000000b1"}`), 0644))

		got, err := registry.NewFileRegistry(root, fuji, log).Lookup(ctx, "LPStaking")
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000b1"), got.Address)
	})

	t.Run("hardhat deployment files", func(t *testing.T) {
		root := t.TempDir()
		dir := filepath.Join(root, "fuji")
		require.NoError(t, os.MkdirAll(dir, 0755))
		write := func(name, body string) {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
		}
		write("CONTRewardManagement.json", `{
			"address": "0x00000000000000000000000000000000000000c1",
			"abi": [],
			"transactionHash": "0xfeed",
			"receipt": {"blockNumber": 1234, "status": 1},
			"args": ["0x00000000000000000000000000000000000000d1", "1000"],
			"implementation": "0x00000000000000000000000000000000000000c2"
		}`)
		write("CONTRewardManagement_Implementation.json", `{"address": "0x00000000000000000000000000000000000000c2", "abi": []}`)
		write("CONTRewardManagement_Proxy.json", `{"address": "0x00000000000000000000000000000000000000c1", "abi": []}`)
		write("Token.json", `{"address": "0x00000000000000000000000000000000000000e1", "receipt": {"blockNumber": "0x4d2"}}`)
		write("Vault.json", `{
			"address": "0x00000000000000000000000000000000000000f1",
			"isProxy": false,
			"implementation": "0x00000000000000000000000000000000000000f2"
		}`)

		reg := registry.NewFileRegistry(root, fuji, log)
		records, err := reg.List(ctx)
		require.NoError(t, err)
		names := make([]string, len(records))
		for i, r := range records {
			names[i] = r.Name
		}
		assert.Equal(t, []string{"CONTRewardManagement", "Token", "Vault"}, names)

		manager, err := reg.Lookup(ctx, "CONTRewardManagement")
		require.NoError(t, err)
		assert.True(t, manager.IsProxy)
		assert.Equal(t, models.StrategyProxy, manager.Strategy())
		assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000c2"), *manager.Implementation)
		assert.Equal(t, uint64(1234), manager.DeployedAtBlock)
		assert.Equal(t, "0xfeed", manager.TxHash)
		require.Len(t, manager.Args, 2)
		assert.Equal(t, models.AddressValue(common.HexToAddress("0x00000000000000000000000000000000000000d1")), manager.Args[0])

		token, err := reg.Lookup(ctx, "Token")
		require.NoError(t, err)
		assert.False(t, token.IsProxy)
		assert.Equal(t, uint64(1234), token.DeployedAtBlock)

		vault, err := reg.Lookup(ctx, "Vault")
		require.NoError(t, err)
		assert.False(t, vault.IsProxy)
	})

	t.Run("side files without an owner are records", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "fuji"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "fuji", "Router_Proxy.json"),
			[]byte(`{"address":"0x00000000000000000000000000000000000000b2"}`), 0644))

		got, err := registry.NewFileRegistry(root, fuji, log).Lookup(ctx, "Router_Proxy")
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000b2"), got.Address)
	})

	t.Run("written records carry the receipt block", func(t *testing.T) {
		root := t.TempDir()
		reg := registry.NewFileRegistry(root, fuji, log)
		require.NoError(t, reg.Record(ctx, &models.ContractRecord{Name: "Token", DeployedAtBlock: 77}))

		data, err := os.ReadFile(filepath.Join(root, "fuji", "Token.json"))
		require.NoError(t, err)
		var raw map[string]any
		require.NoError(t, json.Unmarshal(data, &raw))
		assert.Equal(t, map[string]any{"blockNumber": float64(77)}, raw["receipt"])
		assert.Equal(t, false, raw["isProxy"])
	})

	t.Run("chain id mismatch", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "fuji"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "fuji", registry.ChainIDFile), []byte("4\n"), 0644))

		_, err := registry.NewFileRegistry(root, fuji, log).List(ctx)
		assert.ErrorIs(t, err, domain.ErrNetworkMismatch)
	})

	t.Run("corrupt record", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "fuji"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "fuji", "Token.json"), []byte("{not json"), 0644))

		_, err := registry.NewFileRegistry(root, fuji, log).Lookup(ctx, "Token")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Token.json")
	})

	t.Run("no network", func(t *testing.T) {
		_, err := registry.NewFileRegistry(t.TempDir(), models.NetworkContext{}, log).List(ctx)
		assert.Error(t, err)
	})
}

func TestFileRegistry_Lock(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	reg := registry.NewFileRegistry(root, fuji, log)

	release, err := reg.Lock(ctx)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(reg.Dir(), registry.LockFile))

	_, err = registry.NewFileRegistry(root, fuji, log).Lock(ctx)
	assert.ErrorIs(t, err, domain.ErrRegistryLocked)

	release()
	assert.NoFileExists(t, filepath.Join(reg.Dir(), registry.LockFile))

	release, err = reg.Lock(ctx)
	require.NoError(t, err)
	release()
}

func TestMemoryRegistry(t *testing.T) {
	ctx := context.Background()
	seed := &models.ContractRecord{Name: "Token", TxHash: "0x01"}
	reg := registry.NewMemoryRegistry(seed)

	seed.TxHash = "0x02"
	got, err := reg.Lookup(ctx, "Token")
	require.NoError(t, err)
	assert.Equal(t, "0x01", got.TxHash)
	assert.Zero(t, reg.Writes())

	require.NoError(t, reg.Record(ctx, &models.ContractRecord{Name: "Zap"}))
	assert.Equal(t, 1, reg.Writes())
	assert.Error(t, reg.Record(ctx, &models.ContractRecord{}))

	_, err = reg.Lookup(ctx, "Router")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	records, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
