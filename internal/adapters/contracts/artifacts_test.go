package contracts_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeroxblocks/zxb-deploy/internal/adapters/contracts"
	"github.com/zeroxblocks/zxb-deploy/internal/domain"
)

const counterABI = `[{"type":"function","name":"increment","stateMutability":"nonpayable","inputs":[],"outputs":[]}]`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newRepo(dirs ...string) *contracts.ArtifactRepository {
	return contracts.NewArtifactRepository(dirs, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestArtifactRepository(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	foundry := filepath.Join(root, "out")
	hardhat := filepath.Join(root, "artifacts")

	writeFile(t, filepath.Join(foundry, "Counter.sol", "Counter.json"),
		`{"abi":`+counterABI+`,"bytecode":{"object":"0x6080604052","linkReferences":{}}}`)
	writeFile(t, filepath.Join(hardhat, "contracts", "Zap.sol", "Zap.json"),
		`{"contractName":"Zap","abi":`+counterABI+`,"bytecode":"0x60806040"}`)
	writeFile(t, filepath.Join(hardhat, "contracts", "Zap.sol", "Zap.dbg.json"), `{"buildInfo":"x"}`)
	writeFile(t, filepath.Join(foundry, "build-info", "abc123.json"), `{"id":"abc123"}`)
	writeFile(t, filepath.Join(foundry, "Interface.sol", "IRouter.json"), `{"abi":[],"bytecode":{"object":"0x"}}`)
	writeFile(t, filepath.Join(foundry, "Linked.sol", "Linked.json"),
		`{"abi":[],"bytecode":{"object":"0x6080__$a1b2c3$__6040"}}`)

	repo := newRepo(foundry, hardhat, filepath.Join(root, "missing"))

	t.Run("foundry layout", func(t *testing.T) {
		artifact, err := repo.Get(ctx, "Counter")
		require.NoError(t, err)
		assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, artifact.Bytecode)
		assert.True(t, artifact.HasMethod("increment"))
		assert.JSONEq(t, counterABI, string(artifact.RawABI))
	})

	t.Run("hardhat layout", func(t *testing.T) {
		artifact, err := repo.Get(ctx, "Zap")
		require.NoError(t, err)
		assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40}, artifact.Bytecode)
	})

	t.Run("interfaces have no bytecode", func(t *testing.T) {
		artifact, err := repo.Get(ctx, "IRouter")
		require.NoError(t, err)
		assert.Empty(t, artifact.Bytecode)
	})

	t.Run("unlinked libraries are rejected", func(t *testing.T) {
		_, err := repo.Get(ctx, "Linked")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unlinked")
	})

	t.Run("debug and build-info files are not indexed", func(t *testing.T) {
		names, err := repo.Names(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Counter", "IRouter", "Linked", "Zap"}, names)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := repo.Get(ctx, "Vault")
		var notFound domain.ArtifactNotFoundError
		require.ErrorAs(t, err, &notFound)
	})

	t.Run("refresh picks up new output", func(t *testing.T) {
		writeFile(t, filepath.Join(foundry, "Vault.sol", "Vault.json"), `{"abi":[],"bytecode":{"object":"0x00"}}`)

		_, err := repo.Get(ctx, "Vault")
		require.Error(t, err)

		repo.Refresh()
		_, err = repo.Get(ctx, "Vault")
		require.NoError(t, err)
	})
}

func TestArtifactRepository_FirstDirectoryWins(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "Token.sol", "Token.json"), `{"abi":[],"bytecode":{"object":"0x01"}}`)
	writeFile(t, filepath.Join(root, "b", "Token.sol", "Token.json"), `{"abi":[],"bytecode":{"object":"0x02"}}`)

	artifact, err := newRepo(filepath.Join(root, "a"), filepath.Join(root, "b")).Get(context.Background(), "Token")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, artifact.Bytecode)
}

func TestArtifactRepository_MissingABI(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Broken.sol", "Broken.json"), `{"bytecode":"0x00"}`)

	_, err := newRepo(root).Get(context.Background(), "Broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no abi")
}
