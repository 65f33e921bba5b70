package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/config"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
)

// DefaultSigner is the account role that signs transactions
const DefaultSigner = "deployer"

// NamedAccounts builds the role -> address table for a network. Global
// [accounts] come first, [networks.<name>.accounts] override them.
func NamedAccounts(cfg *config.DeployConfig, network string) (map[string]common.Address, error) {
	accounts := make(map[string]common.Address)

	for role, account := range cfg.Accounts {
		addr, ok, err := accountAddress(account)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", role, err)
		}
		if ok {
			accounts[role] = addr
		}
	}

	for role, raw := range cfg.Networks[network].Accounts {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("network %s account %s: %q is not an address", network, role, raw)
		}
		accounts[role] = common.HexToAddress(raw)
	}
	return accounts, nil
}

// SignerKey returns the private key of the signing role for a network
func SignerKey(cfg *config.DeployConfig, network string) (role, key string) {
	role = cfg.Signer
	if nc, ok := cfg.Networks[network]; ok && nc.Signer != "" {
		role = nc.Signer
	}
	if role == "" {
		role = DefaultSigner
	}
	return role, cfg.Accounts[role].PrivateKey
}

// NetworkContext assembles the immutable context of a run
func NetworkContext(cfg *config.RuntimeConfig) (models.NetworkContext, error) {
	if cfg.Network == nil {
		return models.NetworkContext{}, nil
	}
	accounts, err := NamedAccounts(cfg.Deploy, cfg.Network.Name)
	if err != nil {
		return models.NetworkContext{}, err
	}
	return models.NewNetworkContext(cfg.Network.Name, cfg.Network.ChainID, cfg.Network.NativeDecimals, accounts), nil
}

// accountAddress returns the configured address or the one derived from the
// private key. Unset accounts (empty after env expansion) are not an error.
func accountAddress(account config.AccountConfig) (common.Address, bool, error) {
	if account.Address != "" {
		if !common.IsHexAddress(account.Address) {
			return common.Address{}, false, fmt.Errorf("%q is not an address", account.Address)
		}
		return common.HexToAddress(account.Address), true, nil
	}
	if account.PrivateKey == "" {
		return common.Address{}, false, nil
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(account.PrivateKey, "0x"))
	if err != nil {
		return common.Address{}, false, fmt.Errorf("invalid private key: %w", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey), true, nil
}
