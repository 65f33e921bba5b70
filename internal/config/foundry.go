package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/config"
)

const (
	DeployFileName  = "deploy.toml"
	FoundryFileName = "foundry.toml"
)

// loadEnvFiles loads .env then .env.local from the project root. Variables
// already set in the process environment are not overridden.
func loadEnvFiles(projectRoot string) {
	for _, name := range []string{".env", ".env.local"} {
		envFile := filepath.Join(projectRoot, name)
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to load %s: %v\n", envFile, err)
		}
	}
}

// loadFoundryConfig reads [rpc_endpoints] from foundry.toml. A missing file
// yields an empty config.
func loadFoundryConfig(projectRoot string) (*config.FoundryConfig, error) {
	cfg := &config.FoundryConfig{RpcEndpoints: make(map[string]string)}

	path := filepath.Join(projectRoot, FoundryFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	var raw config.FoundryConfig
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse foundry.toml: %w", err)
	}
	for name, url := range raw.RpcEndpoints {
		cfg.RpcEndpoints[name] = os.ExpandEnv(url)
	}
	return cfg, nil
}

// loadDeployConfig reads deploy.toml and expands ${VAR} references in every
// string value. A missing file yields an empty config.
func loadDeployConfig(path string) (*config.DeployConfig, error) {
	cfg := &config.DeployConfig{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys in %s: %v", filepath.Base(path), undecoded)
	}

	cfg.Plan = os.ExpandEnv(cfg.Plan)
	cfg.Deployments = os.ExpandEnv(cfg.Deployments)
	cfg.Signer = os.ExpandEnv(cfg.Signer)
	for i, dir := range cfg.Artifacts {
		cfg.Artifacts[i] = os.ExpandEnv(dir)
	}
	for name, account := range cfg.Accounts {
		account.Address = os.ExpandEnv(account.Address)
		account.PrivateKey = os.ExpandEnv(account.PrivateKey)
		cfg.Accounts[name] = account
	}
	for name, network := range cfg.Networks {
		network.RPCURL = os.ExpandEnv(network.RPCURL)
		network.TxTimeout = os.ExpandEnv(network.TxTimeout)
		network.GasPrice = os.ExpandEnv(network.GasPrice)
		network.Signer = os.ExpandEnv(network.Signer)
		for role, addr := range network.Accounts {
			network.Accounts[role] = os.ExpandEnv(addr)
		}
		cfg.Networks[name] = network
	}
	return cfg, nil
}
