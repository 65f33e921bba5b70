package config

// DeployConfig is the parsed deploy.toml after environment expansion
type DeployConfig struct {
	Plan         string                   `toml:"plan"`
	Deployments  string                   `toml:"deployments"`
	Artifacts    []string                 `toml:"artifacts"`
	BuildCommand []string                 `toml:"build_command"`
	Signer       string                   `toml:"signer"`
	Accounts     map[string]AccountConfig `toml:"accounts"`
	Networks     map[string]NetworkConfig `toml:"networks"`
}

// AccountConfig is a named account. Address wins over the address derived
// from PrivateKey when both are set.
type AccountConfig struct {
	Address    string `toml:"address"`
	PrivateKey string `toml:"private_key"`
}

// NetworkConfig is one [networks.<name>] table
type NetworkConfig struct {
	RPCURL         string            `toml:"rpc_url"`
	ChainID        uint64            `toml:"chain_id"`
	NativeDecimals int               `toml:"native_decimals"`
	TxTimeout      string            `toml:"tx_timeout"`
	GasPrice       string            `toml:"gas_price"`
	GasLimit       uint64            `toml:"gas_limit"`
	Signer         string            `toml:"signer"`
	Accounts       map[string]string `toml:"accounts"`
}

// FoundryConfig is the subset of foundry.toml used for network discovery
type FoundryConfig struct {
	RpcEndpoints map[string]string `toml:"rpc_endpoints"`
}
