package config

import (
	"math/big"
	"time"
)

// RuntimeConfig represents the complete runtime configuration.
// It is injected into adapters and use cases and contains all resolved settings.
type RuntimeConfig struct {
	// Core settings
	ProjectRoot string
	ConfigPath  string // deploy.toml, empty when the project has none

	// Project layout
	PlanPath       string
	DeploymentsDir string
	ArtifactDirs   []string
	BuildCommand   []string

	// Context settings
	Network *Network // nil if not specified

	// Execution settings
	Debug          bool
	Verbose        bool
	NonInteractive bool
	JSON           bool
	Timeout        time.Duration

	// Resolved configurations
	Deploy  *DeployConfig
	Foundry *FoundryConfig
}

// Network is a resolved network with everything needed to talk to it
type Network struct {
	Name           string
	RPCURL         string
	ChainID        uint64
	NativeDecimals int
	TxTimeout      time.Duration
	GasPrice       *big.Int // nil lets the node suggest
	GasLimit       uint64   // 0 lets the node estimate
	Source         string   // "deploy.toml" or "foundry.toml"
}
