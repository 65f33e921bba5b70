package models

import (
	"maps"

	"github.com/ethereum/go-ethereum/common"
)

// NetworkContext describes the target network of a run. It is built once and
// not mutated afterwards.
type NetworkContext struct {
	Name           string
	ChainID        uint64
	NativeDecimals int
	NamedAccounts  map[string]common.Address
}

// NewNetworkContext copies the account table so the context stays immutable
func NewNetworkContext(name string, chainID uint64, decimals int, accounts map[string]common.Address) NetworkContext {
	if decimals <= 0 {
		decimals = DefaultNativeDecimals
	}
	return NetworkContext{
		Name:           name,
		ChainID:        chainID,
		NativeDecimals: decimals,
		NamedAccounts:  maps.Clone(accounts),
	}
}

// Account looks up a named account by role
func (n NetworkContext) Account(role string) (common.Address, bool) {
	addr, ok := n.NamedAccounts[role]
	return addr, ok
}

// Decimals returns the native currency decimals, defaulting to 18
func (n NetworkContext) Decimals() int {
	if n.NativeDecimals <= 0 {
		return DefaultNativeDecimals
	}
	return n.NativeDecimals
}
