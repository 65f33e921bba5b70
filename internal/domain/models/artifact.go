package models

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Artifact is a compiled contract
type Artifact struct {
	Name     string
	Path     string
	ABI      abi.ABI
	RawABI   json.RawMessage
	Bytecode []byte
}

// HasMethod reports whether the ABI exposes the method
func (a *Artifact) HasMethod(name string) bool {
	_, ok := a.ABI.Methods[name]
	return ok
}

// Receipt is the subset of a transaction receipt the orchestrator keeps
type Receipt struct {
	TxHash          common.Hash
	BlockNumber     uint64
	ContractAddress common.Address
	GasUsed         uint64
}
