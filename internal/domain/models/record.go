package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ContractRecord is the persisted deployment of one named contract on one
// network. Records are never deleted; an explicit redeploy supersedes the
// current record and moves it into History.
//
// The JSON form follows hardhat-deploy deployment files, so existing
// deployments directories load as is: the block lives in receipt.blockNumber
// and a file with an implementation address is a proxy unless isProxy says
// otherwise.
type ContractRecord struct {
	Name            string
	Address         common.Address
	Artifact        string
	ABIVersion      string
	IsProxy         bool
	Implementation  *common.Address
	ProxyAdmin      *common.Address
	DeployedAtBlock uint64
	TxHash          string
	Args            []Value
	ABI             json.RawMessage
	DeployedAt      time.Time
	History         []RecordRevision
}

type recordJSON struct {
	Name           string           `json:"contractName,omitempty"`
	Address        common.Address   `json:"address"`
	Artifact       string           `json:"artifact,omitempty"`
	ABIVersion     string           `json:"abiVersion,omitempty"`
	IsProxy        *bool            `json:"isProxy,omitempty"`
	Implementation *common.Address  `json:"implementation,omitempty"`
	ProxyAdmin     *common.Address  `json:"proxyAdmin,omitempty"`
	Receipt        *receiptJSON     `json:"receipt,omitempty"`
	TxHash         string           `json:"transactionHash,omitempty"`
	Args           []Value          `json:"args,omitempty"`
	ABI            json.RawMessage  `json:"abi,omitempty"`
	DeployedAt     *time.Time       `json:"deployedAt,omitempty"`
	History        []RecordRevision `json:"history,omitempty"`
}

type receiptJSON struct {
	BlockNumber blockNumber `json:"blockNumber"`
}

// blockNumber accepts both JSON numbers and 0x-prefixed quantities
type blockNumber uint64

func (b *blockNumber) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	base := 10
	if rest, ok := strings.CutPrefix(raw, "0x"); ok {
		raw, base = rest, 16
	}
	n, err := strconv.ParseUint(raw, base, 64)
	if err != nil {
		return fmt.Errorf("invalid block number %s", data)
	}
	*b = blockNumber(n)
	return nil
}

func (r ContractRecord) MarshalJSON() ([]byte, error) {
	isProxy := r.IsProxy
	out := recordJSON{
		Name:           r.Name,
		Address:        r.Address,
		Artifact:       r.Artifact,
		ABIVersion:     r.ABIVersion,
		IsProxy:        &isProxy,
		Implementation: r.Implementation,
		ProxyAdmin:     r.ProxyAdmin,
		Receipt:        &receiptJSON{BlockNumber: blockNumber(r.DeployedAtBlock)},
		TxHash:         r.TxHash,
		Args:           r.Args,
		ABI:            r.ABI,
		History:        r.History,
	}
	if !r.DeployedAt.IsZero() {
		out.DeployedAt = &r.DeployedAt
	}
	return json.Marshal(out)
}

func (r *ContractRecord) UnmarshalJSON(data []byte) error {
	var in recordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = ContractRecord{
		Name:           in.Name,
		Address:        in.Address,
		Artifact:       in.Artifact,
		ABIVersion:     in.ABIVersion,
		IsProxy:        in.Implementation != nil,
		Implementation: in.Implementation,
		ProxyAdmin:     in.ProxyAdmin,
		TxHash:         in.TxHash,
		Args:           in.Args,
		ABI:            in.ABI,
		History:        in.History,
	}
	if in.IsProxy != nil {
		r.IsProxy = *in.IsProxy
	}
	if in.Receipt != nil {
		r.DeployedAtBlock = uint64(in.Receipt.BlockNumber)
	}
	if in.DeployedAt != nil {
		r.DeployedAt = *in.DeployedAt
	}
	return nil
}

// RecordRevision is a superseded deployment of a contract
type RecordRevision struct {
	Address         common.Address  `json:"address"`
	Implementation  *common.Address `json:"implementation,omitempty"`
	ABIVersion      string          `json:"abiVersion,omitempty"`
	DeployedAtBlock uint64          `json:"deployedAtBlock"`
	TxHash          string          `json:"transactionHash,omitempty"`
	SupersededAt    time.Time       `json:"supersededAt"`
}

// Strategy returns the deployment shape of the record
func (r *ContractRecord) Strategy() Strategy {
	if r.IsProxy {
		return StrategyProxy
	}
	return StrategyPlain
}

// Revision snapshots the record for History
func (r *ContractRecord) Revision(at time.Time) RecordRevision {
	return RecordRevision{
		Address:         r.Address,
		Implementation:  r.Implementation,
		ABIVersion:      r.ABIVersion,
		DeployedAtBlock: r.DeployedAtBlock,
		TxHash:          r.TxHash,
		SupersededAt:    at,
	}
}

// Clone returns a deep copy so callers can't mutate registry state
func (r *ContractRecord) Clone() *ContractRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Implementation != nil {
		impl := *r.Implementation
		c.Implementation = &impl
	}
	if r.ProxyAdmin != nil {
		admin := *r.ProxyAdmin
		c.ProxyAdmin = &admin
	}
	c.Args = slices.Clone(r.Args)
	c.ABI = slices.Clone(r.ABI)
	c.History = slices.Clone(r.History)
	return &c
}
