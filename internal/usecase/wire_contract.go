package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/zeroxblocks/zxb-deploy/internal/domain"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
)

// WireRequest is a guarded mutating call on a deployed contract
type WireRequest struct {
	Target     string
	Method     string
	Args       []models.Value
	ReadMethod string
	ReadArgs   []models.Value
	Expected   models.Value
}

// WireOutcome is the result of WireContract
type WireOutcome struct {
	Outcome  models.Outcome
	Address  common.Address
	Observed models.Value
	TxHash   string
}

// WireContract links deployed contracts, submitting the mutator only when
// the guard read shows the link is not already in place.
type WireContract struct {
	artifacts ArtifactRepository
	chain     ChainClient
	progress  ProgressSink
	log       *slog.Logger
}

// NewWireContract creates the wiring use case
func NewWireContract(artifacts ArtifactRepository, chain ChainClient, progress ProgressSink, log *slog.Logger) *WireContract {
	return &WireContract{
		artifacts: artifacts,
		chain:     chain,
		progress:  progress,
		log:       log.With("component", "WireContract"),
	}
}

// Wire evaluates the guard and, if needed, submits the mutator
func (u *WireContract) Wire(ctx context.Context, book *AddressBook, req WireRequest) (*WireOutcome, error) {
	address, err := book.Address(ctx, req.Target)
	if err != nil {
		return nil, err
	}

	contractABI, err := u.targetABI(ctx, book, req.Target)
	if err != nil {
		return nil, err
	}

	satisfied, observed, err := u.Check(ctx, address, contractABI, req)
	if err != nil {
		return nil, err
	}
	if satisfied {
		u.log.Debug("wiring already satisfied", "target", req.Target, "method", req.Method, "value", observed)
		return &WireOutcome{Outcome: models.OutcomeSkipped, Address: address, Observed: observed}, nil
	}

	u.progress.OnProgress(ctx, ProgressEvent{
		Stage:   StageAwaitingTx,
		Message: fmt.Sprintf("Calling %s.%s", req.Target, req.Method),
		Spinner: true,
	})
	receipt, err := u.chain.Transact(ctx, address, contractABI, req.Method, req.Args)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", req.Target, req.Method, err)
	}
	u.log.Info("wired contract", "target", req.Target, "method", req.Method, "tx", receipt.TxHash)

	if ok, after, err := u.Check(ctx, address, contractABI, req); err == nil && !ok {
		u.log.Warn("guard still unsatisfied after wiring", "target", req.Target, "read", req.ReadMethod, "observed", after, "expected", req.Expected)
	}

	return &WireOutcome{Outcome: models.OutcomeWired, Address: address, Observed: observed, TxHash: receipt.TxHash.Hex()}, nil
}

// Check performs the guard read and compares it with the expected value
func (u *WireContract) Check(ctx context.Context, address common.Address, contractABI *abi.ABI, req WireRequest) (bool, models.Value, error) {
	outputs, err := u.chain.Call(ctx, address, contractABI, req.ReadMethod, req.ReadArgs)
	if err != nil {
		return false, models.Value{}, fmt.Errorf("guard %s.%s: %w", req.Target, req.ReadMethod, err)
	}

	var observed models.Value
	switch len(outputs) {
	case 0:
		return false, models.Value{}, fmt.Errorf("guard %s.%s returned nothing", req.Target, req.ReadMethod)
	case 1:
		observed = outputs[0]
	default:
		observed = models.ArrayValue(outputs...)
	}
	return observed.Equal(req.Expected), observed, nil
}

// TargetABI returns the ABI used to talk to a contract
func (u *WireContract) TargetABI(ctx context.Context, book *AddressBook, name string) (*abi.ABI, error) {
	return u.targetABI(ctx, book, name)
}

// targetABI prefers the ABI persisted with the record, which matches the
// deployed code, and falls back to the compiled artifact.
func (u *WireContract) targetABI(ctx context.Context, book *AddressBook, name string) (*abi.ABI, error) {
	artifactName := name
	record, err := book.Record(ctx, name)
	switch {
	case err == nil:
		if len(record.ABI) > 0 {
			parsed, perr := abi.JSON(bytes.NewReader(record.ABI))
			if perr == nil {
				return &parsed, nil
			}
			u.log.Warn("ignoring unreadable recorded abi", "contract", name, "error", perr)
		}
		if record.Artifact != "" {
			artifactName = record.Artifact
		}
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	artifact, err := u.artifacts.Get(ctx, artifactName)
	if err != nil {
		return nil, err
	}
	return &artifact.ABI, nil
}
