package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeroxblocks/zxb-deploy/internal/domain"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
)

// AddressBook resolves contract names to addresses: contracts operated
// outside the plan first, then the registry.
type AddressBook struct {
	registry ContractRegistry
	external map[string]common.Address
}

// NewAddressBook creates an address book over a registry
func NewAddressBook(registry ContractRegistry, external map[string]common.Address) *AddressBook {
	if external == nil {
		external = map[string]common.Address{}
	}
	return &AddressBook{registry: registry, external: external}
}

// IsExternal reports whether the name is an externally operated contract
func (b *AddressBook) IsExternal(name string) bool {
	_, ok := b.external[name]
	return ok
}

// Record returns the registry record for a plan contract. External contracts
// have none and return ErrNotFound.
func (b *AddressBook) Record(ctx context.Context, name string) (*models.ContractRecord, error) {
	if b.IsExternal(name) {
		return nil, domain.ErrNotFound
	}
	return b.registry.Lookup(ctx, name)
}

// Address resolves a name, failing with UnknownContractError when nothing is known
func (b *AddressBook) Address(ctx context.Context, name string) (common.Address, error) {
	if addr, ok := b.external[name]; ok {
		return addr, nil
	}
	record, err := b.registry.Lookup(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return common.Address{}, domain.UnknownContractError{Name: name}
	}
	if err != nil {
		return common.Address{}, fmt.Errorf("lookup %s: %w", name, err)
	}
	return record.Address, nil
}

// argEvaluator turns ArgSpecs into Values for one step
type argEvaluator struct {
	params   models.ResolvedParameters
	book     *AddressBook
	decimals int
}

func (e *argEvaluator) evaluate(ctx context.Context, spec models.ArgSpec) (models.Value, error) {
	switch spec.Kind {
	case models.ArgParam:
		v, ok := e.params[spec.Param]
		if !ok {
			return models.Value{}, domain.MissingParameterError{Name: spec.Param}
		}
		return v, nil

	case models.ArgContract:
		if spec.Field == "implementation" {
			record, err := e.book.Record(ctx, spec.Contract)
			if errors.Is(err, domain.ErrNotFound) {
				return models.Value{}, domain.UnknownContractError{Name: spec.Contract}
			}
			if err != nil {
				return models.Value{}, err
			}
			if !record.IsProxy || record.Implementation == nil {
				return models.Value{}, fmt.Errorf("%s is not a proxy; it has no implementation", spec.Contract)
			}
			return models.AddressValue(*record.Implementation), nil
		}
		addr, err := e.book.Address(ctx, spec.Contract)
		if err != nil {
			return models.Value{}, err
		}
		return models.AddressValue(addr), nil

	case models.ArgList:
		items := make([]models.Value, 0, len(spec.Items))
		for i, item := range spec.Items {
			v, err := e.evaluate(ctx, item)
			if err != nil {
				return models.Value{}, fmt.Errorf("item %d: %w", i, err)
			}
			items = append(items, v)
		}
		return models.ArrayValue(items...), nil

	case models.ArgLiteral:
		return models.ValueFromAny(spec.Literal, e.decimals)

	default:
		return models.Value{}, fmt.Errorf("empty argument")
	}
}

func (e *argEvaluator) evaluateAll(ctx context.Context, specs []models.ArgSpec) ([]models.Value, error) {
	out := make([]models.Value, 0, len(specs))
	for i, spec := range specs {
		v, err := e.evaluate(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, spec, err)
		}
		out = append(out, v)
	}
	return out, nil
}
