package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"
	"github.com/zeroxblocks/zxb-deploy/internal/domain"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
)

// ShowDeploymentParams contains parameters for showing a deployment
type ShowDeploymentParams struct {
	Name string
}

// NotRecordedError is returned when no record matches, with close names
type NotRecordedError struct {
	Name        string
	Network     string
	Suggestions []string
}

func (e NotRecordedError) Error() string {
	msg := fmt.Sprintf("no deployment of %s recorded on %s", e.Name, e.Network)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", e.Suggestions[0])
	}
	return msg
}

func (e NotRecordedError) Unwrap() error { return domain.ErrNotFound }

// ShowDeployment is the use case for showing deployment details
type ShowDeployment struct {
	registry ContractRegistry
	network  models.NetworkContext
	sink     ProgressSink
}

// NewShowDeployment creates a new ShowDeployment use case
func NewShowDeployment(registry ContractRegistry, network models.NetworkContext, sink ProgressSink) *ShowDeployment {
	return &ShowDeployment{
		registry: registry,
		network:  network,
		sink:     sink,
	}
}

// Run executes the show deployment use case
func (uc *ShowDeployment) Run(ctx context.Context, params ShowDeploymentParams) (*models.ContractRecord, error) {
	record, err := uc.registry.Lookup(ctx, params.Name)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	records, lerr := uc.registry.List(ctx)
	if lerr != nil {
		return nil, lerr
	}
	names := lo.Map(records, func(r *models.ContractRecord, _ int) string { return r.Name })
	matches := fuzzy.Find(params.Name, names)

	suggestions := lo.Map(matches, func(m fuzzy.Match, _ int) string { return m.Str })

	return nil, NotRecordedError{Name: params.Name, Network: uc.network.Name, Suggestions: suggestions}
}
