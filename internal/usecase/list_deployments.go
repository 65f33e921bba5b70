package usecase

import (
	"context"
	"sort"
	"strings"

	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
)

// ListDeploymentsParams contains parameters for listing deployments
type ListDeploymentsParams struct {
	// Contract filters by case-insensitive substring of the name
	Contract string
	// ProxiesOnly limits the listing to proxy deployments
	ProxiesOnly bool
}

// DeploymentListResult contains the result of listing deployments
type DeploymentListResult struct {
	Network     models.NetworkContext
	Deployments []*models.ContractRecord
}

// ListDeployments is the use case for listing recorded deployments
type ListDeployments struct {
	registry ContractRegistry
	network  models.NetworkContext
	sink     ProgressSink
}

// NewListDeployments creates a new ListDeployments use case
func NewListDeployments(registry ContractRegistry, network models.NetworkContext, sink ProgressSink) *ListDeployments {
	return &ListDeployments{
		registry: registry,
		network:  network,
		sink:     sink,
	}
}

// Run executes the list deployments use case
func (uc *ListDeployments) Run(ctx context.Context, params ListDeploymentsParams) (*DeploymentListResult, error) {
	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   "loading",
		Message: "Loading deployments",
		Spinner: true,
	})

	records, err := uc.registry.List(ctx)
	if err != nil {
		return nil, err
	}

	filtered := records[:0]
	for _, record := range records {
		if params.Contract != "" && !strings.Contains(strings.ToLower(record.Name), strings.ToLower(params.Contract)) {
			continue
		}
		if params.ProxiesOnly && !record.IsProxy {
			continue
		}
		filtered = append(filtered, record)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Name < filtered[j].Name
	})

	uc.sink.OnProgress(ctx, ProgressEvent{Stage: "loaded", Spinner: false})

	return &DeploymentListResult{
		Network:     uc.network,
		Deployments: filtered,
	}, nil
}
