package usecase

import (
	"context"

	"github.com/zeroxblocks/zxb-deploy/internal/domain"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
)

// ShowPlanParams contains parameters for previewing the plan
type ShowPlanParams struct {
	Tags      []string
	Overrides map[string]string
}

// PlannedStep is a selected step with its predicate evaluated
type PlannedStep struct {
	Step    models.DeploymentStep
	Applies bool
	Reason  string
}

// PlanPreview is the result of ShowPlan
type PlanPreview struct {
	Plan       *models.Plan
	Network    models.NetworkContext
	Steps      []PlannedStep
	Parameters map[string]ResolvedParameter
	// ParameterErr holds resolution problems; the preview is still returned
	ParameterErr error
}

// ShowPlan previews the steps a migration would consider, without touching
// the chain or the registry.
type ShowPlan struct {
	plans    PlanLoader
	resolver *ResolveParameters
	network  models.NetworkContext
}

// NewShowPlan creates a new ShowPlan use case
func NewShowPlan(plans PlanLoader, resolver *ResolveParameters, network models.NetworkContext) *ShowPlan {
	return &ShowPlan{plans: plans, resolver: resolver, network: network}
}

// Run executes the use case
func (uc *ShowPlan) Run(ctx context.Context, params ShowPlanParams) (*PlanPreview, error) {
	plan, err := uc.plans.Load(ctx)
	if err != nil {
		return nil, err
	}

	selected, unknown := plan.Select(params.Tags)
	if len(unknown) > 0 {
		return nil, domain.UnknownTagError{Tags: unknown, Available: plan.Tags()}
	}
	if unknown := plan.UndeclaredParameters(params.Overrides); len(unknown) > 0 {
		return nil, domain.UnknownParameterError{Names: unknown, Available: plan.ParameterNames()}
	}

	preview := &PlanPreview{Plan: plan, Network: uc.network}
	for _, step := range selected {
		ps := PlannedStep{Step: step, Applies: true}
		if uc.network.Name != "" && !step.AppliesTo(uc.network.Name, uc.network.ChainID) {
			ps.Applies = false
			ps.Reason = step.PredicateDescription(uc.network.Name)
		}
		preview.Steps = append(preview.Steps, ps)
	}

	if uc.network.Name != "" {
		preview.Parameters, preview.ParameterErr = uc.resolver.Explain(plan.Parameters, uc.network, params.Overrides)
	}
	return preview, nil
}
