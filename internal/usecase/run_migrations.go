package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/zeroxblocks/zxb-deploy/internal/domain"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
)

// MigrateParams contains parameters for a migration run
type MigrateParams struct {
	Tags      []string
	Overrides map[string]string
	Redeploy  []string
	DryRun    bool
}

// MigrationResult is the accumulated outcome of a run
type MigrationResult struct {
	Plan     string
	Network  models.NetworkContext
	Tags     []string
	Selected []models.DeploymentStep
	Results  []models.DeploymentResult
	State    PlanState
	DryRun   bool
	Duration time.Duration
}

// Failed reports whether any step failed
func (r *MigrationResult) Failed() bool {
	return lo.SomeBy(r.Results, func(res models.DeploymentResult) bool { return res.Failed() })
}

// FailedStep returns the step that halted the run
func (r *MigrationResult) FailedStep() (models.DeploymentResult, bool) {
	return lo.Find(r.Results, func(res models.DeploymentResult) bool { return res.Failed() })
}

// Count returns the number of steps with the outcome
func (r *MigrationResult) Count(outcome models.Outcome) int {
	return lo.CountBy(r.Results, func(res models.DeploymentResult) bool { return res.Outcome == outcome })
}

// NotAttempted returns the selected steps the run never reached
func (r *MigrationResult) NotAttempted() []models.DeploymentStep {
	if len(r.Results) >= len(r.Selected) {
		return nil
	}
	return r.Selected[len(r.Results):]
}

// RunMigrations executes the selected steps of the plan against one network,
// strictly in order, halting at the first failure.
type RunMigrations struct {
	plans    PlanLoader
	resolver *ResolveParameters
	registry ContractRegistry
	deployer *EnsureDeployed
	wirer    *WireContract
	network  models.NetworkContext
	progress ProgressSink
	log      *slog.Logger
}

// NewRunMigrations creates the migration runner
func NewRunMigrations(
	plans PlanLoader,
	resolver *ResolveParameters,
	registry ContractRegistry,
	deployer *EnsureDeployed,
	wirer *WireContract,
	network models.NetworkContext,
	progress ProgressSink,
	log *slog.Logger,
) *RunMigrations {
	return &RunMigrations{
		plans:    plans,
		resolver: resolver,
		registry: registry,
		deployer: deployer,
		wirer:    wirer,
		network:  network,
		progress: progress,
		log:      log.With("component", "RunMigrations"),
	}
}

// run holds the mutable state of one invocation
type run struct {
	plan      *models.Plan
	params    MigrateParams
	states    stepStates
	skipped   map[string]bool
	planned   map[string]bool
	redeploy  map[string]bool
	overrides map[string]string
}

// Run executes the migration. The returned error covers problems found
// before any step ran; step failures are reported in the result.
func (u *RunMigrations) Run(ctx context.Context, params MigrateParams) (*MigrationResult, error) {
	start := time.Now()
	if u.network.Name == "" {
		return nil, fmt.Errorf("no network selected (use --network)")
	}

	plan, err := u.plans.Load(ctx)
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

	contracts := plan.Contracts()
	for _, name := range params.Redeploy {
		if !slices.Contains(contracts, name) {
			return nil, fmt.Errorf("cannot redeploy %s: the plan does not deploy it", name)
		}
	}

	result := &MigrationResult{
		Plan:     plan.Name,
		Network:  u.network,
		Tags:     params.Tags,
		Selected: selected,
		State:    PlanNotStarted,
		DryRun:   params.DryRun,
	}

	r := &run{
		plan:      plan,
		params:    params,
		states:    make(stepStates, len(selected)),
		skipped:   map[string]bool{},
		planned:   map[string]bool{},
		redeploy:  lo.SliceToMap(params.Redeploy, func(name string) (string, bool) { return name, true }),
		overrides: params.Overrides,
	}
	for _, step := range selected {
		r.states[step.ID] = StepPending
	}

	if err := advancePlan(&result.State, PlanInProgress); err != nil {
		return nil, err
	}
	u.log.Info("starting migration", "plan", plan.Name, "network", u.network.Name, "chainId", u.network.ChainID, "steps", len(selected), "dryRun", params.DryRun)
	u.progress.OnProgress(ctx, ProgressEvent{Stage: StagePlanSelected, Total: len(selected), Metadata: result})

	for i := range selected {
		step := &selected[i]
		u.progress.OnProgress(ctx, ProgressEvent{
			Stage:    StageStepStarting,
			Current:  i + 1,
			Total:    len(selected),
			Message:  step.ID,
			Metadata: step,
		})

		stepStart := time.Now()
		res := u.runStep(ctx, r, step)
		res.Duration = time.Since(stepStart)
		result.Results = append(result.Results, res)

		u.progress.OnProgress(ctx, ProgressEvent{
			Stage:    StageStepCompleted,
			Current:  i + 1,
			Total:    len(selected),
			Message:  res.Label(),
			Metadata: &result.Results[len(result.Results)-1],
		})

		if res.Failed() {
			u.log.Error("step failed, halting migration", "step", step.ID, "error", res.Err)
			break
		}
	}

	if err := advancePlan(&result.State, PlanFinished); err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)
	u.progress.OnProgress(ctx, ProgressEvent{Stage: StageMigrationCompleted, Metadata: result})

	return result, nil
}

func (u *RunMigrations) runStep(ctx context.Context, r *run, step *models.DeploymentStep) models.DeploymentResult {
	res := models.DeploymentResult{StepID: step.ID, Kind: step.Kind(), Contract: step.Contract()}

	fail := func(from StepState, err error) models.DeploymentResult {
		if terr := r.states.transition(step.ID, from, StepFailed); terr != nil {
			err = errors.Join(err, terr)
		}
		res.Outcome = models.OutcomeFailed
		res.Err = err
		return res
	}
	skip := func(reason models.SkipReason, detail string) models.DeploymentResult {
		if err := r.states.transition(step.ID, StepPending, StepSkipped); err != nil {
			res.Outcome = models.OutcomeFailed
			res.Err = err
			return res
		}
		if step.Deploy != nil {
			r.skipped[step.Deploy.Contract] = true
		}
		res.Outcome = models.OutcomeSkipped
		res.SkipReason = reason
		res.Detail = detail
		return res
	}

	if !step.AppliesTo(u.network.Name, u.network.ChainID) {
		return skip(models.SkipPredicate, step.PredicateDescription(u.network.Name))
	}

	// a producer skipped on this network outranks any record left by an earlier run
	if dep, ok := lo.Find(u.stepDependencies(step), func(name string) bool { return r.skipped[name] }); ok {
		return skip(models.SkipDependency, fmt.Sprintf("depends on %s, which was skipped", dep))
	}

	if err := r.states.transition(step.ID, StepPending, StepResolving); err != nil {
		return fail(StepPending, err)
	}

	if r.params.DryRun {
		if dep, ok := lo.Find(u.stepDependencies(step), func(name string) bool { return r.planned[name] }); ok {
			if err := r.states.transition(step.ID, StepResolving, StepExecuting); err != nil {
				return fail(StepResolving, err)
			}
			if err := r.states.transition(step.ID, StepExecuting, StepCompleted); err != nil {
				return fail(StepExecuting, err)
			}
			if step.Deploy != nil {
				r.planned[step.Deploy.Contract] = true
			}
			res.Outcome = models.OutcomePlanned
			res.Detail = fmt.Sprintf("awaits deployment of %s", dep)
			return res
		}
	}

	eval, err := u.prepare(ctx, r, step)
	if err != nil {
		return fail(StepResolving, err)
	}

	if err := r.states.transition(step.ID, StepResolving, StepExecuting); err != nil {
		return fail(StepResolving, err)
	}

	switch {
	case step.Deploy != nil:
		err = u.executeDeploy(ctx, r, step, eval, &res)
	case step.Wire != nil:
		err = u.executeWire(ctx, r, step, eval, &res)
	default:
		err = fmt.Errorf("step %s has neither deploy nor wire", step.ID)
	}
	if err != nil {
		return fail(StepExecuting, err)
	}

	if err := r.states.transition(step.ID, StepExecuting, StepCompleted); err != nil {
		return fail(StepExecuting, err)
	}
	return res
}

// stepDependencies is the declared dependency set plus every referenced contract
func (u *RunMigrations) stepDependencies(step *models.DeploymentStep) []string {
	return lo.Uniq(append(slices.Clone(step.DependsOn), step.ContractRefs()...))
}

// prepare resolves the parameters the step uses and checks that every
// dependency already has an address.
func (u *RunMigrations) prepare(ctx context.Context, r *run, step *models.DeploymentStep) (*argEvaluator, error) {
	deps := u.stepDependencies(step)

	needed := step.ParamRefs()
	for _, dep := range deps {
		if spec, ok := r.plan.External[dep]; ok {
			needed = append(needed, spec.Params()...)
		}
	}

	params, err := u.resolver.ResolveNames(r.plan.Parameters, lo.Uniq(needed), u.network, r.overrides)
	if err != nil {
		return nil, err
	}

	external := map[string]common.Address{}
	bare := &argEvaluator{params: params, book: NewAddressBook(u.registry, nil), decimals: u.network.Decimals()}
	for name, spec := range r.plan.External {
		if !slices.Contains(deps, name) {
			continue
		}
		v, err := bare.evaluate(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("external contract %s: %w", name, err)
		}
		addr, ok := v.AsAddress()
		if !ok {
			return nil, fmt.Errorf("external contract %s: %s is not an address", name, v)
		}
		external[name] = addr
	}

	book := NewAddressBook(u.registry, external)
	for _, dep := range deps {
		if step.Deploy != nil && dep == step.Deploy.Contract {
			continue
		}
		if _, err := book.Address(ctx, dep); err != nil {
			return nil, err
		}
	}

	return &argEvaluator{params: params, book: book, decimals: u.network.Decimals()}, nil
}

func (u *RunMigrations) executeDeploy(ctx context.Context, r *run, step *models.DeploymentStep, eval *argEvaluator, res *models.DeploymentResult) error {
	d := step.Deploy
	args, err := eval.evaluateAll(ctx, d.Args)
	if err != nil {
		return err
	}

	req := DeployRequest{
		Name:     d.Contract,
		Artifact: d.ArtifactName(),
		Strategy: d.Strategy,
		Args:     args,
		Version:  d.Version,
		Redeploy: r.redeploy[d.Contract],
	}
	if d.Strategy == models.StrategyProxy && d.Proxy != nil {
		req.ProxyArtifact = d.Proxy.Artifact
		req.Initializer = d.Proxy.Initializer
		if req.ImplementationArgs, err = eval.evaluateAll(ctx, d.Proxy.ImplementationArgs); err != nil {
			return err
		}
		if !d.Proxy.Admin.IsZero() {
			v, err := eval.evaluate(ctx, d.Proxy.Admin)
			if err != nil {
				return fmt.Errorf("proxy admin: %w", err)
			}
			admin, ok := v.AsAddress()
			if !ok {
				return fmt.Errorf("proxy admin %s is not an address", v)
			}
			req.Admin = admin
		}
	}

	if r.params.DryRun {
		return u.previewDeploy(ctx, r, req, res)
	}

	out, err := u.deployer.Ensure(ctx, req)
	if err != nil {
		return err
	}
	res.Record = out.Record
	res.TxHash = out.TxHash
	if out.Reused {
		res.Outcome = models.OutcomeReused
		res.Detail = out.Record.Address.Hex()
	} else {
		res.Outcome = models.OutcomeDeployed
		res.Detail = out.Record.Address.Hex()
	}
	return nil
}

// previewDeploy reports what Ensure would do without sending anything
func (u *RunMigrations) previewDeploy(ctx context.Context, r *run, req DeployRequest, res *models.DeploymentResult) error {
	existing, err := u.registry.Lookup(ctx, req.Name)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if err == nil && !req.Redeploy {
		if existing.IsProxy != (req.Strategy == models.StrategyProxy) {
			return domain.StrategyMismatchError{Contract: req.Name, RecordedProxy: existing.IsProxy, RequestedProxy: req.Strategy == models.StrategyProxy}
		}
		if err := checkABIVersion(req.Name, existing.ABIVersion, req.Version); err != nil {
			return err
		}
		res.Outcome = models.OutcomeReused
		res.Record = existing
		res.Detail = existing.Address.Hex()
		return nil
	}
	r.planned[req.Name] = true
	res.Outcome = models.OutcomePlanned
	res.Detail = fmt.Sprintf("would deploy (%s)", req.Strategy)
	return nil
}

func (u *RunMigrations) executeWire(ctx context.Context, r *run, step *models.DeploymentStep, eval *argEvaluator, res *models.DeploymentResult) error {
	w := step.Wire
	args, err := eval.evaluateAll(ctx, w.Args)
	if err != nil {
		return err
	}
	readArgs, err := eval.evaluateAll(ctx, w.Guard.ReadArgs)
	if err != nil {
		return fmt.Errorf("guard: %w", err)
	}
	expected, err := eval.evaluate(ctx, w.Guard.Expected)
	if err != nil {
		return fmt.Errorf("guard: %w", err)
	}

	req := WireRequest{
		Target:     w.Target,
		Method:     w.Method,
		Args:       args,
		ReadMethod: w.Guard.ReadMethod,
		ReadArgs:   readArgs,
		Expected:   expected,
	}

	if r.params.DryRun {
		address, err := eval.book.Address(ctx, w.Target)
		if err != nil {
			return err
		}
		contractABI, err := u.wirer.TargetABI(ctx, eval.book, w.Target)
		if err != nil {
			return err
		}
		ok, observed, err := u.wirer.Check(ctx, address, contractABI, req)
		if err != nil {
			return err
		}
		if ok {
			res.Outcome = models.OutcomeSkipped
			res.SkipReason = models.SkipSatisfied
			res.Detail = fmt.Sprintf("%s() = %s", w.Guard.ReadMethod, observed)
			return nil
		}
		res.Outcome = models.OutcomePlanned
		res.Detail = fmt.Sprintf("would call %s(%s)", w.Method, joinValues(args))
		return nil
	}

	out, err := u.wirer.Wire(ctx, eval.book, req)
	if err != nil {
		return err
	}
	res.TxHash = out.TxHash
	res.Outcome = out.Outcome
	if out.Outcome == models.OutcomeSkipped {
		res.SkipReason = models.SkipSatisfied
		res.Detail = fmt.Sprintf("%s() = %s", w.Guard.ReadMethod, out.Observed)
	} else {
		res.Detail = fmt.Sprintf("%s(%s)", w.Method, joinValues(args))
	}
	return nil
}

func joinValues(values []models.Value) string {
	return strings.Join(lo.Map(values, func(v models.Value, _ int) string { return v.String() }), ", ")
}
