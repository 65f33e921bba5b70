package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/zeroxblocks/zxb-deploy/internal/adapters/interactive"
	"github.com/zeroxblocks/zxb-deploy/internal/app"
	"github.com/zeroxblocks/zxb-deploy/internal/cli/render"
	"github.com/zeroxblocks/zxb-deploy/internal/domain"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

// ErrMigrationFailed is returned when a step of the run failed
var ErrMigrationFailed = errors.New("migration failed")

// NewMigrateCmd creates the migrate command
func NewMigrateCmd() *cobra.Command {
	var (
		tags     []string
		sets     []string
		redeploy []string
		dryRun   bool
		all      bool
		yes      bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run the deployment plan against a network",
		Long: `Run the steps of the deployment plan selected by tag against the target
network, in plan order, stopping at the first failure.

Contracts already recorded for the network are reused and wiring calls whose
guard already holds are skipped, so a failed run can simply be repeated once
the cause is fixed.

Examples:
  # Deploy the CONT reward manager on fuji
  zxb-deploy migrate -n fuji --tags Cont

  # Preview every step without sending transactions
  zxb-deploy migrate -n avax --all --dry-run

  # Override a parameter for this run
  zxb-deploy migrate -n fuji -t ZeroXBlock --set treasury=0x1234...`,
		Args: cobra.NoArgs,
		Annotations: map[string]string{
			needsNetwork: "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			overrides, err := parseOverrides(sets)
			if err != nil {
				return err
			}

			if len(tags) == 0 && !all && app.Prompter.Enabled() {
				if tags, err = selectTags(cmd, app); err != nil {
					return err
				}
			}

			if !dryRun && !yes && app.Prompter.Enabled() {
				ok, err := confirmMigration(cmd, app, tags, overrides)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Migration cancelled.")
					return nil
				}
			}

			if !dryRun {
				unlock, err := app.Registry.Lock(cmd.Context())
				if err != nil {
					return err
				}
				defer unlock()
			}

			result, err := app.RunMigrations.Run(cmd.Context(), usecase.MigrateParams{
				Tags:      tags,
				Overrides: overrides,
				Redeploy:  redeploy,
				DryRun:    dryRun,
			})
			if err != nil {
				return withSuggestions(err)
			}

			if app.Config.JSON {
				if err := renderMigrationJSON(cmd, result); err != nil {
					return err
				}
			} else {
				render.NewMigrationRenderer(cmd.OutOrStdout()).RenderSummary(result)
			}

			if failed, ok := result.FailedStep(); ok {
				return fmt.Errorf("%w at step %s: %v", ErrMigrationFailed, failed.StepID, failed.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "Plan tags to run (comma separated)")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Override a plan parameter (name=value)")
	cmd.Flags().StringSliceVar(&redeploy, "redeploy", nil, "Deploy these contracts again even if recorded")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Resolve and simulate without sending transactions")
	cmd.Flags().BoolVar(&all, "all", false, "Run every step of the plan")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

// parseOverrides turns name=value pairs into a map
func parseOverrides(sets []string) (map[string]string, error) {
	overrides := make(map[string]string, len(sets))
	for _, set := range sets {
		name, value, ok := strings.Cut(set, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q: expected name=value", set)
		}
		overrides[name] = strings.TrimSpace(value)
	}
	return overrides, nil
}

// selectTags lets the operator tick the tags to run
func selectTags(cmd *cobra.Command, app *app.App) ([]string, error) {
	preview, err := app.ShowPlan.Run(cmd.Context(), usecase.ShowPlanParams{})
	if err != nil {
		return nil, err
	}
	tags := preview.Plan.Tags()
	slices.Sort(tags)
	return app.Prompter.SelectTags(tags, tagDescriptions(preview.Plan))
}

// tagDescriptions lists the steps behind each tag
func tagDescriptions(plan *models.Plan) map[string]string {
	steps := map[string][]string{}
	for _, step := range plan.Steps {
		for _, tag := range step.Tags {
			steps[tag] = append(steps[tag], step.ID)
		}
	}
	return lo.MapValues(steps, func(ids []string, _ string) string { return strings.Join(ids, ", ") })
}

// confirmMigration shows what would run and asks before sending anything
func confirmMigration(cmd *cobra.Command, app *app.App, tags []string, overrides map[string]string) (bool, error) {
	preview, err := app.ShowPlan.Run(cmd.Context(), usecase.ShowPlanParams{Tags: tags, Overrides: overrides})
	if err != nil {
		return false, withSuggestions(err)
	}
	applies := lo.CountBy(preview.Steps, func(s usecase.PlannedStep) bool { return s.Applies })
	label := fmt.Sprintf("Run %d step(s) of %s on %s (chain %d)", applies, preview.Plan.Name, app.Network.Name, app.Network.ChainID)
	return app.Prompter.Confirm(label)
}

// withSuggestions adds close matches to unknown tag and parameter errors
func withSuggestions(err error) error {
	var (
		names, available []string
		tag              domain.UnknownTagError
		param            domain.UnknownParameterError
	)
	switch {
	case errors.As(err, &tag):
		names, available = tag.Tags, tag.Available
	case errors.As(err, &param):
		names, available = param.Names, param.Available
	default:
		return err
	}
	var hints []string
	for _, name := range names {
		hints = append(hints, interactive.Suggest(name, available, 1)...)
	}
	if len(hints) == 0 {
		return err
	}
	return fmt.Errorf("%w (did you mean %s?)", err, strings.Join(lo.Uniq(hints), ", "))
}

type stepJSON struct {
	Step     string `json:"step"`
	Kind     string `json:"kind"`
	Contract string `json:"contract,omitempty"`
	Outcome  string `json:"outcome"`
	Detail   string `json:"detail,omitempty"`
	TxHash   string `json:"txHash,omitempty"`
	Error    string `json:"error,omitempty"`
}

type migrationJSON struct {
	Plan         string     `json:"plan"`
	Network      string     `json:"network"`
	ChainID      uint64     `json:"chainId"`
	DryRun       bool       `json:"dryRun"`
	Steps        []stepJSON `json:"steps"`
	NotAttempted []string   `json:"notAttempted,omitempty"`
	Failed       bool       `json:"failed"`
}

func renderMigrationJSON(cmd *cobra.Command, result *usecase.MigrationResult) error {
	out := migrationJSON{
		Plan:    result.Plan,
		Network: result.Network.Name,
		ChainID: result.Network.ChainID,
		DryRun:  result.DryRun,
		Failed:  result.Failed(),
		NotAttempted: lo.Map(result.NotAttempted(), func(s models.DeploymentStep, _ int) string {
			return s.ID
		}),
	}
	for _, res := range result.Results {
		step := stepJSON{
			Step:     res.StepID,
			Kind:     string(res.Kind),
			Contract: res.Contract,
			Outcome:  res.Label(),
			Detail:   res.Detail,
			TxHash:   res.TxHash,
		}
		if res.Err != nil {
			step.Error = res.Err.Error()
		}
		out.Steps = append(out.Steps, step)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
