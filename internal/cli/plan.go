package cli

import (
	"github.com/spf13/cobra"
	"github.com/zeroxblocks/zxb-deploy/internal/cli/render"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

// NewPlanCmd creates the plan command
func NewPlanCmd() *cobra.Command {
	var (
		tags []string
		sets []string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Validate and preview the deployment plan",
		Long: `Load and validate the deployment plan and print the steps the given tags
select. With a network, each step shows whether it applies there and every
parameter shows the value it resolves to and where that value came from.

Nothing is sent to the chain and the registry is not read.`,
		Example: `  # Check the plan is valid
  zxb-deploy plan

  # See what the ZeroXBlock tag would do on fuji
  zxb-deploy plan -n fuji -t ZeroXBlock`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			overrides, err := parseOverrides(sets)
			if err != nil {
				return err
			}

			preview, err := app.ShowPlan.Run(cmd.Context(), usecase.ShowPlanParams{
				Tags:      tags,
				Overrides: overrides,
			})
			if err != nil {
				return withSuggestions(err)
			}

			return render.NewPlanRenderer(cmd.OutOrStdout()).RenderPlan(preview)
		},
	}

	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "Plan tags to preview (comma separated)")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Override a plan parameter (name=value)")

	return cmd
}
