package cli

import (
	"github.com/spf13/cobra"
	"github.com/zeroxblocks/zxb-deploy/internal/cli/render"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <contract>",
		Short: "Show the recorded deployment of a contract",
		Long: `Show the registry record of a contract on the network: its address,
deployment transaction, proxy details, constructor arguments and the
addresses it replaced.`,
		Example: `  # Show the token proxy on avax
  zxb-deploy show ZeroXBlock -n avax

  # Machine-readable output
  zxb-deploy show NODERewardManagement -n fuji --json`,
		Args: cobra.ExactArgs(1),
		Annotations: map[string]string{
			needsNetwork: "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			record, err := app.ShowDeployment.Run(cmd.Context(), usecase.ShowDeploymentParams{Name: args[0]})
			if err != nil {
				return err
			}

			renderer := render.NewDeploymentRenderer(cmd.OutOrStdout())
			if app.Config.JSON {
				return renderer.RenderJSON(record)
			}
			return renderer.RenderDeployment(app.Network, record)
		},
	}

	return cmd
}
