package cli

import (
	"github.com/spf13/cobra"
	"github.com/zeroxblocks/zxb-deploy/internal/cli/render"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	var (
		contractName string
		proxiesOnly  bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List deployments recorded for a network",
		Long: `List every contract recorded in the deployment registry of the network.

The list can be filtered by contract name or limited to proxies.`,
		Example: `  # List all deployments on fuji
  zxb-deploy list -n fuji

  # List the reward managers
  zxb-deploy list -n fuji --contract RewardManagement

  # List proxy deployments only
  zxb-deploy list -n avax --proxies`,
		Args: cobra.NoArgs,
		Annotations: map[string]string{
			needsNetwork: "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.ListDeployments.Run(cmd.Context(), usecase.ListDeploymentsParams{
				Contract:    contractName,
				ProxiesOnly: proxiesOnly,
			})
			if err != nil {
				return err
			}

			renderer := render.NewDeploymentsRenderer(cmd.OutOrStdout())
			if app.Config.JSON {
				return renderer.RenderJSON(result.Deployments)
			}
			return renderer.RenderDeploymentList(result)
		},
	}

	cmd.Flags().StringVar(&contractName, "contract", "", "Filter by contract name")
	cmd.Flags().BoolVar(&proxiesOnly, "proxies", false, "Show proxy deployments only")

	return cmd
}
