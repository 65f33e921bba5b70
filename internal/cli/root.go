package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zeroxblocks/zxb-deploy/internal/adapters/interactive"
	"github.com/zeroxblocks/zxb-deploy/internal/adapters/progress"
	"github.com/zeroxblocks/zxb-deploy/internal/app"
	"github.com/zeroxblocks/zxb-deploy/internal/cli/render"
	"github.com/zeroxblocks/zxb-deploy/internal/config"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"

	// needsNetwork marks commands that cannot run without a target network
	needsNetwork = "needs-network"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "zxb-deploy",
		Short: "Deployment orchestrator for the ZeroXBlocks contracts",
		Long: `zxb-deploy runs a declarative deployment plan against an EVM network.

Every step is idempotent: contracts already recorded for the network are
reused, and wiring calls whose guard already reads the expected value are
skipped. Running the same tags twice is safe.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for help/version commands
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}

			v := config.SetupViper(projectRoot, cmd)

			appInstance, err := app.InitApp(v, sinkFor(cmd, v))
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}

			// Commands that need a network ask for one when none was given
			if appInstance.Network.Name == "" && cmd.Annotations[needsNetwork] == "true" {
				network, err := pickNetwork(cmd.Context(), appInstance)
				if err != nil {
					return err
				}
				v.Set("network", network)
				if appInstance, err = app.InitApp(v, sinkFor(cmd, v)); err != nil {
					return fmt.Errorf("failed to initialize app: %w", err)
				}
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			if appInstance.Config.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, appInstance.Config.Timeout)
				cmd.PostRun = func(cmd *cobra.Command, args []string) {
					cancel()
				}
			}
			cmd.SetContext(ctx)

			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("verbose", false, "Stream compiler output")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Disable interactive prompts")
	rootCmd.PersistentFlags().Bool("json", false, "Output machine-readable JSON")
	rootCmd.PersistentFlags().StringP("network", "n", "", "Network to use (e.g., fuji, avax)")
	rootCmd.PersistentFlags().String("config", config.DeployFileName, "Path to the deploy config")
	rootCmd.PersistentFlags().String("plan", "", "Path to the deployment plan (default deploy/plan.yaml)")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "main",
		Title: "Main Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands",
	})

	// Main commands
	migrateCmd := NewMigrateCmd()
	migrateCmd.GroupID = "main"
	rootCmd.AddCommand(migrateCmd)

	planCmd := NewPlanCmd()
	planCmd.GroupID = "main"
	rootCmd.AddCommand(planCmd)

	listCmd := NewListCmd()
	listCmd.GroupID = "main"
	rootCmd.AddCommand(listCmd)

	showCmd := NewShowCmd()
	showCmd.GroupID = "main"
	rootCmd.AddCommand(showCmd)

	// Management commands
	networksCmd := NewNetworksCmd()
	networksCmd.GroupID = "management"
	rootCmd.AddCommand(networksCmd)

	buildCmd := NewBuildCmd()
	buildCmd.GroupID = "management"
	rootCmd.AddCommand(buildCmd)

	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// sinkFor picks the progress sink of the command. Migrations stream their
// step log; everything else gets a spinner on a terminal.
func sinkFor(cmd *cobra.Command, v *viper.Viper) usecase.ProgressSink {
	if v.GetBool("json") {
		return progress.NewNopSink()
	}
	if cmd.Name() == "migrate" {
		return progress.NewMigrateProgress(render.NewMigrationRenderer(os.Stdout))
	}
	if v.GetBool("non_interactive") || (cmd.Name() == "build" && v.GetBool("verbose")) {
		return progress.NewNopSink()
	}
	return progress.NewSpinnerProgressReporter()
}

// pickNetwork asks the operator for a network, or fails when prompts are off
func pickNetwork(ctx context.Context, a *app.App) (string, error) {
	if !a.Prompter.Enabled() {
		return "", fmt.Errorf("no network selected (use --network)")
	}
	result, err := a.ListNetworks.Run(ctx)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(result.Networks))
	for _, n := range result.Networks {
		names = append(names, n.Name)
	}
	network, err := a.Prompter.SelectNetwork(names)
	if errors.Is(err, interactive.ErrNonInteractive) {
		return "", fmt.Errorf("no network selected (use --network)")
	}
	return network, err
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	app, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return app, nil
}
