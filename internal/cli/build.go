package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zeroxblocks/zxb-deploy/internal/cli/render"
)

// NewBuildCmd creates the build command
func NewBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile the contracts",
		Long: `Run the configured build command (forge build by default) in the project
root. Use --verbose to stream the compiler output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			if err := app.BuildArtifacts.Run(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess("Contracts compiled"))
			return nil
		},
	}

	return cmd
}
