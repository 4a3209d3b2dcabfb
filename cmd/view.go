package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"playvars.dev/pkg/playvars/internal/domain"
	m "playvars.dev/pkg/playvars/internal/model"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View stored template reports",
		Long:  "View the template reports stored by a previous list run, without re-inferring anything.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			reportsPath := m.Path(viper.GetString(outputFlagName))
			return workflow.View(cmd.Context(), domain.ViewArgs{Reports: reportsPath})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
