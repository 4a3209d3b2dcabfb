package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"playvars.dev/pkg/playvars/internal/domain"
	m "playvars.dev/pkg/playvars/internal/model"
)

// diffCmd represents the diff command.
var diffCmd = newDiffCmd()

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <file>",
		Short: "Compare a template's stored variables with its current ones",
		Long: `Infer a template again and print a unified diff between the report stored
by the last list run and the current result.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Diff(cmd.Context(), domain.DiffArgs{
				Path:    m.Path(args[0]),
				Reports: m.Path(viper.GetString(outputFlagName)),
			})
		},
	}
}

func init() {
	rootCmd.AddCommand(diffCmd)
}
