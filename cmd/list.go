package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"playvars.dev/pkg/playvars/internal/domain"
	m "playvars.dev/pkg/playvars/internal/model"
)

var parallelFlag int

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [paths...]",
		Short: "Infer and list the variables of playbooks and templates",
		Long:  listLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.List(cmd.Context(), domain.ListArgs{
				Paths:    parsePaths(args),
				Options:  discoverOptions(),
				UseCache: !viper.GetBool(noCacheFlagName),
				Reports:  m.Path(viper.GetString(outputFlagName)),
				Threads:  viper.GetInt(parallelConfigKey),
			})
		},
	}

	cmd.Flags().IntVarP(&parallelFlag, parallelFlagName, "p", viper.GetInt(parallelConfigKey), "number of templates inferred in parallel")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), parallelConfigKey)

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
