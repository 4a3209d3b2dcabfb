package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"playvars.dev/pkg/playvars/internal/domain"
	m "playvars.dev/pkg/playvars/internal/model"
)

var formatFlag string
var jsonSchemaFlag bool

// inferCmd represents the infer command.
var inferCmd = newInferCmd()

func newInferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infer <file>|-",
		Short: "Print the inferred variables of one template",
		Long: `Infer the variables of a single playbook or template and print them as a
tree (yaml or json) or as a JSON schema. Use "-" to read the template from
standard input. The command fails when the template has a conflict.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := inferFormat(formatFlag, jsonSchemaFlag)
			if err != nil {
				return err
			}

			inferArgs := domain.InferArgs{Path: m.Path(args[0]), Format: format}

			if inferArgs.Path == domain.StdinPath {
				content, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}

				inferArgs.Content = content
			}

			return workflow.Infer(cmd.Context(), inferArgs)
		},
	}

	cmd.Flags().StringVarP(&formatFlag, formatFlagName, "f", string(domain.FormatYAML), "output format: yaml, json or json-schema")
	cmd.Flags().BoolVar(&jsonSchemaFlag, jsonSchemaFlagName, false, "print a JSON schema (same as --format json-schema)")

	return cmd
}

func inferFormat(name string, jsonSchema bool) (domain.Format, error) {
	if jsonSchema {
		return domain.FormatJSONSchema, nil
	}

	return domain.ParseFormat(name)
}

func init() {
	rootCmd.AddCommand(inferCmd)
}
