// Package cmd provides the root command and CLI setup for playvars.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"playvars.dev/pkg/playvars/internal/adapter"
	"playvars.dev/pkg/playvars/internal/controller"
	"playvars.dev/pkg/playvars/internal/domain"
	m "playvars.dev/pkg/playvars/internal/model"
)

var fsAdapter adapter.TemplateFSAdapter
var templateAdapter adapter.TemplateAdapter
var reportStore adapter.ReportStore
var inferrer domain.Inferrer
var workflow domain.Workflow
var ui controller.UI

// reportsOutputDirFlag is a root-level flag shared by commands that read/write reports.
var reportsOutputDirFlag string

// noCacheFlag disables incremental caching when set.
var noCacheFlag bool

// verboseFlag switches the log file to debug level.
var verboseFlag bool

func init() {
	configureRootFlags(rootCmd)

	config, err := inferConfig()
	cobra.CheckErr(err)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	fsAdapter = adapter.NewLocalTemplateFSAdapter()
	templateAdapter = adapter.NewLocalTemplateAdapter()
	reportStore = adapter.NewReportStore()
	inferrer = domain.NewInferrer(fsAdapter, templateAdapter, config)
	workflow = domain.NewWorkflow(
		fsAdapter,
		reportStore,
		ui,
		inferrer,
	)
}

const pathPatternsHelp = `Supports Go-style path patterns:
  - ./...            recursively scan current directory
  - ./roles/...      recursively scan the roles directory
  - site.yml ./play  a single file and the top level of a directory`

const rootLongDescription = `Playvars infers the variables an Ansible playbook or Jinja template
expects from its caller, with their structure (scalar, list, tuple or
dictionary), where they are used and whether they are optional.

` + pathPatternsHelp

const listLongDescription = `Infer the variables of every playbook and template under the given paths
(default: current directory, recursively). Reports are stored in the output
directory and reused while a file's hash is unchanged.

` + pathPatternsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "playvars",
		Short: "Infer the variables of Ansible playbooks and Jinja templates",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFileKey), viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"directory where template reports are stored",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().BoolVar(&noCacheFlag, noCacheFlagName, viper.GetBool(noCacheFlagName), "re-infer every template, even when its hash is unchanged")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(noCacheFlagName), noCacheFlagName)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
