/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/azure/arm-template-backup/exporter"
	"github.com/azure/arm-template-backup/json"
	"github.com/azure/arm-template-backup/orchestrator"
	"github.com/azure/arm-template-backup/types"
)

var log = logrus.New()

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Back up every environment defined in the config file",
	Long: `The run command backs up all configured environments:

1. Sets and verifies the subscription context of each environment
2. Lists the resource groups of the subscription
3. Exports each resource group, falling back to its latest deployment
4. Validates every exported file and writes backup_summary_<timestamp>.json
5. Once every environment finished, writes backup_report_<timestamp>.json
   and, when GITHUB_STEP_SUMMARY is set, a Markdown job summary

Environments run one after another with the sequential policy, or concurrently
with the parallel policy. A failing environment never stops the others.

Examples:
  # Back up all environments one after another
  arm-template-backup run --config ./config.yaml --outputPath ./backups

  # Back up TEST and PROD concurrently with the az cli
  arm-template-backup run --config ./config.yaml --policy parallel --backend cli -e TEST -e PROD`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := configureLogger(); err != nil {
			return err
		}

		policy := types.ExecutionPolicy(viper.GetString("policy"))
		if !policy.IsValidExecutionPolicy() {
			return fmt.Errorf("invalid policy %q", policy)
		}

		environments, err := parseEnvironments(viper.Get("environments"), os.Getenv)
		if err != nil {
			return err
		}
		environments, err = selectEnvironments(environments, viper.GetStringSlice("environment"))
		if err != nil {
			return err
		}

		backupPath, err := outputPath()
		if err != nil {
			return err
		}

		clientFactory, cleanup, err := newClientFactory(environments, policy == types.ExecutionPolicyParallel)
		if err != nil {
			return err
		}
		defer cleanup()

		trigger := triggerMetadata()
		jsonClient := json.NewJsonClient(log)

		environmentExporter := exporter.NewExporter(
			backupPath,
			viper.GetStringSlice("ignoreResourceGroupPatterns"),
			trigger,
			clientFactory,
			jsonClient,
			log,
		)

		runOrchestrator := orchestrator.NewOrchestrator(
			policy,
			viper.GetInt("maxParallel"),
			backupPath,
			viper.GetString("stepSummaryPath"),
			trigger,
			environmentExporter,
			jsonClient,
			log,
		)

		_, err = runOrchestrator.Run(cmd.Context(), environments)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.PersistentFlags().StringP("policy", "p", string(types.ExecutionPolicySequential), "Execution policy for environments (sequential, parallel)")
	viper.BindPFlag("policy", runCmd.PersistentFlags().Lookup("policy"))
	runCmd.PersistentFlags().IntP("maxParallel", "m", 0, "Maximum environments to back up at once with the parallel policy (0 for no limit)")
	viper.BindPFlag("maxParallel", runCmd.PersistentFlags().Lookup("maxParallel"))
	runCmd.PersistentFlags().StringSliceP("environment", "e", []string{}, "Only back up the named environments")
	viper.BindPFlag("environment", runCmd.PersistentFlags().Lookup("environment"))
	runCmd.PersistentFlags().StringSliceP("ignoreResourceGroupPatterns", "i", []string{}, "Regex patterns of resource group names to leave out")
	viper.BindPFlag("ignoreResourceGroupPatterns", runCmd.PersistentFlags().Lookup("ignoreResourceGroupPatterns"))
}
