/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/azure/arm-template-backup/exporter"
	"github.com/azure/arm-template-backup/json"
	"github.com/azure/arm-template-backup/types"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <environment> <subscription-id>",
	Short: "Back up a single environment",
	Long: `The export command backs up the ARM templates of one subscription into
<outputPath>/<environment>/. It fails when the subscription ID is empty or when
the active subscription context does not match the requested one.

Examples:
  # Use the current az cli login
  arm-template-backup export TEST 00000000-0000-0000-0000-000000000001 --backend cli

  # Use a service principal with the secret in AZURE_CLIENT_SECRET_PROD
  arm-template-backup export PROD 00000000-0000-0000-0000-000000000002 --tenantID <tenant> --clientID <app> --clientSecretEnv AZURE_CLIENT_SECRET_PROD`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := configureLogger(); err != nil {
			return err
		}

		environment := types.Environment{
			Name:           strings.TrimSpace(args[0]),
			SubscriptionID: strings.TrimSpace(args[1]),
			TenantID:       viper.GetString("tenantID"),
			ClientID:       viper.GetString("clientID"),
			Enabled:        true,
		}
		if environment.Name == "" {
			return types.ErrMissingEnvironment
		}
		if environment.SubscriptionID == "" {
			return fmt.Errorf("%w for environment %s", types.ErrEmptySubscription, environment.Name)
		}
		if secretEnv := viper.GetString("clientSecretEnv"); secretEnv != "" {
			environment.ClientSecret = os.Getenv(secretEnv)
		}

		backupPath, err := outputPath()
		if err != nil {
			return err
		}

		clientFactory, cleanup, err := newClientFactory([]types.Environment{environment}, false)
		if err != nil {
			return err
		}
		defer cleanup()

		environmentExporter := exporter.NewExporter(
			backupPath,
			viper.GetStringSlice("ignoreResourceGroupPatterns"),
			triggerMetadata(),
			clientFactory,
			json.NewJsonClient(log),
			log,
		)

		_, err = environmentExporter.ExportEnvironment(cmd.Context(), environment)
		return err
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("tenantID", "", "Tenant ID of the service principal")
	viper.BindPFlag("tenantID", exportCmd.Flags().Lookup("tenantID"))
	exportCmd.Flags().String("clientID", "", "Client ID of the service principal")
	viper.BindPFlag("clientID", exportCmd.Flags().Lookup("clientID"))
	exportCmd.Flags().String("clientSecretEnv", "", "Name of the environment variable holding the client secret")
	viper.BindPFlag("clientSecretEnv", exportCmd.Flags().Lookup("clientSecretEnv"))
}
