/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/azure/arm-template-backup/azure"
	"github.com/azure/arm-template-backup/types"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "arm-template-backup",
	Short: "Back up the ARM templates of every resource group in your Azure environments",
	Long: `arm-template-backup exports an ARM template for every resource group of one
or more Azure subscriptions, validates the exported JSON and writes a summary
per environment.

Each resource group is exported with a full resource group export first and,
if that fails, with the template of its most recent deployment. Resource groups
where both fail get an error document instead, so every group discovered has
exactly one file in the backup.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringP("verbosity", "v", "info", "Log level (trace, debug, info, warn, error)")
	viper.BindPFlag("verbosity", rootCmd.PersistentFlags().Lookup("verbosity"))
	rootCmd.PersistentFlags().BoolP("structuredLogs", "j", false, "Write logs as JSON")
	viper.BindPFlag("structuredLogs", rootCmd.PersistentFlags().Lookup("structuredLogs"))
	rootCmd.PersistentFlags().StringP("outputPath", "o", ".", "Folder the backups are written to")
	viper.BindPFlag("outputPath", rootCmd.PersistentFlags().Lookup("outputPath"))
	rootCmd.PersistentFlags().StringP("backend", "b", string(types.BackendSDK), "Resource manager backend to use (sdk, cli)")
	viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	rootCmd.PersistentFlags().String("cloud", azure.DefaultCloud, "Azure cloud (AzurePublic, AzureChina, AzureGovernment)")
	viper.BindPFlag("cloud", rootCmd.PersistentFlags().Lookup("cloud"))
	rootCmd.PersistentFlags().StringP("discovery", "d", string(types.DiscoveryMethodResourceGroups), "Resource group discovery for the sdk backend (resourceGroups, resourceGraph)")
	viper.BindPFlag("discovery", rootCmd.PersistentFlags().Lookup("discovery"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.BindEnv("triggeredBy", "GITHUB_EVENT_NAME")
	viper.BindEnv("commitSHA", "GITHUB_SHA")
	viper.BindEnv("stepSummaryPath", "GITHUB_STEP_SUMMARY")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", cfgFile, err)
		os.Exit(1)
	}
}
