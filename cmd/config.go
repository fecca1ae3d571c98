package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/azure/arm-template-backup/azcli"
	"github.com/azure/arm-template-backup/azure"
	"github.com/azure/arm-template-backup/exporter"
	"github.com/azure/arm-template-backup/filepathparser"
	"github.com/azure/arm-template-backup/logging"
	"github.com/azure/arm-template-backup/types"
)

func configureLogger() error {
	if err := logging.Configure(log, viper.GetString("verbosity"), viper.GetBool("structuredLogs")); err != nil {
		return err
	}
	for key, value := range viper.AllSettings() {
		log.Debugf("Command Flag: %s = %v", key, value)
	}
	return nil
}

func triggerMetadata() types.TriggerMetadata {
	trigger := types.TriggerMetadata{
		TriggeredBy: viper.GetString("triggeredBy"),
		CommitSHA:   viper.GetString("commitSHA"),
	}
	if trigger.TriggeredBy == "" {
		trigger.TriggeredBy = "manual"
	}
	if trigger.CommitSHA == "" {
		trigger.CommitSHA = "unknown"
	}
	return trigger
}

func outputPath() (string, error) {
	path, err := filepathparser.ParsePath(viper.GetString("outputPath"))
	if err != nil {
		return "", fmt.Errorf("error getting output path: %w", err)
	}
	return path, nil
}

// field looks a key up case-insensitively; viper lowercases keys read from
// config files but not values set in code.
func field(values map[string]any, key string) (any, bool) {
	if value, ok := values[key]; ok {
		return value, true
	}
	for name, value := range values {
		if strings.EqualFold(name, key) {
			return value, true
		}
	}
	return nil, false
}

func stringField(values map[string]any, key string) string {
	value, ok := field(values, key)
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

// parseEnvironments reads the environments list of the config file.
// Secrets are resolved through the variable named by clientSecretEnv.
func parseEnvironments(raw any, lookupEnv func(string) string) ([]types.Environment, error) {
	if raw == nil {
		return nil, fmt.Errorf("no environments configured")
	}
	rawEnvironments, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("environments must be a list, got %T", raw)
	}

	environments := []types.Environment{}
	seen := map[string]bool{}
	for i, rawEnvironment := range rawEnvironments {
		environmentMap, ok := rawEnvironment.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("environment %d must be a map, got %T", i, rawEnvironment)
		}

		environment := types.Environment{
			Name:           stringField(environmentMap, "name"),
			SubscriptionID: stringField(environmentMap, "subscriptionID"),
			TenantID:       stringField(environmentMap, "tenantID"),
			ClientID:       stringField(environmentMap, "clientID"),
			Enabled:        true,
		}
		if environment.Name == "" {
			return nil, fmt.Errorf("environment %d: %w", i, types.ErrMissingEnvironment)
		}
		if seen[strings.ToLower(environment.Name)] {
			return nil, fmt.Errorf("environment %s is configured more than once", environment.Name)
		}
		seen[strings.ToLower(environment.Name)] = true

		if secretEnv := stringField(environmentMap, "clientSecretEnv"); secretEnv != "" {
			environment.ClientSecret = lookupEnv(secretEnv)
		}
		if enabled, ok := field(environmentMap, "enabled"); ok {
			switch value := enabled.(type) {
			case bool:
				environment.Enabled = value
			case string:
				environment.Enabled = !strings.EqualFold(value, "false")
			}
		}

		environments = append(environments, environment)
	}
	return environments, nil
}

// selectEnvironments keeps the named environments, all of them when names is empty.
func selectEnvironments(environments []types.Environment, names []string) ([]types.Environment, error) {
	if len(names) == 0 {
		return environments, nil
	}

	selected := []types.Environment{}
	for _, name := range names {
		found := false
		for _, environment := range environments {
			if strings.EqualFold(environment.Name, name) {
				selected = append(selected, environment)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("environment %s is not configured", name)
		}
	}
	return selected, nil
}

// newClientFactory builds per environment clients. With isolateCliConfig every
// environment gets its own az cli config folder, removed by the cleanup func.
// An isolated folder starts without any login, so every enabled environment
// must then bring a service principal.
func newClientFactory(environments []types.Environment, isolateCliConfig bool) (exporter.ClientFactory, func(), error) {
	backend := types.Backend(viper.GetString("backend"))
	if !backend.IsValidBackend() {
		return nil, nil, fmt.Errorf("invalid backend %q", backend)
	}
	discoveryMethod := types.DiscoveryMethod(viper.GetString("discovery"))
	if !discoveryMethod.IsValidDiscoveryMethod() {
		return nil, nil, fmt.Errorf("invalid discovery method %q", discoveryMethod)
	}
	cloudName := viper.GetString("cloud")

	isolate := backend == types.BackendCLI && isolateCliConfig
	if isolate {
		for _, environment := range environments {
			if environment.Enabled && !environment.HasServicePrincipal() {
				return nil, nil, fmt.Errorf("environment %s: %w", environment.Name, types.ErrNoServicePrincipal)
			}
		}
	}

	configRoot := ""
	cleanup := func() {}
	if isolate {
		var err error
		configRoot, err = os.MkdirTemp("", "arm-template-backup-")
		if err != nil {
			return nil, nil, fmt.Errorf("error creating az cli config folder: %w", err)
		}
		cleanup = func() {
			if err := os.RemoveAll(configRoot); err != nil {
				log.Warnf("Error removing %s: %v", configRoot, err)
			}
		}
	}

	factory := func(environment types.Environment) (azure.IResourceManagerClient, error) {
		if backend == types.BackendCLI {
			configDir := ""
			if configRoot != "" {
				if !environment.HasServicePrincipal() {
					return nil, fmt.Errorf("environment %s: %w", environment.Name, types.ErrNoServicePrincipal)
				}
				var err error
				configDir, err = filepathparser.JoinSegments(configRoot, environment.Name)
				if err != nil {
					return nil, err
				}
				if err := os.MkdirAll(configDir, 0700); err != nil {
					return nil, err
				}
			}
			return azcli.NewCliClient(environment, cloudName, configDir, log), nil
		}

		client, err := azure.NewResourceManagerClient(environment, cloudName, discoveryMethod, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return factory, cleanup, nil
}
