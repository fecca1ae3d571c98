package azcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/azure/arm-template-backup/types"
)

type ICommandRunner interface {
	Run(ctx context.Context, env []string, name string, args ...string) ([]byte, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(cmd.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("%s %s: %w: %s", name, redact(args), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// CliClient drives the az cli. The active subscription lives in the cli's
// config folder, so concurrent environments need their own ConfigDir.
type CliClient struct {
	Environment types.Environment
	CloudName   string
	ConfigDir   string
	Runner      ICommandRunner
	Logger      *logrus.Logger
	contextSet  bool
}

func NewCliClient(environment types.Environment, cloudName string, configDir string, logger *logrus.Logger) *CliClient {
	return &CliClient{
		Environment: environment,
		CloudName:   cloudName,
		ConfigDir:   configDir,
		Runner:      ExecRunner{},
		Logger:      logger,
	}
}

func CliCloudName(cloudName string) (string, error) {
	switch strings.ToLower(cloudName) {
	case "", "azurepublic", "azurecloud":
		return "AzureCloud", nil
	case "azurechina", "azurechinacloud":
		return "AzureChinaCloud", nil
	case "azuregovernment", "azureusgovernment":
		return "AzureUSGovernment", nil
	default:
		return "", fmt.Errorf("unknown cloud %q", cloudName)
	}
}

func (cliClient *CliClient) az(ctx context.Context, args ...string) ([]byte, error) {
	env := []string{}
	if cliClient.ConfigDir != "" {
		env = append(env, fmt.Sprintf("AZURE_CONFIG_DIR=%s", cliClient.ConfigDir))
	}
	cliClient.Logger.Debugf("Running az cli: az %s", redact(args))
	output, err := cliClient.Runner.Run(ctx, env, "az", args...)
	if err != nil {
		return output, cliClient.scrub(err)
	}
	return output, nil
}

// scrub removes the client secret from err, az may echo it back on stderr.
func (cliClient *CliClient) scrub(err error) error {
	secret := cliClient.Environment.ClientSecret
	if secret == "" || !strings.Contains(err.Error(), secret) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), secret, "***"))
}

func (cliClient *CliClient) SetSubscriptionContext(ctx context.Context, subscriptionID string) (string, error) {
	cloudName, err := CliCloudName(cliClient.CloudName)
	if err != nil {
		return "", err
	}
	if _, err := cliClient.az(ctx, "cloud", "set", "--name", cloudName); err != nil {
		return "", fmt.Errorf("error selecting cloud %s: %w", cloudName, err)
	}

	if cliClient.Environment.HasServicePrincipal() {
		if _, err := cliClient.az(ctx, "login", "--service-principal",
			"--username", cliClient.Environment.ClientID,
			"--password", cliClient.Environment.ClientSecret,
			"--tenant", cliClient.Environment.TenantID,
			"--output", "none"); err != nil {
			return "", fmt.Errorf("error logging in to %s: %w", cliClient.Environment.Name, err)
		}
	}

	if _, err := cliClient.az(ctx, "account", "set", "--subscription", subscriptionID); err != nil {
		return "", fmt.Errorf("error setting subscription %s: %w", subscriptionID, err)
	}

	output, err := cliClient.az(ctx, "account", "show", "--query", "id", "-o", "tsv")
	if err != nil {
		return "", fmt.Errorf("error reading active subscription: %w", err)
	}

	active := strings.TrimSpace(strings.ReplaceAll(string(output), "\r", ""))
	cliClient.Logger.Debugf("Subscription ID: %s", active)
	cliClient.contextSet = true
	return active, nil
}

func (cliClient *CliClient) ListResourceGroups(ctx context.Context) ([]string, error) {
	if !cliClient.contextSet {
		return nil, types.ErrNoContext
	}

	output, err := cliClient.az(ctx, "group", "list", "--query", "[].name", "-o", "tsv")
	if err != nil {
		return nil, fmt.Errorf("error listing resource groups: %w", err)
	}
	return lines(output), nil
}

func (cliClient *CliClient) ExportResourceGroupTemplate(ctx context.Context, resourceGroupName string) ([]byte, error) {
	if !cliClient.contextSet {
		return nil, types.ErrNoContext
	}

	output, err := cliClient.az(ctx, "group", "export",
		"--name", resourceGroupName,
		"--include-parameter-default-value",
		"--skip-resource-name-params",
		"-o", "json")
	if err != nil {
		return nil, fmt.Errorf("error exporting %s: %w", resourceGroupName, err)
	}
	return nonEmpty(output)
}

func (cliClient *CliClient) ExportLatestDeploymentTemplate(ctx context.Context, resourceGroupName string) ([]byte, error) {
	if !cliClient.contextSet {
		return nil, types.ErrNoContext
	}

	output, err := cliClient.az(ctx, "deployment", "group", "list",
		"--resource-group", resourceGroupName,
		"--query", "sort_by([], &properties.timestamp)[-1].name",
		"-o", "tsv")
	if err != nil {
		return nil, fmt.Errorf("error listing deployments of %s: %w", resourceGroupName, err)
	}
	deploymentNames := lines(output)
	if len(deploymentNames) == 0 {
		return nil, fmt.Errorf("%w: no deployments in %s", types.ErrNoTemplate, resourceGroupName)
	}

	output, err = cliClient.az(ctx, "deployment", "group", "export",
		"--resource-group", resourceGroupName,
		"--name", deploymentNames[0],
		"-o", "json")
	if err != nil {
		return nil, fmt.Errorf("error exporting deployment %s: %w", deploymentNames[0], err)
	}
	return nonEmpty(output)
}

func lines(output []byte) []string {
	result := []string{}
	for _, line := range strings.Split(strings.ReplaceAll(string(output), "\r", ""), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			result = append(result, line)
		}
	}
	return result
}

func nonEmpty(output []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(output)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) {
		return nil, types.ErrNoTemplate
	}
	return trimmed, nil
}

func redact(args []string) string {
	redacted := make([]string, len(args))
	copy(redacted, args)
	for i := range redacted {
		if i > 0 && redacted[i-1] == "--password" {
			redacted[i] = "***"
		}
	}
	return strings.Join(redacted, " ")
}
