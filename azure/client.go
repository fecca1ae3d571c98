package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"

	"github.com/azure/arm-template-backup/types"
)

// ExportOptions matches "az group export --include-parameter-default-value --skip-resource-name-params".
const ExportOptions = "IncludeParameterDefaultValue,SkipResourceNameParameterization"

// IResourceManagerClient is the set of control plane calls a backup needs.
// SetSubscriptionContext must be called first and returns the subscription ID
// that subsequent calls run against.
type IResourceManagerClient interface {
	SetSubscriptionContext(ctx context.Context, subscriptionID string) (string, error)
	ListResourceGroups(ctx context.Context) ([]string, error)
	ExportResourceGroupTemplate(ctx context.Context, resourceGroupName string) ([]byte, error)
	ExportLatestDeploymentTemplate(ctx context.Context, resourceGroupName string) ([]byte, error)
}

type ResourceManagerClient struct {
	Credential      azcore.TokenCredential
	ClientOptions   *arm.ClientOptions
	DiscoveryMethod types.DiscoveryMethod
	Logger          *logrus.Logger
	subscriptionID  string
}

func NewResourceManagerClient(environment types.Environment, cloudName string, discoveryMethod types.DiscoveryMethod, logger *logrus.Logger) (*ResourceManagerClient, error) {
	cloudConfiguration, err := CloudConfiguration(cloudName)
	if err != nil {
		return nil, err
	}

	credential, err := NewCredential(environment, cloudConfiguration)
	if err != nil {
		return nil, fmt.Errorf("error creating credential for %s: %w", environment.Name, err)
	}

	return &ResourceManagerClient{
		Credential: credential,
		ClientOptions: &arm.ClientOptions{
			ClientOptions: policy.ClientOptions{Cloud: cloudConfiguration},
		},
		DiscoveryMethod: discoveryMethod,
		Logger:          logger,
	}, nil
}

func (client *ResourceManagerClient) SetSubscriptionContext(ctx context.Context, subscriptionID string) (string, error) {
	subscriptionsClient, err := armsubscriptions.NewClient(client.Credential, client.ClientOptions)
	if err != nil {
		return "", err
	}

	client.Logger.Debugf("Looking up subscription %s", subscriptionID)
	res, err := subscriptionsClient.Get(ctx, subscriptionID, nil)
	if err != nil {
		return "", fmt.Errorf("error getting subscription %s: %w", subscriptionID, err)
	}
	if res.SubscriptionID == nil {
		return "", fmt.Errorf("subscription %s returned no ID", subscriptionID)
	}

	client.subscriptionID = *res.SubscriptionID
	client.Logger.Debugf("Active subscription: %s (%s)", client.subscriptionID, stringValue(res.DisplayName, ""))
	return client.subscriptionID, nil
}

func (client *ResourceManagerClient) ListResourceGroups(ctx context.Context) ([]string, error) {
	if client.subscriptionID == "" {
		return nil, types.ErrNoContext
	}

	if client.DiscoveryMethod == types.DiscoveryMethodResourceGraph {
		return client.listResourceGroupsByGraph(ctx)
	}

	resourceGroupsClient, err := armresources.NewResourceGroupsClient(client.subscriptionID, client.Credential, client.ClientOptions)
	if err != nil {
		return nil, err
	}

	names := []string{}
	pager := resourceGroupsClient.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error listing resource groups: %w", err)
		}
		for _, resourceGroup := range page.Value {
			if resourceGroup == nil || resourceGroup.Name == nil {
				continue
			}
			client.Logger.Tracef("Found Resource Group: %s", *resourceGroup.Name)
			names = append(names, *resourceGroup.Name)
		}
	}
	return names, nil
}

func (client *ResourceManagerClient) ExportResourceGroupTemplate(ctx context.Context, resourceGroupName string) ([]byte, error) {
	if client.subscriptionID == "" {
		return nil, types.ErrNoContext
	}

	resourceGroupsClient, err := armresources.NewResourceGroupsClient(client.subscriptionID, client.Credential, client.ClientOptions)
	if err != nil {
		return nil, err
	}

	poller, err := resourceGroupsClient.BeginExportTemplate(ctx, resourceGroupName, armresources.ExportTemplateRequest{
		Options:   to.Ptr(ExportOptions),
		Resources: []*string{to.Ptr("*")},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting export of %s: %w", resourceGroupName, err)
	}

	res, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error exporting %s: %w", resourceGroupName, err)
	}
	if res.Error != nil {
		return nil, fmt.Errorf("export of %s reported %s: %s", resourceGroupName, stringValue(res.Error.Code, "error"), stringValue(res.Error.Message, ""))
	}

	return marshalTemplate(res.Template)
}

func (client *ResourceManagerClient) ExportLatestDeploymentTemplate(ctx context.Context, resourceGroupName string) ([]byte, error) {
	if client.subscriptionID == "" {
		return nil, types.ErrNoContext
	}

	deploymentsClient, err := armresources.NewDeploymentsClient(client.subscriptionID, client.Credential, client.ClientOptions)
	if err != nil {
		return nil, err
	}

	var latest *armresources.DeploymentExtended
	pager := deploymentsClient.NewListByResourceGroupPager(resourceGroupName, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error listing deployments of %s: %w", resourceGroupName, err)
		}
		for _, deployment := range page.Value {
			if deployment == nil || deployment.Name == nil {
				continue
			}
			if latest == nil || deploymentTime(deployment).After(deploymentTime(latest)) {
				latest = deployment
			}
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: no deployments in %s", types.ErrNoTemplate, resourceGroupName)
	}

	client.Logger.Debugf("Exporting template of deployment %s in %s", *latest.Name, resourceGroupName)
	res, err := deploymentsClient.ExportTemplate(ctx, resourceGroupName, *latest.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("error exporting deployment %s: %w", *latest.Name, err)
	}

	return marshalTemplate(res.Template)
}

func deploymentTime(deployment *armresources.DeploymentExtended) time.Time {
	if deployment.Properties == nil || deployment.Properties.Timestamp == nil {
		return time.Time{}
	}
	return *deployment.Properties.Timestamp
}

// The SDK hands the template back decoded, so it is encoded again here.
func marshalTemplate(template any) ([]byte, error) {
	if template == nil {
		return nil, types.ErrNoTemplate
	}
	if templateMap, ok := template.(map[string]any); ok && len(templateMap) == 0 {
		return nil, types.ErrNoTemplate
	}
	return json.MarshalIndent(template, "", "  ")
}

func stringValue(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	return *value
}
