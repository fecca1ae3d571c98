package azure

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azure/arm-template-backup/types"
)

const testSubscriptionID = "11111111-1111-1111-1111-111111111111"

func withSubscription(transport *fakeTransport) {
	transport.Add(http.MethodGet, "/subscriptions/"+testSubscriptionID, http.StatusOK,
		`{"id":"/subscriptions/`+testSubscriptionID+`","subscriptionId":"`+testSubscriptionID+`","displayName":"Test","state":"Enabled"}`)
}

func TestResourceManagerClient_SetSubscriptionContext(t *testing.T) {
	transport := &fakeTransport{}
	withSubscription(transport)
	client := newFakeClient(transport, types.DiscoveryMethodResourceGroups)

	active, err := client.SetSubscriptionContext(context.Background(), testSubscriptionID)
	require.NoError(t, err)
	assert.Equal(t, testSubscriptionID, active)
}

func TestResourceManagerClient_SetSubscriptionContextNotFound(t *testing.T) {
	client := newFakeClient(&fakeTransport{}, types.DiscoveryMethodResourceGroups)

	_, err := client.SetSubscriptionContext(context.Background(), testSubscriptionID)
	assert.Error(t, err)
}

func TestResourceManagerClient_RequiresContext(t *testing.T) {
	transport := &fakeTransport{}
	client := newFakeClient(transport, types.DiscoveryMethodResourceGroups)

	_, err := client.ListResourceGroups(context.Background())
	assert.ErrorIs(t, err, types.ErrNoContext)
	_, err = client.ExportResourceGroupTemplate(context.Background(), "rg-a")
	assert.ErrorIs(t, err, types.ErrNoContext)
	_, err = client.ExportLatestDeploymentTemplate(context.Background(), "rg-a")
	assert.ErrorIs(t, err, types.ErrNoContext)
	assert.Equal(t, 0, transport.Requests())
}

func TestResourceManagerClient_ListResourceGroups(t *testing.T) {
	transport := &fakeTransport{}
	withSubscription(transport)
	transport.Add(http.MethodGet, "/resourcegroups", http.StatusOK,
		`{"value":[{"id":"/subscriptions/x/resourceGroups/rg-b","name":"rg-b","location":"westeurope"},{"id":"/subscriptions/x/resourceGroups/rg-a","name":"rg-a","location":"westeurope"}]}`)
	client := newFakeClient(transport, types.DiscoveryMethodResourceGroups)

	_, err := client.SetSubscriptionContext(context.Background(), testSubscriptionID)
	require.NoError(t, err)

	names, err := client.ListResourceGroups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"rg-b", "rg-a"}, names)
}

func TestResourceManagerClient_ExportResourceGroupTemplate(t *testing.T) {
	transport := &fakeTransport{}
	withSubscription(transport)
	transport.Add(http.MethodPost, "/resourcegroups/rg-a/exportTemplate", http.StatusOK,
		`{"template":{"$schema":"https://schema.management.azure.com/schemas/2019-04-01/deploymentTemplate.json#","contentVersion":"1.0.0.0","resources":[]}}`)
	client := newFakeClient(transport, types.DiscoveryMethodResourceGroups)

	_, err := client.SetSubscriptionContext(context.Background(), testSubscriptionID)
	require.NoError(t, err)

	content, err := client.ExportResourceGroupTemplate(context.Background(), "rg-a")
	require.NoError(t, err)

	var template map[string]any
	require.NoError(t, json.Unmarshal(content, &template))
	assert.Equal(t, "1.0.0.0", template["contentVersion"])
}

func TestResourceManagerClient_ExportResourceGroupTemplateFailure(t *testing.T) {
	transport := &fakeTransport{}
	withSubscription(transport)
	client := newFakeClient(transport, types.DiscoveryMethodResourceGroups)

	_, err := client.SetSubscriptionContext(context.Background(), testSubscriptionID)
	require.NoError(t, err)

	_, err = client.ExportResourceGroupTemplate(context.Background(), "rg-missing")
	assert.Error(t, err)
}

func TestResourceManagerClient_ExportLatestDeploymentTemplate(t *testing.T) {
	transport := &fakeTransport{}
	withSubscription(transport)
	transport.Add(http.MethodPost, "/deployments/deploy-new/exportTemplate", http.StatusOK,
		`{"template":{"contentVersion":"2.0.0.0","resources":[]}}`)
	transport.Add(http.MethodPost, "/deployments/deploy-old/exportTemplate", http.StatusOK,
		`{"template":{"contentVersion":"1.0.0.0","resources":[]}}`)
	transport.Add(http.MethodGet, "/providers/Microsoft.Resources/deployments/", http.StatusOK,
		`{"value":[
			{"name":"deploy-old","properties":{"timestamp":"2026-01-01T10:00:00Z","provisioningState":"Succeeded"}},
			{"name":"deploy-new","properties":{"timestamp":"2026-03-01T10:00:00Z","provisioningState":"Succeeded"}}
		]}`)
	client := newFakeClient(transport, types.DiscoveryMethodResourceGroups)

	_, err := client.SetSubscriptionContext(context.Background(), testSubscriptionID)
	require.NoError(t, err)

	content, err := client.ExportLatestDeploymentTemplate(context.Background(), "rg-a")
	require.NoError(t, err)

	var template map[string]any
	require.NoError(t, json.Unmarshal(content, &template))
	assert.Equal(t, "2.0.0.0", template["contentVersion"])
}

func TestResourceManagerClient_ExportLatestDeploymentTemplateNoDeployments(t *testing.T) {
	transport := &fakeTransport{}
	withSubscription(transport)
	transport.Add(http.MethodGet, "/providers/Microsoft.Resources/deployments/", http.StatusOK, `{"value":[]}`)
	client := newFakeClient(transport, types.DiscoveryMethodResourceGroups)

	_, err := client.SetSubscriptionContext(context.Background(), testSubscriptionID)
	require.NoError(t, err)

	_, err = client.ExportLatestDeploymentTemplate(context.Background(), "rg-empty")
	assert.ErrorIs(t, err, types.ErrNoTemplate)
}

func TestMarshalTemplate_Empty(t *testing.T) {
	_, err := marshalTemplate(nil)
	assert.ErrorIs(t, err, types.ErrNoTemplate)
	_, err = marshalTemplate(map[string]any{})
	assert.ErrorIs(t, err, types.ErrNoTemplate)
}

func TestCloudConfiguration(t *testing.T) {
	tests := []struct {
		name     string
		expected cloud.Configuration
	}{
		{"", cloud.AzurePublic},
		{"AzurePublic", cloud.AzurePublic},
		{"AzureChina", cloud.AzureChina},
		{"azuregovernment", cloud.AzureGovernment},
	}
	for _, test := range tests {
		configuration, err := CloudConfiguration(test.name)
		require.NoError(t, err)
		assert.Equal(t, test.expected.ActiveDirectoryAuthorityHost, configuration.ActiveDirectoryAuthorityHost)
	}

	_, err := CloudConfiguration("Mars")
	assert.Error(t, err)
}
