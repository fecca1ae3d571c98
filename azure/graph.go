package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resourcegraph/armresourcegraph"
)

const resourceGroupQuery = `resourcecontainers
| where type =~ 'microsoft.resources/subscriptions/resourcegroups'
| project name
| order by name asc`

func (client *ResourceManagerClient) listResourceGroupsByGraph(ctx context.Context) ([]string, error) {
	resourcesClient, err := armresourcegraph.NewClient(client.Credential, client.ClientOptions)
	if err != nil {
		return nil, err
	}

	queryRequest := armresourcegraph.QueryRequest{
		Query:         to.Ptr(resourceGroupQuery),
		Subscriptions: []*string{to.Ptr(client.subscriptionID)},
		Options: &armresourcegraph.QueryRequestOptions{
			ResultFormat: to.Ptr(armresourcegraph.ResultFormatObjectArray),
		},
	}

	client.Logger.Info("Running Resource Graph query for Resource Groups")
	client.Logger.Tracef("Query: %s", resourceGroupQuery)

	names := []string{}
	for {
		res, err := resourcesClient.Resources(ctx, queryRequest, nil)
		if err != nil {
			return nil, fmt.Errorf("error running resource graph query: %w", err)
		}

		results, ok := res.QueryResponse.Data.([]any)
		if !ok {
			return nil, fmt.Errorf("unexpected resource graph data of type %T", res.QueryResponse.Data)
		}
		for _, result := range results {
			row, ok := result.(map[string]any)
			if !ok {
				continue
			}
			name, ok := row["name"].(string)
			if !ok || name == "" {
				continue
			}
			client.Logger.Tracef("Found Resource Group: %s", name)
			names = append(names, name)
		}

		if res.QueryResponse.SkipToken == nil || *res.QueryResponse.SkipToken == "" {
			break
		}
		queryRequest.Options.SkipToken = res.QueryResponse.SkipToken
	}

	return names, nil
}
