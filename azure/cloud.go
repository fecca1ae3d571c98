package azure

import (
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/azure/arm-template-backup/types"
)

const DefaultCloud = "AzurePublic"

func CloudConfiguration(cloudName string) (cloud.Configuration, error) {
	switch strings.ToLower(cloudName) {
	case "", "azurepublic", "azurecloud":
		return cloud.AzurePublic, nil
	case "azurechina", "azurechinacloud":
		return cloud.AzureChina, nil
	case "azuregovernment", "azureusgovernment":
		return cloud.AzureGovernment, nil
	default:
		return cloud.Configuration{}, fmt.Errorf("unknown cloud %q", cloudName)
	}
}

// NewCredential prefers the environment's service principal and falls back to
// the default credential chain (az cli login, managed identity, env vars).
func NewCredential(environment types.Environment, cloudConfiguration cloud.Configuration) (azcore.TokenCredential, error) {
	clientOptions := azcore.ClientOptions{Cloud: cloudConfiguration}

	if environment.HasServicePrincipal() {
		credential, err := azidentity.NewClientSecretCredential(environment.TenantID, environment.ClientID, environment.ClientSecret, &azidentity.ClientSecretCredentialOptions{
			ClientOptions: clientOptions,
		})
		if err != nil {
			return nil, err
		}
		return credential, nil
	}

	credential, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		ClientOptions: clientOptions,
		TenantID:      environment.TenantID,
	})
	if err != nil {
		return nil, err
	}
	return credential, nil
}
