package types

import "time"

// TimestampFormat is used in every backup file name and in backup_timestamp.
const TimestampFormat = "20060102-150405"

const NoDeploymentsMessage = "No deployments found to export"

type ExportMethod string

const (
	ExportMethodNone                ExportMethod = "none"
	ExportMethodResourceGroupExport ExportMethod = "resourceGroupExport"
	ExportMethodDeploymentHistory   ExportMethod = "deploymentHistory"
)

type ExportRecord struct {
	ResourceGroup string       `json:"resourceGroup"`
	FilePath      string       `json:"filePath"`
	Success       bool         `json:"success"`
	Method        ExportMethod `json:"method"`
	Error         string       `json:"error,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}

// ErrorDocument is written in place of a template when no export method
// produced one.
type ErrorDocument struct {
	Error         string `json:"error"`
	ResourceGroup string `json:"resourceGroup"`
	Subscription  string `json:"subscription"`
	Timestamp     string `json:"timestamp"`
}

func NewErrorDocument(resourceGroup string, subscriptionID string, at time.Time) ErrorDocument {
	return ErrorDocument{
		Error:         NoDeploymentsMessage,
		ResourceGroup: resourceGroup,
		Subscription:  subscriptionID,
		Timestamp:     at.UTC().Format(time.RFC3339),
	}
}
