package exporter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/azure/arm-template-backup/azure"
	"github.com/azure/arm-template-backup/filepathparser"
	"github.com/azure/arm-template-backup/json"
	"github.com/azure/arm-template-backup/logging"
	"github.com/azure/arm-template-backup/summary"
	"github.com/azure/arm-template-backup/types"
)

// ClientFactory builds a resource manager client for one environment. Each
// call must return a client that shares no state with other environments.
type ClientFactory func(environment types.Environment) (azure.IResourceManagerClient, error)

type IEnvironmentExporter interface {
	ExportEnvironment(ctx context.Context, environment types.Environment) (types.EnvironmentResult, error)
}

type Exporter struct {
	OutputPath                  string
	IgnoreResourceGroupPatterns []string
	Trigger                     types.TriggerMetadata
	ClientFactory               ClientFactory
	JsonClient                  json.IJsonClient
	Now                         func() time.Time
	Logger                      *logrus.Logger
}

func NewExporter(outputPath string, ignoreResourceGroupPatterns []string, trigger types.TriggerMetadata, clientFactory ClientFactory, jsonClient json.IJsonClient, logger *logrus.Logger) *Exporter {
	return &Exporter{
		OutputPath:                  outputPath,
		IgnoreResourceGroupPatterns: ignoreResourceGroupPatterns,
		Trigger:                     trigger,
		ClientFactory:               clientFactory,
		JsonClient:                  jsonClient,
		Now:                         time.Now,
		Logger:                      logger,
	}
}

// ExportEnvironment runs context setup, discovery, export and aggregation for
// one environment. A returned error means the environment was aborted; per
// resource group failures are only reported through the records and summary.
func (exporter *Exporter) ExportEnvironment(ctx context.Context, environment types.Environment) (types.EnvironmentResult, error) {
	result := types.EnvironmentResult{
		Environment:    environment.Name,
		SubscriptionID: environment.SubscriptionID,
		Status:         types.EnvironmentStatusFailed,
	}
	logger := exporter.Logger.WithField("environment", environment.Name)

	err := exporter.exportEnvironment(ctx, environment, &result, logger)
	if err != nil {
		result.Error = err.Error()
		logger.Errorf("Backup aborted: %v", err)
		return result, err
	}

	result.Status = types.EnvironmentStatusSuccess
	return result, nil
}

func (exporter *Exporter) exportEnvironment(ctx context.Context, environment types.Environment, result *types.EnvironmentResult, logger *logrus.Entry) error {
	if environment.Name == "" {
		return types.ErrMissingEnvironment
	}
	if environment.SubscriptionID == "" {
		return fmt.Errorf("%w for environment %s", types.ErrEmptySubscription, environment.Name)
	}

	environmentPath, err := filepathparser.JoinSegments(exporter.OutputPath, environment.Name)
	if err != nil {
		return err
	}

	client, err := exporter.ClientFactory(environment)
	if err != nil {
		return fmt.Errorf("error creating client: %w", err)
	}

	logger.Infof("Setting subscription context %s", environment.SubscriptionID)
	activeSubscriptionID, err := client.SetSubscriptionContext(ctx, environment.SubscriptionID)
	if err != nil {
		return fmt.Errorf("error setting subscription context: %w", err)
	}
	if !types.SameSubscription(activeSubscriptionID, environment.SubscriptionID) {
		return fmt.Errorf("%w: requested %s, active %s", types.ErrSubscriptionMismatch, environment.SubscriptionID, activeSubscriptionID)
	}
	logging.Success(logger).Infof("Subscription context verified: %s", activeSubscriptionID)

	startedAt := exporter.Now()
	timestamp := startedAt.UTC().Format(types.TimestampFormat)

	resourceGroups, err := client.ListResourceGroups(ctx)
	if err != nil {
		return fmt.Errorf("error discovering resource groups: %w", err)
	}
	resourceGroups = exporter.filterResourceGroups(resourceGroups, logger)

	if len(resourceGroups) == 0 {
		logger.Warn("No resource groups found")
	} else {
		logger.Infof("Found %d resource groups", len(resourceGroups))
	}

	records := make([]types.ExportRecord, 0, len(resourceGroups))
	for _, resourceGroup := range resourceGroups {
		records = append(records, exporter.ExportResourceGroup(ctx, client, environment, environmentPath, resourceGroup, timestamp))
	}
	result.Exports = records

	summaryRecord := summary.Summarize(environment, startedAt, records, exporter.Trigger)
	result.Summary = &summaryRecord

	summaryPath := filepath.Join(environmentPath, summary.FileName(timestamp))
	if err := exporter.JsonClient.Export(summaryRecord, summaryPath); err != nil {
		return fmt.Errorf("error writing summary: %w", err)
	}

	entry := logger.WithFields(logrus.Fields{
		"successful": summaryRecord.Summary.SuccessfulExports,
		"failed":     summaryRecord.Summary.FailedExports,
		"total":      summaryRecord.Summary.TotalResourceGroups,
	})
	if summaryRecord.Summary.FailedExports > 0 {
		entry.Warnf("Backup finished with failures, summary written to %s", summaryPath)
	} else {
		logging.Success(entry).Infof("Backup finished, summary written to %s", summaryPath)
	}
	return nil
}

// ExportResourceGroup writes exactly one file for resourceGroup: the exported
// template or an error document.
func (exporter *Exporter) ExportResourceGroup(ctx context.Context, client azure.IResourceManagerClient, environment types.Environment, environmentPath string, resourceGroup string, timestamp string) types.ExportRecord {
	logger := exporter.Logger.WithFields(logrus.Fields{
		"environment":   environment.Name,
		"resourceGroup": resourceGroup,
	})
	record := types.ExportRecord{
		ResourceGroup: resourceGroup,
		Method:        types.ExportMethodNone,
		Timestamp:     exporter.Now().UTC(),
	}

	segment := resourceGroup
	groupPath, err := filepathparser.JoinSegments(environmentPath, resourceGroup)
	if err != nil {
		segment = filepathparser.SanitizeSegment(resourceGroup)
		groupPath = filepath.Join(environmentPath, segment)
		record.FilePath = filepath.Join(groupPath, fmt.Sprintf("%s_%s.json", segment, timestamp))
		record.Error = err.Error()
		logger.Errorf("Resource group name is not a safe path segment, writing error document to %s", record.FilePath)
		exporter.writeErrorDocument(environment, resourceGroup, types.NoDeploymentsMessage, record.FilePath, logger)
		return record
	}
	record.FilePath = filepath.Join(groupPath, fmt.Sprintf("%s_%s.json", segment, timestamp))

	content, method, err := exporter.export(ctx, client, resourceGroup, logger)
	if err != nil {
		logger.Warnf("No export method produced a template: %v", err)
		record.Error = types.NoDeploymentsMessage
		exporter.writeErrorDocument(environment, resourceGroup, types.NoDeploymentsMessage, record.FilePath, logger)
		return record
	}

	if err := exporter.JsonClient.ExportRaw(content, record.FilePath); err != nil {
		record.Error = fmt.Sprintf("error writing template: %v", err)
		logger.Errorf("Error writing template, writing error document instead: %v", err)
		exporter.writeErrorDocument(environment, resourceGroup, record.Error, record.FilePath, logger)
		return record
	}

	if err := exporter.JsonClient.Validate(record.FilePath); err != nil {
		record.Method = method
		record.Error = err.Error()
		logger.Warnf("Exported template failed validation: %v", err)
		return record
	}

	record.Success = true
	record.Method = method
	logging.Success(logger).WithField("method", method).Infof("Exported to %s", record.FilePath)
	return record
}

func (exporter *Exporter) export(ctx context.Context, client azure.IResourceManagerClient, resourceGroup string, logger *logrus.Entry) ([]byte, types.ExportMethod, error) {
	content, err := client.ExportResourceGroupTemplate(ctx, resourceGroup)
	if err == nil && len(bytes.TrimSpace(content)) > 0 {
		return content, types.ExportMethodResourceGroupExport, nil
	}
	if err == nil {
		err = types.ErrNoTemplate
	}
	logger.Warnf("Resource group export failed, trying latest deployment: %v", err)

	content, fallbackErr := client.ExportLatestDeploymentTemplate(ctx, resourceGroup)
	if fallbackErr == nil && len(bytes.TrimSpace(content)) > 0 {
		logger.Warn("Template reconstructed from deployment history, it reflects the last deployment only")
		return content, types.ExportMethodDeploymentHistory, nil
	}
	if fallbackErr == nil {
		fallbackErr = types.ErrNoTemplate
	}

	return nil, types.ExportMethodNone, errors.Join(err, fallbackErr)
}

func (exporter *Exporter) writeErrorDocument(environment types.Environment, resourceGroup string, message string, filePath string, logger *logrus.Entry) {
	document := types.NewErrorDocument(resourceGroup, environment.SubscriptionID, exporter.Now())
	document.Error = message
	if err := exporter.JsonClient.Export(document, filePath); err != nil {
		logger.Errorf("Error writing error document: %v", err)
	}
}

// filterResourceGroups drops ignored groups and returns the rest sorted.
func (exporter *Exporter) filterResourceGroups(resourceGroups []string, logger *logrus.Entry) []string {
	filtered := []string{}
	seen := map[string]bool{}
	for _, resourceGroup := range resourceGroups {
		if seen[resourceGroup] {
			logger.Debugf("Skipping duplicate Resource Group: %s", resourceGroup)
			continue
		}
		seen[resourceGroup] = true

		shouldIgnore := false
		for _, pattern := range exporter.IgnoreResourceGroupPatterns {
			matched, err := regexp.MatchString(pattern, resourceGroup)
			if err != nil {
				logger.Debugf("Error matching pattern %s: %v", pattern, err)
				continue
			}
			if matched {
				shouldIgnore = true
				break
			}
		}
		if shouldIgnore {
			logger.Infof("Ignoring Resource Group: %s", resourceGroup)
			continue
		}
		filtered = append(filtered, resourceGroup)
	}

	sort.Strings(filtered)
	return filtered
}
