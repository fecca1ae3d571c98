package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/azure/arm-template-backup/exporter"
	"github.com/azure/arm-template-backup/json"
	"github.com/azure/arm-template-backup/logging"
	"github.com/azure/arm-template-backup/summary"
	"github.com/azure/arm-template-backup/types"
)

// Orchestrator maps the environment exporter over every configured
// environment and aggregates once all of them reached a terminal state.
type Orchestrator struct {
	Policy          types.ExecutionPolicy
	MaxParallel     int
	OutputPath      string
	StepSummaryPath string
	Trigger         types.TriggerMetadata
	Exporter        exporter.IEnvironmentExporter
	JsonClient      json.IJsonClient
	Now             func() time.Time
	Logger          *logrus.Logger
}

func NewOrchestrator(policy types.ExecutionPolicy, maxParallel int, outputPath string, stepSummaryPath string, trigger types.TriggerMetadata, environmentExporter exporter.IEnvironmentExporter, jsonClient json.IJsonClient, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		Policy:          policy,
		MaxParallel:     maxParallel,
		OutputPath:      outputPath,
		StepSummaryPath: stepSummaryPath,
		Trigger:         trigger,
		Exporter:        environmentExporter,
		JsonClient:      jsonClient,
		Now:             time.Now,
		Logger:          logger,
	}
}

// Run returns the run report and ErrEnvironmentsFailed when at least one
// environment failed. The report is written in both cases.
func (orchestrator *Orchestrator) Run(ctx context.Context, environments []types.Environment) (*types.RunReport, error) {
	if !orchestrator.Policy.IsValidExecutionPolicy() {
		return nil, fmt.Errorf("invalid execution policy %q", orchestrator.Policy)
	}

	startedAt := orchestrator.Now()
	orchestrator.Logger.Infof("Backing up %d environments with %s policy", len(environments), orchestrator.Policy)

	results := make([]types.EnvironmentResult, len(environments))
	switch orchestrator.Policy {
	case types.ExecutionPolicyParallel:
		orchestrator.runParallel(ctx, environments, results)
	default:
		orchestrator.runSequential(ctx, environments, results)
	}

	report := summary.Report(orchestrator.Policy, startedAt, results, orchestrator.Trigger)
	if err := orchestrator.writeReport(report); err != nil {
		return &report, err
	}

	if report.Totals.Failed > 0 {
		orchestrator.Logger.Errorf("%d of %d environments failed", report.Totals.Failed, report.Totals.Environments)
		return &report, types.ErrEnvironmentsFailed
	}
	logging.Success(orchestrator.Logger).Infof("All %d environments finished (%d skipped)", report.Totals.Environments, report.Totals.Skipped)
	return &report, nil
}

func (orchestrator *Orchestrator) runSequential(ctx context.Context, environments []types.Environment, results []types.EnvironmentResult) {
	for i, environment := range environments {
		results[i] = orchestrator.runEnvironment(ctx, environment)
	}
}

// Each goroutine only writes its own slot of results.
func (orchestrator *Orchestrator) runParallel(ctx context.Context, environments []types.Environment, results []types.EnvironmentResult) {
	group := errgroup.Group{}
	if orchestrator.MaxParallel > 0 {
		group.SetLimit(orchestrator.MaxParallel)
	}

	for i, environment := range environments {
		i, environment := i, environment
		group.Go(func() error {
			results[i] = orchestrator.runEnvironment(ctx, environment)
			return nil
		})
	}
	_ = group.Wait()
}

func (orchestrator *Orchestrator) runEnvironment(ctx context.Context, environment types.Environment) types.EnvironmentResult {
	logger := orchestrator.Logger.WithField("environment", environment.Name)

	if !environment.Enabled {
		logger.Info("Environment disabled, skipping")
		return types.EnvironmentResult{
			Environment:    environment.Name,
			SubscriptionID: environment.SubscriptionID,
			Status:         types.EnvironmentStatusSkipped,
		}
	}

	if err := ctx.Err(); err != nil {
		logger.Errorf("Run cancelled before environment started: %v", err)
		return types.EnvironmentResult{
			Environment:    environment.Name,
			SubscriptionID: environment.SubscriptionID,
			Status:         types.EnvironmentStatusFailed,
			Error:          err.Error(),
		}
	}

	result, err := orchestrator.Exporter.ExportEnvironment(ctx, environment)
	if err != nil {
		result.Status = types.EnvironmentStatusFailed
		if result.Error == "" {
			result.Error = err.Error()
		}
	}
	return result
}

func (orchestrator *Orchestrator) writeReport(report types.RunReport) error {
	reportPath := filepath.Join(orchestrator.OutputPath, summary.ReportFileName(report.RunTimestamp))
	if err := orchestrator.JsonClient.Export(report, reportPath); err != nil {
		return fmt.Errorf("error writing run report: %w", err)
	}
	orchestrator.Logger.Infof("Run report written to %s", reportPath)

	if orchestrator.StepSummaryPath == "" {
		return nil
	}
	if err := summary.AppendStepSummary(orchestrator.StepSummaryPath, summary.StepSummary(report)); err != nil {
		orchestrator.Logger.Warnf("Could not write step summary: %v", err)
	}
	return nil
}
