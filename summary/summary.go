package summary

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/azure/arm-template-backup/types"
)

func FileName(timestamp string) string {
	return fmt.Sprintf("backup_summary_%s.json", timestamp)
}

func ReportFileName(timestamp string) string {
	return fmt.Sprintf("backup_report_%s.json", timestamp)
}

// Summarize folds the export records of one environment run.
func Summarize(environment types.Environment, startedAt time.Time, records []types.ExportRecord, trigger types.TriggerMetadata) types.SummaryRecord {
	successful := lo.CountBy(records, func(record types.ExportRecord) bool {
		return record.Success
	})

	return types.SummaryRecord{
		Environment:     environment.Name,
		SubscriptionID:  environment.SubscriptionID,
		BackupTimestamp: startedAt.UTC().Format(types.TimestampFormat),
		BackupDate:      startedAt.UTC().Format(time.UnixDate),
		Summary: types.SummaryCounts{
			SuccessfulExports:   successful,
			FailedExports:       len(records) - successful,
			TotalResourceGroups: len(records),
		},
		TriggeredBy: trigger.TriggeredBy,
		CommitSHA:   trigger.CommitSHA,
	}
}

// Report folds every environment result of a run. Results keep their input order.
func Report(policy types.ExecutionPolicy, startedAt time.Time, results []types.EnvironmentResult, trigger types.TriggerMetadata) types.RunReport {
	totals := lo.Reduce(results, func(totals types.RunTotals, result types.EnvironmentResult, _ int) types.RunTotals {
		totals.Environments++
		switch result.Status {
		case types.EnvironmentStatusSuccess:
			totals.Succeeded++
		case types.EnvironmentStatusSkipped:
			totals.Skipped++
		default:
			totals.Failed++
		}
		if result.Summary != nil {
			totals.SuccessfulExports += result.Summary.Summary.SuccessfulExports
			totals.FailedExports += result.Summary.Summary.FailedExports
			totals.TotalResourceGroups += result.Summary.Summary.TotalResourceGroups
		}
		return totals
	}, types.RunTotals{})

	return types.RunReport{
		RunTimestamp: startedAt.UTC().Format(types.TimestampFormat),
		Policy:       policy,
		Environments: results,
		Totals:       totals,
		TriggeredBy:  trigger.TriggeredBy,
		CommitSHA:    trigger.CommitSHA,
	}
}

func statusMarker(status types.EnvironmentStatus) string {
	switch status {
	case types.EnvironmentStatusSuccess:
		return "✅"
	case types.EnvironmentStatusSkipped:
		return "⏭️"
	default:
		return "❌"
	}
}

// StepSummary renders the report as a Markdown job summary.
func StepSummary(report types.RunReport) string {
	var builder strings.Builder

	builder.WriteString("## ARM Template Backup\n\n")
	builder.WriteString("| Environment | Subscription | Status | Successful | Failed | Total |\n")
	builder.WriteString("|-------------|--------------|--------|------------|--------|-------|\n")
	for _, result := range report.Environments {
		counts := types.SummaryCounts{}
		if result.Summary != nil {
			counts = result.Summary.Summary
		}
		fmt.Fprintf(&builder, "| %s | %s | %s %s | %d | %d | %d |\n",
			result.Environment,
			result.SubscriptionID,
			statusMarker(result.Status),
			result.Status,
			counts.SuccessfulExports,
			counts.FailedExports,
			counts.TotalResourceGroups,
		)
	}

	fmt.Fprintf(&builder, "\n**Policy:** %s | **Triggered by:** %s | **Commit:** %s\n", report.Policy, report.TriggeredBy, report.CommitSHA)

	for _, result := range report.Environments {
		if result.Error != "" {
			fmt.Fprintf(&builder, "\n> %s: %s\n", result.Environment, result.Error)
		}
	}
	return builder.String()
}

func AppendStepSummary(filePath string, content string) error {
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error opening step summary %s: %w", filePath, err)
	}
	defer file.Close()

	if _, err := file.WriteString(content); err != nil {
		return fmt.Errorf("error writing step summary %s: %w", filePath, err)
	}
	return nil
}
