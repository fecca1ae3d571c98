package summary

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azure/arm-template-backup/types"
)

var startedAt = time.Date(2026, 10, 14, 8, 5, 9, 0, time.UTC)

func TestSummarize_CountsAddUp(t *testing.T) {
	environment := types.Environment{Name: "SUB1", SubscriptionID: "sub-1"}
	records := []types.ExportRecord{
		{ResourceGroup: "rg-a", Success: true, Method: types.ExportMethodResourceGroupExport},
		{ResourceGroup: "rg-b", Success: false, Method: types.ExportMethodNone},
		{ResourceGroup: "rg-c", Success: true, Method: types.ExportMethodDeploymentHistory},
	}

	record := Summarize(environment, startedAt, records, types.TriggerMetadata{TriggeredBy: "schedule", CommitSHA: "abc123"})

	assert.Equal(t, "SUB1", record.Environment)
	assert.Equal(t, "sub-1", record.SubscriptionID)
	assert.Equal(t, "20261014-080509", record.BackupTimestamp)
	assert.Equal(t, "Wed Oct 14 08:05:09 UTC 2026", record.BackupDate)
	assert.Equal(t, types.SummaryCounts{SuccessfulExports: 2, FailedExports: 1, TotalResourceGroups: 3}, record.Summary)
	assert.Equal(t, record.Summary.TotalResourceGroups, record.Summary.SuccessfulExports+record.Summary.FailedExports)
	assert.Equal(t, "schedule", record.TriggeredBy)
	assert.Equal(t, "abc123", record.CommitSHA)
}

func TestSummarize_ZeroResourceGroups(t *testing.T) {
	record := Summarize(types.Environment{Name: "DEV"}, startedAt, nil, types.TriggerMetadata{})

	assert.Equal(t, types.SummaryCounts{}, record.Summary)
}

func TestSummarize_LocalTimeIsReportedInUTC(t *testing.T) {
	local := startedAt.In(time.FixedZone("CEST", 2*60*60))

	record := Summarize(types.Environment{Name: "DEV"}, local, nil, types.TriggerMetadata{})

	assert.Equal(t, "20261014-080509", record.BackupTimestamp)
}

func TestReport_Totals(t *testing.T) {
	test := Summarize(types.Environment{Name: "TEST"}, startedAt, []types.ExportRecord{{Success: true}, {Success: false}}, types.TriggerMetadata{})
	results := []types.EnvironmentResult{
		{Environment: "TEST", Status: types.EnvironmentStatusSuccess, Summary: &test},
		{Environment: "DEV", Status: types.EnvironmentStatusFailed, Error: "context mismatch"},
		{Environment: "PROD", Status: types.EnvironmentStatusSkipped},
	}

	report := Report(types.ExecutionPolicyParallel, startedAt, results, types.TriggerMetadata{TriggeredBy: "push", CommitSHA: "def"})

	assert.Equal(t, "20261014-080509", report.RunTimestamp)
	assert.Equal(t, types.RunTotals{
		Environments:        3,
		Succeeded:           1,
		Failed:              1,
		Skipped:             1,
		SuccessfulExports:   1,
		FailedExports:       1,
		TotalResourceGroups: 2,
	}, report.Totals)
	assert.Equal(t, []string{"TEST", "DEV", "PROD"}, []string{report.Environments[0].Environment, report.Environments[1].Environment, report.Environments[2].Environment})
}

func TestStepSummary(t *testing.T) {
	test := Summarize(types.Environment{Name: "TEST", SubscriptionID: "sub-1"}, startedAt, []types.ExportRecord{{Success: true}}, types.TriggerMetadata{})
	report := Report(types.ExecutionPolicySequential, startedAt, []types.EnvironmentResult{
		{Environment: "TEST", SubscriptionID: "sub-1", Status: types.EnvironmentStatusSuccess, Summary: &test},
		{Environment: "DEV", SubscriptionID: "sub-2", Status: types.EnvironmentStatusFailed, Error: "login failed"},
	}, types.TriggerMetadata{TriggeredBy: "workflow_dispatch", CommitSHA: "abc"})

	markdown := StepSummary(report)

	assert.Contains(t, markdown, "| TEST | sub-1 | ✅ success | 1 | 0 | 1 |")
	assert.Contains(t, markdown, "| DEV | sub-2 | ❌ failed | 0 | 0 | 0 |")
	assert.Contains(t, markdown, "**Triggered by:** workflow_dispatch")
	assert.Contains(t, markdown, "> DEV: login failed")
}

func TestAppendStepSummary(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "step_summary.md")
	require.NoError(t, os.WriteFile(filePath, []byte("existing\n"), 0644))

	require.NoError(t, AppendStepSummary(filePath, "appended\n"))

	content, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, "existing\nappended\n", string(content))
}

func TestFileNames(t *testing.T) {
	assert.Equal(t, "backup_summary_20261014-080509.json", FileName("20261014-080509"))
	assert.Equal(t, "backup_report_20261014-080509.json", ReportFileName("20261014-080509"))
}
