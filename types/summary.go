package types

type SummaryCounts struct {
	SuccessfulExports   int `json:"successful_exports"`
	FailedExports       int `json:"failed_exports"`
	TotalResourceGroups int `json:"total_resource_groups"`
}

type SummaryRecord struct {
	Environment     string        `json:"environment"`
	SubscriptionID  string        `json:"subscription_id"`
	BackupTimestamp string        `json:"backup_timestamp"`
	BackupDate      string        `json:"backup_date"`
	Summary         SummaryCounts `json:"summary"`
	TriggeredBy     string        `json:"triggered_by"`
	CommitSHA       string        `json:"commit_sha"`
}

type TriggerMetadata struct {
	TriggeredBy string
	CommitSHA   string
}

type EnvironmentStatus string

const (
	EnvironmentStatusSuccess EnvironmentStatus = "success"
	EnvironmentStatusFailed  EnvironmentStatus = "failed"
	EnvironmentStatusSkipped EnvironmentStatus = "skipped"
)

type EnvironmentResult struct {
	Environment    string            `json:"environment"`
	SubscriptionID string            `json:"subscription_id"`
	Status         EnvironmentStatus `json:"status"`
	Summary        *SummaryRecord    `json:"summary,omitempty"`
	Exports        []ExportRecord    `json:"exports,omitempty"`
	Error          string            `json:"error,omitempty"`
}

type RunTotals struct {
	Environments        int `json:"environments"`
	Succeeded           int `json:"succeeded"`
	Failed              int `json:"failed"`
	Skipped             int `json:"skipped"`
	SuccessfulExports   int `json:"successful_exports"`
	FailedExports       int `json:"failed_exports"`
	TotalResourceGroups int `json:"total_resource_groups"`
}

type RunReport struct {
	RunTimestamp string              `json:"run_timestamp"`
	Policy       ExecutionPolicy     `json:"policy"`
	Environments []EnvironmentResult `json:"environments"`
	Totals       RunTotals           `json:"totals"`
	TriggeredBy  string              `json:"triggered_by"`
	CommitSHA    string              `json:"commit_sha"`
}
