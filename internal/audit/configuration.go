package audit

import "time"

// Configuration keys and defaults for the checkup command.
const (
	DefaultPipelineRootConstant = "/opt/oprt"

	defaultIngestBudgetMinutesConstant = 90
	defaultLogBudgetMinutesConstant    = 180
	defaultLogTailLinesConstant        = 3
	defaultSmokeTimeoutSecondsConstant = 120
	defaultLeaseStaleMinutesConstant   = 55
)

// CommandConfiguration captures the checkup command settings.
type CommandConfiguration struct {
	Root                string `mapstructure:"root"`
	IngestBudgetMinutes int    `mapstructure:"ingest_budget_minutes"`
	LogBudgetMinutes    int    `mapstructure:"log_budget_minutes"`
	LogTailLines        int    `mapstructure:"log_tail_lines"`
	SmokeTest           bool   `mapstructure:"smoke_test"`
	SmokeTimeoutSeconds int    `mapstructure:"smoke_timeout_seconds"`
	LeaseStaleMinutes   int    `mapstructure:"lease_stale_minutes"`
}

// DefaultCommandConfiguration returns the built-in checkup settings.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Root:                DefaultPipelineRootConstant,
		IngestBudgetMinutes: defaultIngestBudgetMinutesConstant,
		LogBudgetMinutes:    defaultLogBudgetMinutesConstant,
		LogTailLines:        defaultLogTailLinesConstant,
		SmokeTimeoutSeconds: defaultSmokeTimeoutSecondsConstant,
		LeaseStaleMinutes:   defaultLeaseStaleMinutesConstant,
	}
}

// RunOptionsFromConfiguration converts persisted settings into run options.
func RunOptionsFromConfiguration(configuration CommandConfiguration) RunOptions {
	return RunOptions{
		Root:         configuration.Root,
		IngestBudget: time.Duration(configuration.IngestBudgetMinutes) * time.Minute,
		LogBudget:    time.Duration(configuration.LogBudgetMinutes) * time.Minute,
		TailLines:    configuration.LogTailLines,
		SmokeTest:    configuration.SmokeTest,
		SmokeTimeout: time.Duration(configuration.SmokeTimeoutSeconds) * time.Second,
	}
}
