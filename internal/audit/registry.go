package audit

import (
	"fmt"
	"path/filepath"
	"time"
)

// ResourceKind selects the checker a resource is routed to.
type ResourceKind string

// Resource kinds.
const (
	ResourceKindDirectory          ResourceKind = "directory"
	ResourceKindFreshFile          ResourceKind = "fresh_file"
	ResourceKindStructuredFile     ResourceKind = "structured_file"
	ResourceKindPairedArtifact     ResourceKind = "paired_artifact"
	ResourceKindAppendLog          ResourceKind = "append_log"
	ResourceKindSchedulerTaskGroup ResourceKind = "scheduler_task_group"
)

// StageName orders checker execution and report assembly.
type StageName string

// Stages in registry order.
const (
	StageFolders   StageName = "folders"
	StageIngest    StageName = "ingest"
	StagePairs     StageName = "pairs"
	StageEngine    StageName = "engine"
	StageLogs      StageName = "logs"
	StageAnalytics StageName = "analytics"
	StageScheduler StageName = "scheduler"
)

// NumericRange is a closed interval constraint on a structured field.
type NumericRange struct {
	Minimum float64
	Maximum float64
}

// Contains reports whether the value lies within the closed interval.
func (numericRange NumericRange) Contains(value float64) bool {
	return value >= numericRange.Minimum && value <= numericRange.Maximum
}

// Resource declares one pipeline dependency subject to audit. Resources are
// built once per run and read-only thereafter.
type Resource struct {
	ID               string
	Kind             ResourceKind
	Stage            StageName
	Locator          string
	SecondaryLocator string
	FreshnessBudget  time.Duration
	RequiredKeys     []string
	RangeKey         string
	Range            *NumericRange
	NumericContent   bool
	MissingLevel     FindingLevel
}

// Pipeline layout constants.
const (
	agentsDirectoryNameConstant    = "agents"
	dataDirectoryNameConstant      = "data"
	logsDirectoryNameConstant      = "logs"
	reportsDirectoryNameConstant   = "reports"
	derivedDirectoryNameConstant   = "derived"
	analyticsDirectoryPathConstant = "reports/analytics"

	sentimentFilePathConstant = "data/sentiment_index.txt"
	headlinesFilePathConstant = "data/headlines.csv"
	flowsFilePathConstant     = "data/flows_btc.json"
	pressureFilePathConstant  = "data/pressure_btc.json"

	engineScriptPathConstant     = "scripts/mirror_loop.py"
	heartbeatFilePathConstant    = "logs/engine_heartbeat.txt"
	runLogFilePathConstant       = "logs/mirror_loop_unified_run.csv"
	decisionsLogFilePathConstant = "logs/mirror_loop_unified_decisions.jsonl"

	pressureRangeKeyConstant = "pressure"

	primaryArtifactSuffixConstant   = "_A.json"
	secondaryArtifactSuffixConstant = "_B.json"

	pairedResourceTemplateConstant = "pair:%s"
)

// FolderSpine lists the directories the pipeline cannot run without.
var FolderSpine = []string{
	agentsDirectoryNameConstant,
	dataDirectoryNameConstant,
	logsDirectoryNameConstant,
	reportsDirectoryNameConstant,
	derivedDirectoryNameConstant,
}

// TrackedInstruments lists the instruments carrying paired agent artifacts.
var TrackedInstruments = []string{"BTC", "ETH", "SOL", "SPX", "NDX", "DXY", "GOLD", "US10Y"}

// RunLogRequiredColumns is the tabular run log header contract. Presence is
// checked order-independently, so producers may append extra columns.
var RunLogRequiredColumns = []string{
	"timestamp_utc", "asset", "price", "C_eff", "phase_angle_deg",
	"volume_ratio", "signal", "size_band", "trap_T",
}

// FlowsRequiredKeys are the required keys of the flows ingest document.
var FlowsRequiredKeys = []string{"funding", "liq_skew", "oi"}

// PressureRequiredKeys are the required keys of the pressure ingest document.
var PressureRequiredKeys = []string{"components", "pressure"}

// PairedVectorKey and related constants name the compound schema of a primary
// agent artifact.
const (
	PairedVectorKey     = "phase_vector"
	PairedVectorLength  = 5
	PairedAlignmentKey  = "tf_alignment"
	PairedIndicatorsKey = "indicators"
)

// PairedAlignmentSubKeys are the required timeframe sub-fields.
var PairedAlignmentSubKeys = []string{"H4", "H1"}

// PairedIndicatorSubKeys are the required indicator sub-fields.
var PairedIndicatorSubKeys = []string{"rsi", "macd", "ema"}

// Scheduler matching constants.
const (
	SchedulerProjectMarker = "oprt"

	SchedulerRoleHourly = "hourly"
	SchedulerRoleDaily  = "daily"
)

// SchedulerHourlyMarkers match timer names belonging to the hourly cadence.
var SchedulerHourlyMarkers = []string{"loop", "hourly", "chain"}

// SchedulerDailyMarkers match timer names belonging to the end-of-day cadence.
var SchedulerDailyMarkers = []string{"eod", "daily"}

// RegistryOptions parameterize registry construction.
type RegistryOptions struct {
	Root         string
	IngestBudget time.Duration
	LogBudget    time.Duration
}

// BuildRegistry declares every audited resource for the pipeline root, in the
// order checkers run and the report presents them. Construction never fails;
// unresolved paths are just descriptors later reported as missing.
func BuildRegistry(options RegistryOptions) []Resource {
	var registry []Resource

	for _, folderName := range FolderSpine {
		registry = append(registry, Resource{
			ID:           folderName,
			Kind:         ResourceKindDirectory,
			Stage:        StageFolders,
			Locator:      filepath.Join(options.Root, folderName),
			MissingLevel: FindingLevelError,
		})
	}

	registry = append(registry,
		Resource{
			ID:              sentimentFilePathConstant,
			Kind:            ResourceKindFreshFile,
			Stage:           StageIngest,
			Locator:         filepath.Join(options.Root, sentimentFilePathConstant),
			FreshnessBudget: options.IngestBudget,
			NumericContent:  true,
			MissingLevel:    FindingLevelWarn,
		},
		Resource{
			ID:              headlinesFilePathConstant,
			Kind:            ResourceKindFreshFile,
			Stage:           StageIngest,
			Locator:         filepath.Join(options.Root, headlinesFilePathConstant),
			FreshnessBudget: options.IngestBudget,
			MissingLevel:    FindingLevelWarn,
		},
		Resource{
			ID:              flowsFilePathConstant,
			Kind:            ResourceKindStructuredFile,
			Stage:           StageIngest,
			Locator:         filepath.Join(options.Root, flowsFilePathConstant),
			FreshnessBudget: options.IngestBudget,
			RequiredKeys:    FlowsRequiredKeys,
			MissingLevel:    FindingLevelWarn,
		},
		Resource{
			ID:              pressureFilePathConstant,
			Kind:            ResourceKindStructuredFile,
			Stage:           StageIngest,
			Locator:         filepath.Join(options.Root, pressureFilePathConstant),
			FreshnessBudget: options.IngestBudget,
			RequiredKeys:    PressureRequiredKeys,
			RangeKey:        pressureRangeKeyConstant,
			Range:           &NumericRange{Minimum: -1, Maximum: 1},
			MissingLevel:    FindingLevelWarn,
		},
	)

	for _, instrumentName := range TrackedInstruments {
		registry = append(registry, Resource{
			ID:               fmt.Sprintf(pairedResourceTemplateConstant, instrumentName),
			Kind:             ResourceKindPairedArtifact,
			Stage:            StagePairs,
			Locator:          filepath.Join(options.Root, agentsDirectoryNameConstant, instrumentName+primaryArtifactSuffixConstant),
			SecondaryLocator: filepath.Join(options.Root, agentsDirectoryNameConstant, instrumentName+secondaryArtifactSuffixConstant),
			MissingLevel:     FindingLevelWarn,
		})
	}

	registry = append(registry, Resource{
		ID:           engineScriptPathConstant,
		Kind:         ResourceKindFreshFile,
		Stage:        StageEngine,
		Locator:      filepath.Join(options.Root, engineScriptPathConstant),
		MissingLevel: FindingLevelWarn,
	})

	registry = append(registry,
		Resource{
			ID:              runLogFilePathConstant,
			Kind:            ResourceKindAppendLog,
			Stage:           StageLogs,
			Locator:         filepath.Join(options.Root, runLogFilePathConstant),
			FreshnessBudget: options.LogBudget,
			RequiredKeys:    RunLogRequiredColumns,
			MissingLevel:    FindingLevelWarn,
		},
		Resource{
			ID:              decisionsLogFilePathConstant,
			Kind:            ResourceKindAppendLog,
			Stage:           StageLogs,
			Locator:         filepath.Join(options.Root, decisionsLogFilePathConstant),
			FreshnessBudget: options.LogBudget,
			MissingLevel:    FindingLevelWarn,
		},
	)

	registry = append(registry, Resource{
		ID:              analyticsDirectoryPathConstant,
		Kind:            ResourceKindDirectory,
		Stage:           StageAnalytics,
		Locator:         filepath.Join(options.Root, analyticsDirectoryPathConstant),
		FreshnessBudget: options.LogBudget,
		MissingLevel:    FindingLevelWarn,
	})

	registry = append(registry, Resource{
		ID:           SchedulerProjectMarker,
		Kind:         ResourceKindSchedulerTaskGroup,
		Stage:        StageScheduler,
		Locator:      SchedulerProjectMarker,
		MissingLevel: FindingLevelWarn,
	})

	return registry
}
