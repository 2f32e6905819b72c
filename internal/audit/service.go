package audit

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oprt/sentinel/internal/execshell"
)

const (
	noAnalyticsMessageConstant         = "no analytics subdirectories"
	heartbeatMessageTemplateConstant   = "heartbeat: %s"
	smokeOKMessageTemplateConstant     = "smoke run ok, tail: %s"
	smokeFailedMessageTemplateConstant = "smoke run failed: %v"
	smokeExitMessageTemplateConstant   = "smoke run exited with code %d"
	smokeResourceIDConstant            = "smoke"
	engineSmokeArgumentConstant        = "--once"
	tailLineSeparatorConstant          = " | "

	stageStartedLogMessageConstant  = "stage started"
	reportWrittenLogMessageConstant = "report written"
	stageLogFieldNameConstant       = "stage"
	reportPathLogFieldNameConstant  = "path"
	statusLogFieldNameConstant      = "status"
)

// StageSummary counts findings per level within one stage.
type StageSummary struct {
	OK    int `json:"ok"`
	Info  int `json:"info"`
	Warn  int `json:"warn"`
	Error int `json:"error"`
}

// RunOptions parameterize one checkup run.
type RunOptions struct {
	Root         string
	IngestBudget time.Duration
	LogBudget    time.Duration
	TailLines    int
	SmokeTest    bool
	SmokeTimeout time.Duration
}

// Service executes the checkup: registry construction, the single evaluation
// pass in registry order, roll-up, and report persistence.
type Service struct {
	Logger       *zap.Logger
	FileSystem   FileSystem
	Clock        Clock
	Scheduler    SchedulerClient
	EngineRunner EngineRunner
	FindingSink  FindingSink
}

type findingCollector struct {
	sink           FindingSink
	findings       []Finding
	stageSummaries map[string]*StageSummary
}

func newFindingCollector(sink FindingSink) *findingCollector {
	return &findingCollector{sink: sink, stageSummaries: make(map[string]*StageSummary)}
}

func (collector *findingCollector) add(stage StageName, findings ...Finding) {
	for _, finding := range findings {
		collector.findings = append(collector.findings, finding)
		if collector.sink != nil {
			collector.sink.EmitFinding(finding)
		}

		stageSummary, summaryPresent := collector.stageSummaries[string(stage)]
		if !summaryPresent {
			stageSummary = &StageSummary{}
			collector.stageSummaries[string(stage)] = stageSummary
		}
		switch finding.Level {
		case FindingLevelOK:
			stageSummary.OK++
		case FindingLevelInfo:
			stageSummary.Info++
		case FindingLevelWarn:
			stageSummary.Warn++
		case FindingLevelError:
			stageSummary.Error++
		}
	}
}

// Run performs one audit pass and persists the report under the pipeline's
// reports directory. Every check failure is recovered into a finding; only a
// report that cannot be persisted returns an error.
func (service *Service) Run(executionContext context.Context, options RunOptions) (AuditReport, string, error) {
	startedAt := service.Clock.Now().UTC()

	registry := BuildRegistry(RegistryOptions{
		Root:         options.Root,
		IngestBudget: options.IngestBudget,
		LogBudget:    options.LogBudget,
	})

	freshnessChecker := FreshnessChecker{FileSystem: service.FileSystem, Clock: service.Clock}
	schemaValidator := SchemaValidator{FileSystem: service.FileSystem, Clock: service.Clock}
	pairedValidator := PairedArtifactValidator{FileSystem: service.FileSystem, Clock: service.Clock}
	logChecker := LogContinuityChecker{FileSystem: service.FileSystem, Clock: service.Clock}
	scheduleInspector := ScheduleInspector{Client: service.Scheduler, Clock: service.Clock}

	collector := newFindingCollector(service.FindingSink)
	stageDetails := make(map[string]any)

	currentStage := StageName("")
	for _, resource := range registry {
		if resource.Stage != currentStage {
			currentStage = resource.Stage
			service.Logger.Debug(stageStartedLogMessageConstant, zap.String(stageLogFieldNameConstant, string(currentStage)))
		}

		switch resource.Kind {
		case ResourceKindDirectory:
			if resource.Stage == StageAnalytics {
				collector.add(resource.Stage, service.checkAnalytics(freshnessChecker, resource))
				continue
			}
			collector.add(resource.Stage, freshnessChecker.Check(resource))

		case ResourceKindFreshFile:
			freshnessFinding := freshnessChecker.Check(resource)
			collector.add(resource.Stage, freshnessFinding)
			if resource.NumericContent && freshnessFinding.Message != missingMessageConstant {
				collector.add(resource.Stage, schemaValidator.CheckNumericContent(resource))
			}
			if resource.Stage == StageEngine && freshnessFinding.Message != missingMessageConstant {
				service.addHeartbeat(collector, stageDetails, options.Root)
			}

		case ResourceKindStructuredFile:
			freshnessFinding := freshnessChecker.Check(resource)
			collector.add(resource.Stage, freshnessFinding)
			if freshnessFinding.Message != missingMessageConstant {
				collector.add(resource.Stage, schemaValidator.CheckStructured(resource)...)
			}

		case ResourceKindPairedArtifact:
			collector.add(resource.Stage, pairedValidator.Check(resource))

		case ResourceKindAppendLog:
			if len(resource.RequiredKeys) > 0 {
				collector.add(resource.Stage, logChecker.CheckTabular(resource)...)
			} else {
				collector.add(resource.Stage, logChecker.CheckLineDelimited(resource)...)
			}

		case ResourceKindSchedulerTaskGroup:
			collector.add(resource.Stage, scheduleInspector.Check(executionContext, resource)...)
		}
	}

	if options.SmokeTest {
		service.runSmokeTest(executionContext, collector, stageDetails, options)
	}

	for stageName, stageSummary := range collector.stageSummaries {
		stageDetails[stageName] = *stageSummary
	}

	completedAt := service.Clock.Now().UTC()
	report := AssembleReport(startedAt, completedAt, options.Root, collector.findings, stageDetails)

	reportPath, writeError := WriteReport(report, filepath.Join(options.Root, reportsDirectoryNameConstant))
	if writeError != nil {
		return AuditReport{}, "", writeError
	}

	service.Logger.Info(reportWrittenLogMessageConstant,
		zap.String(reportPathLogFieldNameConstant, reportPath),
		zap.String(statusLogFieldNameConstant, string(report.Status)))

	return report, reportPath, nil
}

// checkAnalytics audits the most recently modified analytics subdirectory.
// A missing analytics directory or one without subdirectories is WARN, since
// ERROR stays reserved for the folder spine.
func (service *Service) checkAnalytics(freshnessChecker FreshnessChecker, resource Resource) Finding {
	directoryEntries, listError := service.FileSystem.ListDirectory(resource.Locator)
	if listError != nil {
		return Finding{
			Level:      resource.MissingLevel,
			ResourceID: resource.ID,
			Message:    missingMessageConstant,
			ProducedAt: service.Clock.Now().UTC(),
		}
	}

	var latestModifiedAt time.Time
	foundSubdirectory := false
	for _, directoryEntry := range directoryEntries {
		if !directoryEntry.IsDirectory {
			continue
		}
		if !foundSubdirectory || directoryEntry.ModifiedAt.After(latestModifiedAt) {
			latestModifiedAt = directoryEntry.ModifiedAt
			foundSubdirectory = true
		}
	}

	if !foundSubdirectory {
		return Finding{
			Level:      FindingLevelWarn,
			ResourceID: resource.ID,
			Message:    noAnalyticsMessageConstant,
			ProducedAt: service.Clock.Now().UTC(),
		}
	}

	return freshnessChecker.CheckModifiedAt(resource, latestModifiedAt)
}

// addHeartbeat surfaces the engine heartbeat's last line. Diagnostic only: a
// missing or empty heartbeat never produces a finding by itself.
func (service *Service) addHeartbeat(collector *findingCollector, stageDetails map[string]any, root string) {
	heartbeatContents, readError := service.FileSystem.ReadFile(filepath.Join(root, heartbeatFilePathConstant))
	if readError != nil {
		return
	}
	heartbeatLine := latestNonEmptyLine(string(heartbeatContents))
	if len(heartbeatLine) == 0 {
		return
	}

	stageDetails[heartbeatFilePathConstant] = heartbeatLine
	collector.add(StageEngine, Finding{
		Level:      FindingLevelInfo,
		ResourceID: heartbeatFilePathConstant,
		Message:    fmt.Sprintf(heartbeatMessageTemplateConstant, heartbeatLine),
		ProducedAt: service.Clock.Now().UTC(),
	})
}

// runSmokeTest invokes the engine once with a bounded wait. Timeout, launch
// failure, and nonzero exit all degrade to WARN.
func (service *Service) runSmokeTest(executionContext context.Context, collector *findingCollector, stageDetails map[string]any, options RunOptions) {
	smokeContext, cancelSmoke := context.WithTimeout(executionContext, options.SmokeTimeout)
	defer cancelSmoke()

	executionResult, executionError := service.EngineRunner.ExecuteEngine(smokeContext, execshell.CommandDetails{
		Arguments:        []string{filepath.Join(options.Root, engineScriptPathConstant), engineSmokeArgumentConstant},
		WorkingDirectory: options.Root,
	})

	producedAt := service.Clock.Now().UTC()

	if executionError != nil {
		message := fmt.Sprintf(smokeFailedMessageTemplateConstant, executionError)
		var commandFailure execshell.CommandFailedError
		if errors.As(executionError, &commandFailure) {
			message = fmt.Sprintf(smokeExitMessageTemplateConstant, commandFailure.Result.ExitCode)
		}
		collector.add(StageEngine, Finding{
			Level:      FindingLevelWarn,
			ResourceID: smokeResourceIDConstant,
			Message:    message,
			ProducedAt: producedAt,
		})
		return
	}

	outputTail := tailLines(executionResult.StandardOutput, options.TailLines)
	stageDetails[smokeResourceIDConstant] = outputTail
	collector.add(StageEngine, Finding{
		Level:      FindingLevelInfo,
		ResourceID: smokeResourceIDConstant,
		Message:    fmt.Sprintf(smokeOKMessageTemplateConstant, strings.Join(outputTail, tailLineSeparatorConstant)),
		ProducedAt: producedAt,
	})
}

func tailLines(output string, lineCount int) []string {
	var nonEmptyLines []string
	for _, outputLine := range strings.Split(output, "\n") {
		trimmedLine := strings.TrimSpace(outputLine)
		if len(trimmedLine) > 0 {
			nonEmptyLines = append(nonEmptyLines, trimmedLine)
		}
	}
	if lineCount > 0 && len(nonEmptyLines) > lineCount {
		nonEmptyLines = nonEmptyLines[len(nonEmptyLines)-lineCount:]
	}
	return nonEmptyLines
}
