package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	reportFileNameTemplateConstant       = "sentinel_report_%s.json"
	reportDisambiguatedTemplateConstant  = "sentinel_report_%s_%d.json"
	reportTimestampLayoutConstant        = "20060102T150405Z"
	reportFilePermissionsConstant        = os.FileMode(0o644)
	reportEncodeErrorTemplateConstant    = "failed to encode audit report: %w"
	reportWriteErrorTemplateConstant     = "failed to persist audit report at %s: %w"
	reportCollisionErrorTemplateConstant = "report names exhausted under %s for timestamp %s"
	maxReportNameAttemptsConstant        = 10
)

// AssembleReport builds the immutable audit report from the ordered finding
// sequence. Timestamps are normalized to UTC.
func AssembleReport(startedAt time.Time, completedAt time.Time, root string, findings []Finding, stageDetails map[string]any) AuditReport {
	return AuditReport{
		StartedAt:    startedAt.UTC(),
		CompletedAt:  completedAt.UTC(),
		Root:         root,
		Findings:     findings,
		StageDetails: stageDetails,
		Status:       ComputeStatus(findings),
	}
}

// WriteReport persists the report as one JSON document at a timestamped path
// under the directory, returning the path. Each run gets a fresh artifact:
// the file is created exclusively, and a second run completing within the
// same second receives a numeric suffix instead of overwriting the first.
func WriteReport(report AuditReport, reportDirectory string) (string, error) {
	encodedReport, encodeError := json.MarshalIndent(report, "", "  ")
	if encodeError != nil {
		return "", fmt.Errorf(reportEncodeErrorTemplateConstant, encodeError)
	}

	directoryError := os.MkdirAll(reportDirectory, 0o755)
	if directoryError != nil {
		return "", fmt.Errorf(reportWriteErrorTemplateConstant, reportDirectory, directoryError)
	}

	reportTimestamp := report.CompletedAt.UTC().Format(reportTimestampLayoutConstant)
	for nameAttempt := 0; nameAttempt < maxReportNameAttemptsConstant; nameAttempt++ {
		reportFileName := fmt.Sprintf(reportFileNameTemplateConstant, reportTimestamp)
		if nameAttempt > 0 {
			reportFileName = fmt.Sprintf(reportDisambiguatedTemplateConstant, reportTimestamp, nameAttempt)
		}
		reportPath := filepath.Join(reportDirectory, reportFileName)

		reportFile, openError := os.OpenFile(reportPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, reportFilePermissionsConstant)
		if openError != nil {
			if errors.Is(openError, os.ErrExist) {
				continue
			}
			return "", fmt.Errorf(reportWriteErrorTemplateConstant, reportPath, openError)
		}

		_, writeError := reportFile.Write(encodedReport)
		closeError := reportFile.Close()
		if writeError != nil {
			return "", fmt.Errorf(reportWriteErrorTemplateConstant, reportPath, writeError)
		}
		if closeError != nil {
			return "", fmt.Errorf(reportWriteErrorTemplateConstant, reportPath, closeError)
		}
		return reportPath, nil
	}

	return "", fmt.Errorf(reportCollisionErrorTemplateConstant, reportDirectory, reportTimestamp)
}
