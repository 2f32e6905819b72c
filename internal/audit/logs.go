package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	headerIncompleteMessageTemplateConstant = "header incomplete, expected columns: %s"
	headerCompleteMessageConstant           = "header complete"
	emptyTailMessageConstant                = "parse failed: empty tail"
	tailParseFailedMessageTemplateConstant  = "parse failed: %v"
	latestRecordMessageTemplateConstant     = "latest record: signal=%v C_eff=%v phase_angle_deg=%v volume_ratio=%v trap_T=%v"

	decisionSignalFieldConstant      = "signal"
	decisionEffectiveFieldConstant   = "C_eff"
	decisionPhaseAngleFieldConstant  = "phase_angle_deg"
	decisionVolumeRatioFieldConstant = "volume_ratio"
	decisionTrapFieldConstant        = "trap_T"
)

// LogContinuityChecker validates the append-only run logs.
type LogContinuityChecker struct {
	FileSystem FileSystem
	Clock      Clock
}

// CheckTabular applies freshness plus the header contract to the CSV run log.
// All required columns must appear in the first row; order is irrelevant and
// extra columns are allowed. A missing column yields one WARN listing the
// canonical expected set.
func (checker LogContinuityChecker) CheckTabular(resource Resource) []Finding {
	freshnessFinding := FreshnessChecker{FileSystem: checker.FileSystem, Clock: checker.Clock}.Check(resource)
	findings := []Finding{freshnessFinding}
	if freshnessFinding.Message == missingMessageConstant {
		return findings
	}

	producedAt := checker.Clock.Now().UTC()

	logContents, readError := checker.FileSystem.ReadFile(resource.Locator)
	if readError != nil {
		return findings
	}

	headerColumns, headerError := parseHeaderRow(string(logContents))
	if headerError != nil || !headerContainsAll(headerColumns, resource.RequiredKeys) {
		findings = append(findings, Finding{
			Level:      FindingLevelWarn,
			ResourceID: resource.ID,
			Message:    fmt.Sprintf(headerIncompleteMessageTemplateConstant, strings.Join(resource.RequiredKeys, missingKeysSeparatorConstant)),
			ProducedAt: producedAt,
		})
		return findings
	}

	findings = append(findings, Finding{
		Level:      FindingLevelOK,
		ResourceID: resource.ID,
		Message:    headerCompleteMessageConstant,
		ProducedAt: producedAt,
	})
	return findings
}

// CheckLineDelimited applies freshness plus a latest-record parse to the
// JSONL decisions log. The OK finding embeds the fields operators inspect;
// an empty tail or unparseable final line is WARN, never fatal, since a
// concurrently-appending producer can leave partial writes.
func (checker LogContinuityChecker) CheckLineDelimited(resource Resource) []Finding {
	freshnessFinding := FreshnessChecker{FileSystem: checker.FileSystem, Clock: checker.Clock}.Check(resource)
	findings := []Finding{freshnessFinding}
	if freshnessFinding.Message == missingMessageConstant {
		return findings
	}

	producedAt := checker.Clock.Now().UTC()

	logContents, readError := checker.FileSystem.ReadFile(resource.Locator)
	if readError != nil {
		return findings
	}

	latestLine := latestNonEmptyLine(string(logContents))
	if len(latestLine) == 0 {
		findings = append(findings, Finding{
			Level:      FindingLevelWarn,
			ResourceID: resource.ID,
			Message:    emptyTailMessageConstant,
			ProducedAt: producedAt,
		})
		return findings
	}

	var latestRecord map[string]any
	parseError := json.Unmarshal([]byte(latestLine), &latestRecord)
	if parseError != nil {
		findings = append(findings, Finding{
			Level:      FindingLevelWarn,
			ResourceID: resource.ID,
			Message:    fmt.Sprintf(tailParseFailedMessageTemplateConstant, parseError),
			ProducedAt: producedAt,
		})
		return findings
	}

	findings = append(findings, Finding{
		Level:      FindingLevelOK,
		ResourceID: resource.ID,
		Message: fmt.Sprintf(latestRecordMessageTemplateConstant,
			latestRecord[decisionSignalFieldConstant],
			latestRecord[decisionEffectiveFieldConstant],
			latestRecord[decisionPhaseAngleFieldConstant],
			latestRecord[decisionVolumeRatioFieldConstant],
			latestRecord[decisionTrapFieldConstant]),
		ProducedAt: producedAt,
	})
	return findings
}

func parseHeaderRow(logContents string) ([]string, error) {
	csvReader := csv.NewReader(strings.NewReader(logContents))
	csvReader.FieldsPerRecord = -1
	headerRow, readError := csvReader.Read()
	if readError != nil {
		return nil, readError
	}
	return headerRow, nil
}

func headerContainsAll(headerColumns []string, requiredColumns []string) bool {
	presentColumns := make(map[string]bool, len(headerColumns))
	for _, columnName := range headerColumns {
		presentColumns[strings.TrimSpace(columnName)] = true
	}
	for _, requiredColumn := range requiredColumns {
		if !presentColumns[requiredColumn] {
			return false
		}
	}
	return true
}

func latestNonEmptyLine(logContents string) string {
	logLines := strings.Split(logContents, "\n")
	for lineIndex := len(logLines) - 1; lineIndex >= 0; lineIndex-- {
		trimmedLine := strings.TrimSpace(logLines[lineIndex])
		if len(trimmedLine) > 0 {
			return trimmedLine
		}
	}
	return ""
}
