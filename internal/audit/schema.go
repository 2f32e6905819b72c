package audit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	parseFailedMessageTemplateConstant  = "parse failed: %v"
	missingKeysMessageTemplateConstant  = "missing required keys: %s"
	rangeInvalidMessageTemplateConstant = "%s invalid or out of range"
	rangeValidMessageTemplateConstant   = "schema complete (%s=%g)"
	schemaCompleteMessageConstant       = "schema complete"
	notNumericMessageTemplateConstant   = "not numeric: %q"
	numericValueMessageTemplateConstant = "value %g"
	missingKeysSeparatorConstant        = ", "
)

// SchemaValidator checks structured documents for required keys and ranges.
type SchemaValidator struct {
	FileSystem FileSystem
	Clock      Clock
}

// CheckStructured validates a JSON document against the resource's required
// keys and optional range-bounded field.
//
// All absent keys are collected into one sorted de-duplicated WARN; a range
// violation, non-numeric value, or absent range key is one WARN; a document
// that does not parse is a distinct parse-failure WARN. Boundary values of
// the closed interval are valid.
func (validator SchemaValidator) CheckStructured(resource Resource) []Finding {
	producedAt := validator.Clock.Now().UTC()

	documentContents, readError := validator.FileSystem.ReadFile(resource.Locator)
	if readError != nil {
		return []Finding{{
			Level:      resource.MissingLevel,
			ResourceID: resource.ID,
			Message:    missingMessageConstant,
			ProducedAt: producedAt,
		}}
	}

	var parsedDocument map[string]any
	parseError := json.Unmarshal(documentContents, &parsedDocument)
	if parseError != nil {
		return []Finding{{
			Level:      FindingLevelWarn,
			ResourceID: resource.ID,
			Message:    fmt.Sprintf(parseFailedMessageTemplateConstant, parseError),
			ProducedAt: producedAt,
		}}
	}

	var findings []Finding

	missingKeys := collectMissingKeys(parsedDocument, resource.RequiredKeys)
	if len(missingKeys) > 0 {
		findings = append(findings, Finding{
			Level:      FindingLevelWarn,
			ResourceID: resource.ID,
			Message:    fmt.Sprintf(missingKeysMessageTemplateConstant, strings.Join(missingKeys, missingKeysSeparatorConstant)),
			ProducedAt: producedAt,
		})
	}

	if len(resource.RangeKey) > 0 && resource.Range != nil {
		rangeFinding := validator.checkRange(resource, parsedDocument, producedAt)
		if rangeFinding.Level == FindingLevelWarn || len(findings) == 0 {
			findings = append(findings, rangeFinding)
		}
	} else if len(findings) == 0 {
		findings = append(findings, Finding{
			Level:      FindingLevelOK,
			ResourceID: resource.ID,
			Message:    schemaCompleteMessageConstant,
			ProducedAt: producedAt,
		})
	}

	return findings
}

// CheckNumericContent validates a free-text numeric ingest file, surfacing
// the parsed value in the OK finding for operator inspection.
func (validator SchemaValidator) CheckNumericContent(resource Resource) Finding {
	producedAt := validator.Clock.Now().UTC()

	fileContents, readError := validator.FileSystem.ReadFile(resource.Locator)
	if readError != nil {
		return Finding{
			Level:      resource.MissingLevel,
			ResourceID: resource.ID,
			Message:    missingMessageConstant,
			ProducedAt: producedAt,
		}
	}

	trimmedContents := strings.TrimSpace(string(fileContents))
	numericValue, parseError := strconv.ParseFloat(trimmedContents, 64)
	if parseError != nil {
		return Finding{
			Level:      FindingLevelWarn,
			ResourceID: resource.ID,
			Message:    fmt.Sprintf(notNumericMessageTemplateConstant, trimmedContents),
			ProducedAt: producedAt,
		}
	}

	return Finding{
		Level:      FindingLevelOK,
		ResourceID: resource.ID,
		Message:    fmt.Sprintf(numericValueMessageTemplateConstant, numericValue),
		ProducedAt: producedAt,
	}
}

func (validator SchemaValidator) checkRange(resource Resource, parsedDocument map[string]any, producedAt time.Time) Finding {
	rawValue, keyPresent := parsedDocument[resource.RangeKey]
	numericValue, isNumeric := rawValue.(float64)

	if !keyPresent || !isNumeric || !resource.Range.Contains(numericValue) {
		return Finding{
			Level:      FindingLevelWarn,
			ResourceID: resource.ID,
			Message:    fmt.Sprintf(rangeInvalidMessageTemplateConstant, resource.RangeKey),
			ProducedAt: producedAt,
		}
	}

	return Finding{
		Level:      FindingLevelOK,
		ResourceID: resource.ID,
		Message:    fmt.Sprintf(rangeValidMessageTemplateConstant, resource.RangeKey, numericValue),
		ProducedAt: producedAt,
	}
}

// collectMissingKeys returns the required keys absent from the document,
// sorted alphabetically with duplicates removed.
func collectMissingKeys(parsedDocument map[string]any, requiredKeys []string) []string {
	seenKeys := make(map[string]bool, len(requiredKeys))
	var missingKeys []string
	for _, requiredKey := range requiredKeys {
		if seenKeys[requiredKey] {
			continue
		}
		seenKeys[requiredKey] = true
		if _, keyPresent := parsedDocument[requiredKey]; !keyPresent {
			missingKeys = append(missingKeys, requiredKey)
		}
	}
	sort.Strings(missingKeys)
	return missingKeys
}
