package audit

import (
	"encoding/json"
	"fmt"
)

const (
	pairMissingMessageConstant             = "missing A or B"
	pairParseFailedMessageTemplateConstant = "primary parse failed: %v"
	pairCompleteMessageTemplateConstant    = "schema complete (vector length %d, alignment %t, indicators %t)"
	pairIncompleteMessageTemplateConstant  = "schema incomplete (vector length %d, alignment %t, indicators %t)"
)

// PairedArtifactValidator validates a primary/secondary artifact bundle.
type PairedArtifactValidator struct {
	FileSystem FileSystem
	Clock      Clock
}

// Check validates the pair declared by the resource.
//
// Either file absent: one WARN without content inspection. Both present: the
// primary must carry the phase vector at its exact length, both alignment
// timeframes, and all three indicators. OK and WARN both carry the measured
// diagnostics so operators see which sub-condition failed. An incomplete but
// present pair is degraded, never broken, so this check cannot produce ERROR.
func (validator PairedArtifactValidator) Check(resource Resource) Finding {
	producedAt := validator.Clock.Now().UTC()

	_, primaryStatError := validator.FileSystem.Stat(resource.Locator)
	_, secondaryStatError := validator.FileSystem.Stat(resource.SecondaryLocator)
	if primaryStatError != nil || secondaryStatError != nil {
		return Finding{
			Level:      FindingLevelWarn,
			ResourceID: resource.ID,
			Message:    pairMissingMessageConstant,
			ProducedAt: producedAt,
		}
	}

	primaryContents, readError := validator.FileSystem.ReadFile(resource.Locator)
	if readError != nil {
		return Finding{
			Level:      FindingLevelWarn,
			ResourceID: resource.ID,
			Message:    pairMissingMessageConstant,
			ProducedAt: producedAt,
		}
	}

	var primaryDocument map[string]any
	parseError := json.Unmarshal(primaryContents, &primaryDocument)
	if parseError != nil {
		return Finding{
			Level:      FindingLevelWarn,
			ResourceID: resource.ID,
			Message:    fmt.Sprintf(pairParseFailedMessageTemplateConstant, parseError),
			ProducedAt: producedAt,
		}
	}

	vectorLength := measureVectorLength(primaryDocument)
	alignmentComplete := blockHasSubKeys(primaryDocument, PairedAlignmentKey, PairedAlignmentSubKeys)
	indicatorsComplete := blockHasSubKeys(primaryDocument, PairedIndicatorsKey, PairedIndicatorSubKeys)

	if vectorLength == PairedVectorLength && alignmentComplete && indicatorsComplete {
		return Finding{
			Level:      FindingLevelOK,
			ResourceID: resource.ID,
			Message:    fmt.Sprintf(pairCompleteMessageTemplateConstant, vectorLength, alignmentComplete, indicatorsComplete),
			ProducedAt: producedAt,
		}
	}

	return Finding{
		Level:      FindingLevelWarn,
		ResourceID: resource.ID,
		Message:    fmt.Sprintf(pairIncompleteMessageTemplateConstant, vectorLength, alignmentComplete, indicatorsComplete),
		ProducedAt: producedAt,
	}
}

func measureVectorLength(primaryDocument map[string]any) int {
	vectorValue, vectorPresent := primaryDocument[PairedVectorKey]
	if !vectorPresent {
		return 0
	}
	vectorSlice, isSlice := vectorValue.([]any)
	if !isSlice {
		return 0
	}
	return len(vectorSlice)
}

func blockHasSubKeys(primaryDocument map[string]any, blockKey string, requiredSubKeys []string) bool {
	blockValue, blockPresent := primaryDocument[blockKey]
	if !blockPresent {
		return false
	}
	blockDocument, isDocument := blockValue.(map[string]any)
	if !isDocument {
		return false
	}
	for _, subKey := range requiredSubKeys {
		if _, subKeyPresent := blockDocument[subKey]; !subKeyPresent {
			return false
		}
	}
	return true
}
