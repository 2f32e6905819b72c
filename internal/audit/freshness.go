package audit

import (
	"fmt"
	"time"
)

const (
	missingMessageConstant         = "missing"
	staleMessageTemplateConstant   = "stale (age %s > budget %s)"
	freshMessageTemplateConstant   = "fresh (age %s)"
	presentMessageConstant         = "present"
	minutesDisplayTemplateConstant = "%dm"
)

// FreshnessChecker classifies a resource by existence and age.
type FreshnessChecker struct {
	FileSystem FileSystem
	Clock      Clock
}

// Check computes the resource age against its budget.
//
// Absent resource: finding at the resource's missing level (ERROR only for
// the folder spine). Present within budget: OK. Present beyond budget: WARN.
// A resource without a budget is a pure presence check. Age is computed in
// UTC so host timezone never skews the comparison with the data producers.
func (checker FreshnessChecker) Check(resource Resource) Finding {
	fileInfo, statError := checker.FileSystem.Stat(resource.Locator)
	if statError != nil {
		return Finding{
			Level:      resource.MissingLevel,
			ResourceID: resource.ID,
			Message:    missingMessageConstant,
			ProducedAt: checker.Clock.Now().UTC(),
		}
	}

	currentTime := checker.Clock.Now().UTC()

	if resource.FreshnessBudget <= 0 {
		return Finding{
			Level:      FindingLevelOK,
			ResourceID: resource.ID,
			Message:    presentMessageConstant,
			ProducedAt: currentTime,
		}
	}

	resourceAge := currentTime.Sub(fileInfo.ModTime().UTC())
	if resourceAge > resource.FreshnessBudget {
		return Finding{
			Level:      FindingLevelWarn,
			ResourceID: resource.ID,
			Message:    fmt.Sprintf(staleMessageTemplateConstant, formatMinutes(resourceAge), formatMinutes(resource.FreshnessBudget)),
			ProducedAt: currentTime,
		}
	}

	return Finding{
		Level:      FindingLevelOK,
		ResourceID: resource.ID,
		Message:    fmt.Sprintf(freshMessageTemplateConstant, formatMinutes(resourceAge)),
		ProducedAt: currentTime,
	}
}

// CheckModifiedAt classifies a pre-resolved modification time against the
// resource budget. Used for the latest analytics subdirectory, where the
// audited timestamp belongs to a child rather than the locator itself.
func (checker FreshnessChecker) CheckModifiedAt(resource Resource, modifiedAt time.Time) Finding {
	currentTime := checker.Clock.Now().UTC()
	resourceAge := currentTime.Sub(modifiedAt.UTC())

	if resource.FreshnessBudget > 0 && resourceAge > resource.FreshnessBudget {
		return Finding{
			Level:      FindingLevelWarn,
			ResourceID: resource.ID,
			Message:    fmt.Sprintf(staleMessageTemplateConstant, formatMinutes(resourceAge), formatMinutes(resource.FreshnessBudget)),
			ProducedAt: currentTime,
		}
	}

	return Finding{
		Level:      FindingLevelOK,
		ResourceID: resource.ID,
		Message:    fmt.Sprintf(freshMessageTemplateConstant, formatMinutes(resourceAge)),
		ProducedAt: currentTime,
	}
}

func formatMinutes(duration time.Duration) string {
	return fmt.Sprintf(minutesDisplayTemplateConstant, int64(duration/time.Minute))
}
