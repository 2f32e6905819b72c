package audit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oprt/sentinel/internal/audit"
)

func TestFreshnessCheckerCheck(testInstance *testing.T) {
	testCases := []struct {
		name            string
		resource        audit.Resource
		fileModifiedAt  time.Time
		filePresent     bool
		expectedLevel   audit.FindingLevel
		expectedMessage string
	}{
		{
			name: "missing_directory_is_error",
			resource: audit.Resource{
				ID:           "logs",
				Kind:         audit.ResourceKindDirectory,
				Locator:      "/opt/oprt/logs",
				MissingLevel: audit.FindingLevelError,
			},
			expectedLevel:   audit.FindingLevelError,
			expectedMessage: "missing",
		},
		{
			name: "missing_file_is_warn",
			resource: audit.Resource{
				ID:              "data/headlines.csv",
				Kind:            audit.ResourceKindFreshFile,
				Locator:         "/opt/oprt/data/headlines.csv",
				FreshnessBudget: 90 * time.Minute,
				MissingLevel:    audit.FindingLevelWarn,
			},
			expectedLevel:   audit.FindingLevelWarn,
			expectedMessage: "missing",
		},
		{
			name: "fresh_within_budget",
			resource: audit.Resource{
				ID:              "data/headlines.csv",
				Kind:            audit.ResourceKindFreshFile,
				Locator:         "/opt/oprt/data/headlines.csv",
				FreshnessBudget: 90 * time.Minute,
				MissingLevel:    audit.FindingLevelWarn,
			},
			filePresent:     true,
			fileModifiedAt:  referenceTime.Add(-30 * time.Minute),
			expectedLevel:   audit.FindingLevelOK,
			expectedMessage: "fresh (age 30m)",
		},
		{
			name: "stale_beyond_budget",
			resource: audit.Resource{
				ID:              "data/headlines.csv",
				Kind:            audit.ResourceKindFreshFile,
				Locator:         "/opt/oprt/data/headlines.csv",
				FreshnessBudget: 90 * time.Minute,
				MissingLevel:    audit.FindingLevelWarn,
			},
			filePresent:     true,
			fileModifiedAt:  referenceTime.Add(-120 * time.Minute),
			expectedLevel:   audit.FindingLevelWarn,
			expectedMessage: "stale (age 120m > budget 90m)",
		},
		{
			name: "presence_only_without_budget",
			resource: audit.Resource{
				ID:           "scripts/mirror_loop.py",
				Kind:         audit.ResourceKindFreshFile,
				Locator:      "/opt/oprt/scripts/mirror_loop.py",
				MissingLevel: audit.FindingLevelWarn,
			},
			filePresent:     true,
			fileModifiedAt:  referenceTime.Add(-24 * time.Hour),
			expectedLevel:   audit.FindingLevelOK,
			expectedMessage: "present",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fileSystem := newFakeFileSystem()
			if testCase.filePresent {
				fileSystem.addFile(testCase.resource.Locator, "contents", testCase.fileModifiedAt)
			}

			checker := audit.FreshnessChecker{FileSystem: fileSystem, Clock: fixedClock{currentTime: referenceTime}}
			finding := checker.Check(testCase.resource)

			require.Equal(testInstance, testCase.expectedLevel, finding.Level)
			require.Equal(testInstance, testCase.expectedMessage, finding.Message)
			require.Equal(testInstance, testCase.resource.ID, finding.ResourceID)
			require.Equal(testInstance, referenceTime, finding.ProducedAt)
		})
	}
}

func TestFreshnessCheckerDeterministic(testInstance *testing.T) {
	fileSystem := newFakeFileSystem()
	fileSystem.addFile("/opt/oprt/data/headlines.csv", "contents", referenceTime.Add(-10*time.Minute))

	resource := audit.Resource{
		ID:              "data/headlines.csv",
		Kind:            audit.ResourceKindFreshFile,
		Locator:         "/opt/oprt/data/headlines.csv",
		FreshnessBudget: 90 * time.Minute,
		MissingLevel:    audit.FindingLevelWarn,
	}
	checker := audit.FreshnessChecker{FileSystem: fileSystem, Clock: fixedClock{currentTime: referenceTime}}

	firstFinding := checker.Check(resource)
	secondFinding := checker.Check(resource)
	require.Equal(testInstance, firstFinding, secondFinding)
}
