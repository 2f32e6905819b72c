package audit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oprt/sentinel/internal/audit"
)

const (
	runLogLocatorConstant       = "/opt/oprt/logs/mirror_loop_unified_run.csv"
	decisionsLogLocatorConstant = "/opt/oprt/logs/mirror_loop_unified_decisions.jsonl"

	completeRunLogHeaderConstant = "timestamp_utc,asset,price,C_eff,phase_angle_deg,volume_ratio,signal,size_band,trap_T,mode\n" +
		"2026-08-27T11:55:00Z,BTC,43000,0.82,112.4,1.3,LONG,B2,0.1,live\n"
)

func runLogResource() audit.Resource {
	return audit.Resource{
		ID:              "logs/mirror_loop_unified_run.csv",
		Kind:            audit.ResourceKindAppendLog,
		Locator:         runLogLocatorConstant,
		FreshnessBudget: 180 * time.Minute,
		RequiredKeys:    audit.RunLogRequiredColumns,
		MissingLevel:    audit.FindingLevelWarn,
	}
}

func decisionsLogResource() audit.Resource {
	return audit.Resource{
		ID:              "logs/mirror_loop_unified_decisions.jsonl",
		Kind:            audit.ResourceKindAppendLog,
		Locator:         decisionsLogLocatorConstant,
		FreshnessBudget: 180 * time.Minute,
		MissingLevel:    audit.FindingLevelWarn,
	}
}

func newLogChecker(fileSystem *fakeFileSystem) audit.LogContinuityChecker {
	return audit.LogContinuityChecker{FileSystem: fileSystem, Clock: fixedClock{currentTime: referenceTime}}
}

func TestLogContinuityCheckerTabular(testInstance *testing.T) {
	testCases := []struct {
		name             string
		logContents      string
		logModifiedAt    time.Time
		expectedLevels   []audit.FindingLevel
		expectedMessages []string
	}{
		{
			name:           "complete_header_with_extra_column",
			logContents:    completeRunLogHeaderConstant,
			logModifiedAt:  referenceTime.Add(-30 * time.Minute),
			expectedLevels: []audit.FindingLevel{audit.FindingLevelOK, audit.FindingLevelOK},
			expectedMessages: []string{
				"fresh (age 30m)",
				"header complete",
			},
		},
		{
			name:           "shuffled_header_accepted",
			logContents:    "trap_T,size_band,signal,volume_ratio,phase_angle_deg,C_eff,price,asset,timestamp_utc\n",
			logModifiedAt:  referenceTime.Add(-30 * time.Minute),
			expectedLevels: []audit.FindingLevel{audit.FindingLevelOK, audit.FindingLevelOK},
			expectedMessages: []string{
				"fresh (age 30m)",
				"header complete",
			},
		},
		{
			name:           "missing_column_lists_expected_set",
			logContents:    "timestamp_utc,asset,price,C_eff,phase_angle_deg,volume_ratio,signal,size_band\n",
			logModifiedAt:  referenceTime.Add(-30 * time.Minute),
			expectedLevels: []audit.FindingLevel{audit.FindingLevelOK, audit.FindingLevelWarn},
			expectedMessages: []string{
				"fresh (age 30m)",
				"header incomplete, expected columns: timestamp_utc, asset, price, C_eff, phase_angle_deg, volume_ratio, signal, size_band, trap_T",
			},
		},
		{
			name:           "stale_log_still_checks_header",
			logContents:    completeRunLogHeaderConstant,
			logModifiedAt:  referenceTime.Add(-240 * time.Minute),
			expectedLevels: []audit.FindingLevel{audit.FindingLevelWarn, audit.FindingLevelOK},
			expectedMessages: []string{
				"stale (age 240m > budget 180m)",
				"header complete",
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fileSystem := newFakeFileSystem()
			fileSystem.addFile(runLogLocatorConstant, testCase.logContents, testCase.logModifiedAt)

			findings := newLogChecker(fileSystem).CheckTabular(runLogResource())

			require.Len(testInstance, findings, len(testCase.expectedLevels))
			for findingIndex := range findings {
				require.Equal(testInstance, testCase.expectedLevels[findingIndex], findings[findingIndex].Level)
				require.Equal(testInstance, testCase.expectedMessages[findingIndex], findings[findingIndex].Message)
			}
		})
	}
}

func TestLogContinuityCheckerTabularMissingFile(testInstance *testing.T) {
	findings := newLogChecker(newFakeFileSystem()).CheckTabular(runLogResource())

	require.Len(testInstance, findings, 1)
	require.Equal(testInstance, audit.FindingLevelWarn, findings[0].Level)
	require.Equal(testInstance, "missing", findings[0].Message)
}

func TestLogContinuityCheckerLineDelimited(testInstance *testing.T) {
	testCases := []struct {
		name            string
		logContents     string
		expectedLevel   audit.FindingLevel
		expectedMessage string
	}{
		{
			name:            "latest_record_parsed",
			logContents:     `{"signal":"HOLD"}` + "\n" + `{"signal":"LONG","C_eff":0.82,"phase_angle_deg":112.4,"volume_ratio":1.3,"trap_T":0.1,"size_band":"B2"}` + "\n",
			expectedLevel:   audit.FindingLevelOK,
			expectedMessage: "latest record: signal=LONG C_eff=0.82 phase_angle_deg=112.4 volume_ratio=1.3 trap_T=0.1",
		},
		{
			name:            "empty_tail",
			logContents:     "\n\n",
			expectedLevel:   audit.FindingLevelWarn,
			expectedMessage: "parse failed: empty tail",
		},
		{
			name:          "partial_write_tail",
			logContents:   `{"signal":"LONG"}` + "\n" + `{"signal":"SHORT","C_ef`,
			expectedLevel: audit.FindingLevelWarn,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fileSystem := newFakeFileSystem()
			fileSystem.addFile(decisionsLogLocatorConstant, testCase.logContents, referenceTime.Add(-10*time.Minute))

			findings := newLogChecker(fileSystem).CheckLineDelimited(decisionsLogResource())

			require.Len(testInstance, findings, 2)
			require.Equal(testInstance, audit.FindingLevelOK, findings[0].Level)
			require.Equal(testInstance, testCase.expectedLevel, findings[1].Level)
			if len(testCase.expectedMessage) > 0 {
				require.Equal(testInstance, testCase.expectedMessage, findings[1].Message)
			} else {
				require.Contains(testInstance, findings[1].Message, "parse failed")
			}
		})
	}
}
