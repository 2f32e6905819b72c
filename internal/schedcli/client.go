package schedcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oprt/sentinel/internal/execshell"
)

const (
	listTimersOperationNameConstant = "list-timers"

	listTimersArgumentConstant           = "list-timers"
	showArgumentConstant                 = "show"
	allTimersFlagConstant                = "--all"
	jsonOutputFlagConstant               = "--output=json"
	noPagerFlagConstant                  = "--no-pager"
	noLegendFlagConstant                 = "--no-legend"
	resultPropertiesFlagConstant         = "--property=Result,ExecMainStatus"
	resultPropertyPrefixConstant         = "Result="
	execStatusPropertyPrefixConstant     = "ExecMainStatus="
	lastResultTemplateConstant           = "%s (code %s)"
	executorNotConfiguredMessageConstant = "systemctl executor not configured"

	operationErrorTemplateConstant = "systemctl %s failed: %v"
	decodingErrorTemplateConstant  = "failed to decode systemctl %s output: %v"

	minimumTextColumnsConstant    = 2
	microsecondsPerSecondConstant = int64(time.Second / time.Microsecond)
)

// ErrExecutorNotConfigured indicates the client was constructed without an executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// SystemctlExecutor abstracts the shell invocation used to query systemd.
type SystemctlExecutor interface {
	ExecuteSystemctl(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// SchedulerTask describes a single timer unit reported by systemd.
type SchedulerTask struct {
	UnitName      string
	ActivatedUnit string
	NextRun       time.Time
	LastRun       time.Time
	LastResult    string
}

// OperationError reports a systemctl invocation failure.
type OperationError struct {
	Operation string
	Cause     error
}

// Error describes the failed operation.
func (operationFailure OperationError) Error() string {
	return fmt.Sprintf(operationErrorTemplateConstant, operationFailure.Operation, operationFailure.Cause)
}

// Unwrap exposes the underlying cause.
func (operationFailure OperationError) Unwrap() error {
	return operationFailure.Cause
}

// ResponseDecodingError reports systemctl output that could not be parsed.
type ResponseDecodingError struct {
	Operation string
	Cause     error
}

// Error describes the decoding failure.
func (decodingFailure ResponseDecodingError) Error() string {
	return fmt.Sprintf(decodingErrorTemplateConstant, decodingFailure.Operation, decodingFailure.Cause)
}

// Unwrap exposes the underlying cause.
func (decodingFailure ResponseDecodingError) Unwrap() error {
	return decodingFailure.Cause
}

// Client enumerates scheduler timer units through systemctl.
type Client struct {
	executor SystemctlExecutor
}

// NewClient constructs a Client validating its executor dependency.
func NewClient(executor SystemctlExecutor) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor}, nil
}

type timerRecord struct {
	Unit      string `json:"unit"`
	Activates string `json:"activates"`
	Next      *int64 `json:"next"`
	Last      *int64 `json:"last"`
}

// ListTimers returns all timer units known to systemd.
//
// The structured JSON listing is attempted first. When systemctl rejects the
// machine-readable flag the plain-text table is parsed instead, so the probe
// happens at call time and needs no cached capability state. On the
// structured path each activated unit's last service result is resolved as
// well; the text fallback carries neither timestamps nor results.
func (client *Client) ListTimers(executionContext context.Context) ([]SchedulerTask, error) {
	structuredResult, structuredError := client.executor.ExecuteSystemctl(executionContext, execshell.CommandDetails{
		Arguments: []string{listTimersArgumentConstant, allTimersFlagConstant, jsonOutputFlagConstant},
	})
	if structuredError == nil {
		schedulerTasks, decodeError := decodeStructuredTimers(structuredResult.StandardOutput)
		if decodeError != nil {
			return nil, decodeError
		}
		for taskIndex := range schedulerTasks {
			if len(schedulerTasks[taskIndex].ActivatedUnit) == 0 {
				continue
			}
			schedulerTasks[taskIndex].LastResult = client.resolveLastResult(executionContext, schedulerTasks[taskIndex].ActivatedUnit)
		}
		return schedulerTasks, nil
	}

	var commandFailure execshell.CommandFailedError
	if !errors.As(structuredError, &commandFailure) {
		return nil, OperationError{Operation: listTimersOperationNameConstant, Cause: structuredError}
	}

	textResult, textError := client.executor.ExecuteSystemctl(executionContext, execshell.CommandDetails{
		Arguments: []string{listTimersArgumentConstant, allTimersFlagConstant, noPagerFlagConstant, noLegendFlagConstant},
	})
	if textError != nil {
		return nil, OperationError{Operation: listTimersOperationNameConstant, Cause: textError}
	}

	return decodeTextTimers(textResult.StandardOutput), nil
}

// resolveLastResult queries the activated unit's Result and ExecMainStatus
// properties. A failed query yields an empty result rather than an error so
// one unreadable unit cannot suppress the whole listing.
func (client *Client) resolveLastResult(executionContext context.Context, unitName string) string {
	showResult, showError := client.executor.ExecuteSystemctl(executionContext, execshell.CommandDetails{
		Arguments: []string{showArgumentConstant, unitName, resultPropertiesFlagConstant},
	})
	if showError != nil {
		return ""
	}
	return parseResultProperties(showResult.StandardOutput)
}

func parseResultProperties(payload string) string {
	resultValue := ""
	statusValue := ""
	for _, propertyLine := range strings.Split(payload, "\n") {
		trimmedLine := strings.TrimSpace(propertyLine)
		if strings.HasPrefix(trimmedLine, resultPropertyPrefixConstant) {
			resultValue = strings.TrimPrefix(trimmedLine, resultPropertyPrefixConstant)
		}
		if strings.HasPrefix(trimmedLine, execStatusPropertyPrefixConstant) {
			statusValue = strings.TrimPrefix(trimmedLine, execStatusPropertyPrefixConstant)
		}
	}
	if len(resultValue) == 0 {
		return ""
	}
	if len(statusValue) > 0 {
		return fmt.Sprintf(lastResultTemplateConstant, resultValue, statusValue)
	}
	return resultValue
}

func decodeStructuredTimers(payload string) ([]SchedulerTask, error) {
	trimmedPayload := strings.TrimSpace(payload)
	if len(trimmedPayload) == 0 {
		return nil, nil
	}

	var timerRecords []timerRecord
	decodeError := json.Unmarshal([]byte(trimmedPayload), &timerRecords)
	if decodeError != nil {
		return nil, ResponseDecodingError{Operation: listTimersOperationNameConstant, Cause: decodeError}
	}

	schedulerTasks := make([]SchedulerTask, 0, len(timerRecords))
	for _, record := range timerRecords {
		schedulerTasks = append(schedulerTasks, SchedulerTask{
			UnitName:      record.Unit,
			ActivatedUnit: record.Activates,
			NextRun:       microsecondsToTime(record.Next),
			LastRun:       microsecondsToTime(record.Last),
		})
	}
	return schedulerTasks, nil
}

// decodeTextTimers parses the legacy table output. Only the trailing unit and
// activates columns are positionally stable across systemd versions, so the
// timestamp columns are not recovered on this path.
func decodeTextTimers(payload string) []SchedulerTask {
	var schedulerTasks []SchedulerTask
	for _, outputLine := range strings.Split(payload, "\n") {
		columns := strings.Fields(outputLine)
		if len(columns) < minimumTextColumnsConstant {
			continue
		}
		unitName := columns[len(columns)-2]
		if !strings.HasSuffix(unitName, ".timer") {
			continue
		}
		schedulerTasks = append(schedulerTasks, SchedulerTask{
			UnitName:      unitName,
			ActivatedUnit: columns[len(columns)-1],
		})
	}
	return schedulerTasks
}

func microsecondsToTime(microseconds *int64) time.Time {
	if microseconds == nil || *microseconds == 0 {
		return time.Time{}
	}
	return time.Unix(*microseconds/microsecondsPerSecondConstant, (*microseconds%microsecondsPerSecondConstant)*int64(time.Microsecond)).UTC()
}
