package schedcli_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oprt/sentinel/internal/execshell"
	"github.com/oprt/sentinel/internal/schedcli"
)

type scriptedSystemctlExecutor struct {
	responses      []scriptedResponse
	receivedCalls  [][]string
	responseCursor int
}

type scriptedResponse struct {
	result  execshell.ExecutionResult
	failure error
}

func (executor *scriptedSystemctlExecutor) ExecuteSystemctl(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.receivedCalls = append(executor.receivedCalls, details.Arguments)
	if executor.responseCursor >= len(executor.responses) {
		return execshell.ExecutionResult{}, errors.New("unexpected systemctl invocation")
	}
	response := executor.responses[executor.responseCursor]
	executor.responseCursor++
	return response.result, response.failure
}

func TestNewClientRequiresExecutor(testInstance *testing.T) {
	client, constructionError := schedcli.NewClient(nil)
	require.Nil(testInstance, client)
	require.ErrorIs(testInstance, constructionError, schedcli.ErrExecutorNotConfigured)
}

func TestClientListTimersStructured(testInstance *testing.T) {
	const structuredPayload = `[{"next":1756280700000000,"left":"5min","last":1756277100000000,"passed":"55min","unit":"oprt-loop.timer","activates":"oprt-loop.service"},{"next":null,"left":null,"last":null,"passed":null,"unit":"oprt-eod.timer","activates":"oprt-eod.service"}]`

	executor := &scriptedSystemctlExecutor{responses: []scriptedResponse{
		{result: execshell.ExecutionResult{StandardOutput: structuredPayload}},
		{result: execshell.ExecutionResult{StandardOutput: "Result=success\nExecMainStatus=0\n"}},
		{failure: execshell.CommandFailedError{Result: execshell.ExecutionResult{ExitCode: 4}}},
	}}
	client, constructionError := schedcli.NewClient(executor)
	require.NoError(testInstance, constructionError)

	schedulerTasks, listError := client.ListTimers(context.Background())
	require.NoError(testInstance, listError)
	require.Len(testInstance, schedulerTasks, 2)

	require.Equal(testInstance, "oprt-loop.timer", schedulerTasks[0].UnitName)
	require.Equal(testInstance, "oprt-loop.service", schedulerTasks[0].ActivatedUnit)
	require.Equal(testInstance, time.Unix(1756280700, 0).UTC(), schedulerTasks[0].NextRun)
	require.Equal(testInstance, time.Unix(1756277100, 0).UTC(), schedulerTasks[0].LastRun)
	require.Equal(testInstance, "success (code 0)", schedulerTasks[0].LastResult)

	require.Equal(testInstance, "oprt-eod.timer", schedulerTasks[1].UnitName)
	require.True(testInstance, schedulerTasks[1].NextRun.IsZero())
	require.True(testInstance, schedulerTasks[1].LastRun.IsZero())
	require.Empty(testInstance, schedulerTasks[1].LastResult)

	require.Len(testInstance, executor.receivedCalls, 3)
	require.Contains(testInstance, executor.receivedCalls[0], "--output=json")
	require.Equal(testInstance, []string{"show", "oprt-loop.service", "--property=Result,ExecMainStatus"}, executor.receivedCalls[1])
	require.Equal(testInstance, []string{"show", "oprt-eod.service", "--property=Result,ExecMainStatus"}, executor.receivedCalls[2])
}

func TestClientListTimersTextFallback(testInstance *testing.T) {
	const textPayload = "Wed 2026-08-27 14:25:00 UTC 5min left Wed 2026-08-27 13:25:00 UTC 55min ago oprt-loop.timer oprt-loop.service\nWed 2026-08-27 23:59:00 UTC 9h left - - oprt-eod.timer oprt-eod.service\n"

	executor := &scriptedSystemctlExecutor{responses: []scriptedResponse{
		{failure: execshell.CommandFailedError{Result: execshell.ExecutionResult{ExitCode: 1}}},
		{result: execshell.ExecutionResult{StandardOutput: textPayload}},
	}}
	client, constructionError := schedcli.NewClient(executor)
	require.NoError(testInstance, constructionError)

	schedulerTasks, listError := client.ListTimers(context.Background())
	require.NoError(testInstance, listError)
	require.Len(testInstance, schedulerTasks, 2)
	require.Equal(testInstance, "oprt-loop.timer", schedulerTasks[0].UnitName)
	require.Equal(testInstance, "oprt-eod.service", schedulerTasks[1].ActivatedUnit)

	require.Len(testInstance, executor.receivedCalls, 2)
	require.Contains(testInstance, executor.receivedCalls[1], "--no-legend")
}

func TestClientListTimersErrors(testInstance *testing.T) {
	testCases := []struct {
		name            string
		responses       []scriptedResponse
		expectDecoding  bool
		expectOperation bool
	}{
		{
			name: "malformed_structured_payload",
			responses: []scriptedResponse{
				{result: execshell.ExecutionResult{StandardOutput: "{not json"}},
			},
			expectDecoding: true,
		},
		{
			name: "execution_failure_not_retried_as_text",
			responses: []scriptedResponse{
				{failure: execshell.CommandExecutionError{Cause: errors.New("systemctl missing")}},
			},
			expectOperation: true,
		},
		{
			name: "text_fallback_failure",
			responses: []scriptedResponse{
				{failure: execshell.CommandFailedError{Result: execshell.ExecutionResult{ExitCode: 1}}},
				{failure: execshell.CommandFailedError{Result: execshell.ExecutionResult{ExitCode: 1}}},
			},
			expectOperation: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &scriptedSystemctlExecutor{responses: testCase.responses}
			client, constructionError := schedcli.NewClient(executor)
			require.NoError(testInstance, constructionError)

			schedulerTasks, listError := client.ListTimers(context.Background())
			require.Nil(testInstance, schedulerTasks)
			require.Error(testInstance, listError)

			if testCase.expectDecoding {
				var decodingFailure schedcli.ResponseDecodingError
				require.ErrorAs(testInstance, listError, &decodingFailure)
			}
			if testCase.expectOperation {
				var operationFailure schedcli.OperationError
				require.ErrorAs(testInstance, listError, &operationFailure)
			}
		})
	}
}
