package execshell

import (
	"context"
	"errors"
	"fmt"
)

const (
	loggerNotConfiguredMessageConstant        = "logger not configured"
	commandRunnerNotConfiguredMessageConstant = "command runner not configured"
	commandFailedTemplateConstant             = "%s exited with code %d"
	commandExecutionFailedTemplateConstant    = "%s execution failed: %v"
)

// CommandName identifies the external binary a ShellCommand invokes.
type CommandName string

// External binaries invoked by oprt-sentinel.
const (
	CommandSystemctl CommandName = "systemctl"
	CommandEngine    CommandName = "python3"
)

// CommandDetails captures the invocation parameters for a shell command.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand pairs a binary name with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable outcome of a command invocation.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner executes shell commands and reports their results.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// Sentinel construction errors.
var (
	ErrLoggerNotConfigured        = errors.New(loggerNotConfiguredMessageConstant)
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
)

// CommandFailedError reports a command completing with a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failed command.
func (failure CommandFailedError) Error() string {
	return fmt.Sprintf(commandFailedTemplateConstant, failure.Command.Name, failure.Result.ExitCode)
}

// CommandExecutionError reports a command that could not be executed at all.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure.
func (failure CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionFailedTemplateConstant, failure.Command.Name, failure.Cause)
}

// Unwrap exposes the underlying cause.
func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}

// ShellExecutor coordinates command execution with lifecycle logging.
type ShellExecutor struct {
	logger        CommandEventLogger
	commandRunner CommandRunner
	eventObserver CommandEventObserver
}

// NewShellExecutor constructs a ShellExecutor validating its dependencies.
func NewShellExecutor(logger CommandEventLogger, commandRunner CommandRunner, eventObserver CommandEventObserver) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if commandRunner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	if eventObserver == nil {
		eventObserver = noopCommandEventObserver{}
	}

	return &ShellExecutor{
		logger:        logger,
		commandRunner: commandRunner,
		eventObserver: eventObserver,
	}, nil
}

// ExecuteSystemctl runs the systemd control binary with the provided details.
func (executor *ShellExecutor) ExecuteSystemctl(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.execute(executionContext, ShellCommand{Name: CommandSystemctl, Details: details})
}

// ExecuteEngine runs the pipeline engine interpreter with the provided details.
func (executor *ShellExecutor) ExecuteEngine(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.execute(executionContext, ShellCommand{Name: CommandEngine, Details: details})
}

func (executor *ShellExecutor) execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executor.logger.Debug(buildCommandMessage(messageStageStart, command, ExecutionResult{}, nil))
	executor.eventObserver.CommandStarted(command)

	executionResult, executionError := executor.commandRunner.Run(executionContext, command)
	if executionError != nil {
		executor.logger.Error(buildCommandMessage(messageStageExecutionFailure, command, ExecutionResult{}, executionError))
		executor.eventObserver.CommandExecutionFailed(command, executionError)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: executionError}
	}

	executor.eventObserver.CommandCompleted(command, executionResult)

	if executionResult.ExitCode != 0 {
		executor.logger.Warn(buildCommandMessage(messageStageFailure, command, executionResult, nil))
		return ExecutionResult{}, CommandFailedError{Command: command, Result: executionResult}
	}

	executor.logger.Debug(buildCommandMessage(messageStageSuccess, command, executionResult, nil))
	return executionResult, nil
}
