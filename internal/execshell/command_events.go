package execshell

import (
	"fmt"

	"go.uber.org/zap"
)

const (
	messageStageStart            = "starting"
	messageStageSuccess          = "completed"
	messageStageFailure          = "failed"
	messageStageExecutionFailure = "could not execute"

	commandMessageTemplateConstant        = "%s %s %v"
	commandFailureMessageTemplateConstant = "%s %s %v (exit %d): %s"
	commandErrorMessageTemplateConstant   = "%s %s %v: %v"
)

// CommandEventLogger captures the logging surface ShellExecutor relies on.
type CommandEventLogger interface {
	Debug(message string)
	Warn(message string)
	Error(message string)
}

// CommandEventObserver receives lifecycle notifications for executed commands.
type CommandEventObserver interface {
	CommandStarted(command ShellCommand)
	CommandCompleted(command ShellCommand, result ExecutionResult)
	CommandExecutionFailed(command ShellCommand, failure error)
}

// ZapCommandEventLogger adapts a zap logger to the CommandEventLogger surface.
type ZapCommandEventLogger struct {
	logger *zap.Logger
}

// NewZapCommandEventLogger wraps the provided zap logger.
func NewZapCommandEventLogger(logger *zap.Logger) ZapCommandEventLogger {
	return ZapCommandEventLogger{logger: logger}
}

// Debug forwards the message at debug level.
func (adapter ZapCommandEventLogger) Debug(message string) { adapter.logger.Debug(message) }

// Warn forwards the message at warn level.
func (adapter ZapCommandEventLogger) Warn(message string) { adapter.logger.Warn(message) }

// Error forwards the message at error level.
func (adapter ZapCommandEventLogger) Error(message string) { adapter.logger.Error(message) }

type noopCommandEventObserver struct{}

func (noopCommandEventObserver) CommandStarted(ShellCommand)                    {}
func (noopCommandEventObserver) CommandCompleted(ShellCommand, ExecutionResult) {}
func (noopCommandEventObserver) CommandExecutionFailed(ShellCommand, error)     {}

func buildCommandMessage(stage string, command ShellCommand, result ExecutionResult, failure error) string {
	switch stage {
	case messageStageFailure:
		return fmt.Sprintf(commandFailureMessageTemplateConstant, stage, command.Name, command.Details.Arguments, result.ExitCode, result.StandardError)
	case messageStageExecutionFailure:
		return fmt.Sprintf(commandErrorMessageTemplateConstant, stage, command.Name, command.Details.Arguments, failure)
	default:
		return fmt.Sprintf(commandMessageTemplateConstant, stage, command.Name, command.Details.Arguments)
	}
}
