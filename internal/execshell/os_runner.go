package execshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

const environmentAssignmentTemplateConstant = "%s=%s"

// OSCommandRunner executes shell commands using the operating system process APIs.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs an OSCommandRunner.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{}
}

// Run executes the command and captures its output streams and exit code.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	execCommand := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	execCommand.Dir = command.Details.WorkingDirectory

	if len(command.Details.EnvironmentVariables) > 0 {
		mergedEnvironment := os.Environ()
		for variableName, variableValue := range command.Details.EnvironmentVariables {
			mergedEnvironment = append(mergedEnvironment, fmt.Sprintf(environmentAssignmentTemplateConstant, variableName, variableValue))
		}
		execCommand.Env = mergedEnvironment
	}

	if len(command.Details.StandardInput) > 0 {
		execCommand.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	var standardOutputBuffer bytes.Buffer
	var standardErrorBuffer bytes.Buffer
	execCommand.Stdout = &standardOutputBuffer
	execCommand.Stderr = &standardErrorBuffer

	runError := execCommand.Run()

	executionResult := ExecutionResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
	}

	if runError != nil {
		var exitError *exec.ExitError
		if errors.As(runError, &exitError) {
			executionResult.ExitCode = exitError.ExitCode()
			return executionResult, nil
		}
		if contextError := executionContext.Err(); contextError != nil {
			return ExecutionResult{}, contextError
		}
		return ExecutionResult{}, runError
	}

	executionResult.ExitCode = 0
	return executionResult, nil
}
