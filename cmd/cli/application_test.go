package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oprt/sentinel/cmd/cli"
)

func newInitializedApplication(testInstance *testing.T, arguments ...string) (*cli.Application, string) {
	testInstance.Helper()

	application, constructionError := cli.NewApplication()
	require.NoError(testInstance, constructionError)

	var outputBuffer bytes.Buffer
	rootCommand := application.RootCommand()
	rootCommand.SetOut(&outputBuffer)
	rootCommand.SetErr(&outputBuffer)
	rootCommand.SetArgs(arguments)

	require.NoError(testInstance, rootCommand.Execute())
	return application, outputBuffer.String()
}

func TestApplicationCommandTree(testInstance *testing.T) {
	application, constructionError := cli.NewApplication()
	require.NoError(testInstance, constructionError)

	commandNames := make(map[string]bool)
	for _, subcommand := range application.RootCommand().Commands() {
		commandNames[subcommand.Name()] = true
	}
	require.True(testInstance, commandNames["checkup"])
	require.True(testInstance, commandNames["lease"])
}

func TestApplicationDefaultConfiguration(testInstance *testing.T) {
	pipelineRoot := testInstance.TempDir()
	application, commandOutput := newInitializedApplication(testInstance, "lease", "status", "--root", pipelineRoot)

	require.Equal(testInstance, "lease: free\n", commandOutput)

	checkupConfiguration := application.CheckupConfiguration()
	require.Equal(testInstance, "/opt/oprt", checkupConfiguration.Root)
	require.Equal(testInstance, 90, checkupConfiguration.IngestBudgetMinutes)
	require.Equal(testInstance, 180, checkupConfiguration.LogBudgetMinutes)
	require.Equal(testInstance, 3, checkupConfiguration.LogTailLines)
	require.False(testInstance, checkupConfiguration.SmokeTest)
	require.Equal(testInstance, 120, checkupConfiguration.SmokeTimeoutSeconds)
	require.Equal(testInstance, 55, checkupConfiguration.LeaseStaleMinutes)

	leaseConfiguration := application.LeaseConfiguration()
	require.Equal(testInstance, "oprt-sentinel", leaseConfiguration.HolderName)
	require.Equal(testInstance, 55, leaseConfiguration.LeaseStaleMinutes)
}

func TestApplicationConfigurationFileOverride(testInstance *testing.T) {
	pipelineRoot := testInstance.TempDir()
	configurationPath := filepath.Join(testInstance.TempDir(), "config.yaml")
	configurationContents := "checkup:\n  root: /srv/pipeline\n  ingest_budget_minutes: 45\n"
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(configurationContents), 0o644))

	application, _ := newInitializedApplication(testInstance,
		"lease", "status", "--root", pipelineRoot, "--config", configurationPath)

	checkupConfiguration := application.CheckupConfiguration()
	require.Equal(testInstance, "/srv/pipeline", checkupConfiguration.Root)
	require.Equal(testInstance, 45, checkupConfiguration.IngestBudgetMinutes)
	require.Equal(testInstance, 180, checkupConfiguration.LogBudgetMinutes)
}

func TestApplicationEnvironmentOverride(testInstance *testing.T) {
	pipelineRoot := testInstance.TempDir()
	testInstance.Setenv("OPRTSENTINEL_CHECKUP_LOG_BUDGET_MINUTES", "240")

	application, _ := newInitializedApplication(testInstance, "lease", "status", "--root", pipelineRoot)

	require.Equal(testInstance, 240, application.CheckupConfiguration().LogBudgetMinutes)
}

func TestApplicationRejectsUnknownLogLevel(testInstance *testing.T) {
	application, constructionError := cli.NewApplication()
	require.NoError(testInstance, constructionError)

	rootCommand := application.RootCommand()
	rootCommand.SetOut(&bytes.Buffer{})
	rootCommand.SetErr(&bytes.Buffer{})
	rootCommand.SetArgs([]string{"lease", "status", "--log-level", "loud"})

	require.Error(testInstance, rootCommand.Execute())
}
