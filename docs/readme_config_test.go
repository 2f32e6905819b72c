package docs_test

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const readmeFileNameConstant = "README.md"

var yamlSnippetPattern = regexp.MustCompile("(?s)```yaml\n(.*?)```")

type readmeConfiguration struct {
	Common struct {
		LogLevel  string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
	} `yaml:"common"`
	Checkup struct {
		Root                string `yaml:"root"`
		IngestBudgetMinutes int    `yaml:"ingest_budget_minutes"`
		LogBudgetMinutes    int    `yaml:"log_budget_minutes"`
		LogTailLines        int    `yaml:"log_tail_lines"`
		SmokeTest           bool   `yaml:"smoke_test"`
		SmokeTimeoutSeconds int    `yaml:"smoke_timeout_seconds"`
		LeaseStaleMinutes   int    `yaml:"lease_stale_minutes"`
	} `yaml:"checkup"`
	Lease struct {
		Root              string `yaml:"root"`
		LeaseStaleMinutes int    `yaml:"lease_stale_minutes"`
		HolderName        string `yaml:"holder_name"`
	} `yaml:"lease"`
}

// TestReadmeConfigurationSnippet keeps the README example in sync with the
// recognized configuration keys and shipped defaults.
func TestReadmeConfigurationSnippet(testInstance *testing.T) {
	readmeContents, readError := os.ReadFile(filepath.Join("..", readmeFileNameConstant))
	require.NoError(testInstance, readError)

	snippetMatch := yamlSnippetPattern.FindSubmatch(readmeContents)
	require.NotNil(testInstance, snippetMatch)

	var parsedConfiguration readmeConfiguration
	require.NoError(testInstance, yaml.Unmarshal(snippetMatch[1], &parsedConfiguration))

	require.Equal(testInstance, "info", parsedConfiguration.Common.LogLevel)
	require.Equal(testInstance, "console", parsedConfiguration.Common.LogFormat)
	require.Equal(testInstance, "/opt/oprt", parsedConfiguration.Checkup.Root)
	require.Equal(testInstance, 90, parsedConfiguration.Checkup.IngestBudgetMinutes)
	require.Equal(testInstance, 180, parsedConfiguration.Checkup.LogBudgetMinutes)
	require.Equal(testInstance, 3, parsedConfiguration.Checkup.LogTailLines)
	require.False(testInstance, parsedConfiguration.Checkup.SmokeTest)
	require.Equal(testInstance, 120, parsedConfiguration.Checkup.SmokeTimeoutSeconds)
	require.Equal(testInstance, 55, parsedConfiguration.Checkup.LeaseStaleMinutes)
	require.Equal(testInstance, "oprt-sentinel", parsedConfiguration.Lease.HolderName)
}

// TestEmbeddedDefaultConfigurationMatchesReadme keeps the shipped default
// configuration aligned with the documented example.
func TestEmbeddedDefaultConfigurationMatchesReadme(testInstance *testing.T) {
	embeddedContents, readError := os.ReadFile(filepath.Join("..", "cmd", "cli", "default_config.yaml"))
	require.NoError(testInstance, readError)

	var embeddedConfiguration readmeConfiguration
	require.NoError(testInstance, yaml.Unmarshal(embeddedContents, &embeddedConfiguration))

	readmeContents, readmeError := os.ReadFile(filepath.Join("..", readmeFileNameConstant))
	require.NoError(testInstance, readmeError)
	snippetMatch := yamlSnippetPattern.FindSubmatch(readmeContents)
	require.NotNil(testInstance, snippetMatch)

	var documentedConfiguration readmeConfiguration
	require.NoError(testInstance, yaml.Unmarshal(snippetMatch[1], &documentedConfiguration))

	require.Equal(testInstance, embeddedConfiguration, documentedConfiguration)
}
