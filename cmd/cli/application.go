package cli

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/oprt/sentinel/internal/audit"
	"github.com/oprt/sentinel/internal/lease"
	"github.com/oprt/sentinel/internal/utils"
)

//go:embed default_config.yaml
var embeddedDefaultConfiguration []byte

const (
	applicationNameConstant             = "oprt-sentinel"
	applicationShortDescriptionConstant = "Pipeline health audits for the OPRT data pipeline"
	applicationLongDescriptionConstant  = "oprt-sentinel audits the OPRT data pipeline: folder spine, ingest artifacts, " +
		"paired agent files, append logs, analytics output, and scheduler timers. It emits findings as they are produced " +
		"and persists a timestamped JSON report."

	configurationNameConstant          = "config"
	configurationTypeConstant          = "yaml"
	environmentPrefixConstant          = "OPRTSENTINEL"
	currentDirectorySearchPathConstant = "."

	configurationFlagNameConstant        = "config"
	configurationFlagDescriptionConstant = "path to a configuration file"
	logLevelFlagNameConstant             = "log-level"
	logLevelFlagDescriptionConstant      = "log level (debug, info, warn, error)"
	logFormatFlagNameConstant            = "log-format"
	logFormatFlagDescriptionConstant     = "log format (structured, console)"
)

// CommonConfiguration captures settings shared by every subcommand.
type CommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationConfiguration is the full resolved configuration tree.
type ApplicationConfiguration struct {
	Common  CommonConfiguration        `mapstructure:"common"`
	Checkup audit.CommandConfiguration `mapstructure:"checkup"`
	Lease   lease.CommandConfiguration `mapstructure:"lease"`
}

// Application wires configuration, logging, and subcommands together.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	configuration         ApplicationConfiguration
	logger                *zap.Logger
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string
}

// NewApplication constructs the application with its command tree.
func NewApplication() (*Application, error) {
	application := &Application{
		configurationLoader: utils.NewConfigurationLoader(
			configurationNameConstant,
			configurationTypeConstant,
			environmentPrefixConstant,
			[]string{currentDirectorySearchPathConstant},
			embeddedDefaultConfiguration,
		),
		logger: zap.NewNop(),
	}

	rootCommand := &cobra.Command{
		Use:               applicationNameConstant,
		Short:             applicationShortDescriptionConstant,
		Long:              applicationLongDescriptionConstant,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: application.initialize,
	}

	rootCommand.PersistentFlags().StringVar(&application.configurationFilePath, configurationFlagNameConstant, "", configurationFlagDescriptionConstant)
	rootCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagDescriptionConstant)
	rootCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagDescriptionConstant)

	checkupBuilder := &audit.CommandBuilder{
		LoggerProvider:        application.Logger,
		ConfigurationProvider: application.CheckupConfiguration,
	}
	checkupCommand, checkupError := checkupBuilder.Build()
	if checkupError != nil {
		return nil, checkupError
	}

	leaseBuilder := &lease.CommandBuilder{
		LoggerProvider:        application.Logger,
		ConfigurationProvider: application.LeaseConfiguration,
	}
	leaseCommand, leaseError := leaseBuilder.Build()
	if leaseError != nil {
		return nil, leaseError
	}

	rootCommand.AddCommand(checkupCommand, leaseCommand)
	application.rootCommand = rootCommand
	return application, nil
}

// Logger returns the application logger built during initialization.
func (application *Application) Logger() *zap.Logger {
	return application.logger
}

// CheckupConfiguration returns the resolved checkup settings.
func (application *Application) CheckupConfiguration() audit.CommandConfiguration {
	return application.configuration.Checkup
}

// LeaseConfiguration returns the resolved lease settings.
func (application *Application) LeaseConfiguration() lease.CommandConfiguration {
	return application.configuration.Lease
}

// RootCommand exposes the assembled command tree.
func (application *Application) RootCommand() *cobra.Command {
	return application.rootCommand
}

func (application *Application) initialize(command *cobra.Command, _ []string) error {
	defaultValues := defaultConfigurationValues()
	_, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return loadError
	}

	if persistentFlagChanged(command.Flags(), logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if persistentFlagChanged(command.Flags(), logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	logger, loggerError := utils.NewLoggerFactory().CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerError != nil {
		return loggerError
	}
	application.logger = logger
	return nil
}

func persistentFlagChanged(flagSet *pflag.FlagSet, flagName string) bool {
	resolvedFlag := flagSet.Lookup(flagName)
	return resolvedFlag != nil && resolvedFlag.Changed
}

func defaultConfigurationValues() map[string]any {
	checkupDefaults := audit.DefaultCommandConfiguration()
	return map[string]any{
		"common.log_level":              string(utils.LogLevelInfo),
		"common.log_format":             string(utils.LogFormatConsole),
		"checkup.root":                  checkupDefaults.Root,
		"checkup.ingest_budget_minutes": checkupDefaults.IngestBudgetMinutes,
		"checkup.log_budget_minutes":    checkupDefaults.LogBudgetMinutes,
		"checkup.log_tail_lines":        checkupDefaults.LogTailLines,
		"checkup.smoke_test":            checkupDefaults.SmokeTest,
		"checkup.smoke_timeout_seconds": checkupDefaults.SmokeTimeoutSeconds,
		"checkup.lease_stale_minutes":   checkupDefaults.LeaseStaleMinutes,
		"lease.root":                    checkupDefaults.Root,
		"lease.lease_stale_minutes":     checkupDefaults.LeaseStaleMinutes,
		"lease.holder_name":             applicationNameConstant,
	}
}

// Execute runs the application, flushing the logger on exit.
func Execute() error {
	application, constructionError := NewApplication()
	if constructionError != nil {
		return constructionError
	}
	defer application.flushLogger()
	return application.rootCommand.Execute()
}

// flushLogger syncs buffered log output. Sync on a terminal stderr fails with
// ENOTSUP or EINVAL on some platforms; those are tolerated.
func (application *Application) flushLogger() {
	syncError := application.logger.Sync()
	if syncError == nil {
		return
	}
	if errors.Is(syncError, syscall.ENOTSUP) || errors.Is(syncError, syscall.EINVAL) {
		return
	}
	fmt.Fprintf(os.Stderr, "failed to flush logger: %v\n", syncError)
}
