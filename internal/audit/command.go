package audit

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oprt/sentinel/internal/execshell"
	"github.com/oprt/sentinel/internal/lease"
	"github.com/oprt/sentinel/internal/schedcli"
	"github.com/oprt/sentinel/internal/ui"
	"github.com/oprt/sentinel/internal/utils"
	pathutils "github.com/oprt/sentinel/internal/utils/path"
)

const (
	checkupCommandUseConstant   = "checkup"
	checkupCommandShortConstant = "Audit the pipeline's filesystem resources and scheduler state"
	checkupCommandLongConstant  = "Checkup inspects every declared pipeline resource under the configured root, " +
		"evaluates freshness, schema, and range rules, queries the task scheduler, and writes a timestamped JSON report."

	rootFlagNameConstant         = "root"
	rootFlagDescriptionConstant  = "pipeline root directory"
	smokeFlagNameConstant        = "smoke"
	smokeFlagDescriptionConstant = "run the bounded engine smoke test"

	loggerProviderMissingMessageConstant        = "checkup command requires a logger provider"
	configurationProviderMissingMessageConstant = "checkup command requires a configuration provider"

	leaseHolderNameConstant             = "oprt-sentinel"
	leaseSkippedMessageTemplateConstant = "lease held by %s for %s, skipping this cycle\n"
	reportPathMessageTemplateConstant   = "report: %s\n"
)

// Builder-level validation errors.
var (
	ErrLoggerProviderMissing        = errors.New(loggerProviderMissingMessageConstant)
	ErrConfigurationProviderMissing = errors.New(configurationProviderMissingMessageConstant)
)

// CommandBuilder assembles the checkup command.
type CommandBuilder struct {
	LoggerProvider        func() *zap.Logger
	ConfigurationProvider func() CommandConfiguration
}

// printerFindingSink streams findings through the console printer.
type printerFindingSink struct {
	printer *ui.FindingPrinter
}

func (sink printerFindingSink) EmitFinding(finding Finding) {
	sink.printer.EmitFinding(string(finding.Level), finding.ResourceID, finding.Message)
}

// Build constructs the cobra command for the checkup.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	if builder.LoggerProvider == nil {
		return nil, ErrLoggerProviderMissing
	}
	if builder.ConfigurationProvider == nil {
		return nil, ErrConfigurationProviderMissing
	}

	checkupCommand := &cobra.Command{
		Use:   checkupCommandUseConstant,
		Short: checkupCommandShortConstant,
		Long:  checkupCommandLongConstant,
		RunE:  builder.run,
	}

	checkupCommand.Flags().String(rootFlagNameConstant, "", rootFlagDescriptionConstant)
	checkupCommand.Flags().Bool(smokeFlagNameConstant, false, smokeFlagDescriptionConstant)

	return checkupCommand, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	logger := builder.LoggerProvider()
	configuration := builder.ConfigurationProvider()

	if command.Flags().Changed(rootFlagNameConstant) {
		flagRoot, _ := command.Flags().GetString(rootFlagNameConstant)
		configuration.Root = flagRoot
	}
	if command.Flags().Changed(smokeFlagNameConstant) {
		flagSmoke, _ := command.Flags().GetBool(smokeFlagNameConstant)
		configuration.SmokeTest = flagSmoke
	}

	rootSanitizer := pathutils.NewPipelineRootSanitizer()
	configuration.Root = rootSanitizer.Sanitize(configuration.Root, DefaultPipelineRootConstant)

	printer := ui.NewFindingPrinter(utils.NewFlushingWriter(command.OutOrStdout()))

	leaseManager, leaseError := lease.NewManager(
		filepath.Join(configuration.Root, lease.LeaseFileName),
		leaseHolderNameConstant,
		time.Duration(configuration.LeaseStaleMinutes)*time.Minute,
		SystemClock{},
	)
	if leaseError != nil {
		return leaseError
	}

	acquireResult, acquireError := leaseManager.Acquire()
	if acquireError != nil {
		return acquireError
	}
	if !acquireResult.Acquired {
		fmt.Fprintf(command.OutOrStdout(), leaseSkippedMessageTemplateConstant, acquireResult.CurrentHolder, acquireResult.HeldFor)
		return nil
	}
	defer func() {
		if releaseError := leaseManager.Release(); releaseError != nil {
			logger.Warn(releaseError.Error())
		}
	}()

	service, serviceError := builder.buildService(logger, printer)
	if serviceError != nil {
		return serviceError
	}

	report, reportPath, runError := service.Run(command.Context(), RunOptionsFromConfiguration(configuration))
	if runError != nil {
		return runError
	}

	printer.EmitStatus(string(report.Status))
	fmt.Fprintf(command.OutOrStdout(), reportPathMessageTemplateConstant, reportPath)
	return nil
}

func (builder *CommandBuilder) buildService(logger *zap.Logger, printer *ui.FindingPrinter) (*Service, error) {
	shellExecutor, executorError := execshell.NewShellExecutor(execshell.NewZapCommandEventLogger(logger), execshell.NewOSCommandRunner(), nil)
	if executorError != nil {
		return nil, executorError
	}

	schedulerClient, clientError := schedcli.NewClient(shellExecutor)
	if clientError != nil {
		return nil, clientError
	}

	return &Service{
		Logger:       logger,
		FileSystem:   OSFileSystem{},
		Clock:        SystemClock{},
		Scheduler:    schedulerClient,
		EngineRunner: shellExecutor,
		FindingSink:  printerFindingSink{printer: printer},
	}, nil
}
