package lease

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	leaseCommandUseConstant   = "lease"
	leaseCommandShortConstant = "Inspect or release the pipeline run lease"

	statusCommandUseConstant    = "status"
	statusCommandShortConstant  = "Show the current lease holder and age"
	releaseCommandUseConstant   = "release"
	releaseCommandShortConstant = "Release the lease held by this tool"

	rootFlagNameConstant        = "root"
	rootFlagDescriptionConstant = "pipeline root directory"

	leaseFreeMessageConstant         = "lease: free\n"
	leaseHeldMessageTemplateConstant = "lease: held by %s for %s (stale after %s)\n"
	leaseReleasedMessageConstant     = "lease: released\n"
	providersMissingMessageConstant  = "lease command requires logger and configuration providers"
)

// ErrProvidersMissing indicates a CommandBuilder built without its providers.
var ErrProvidersMissing = errors.New(providersMissingMessageConstant)

// CommandConfiguration captures the lease command settings.
type CommandConfiguration struct {
	Root              string `mapstructure:"root"`
	LeaseStaleMinutes int    `mapstructure:"lease_stale_minutes"`
	HolderName        string `mapstructure:"holder_name"`
}

// CommandBuilder assembles the lease command group.
type CommandBuilder struct {
	LoggerProvider        func() *zap.Logger
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the lease command with its status and release subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	if builder.LoggerProvider == nil || builder.ConfigurationProvider == nil {
		return nil, ErrProvidersMissing
	}

	leaseCommand := &cobra.Command{
		Use:   leaseCommandUseConstant,
		Short: leaseCommandShortConstant,
	}
	leaseCommand.PersistentFlags().String(rootFlagNameConstant, "", rootFlagDescriptionConstant)

	statusCommand := &cobra.Command{
		Use:   statusCommandUseConstant,
		Short: statusCommandShortConstant,
		RunE:  builder.runStatus,
	}
	releaseCommand := &cobra.Command{
		Use:   releaseCommandUseConstant,
		Short: releaseCommandShortConstant,
		RunE:  builder.runRelease,
	}

	leaseCommand.AddCommand(statusCommand, releaseCommand)
	return leaseCommand, nil
}

func (builder *CommandBuilder) resolveManager(command *cobra.Command) (*Manager, time.Duration, error) {
	configuration := builder.ConfigurationProvider()
	if command.Flags().Changed(rootFlagNameConstant) {
		flagRoot, _ := command.Flags().GetString(rootFlagNameConstant)
		configuration.Root = flagRoot
	}

	staleAfter := time.Duration(configuration.LeaseStaleMinutes) * time.Minute
	manager, managerError := NewManager(
		filepath.Join(configuration.Root, LeaseFileName),
		configuration.HolderName,
		staleAfter,
		SystemClock{},
	)
	if managerError != nil {
		return nil, 0, managerError
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return manager, staleAfter, nil
}

func (builder *CommandBuilder) runStatus(command *cobra.Command, _ []string) error {
	manager, staleAfter, managerError := builder.resolveManager(command)
	if managerError != nil {
		return managerError
	}

	currentRecord, heldFor, inspectError := manager.Inspect()
	if inspectError != nil {
		return inspectError
	}
	if currentRecord == nil {
		fmt.Fprint(command.OutOrStdout(), leaseFreeMessageConstant)
		return nil
	}

	fmt.Fprintf(command.OutOrStdout(), leaseHeldMessageTemplateConstant, currentRecord.Holder, heldFor.Round(time.Second), staleAfter)
	return nil
}

func (builder *CommandBuilder) runRelease(command *cobra.Command, _ []string) error {
	manager, _, managerError := builder.resolveManager(command)
	if managerError != nil {
		return managerError
	}

	releaseError := manager.Release()
	if releaseError != nil {
		return releaseError
	}

	fmt.Fprint(command.OutOrStdout(), leaseReleasedMessageConstant)
	return nil
}
