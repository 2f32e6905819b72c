package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	tildeSymbolConstant             = "~"
	tildeForwardSlashPrefixConstant = "~/"
)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// PipelineRootSanitizer normalizes user-supplied pipeline root paths.
//
// It trims whitespace, expands a leading tilde against the user's home
// directory, and substitutes the provided fallback when the candidate is
// empty. Unresolvable home lookups leave the path untouched so the later
// audit reports the root as missing instead of failing configuration.
type PipelineRootSanitizer struct {
	homeDirectoryProvider HomeDirectoryProvider
	homeDirectory         string
	homeDirectoryError    error
	initializationGuard   sync.Once
}

// NewPipelineRootSanitizer constructs a sanitizer using the operating system home lookup.
func NewPipelineRootSanitizer() *PipelineRootSanitizer {
	return NewPipelineRootSanitizerWithProvider(os.UserHomeDir)
}

// NewPipelineRootSanitizerWithProvider constructs a sanitizer with a custom home directory provider.
func NewPipelineRootSanitizerWithProvider(provider HomeDirectoryProvider) *PipelineRootSanitizer {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &PipelineRootSanitizer{homeDirectoryProvider: provider}
}

// Sanitize normalizes the candidate root, substituting fallbackRoot when empty.
func (sanitizer *PipelineRootSanitizer) Sanitize(candidateRoot string, fallbackRoot string) string {
	trimmedRoot := strings.TrimSpace(candidateRoot)
	if len(trimmedRoot) == 0 {
		trimmedRoot = fallbackRoot
	}
	return sanitizer.expandHomePrefix(trimmedRoot)
}

func (sanitizer *PipelineRootSanitizer) expandHomePrefix(candidatePath string) string {
	if sanitizer == nil || !strings.HasPrefix(candidatePath, tildeSymbolConstant) {
		return candidatePath
	}

	resolvedHomeDirectory := sanitizer.resolveHomeDirectory()
	if len(resolvedHomeDirectory) == 0 {
		return candidatePath
	}

	if candidatePath == tildeSymbolConstant {
		return resolvedHomeDirectory
	}

	if strings.HasPrefix(candidatePath, tildeForwardSlashPrefixConstant) {
		relativePath := strings.TrimPrefix(candidatePath, tildeForwardSlashPrefixConstant)
		return filepath.Join(resolvedHomeDirectory, relativePath)
	}

	return candidatePath
}

func (sanitizer *PipelineRootSanitizer) resolveHomeDirectory() string {
	sanitizer.initializationGuard.Do(func() {
		sanitizer.homeDirectory, sanitizer.homeDirectoryError = sanitizer.homeDirectoryProvider()
	})
	if sanitizer.homeDirectoryError != nil {
		return ""
	}
	return sanitizer.homeDirectory
}
