package audit

import (
	"context"
	"io/fs"
	"os"
	"time"

	"github.com/oprt/sentinel/internal/execshell"
	"github.com/oprt/sentinel/internal/schedcli"
)

// DirectoryEntry is one listed child of a directory.
type DirectoryEntry struct {
	Name        string
	ModifiedAt  time.Time
	IsDirectory bool
}

// FileSystem abstracts the filesystem operations checkers rely on.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	ReadFile(path string) ([]byte, error)
	ListDirectory(path string) ([]DirectoryEntry, error)
}

// SchedulerClient enumerates scheduled timer units.
type SchedulerClient interface {
	ListTimers(executionContext context.Context) ([]schedcli.SchedulerTask, error)
}

// EngineRunner invokes the pipeline engine for the optional smoke run.
type EngineRunner interface {
	ExecuteEngine(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// FindingSink receives findings as they are produced.
type FindingSink interface {
	EmitFinding(finding Finding)
}

// OSFileSystem implements FileSystem on the host filesystem.
type OSFileSystem struct{}

// Stat returns file metadata for the path.
func (OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// ReadFile returns the full contents of the file at the path.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ListDirectory returns the children of the directory with modification times.
func (fileSystem OSFileSystem) ListDirectory(path string) ([]DirectoryEntry, error) {
	rawEntries, readError := os.ReadDir(path)
	if readError != nil {
		return nil, readError
	}

	directoryEntries := make([]DirectoryEntry, 0, len(rawEntries))
	for _, rawEntry := range rawEntries {
		entryInfo, infoError := rawEntry.Info()
		if infoError != nil {
			continue
		}
		directoryEntries = append(directoryEntries, DirectoryEntry{
			Name:        rawEntry.Name(),
			ModifiedAt:  entryInfo.ModTime(),
			IsDirectory: rawEntry.IsDir(),
		})
	}
	return directoryEntries, nil
}
