package audit_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oprt/sentinel/internal/audit"
)

type fixedClock struct {
	currentTime time.Time
}

func (clock fixedClock) Now() time.Time { return clock.currentTime }

var referenceTime = time.Date(2026, time.August, 27, 12, 0, 0, 0, time.UTC)

type fakeFile struct {
	contents    []byte
	modifiedAt  time.Time
	isDirectory bool
}

type fakeFileSystem struct {
	files map[string]fakeFile
}

func newFakeFileSystem() *fakeFileSystem {
	return &fakeFileSystem{files: make(map[string]fakeFile)}
}

func (fileSystem *fakeFileSystem) addFile(path string, contents string, modifiedAt time.Time) {
	fileSystem.files[path] = fakeFile{contents: []byte(contents), modifiedAt: modifiedAt}
}

func (fileSystem *fakeFileSystem) addDirectory(path string, modifiedAt time.Time) {
	fileSystem.files[path] = fakeFile{modifiedAt: modifiedAt, isDirectory: true}
}

func (fileSystem *fakeFileSystem) Stat(path string) (fs.FileInfo, error) {
	storedFile, filePresent := fileSystem.files[path]
	if !filePresent {
		return nil, os.ErrNotExist
	}
	return fakeFileInfo{name: filepath.Base(path), file: storedFile}, nil
}

func (fileSystem *fakeFileSystem) ReadFile(path string) ([]byte, error) {
	storedFile, filePresent := fileSystem.files[path]
	if !filePresent || storedFile.isDirectory {
		return nil, os.ErrNotExist
	}
	return storedFile.contents, nil
}

func (fileSystem *fakeFileSystem) ListDirectory(path string) ([]audit.DirectoryEntry, error) {
	if _, directoryPresent := fileSystem.files[path]; !directoryPresent {
		return nil, os.ErrNotExist
	}

	var directoryEntries []audit.DirectoryEntry
	prefix := path + string(filepath.Separator)
	for storedPath, storedFile := range fileSystem.files {
		if !strings.HasPrefix(storedPath, prefix) {
			continue
		}
		relativePath := strings.TrimPrefix(storedPath, prefix)
		if strings.Contains(relativePath, string(filepath.Separator)) {
			continue
		}
		directoryEntries = append(directoryEntries, audit.DirectoryEntry{
			Name:        relativePath,
			ModifiedAt:  storedFile.modifiedAt,
			IsDirectory: storedFile.isDirectory,
		})
	}
	return directoryEntries, nil
}

type fakeFileInfo struct {
	name string
	file fakeFile
}

func (info fakeFileInfo) Name() string       { return info.name }
func (info fakeFileInfo) Size() int64        { return int64(len(info.file.contents)) }
func (info fakeFileInfo) Mode() fs.FileMode  { return 0o644 }
func (info fakeFileInfo) ModTime() time.Time { return info.file.modifiedAt }
func (info fakeFileInfo) IsDir() bool        { return info.file.isDirectory }
func (info fakeFileInfo) Sys() any           { return nil }
