package lease

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultStaleAfter is how long a lease may sit unrenewed before another
	// holder is allowed to take it over.
	DefaultStaleAfter = 55 * time.Minute

	// LeaseFileName is the lease location relative to the pipeline root.
	LeaseFileName = "logs/run_lease.json"

	leaseFilePermissionsConstant os.FileMode = 0o644

	managerNotConfiguredMessageConstant = "lease manager requires a path and holder name"
	leaseReadErrorTemplateConstant      = "failed to read lease file %s: %w"
	leaseDecodeErrorTemplateConstant    = "failed to decode lease file %s: %w"
	leaseWriteErrorTemplateConstant     = "failed to write lease file %s: %w"
	leaseReleaseErrorTemplateConstant   = "failed to release lease file %s: %w"
	notHolderErrorTemplateConstant      = "lease held by %s, not %s"
)

// ErrManagerNotConfigured indicates a Manager built without path or holder.
var ErrManagerNotConfigured = errors.New(managerNotConfiguredMessageConstant)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// Record is the persisted lease payload.
type Record struct {
	Holder     string    `json:"holder"`
	AcquiredAt time.Time `json:"acquired_at_utc"`
}

// AcquireResult reports the outcome of an acquisition attempt.
type AcquireResult struct {
	Acquired      bool
	OverrodeStale bool
	CurrentHolder string
	HeldFor       time.Duration
}

// Manager acquires and releases the run lease at a fixed path.
type Manager struct {
	leasePath  string
	holderName string
	staleAfter time.Duration
	clock      Clock
}

// NewManager constructs a Manager for the given lease path and holder name.
func NewManager(leasePath string, holderName string, staleAfter time.Duration, clock Clock) (*Manager, error) {
	if len(leasePath) == 0 || len(holderName) == 0 {
		return nil, ErrManagerNotConfigured
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Manager{leasePath: leasePath, holderName: holderName, staleAfter: staleAfter, clock: clock}, nil
}

// Acquire attempts to take the lease.
//
// A missing lease file is taken immediately. An existing lease older than the
// stale threshold is overridden. A fresh lease is reported without error so
// callers can decide whether to wait or abort. The holder name never exempts
// a fresh lease: concurrent processes share one name, so matching it proves
// nothing about which process wrote the record.
func (manager *Manager) Acquire() (AcquireResult, error) {
	currentRecord, readError := manager.readRecord()
	if readError != nil {
		return AcquireResult{}, readError
	}

	currentTime := manager.clock.Now().UTC()

	if currentRecord != nil {
		heldFor := currentTime.Sub(currentRecord.AcquiredAt.UTC())
		if heldFor < manager.staleAfter {
			return AcquireResult{CurrentHolder: currentRecord.Holder, HeldFor: heldFor}, nil
		}

		writeError := manager.writeRecord(Record{Holder: manager.holderName, AcquiredAt: currentTime})
		if writeError != nil {
			return AcquireResult{}, writeError
		}
		return AcquireResult{
			Acquired:      true,
			OverrodeStale: true,
			CurrentHolder: manager.holderName,
		}, nil
	}

	writeError := manager.writeRecord(Record{Holder: manager.holderName, AcquiredAt: currentTime})
	if writeError != nil {
		return AcquireResult{}, writeError
	}
	return AcquireResult{Acquired: true, CurrentHolder: manager.holderName}, nil
}

// Release removes the lease file when held by this manager's holder.
func (manager *Manager) Release() error {
	currentRecord, readError := manager.readRecord()
	if readError != nil {
		return readError
	}
	if currentRecord == nil {
		return nil
	}
	if currentRecord.Holder != manager.holderName {
		return fmt.Errorf(notHolderErrorTemplateConstant, currentRecord.Holder, manager.holderName)
	}

	removeError := os.Remove(manager.leasePath)
	if removeError != nil && !errors.Is(removeError, os.ErrNotExist) {
		return fmt.Errorf(leaseReleaseErrorTemplateConstant, manager.leasePath, removeError)
	}
	return nil
}

// Inspect returns the current lease record, or nil when no lease is held.
func (manager *Manager) Inspect() (*Record, time.Duration, error) {
	currentRecord, readError := manager.readRecord()
	if readError != nil || currentRecord == nil {
		return nil, 0, readError
	}
	heldFor := manager.clock.Now().UTC().Sub(currentRecord.AcquiredAt.UTC())
	return currentRecord, heldFor, nil
}

func (manager *Manager) readRecord() (*Record, error) {
	leaseContents, readError := os.ReadFile(manager.leasePath)
	if readError != nil {
		if errors.Is(readError, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf(leaseReadErrorTemplateConstant, manager.leasePath, readError)
	}

	var persistedRecord Record
	decodeError := json.Unmarshal(leaseContents, &persistedRecord)
	if decodeError != nil {
		return nil, fmt.Errorf(leaseDecodeErrorTemplateConstant, manager.leasePath, decodeError)
	}
	return &persistedRecord, nil
}

func (manager *Manager) writeRecord(record Record) error {
	encodedRecord, encodeError := json.Marshal(record)
	if encodeError != nil {
		return fmt.Errorf(leaseWriteErrorTemplateConstant, manager.leasePath, encodeError)
	}

	directoryError := os.MkdirAll(filepath.Dir(manager.leasePath), 0o755)
	if directoryError != nil {
		return fmt.Errorf(leaseWriteErrorTemplateConstant, manager.leasePath, directoryError)
	}

	writeError := os.WriteFile(manager.leasePath, encodedRecord, leaseFilePermissionsConstant)
	if writeError != nil {
		return fmt.Errorf(leaseWriteErrorTemplateConstant, manager.leasePath, writeError)
	}
	return nil
}
