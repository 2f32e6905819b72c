package ui

import (
	"fmt"
	"io"
	"sync"
)

const (
	findingLineTemplateConstant = "[%s] %s: %s\n"
	statusLineTemplateConstant  = "status: %s\n"
)

// FindingPrinter streams findings as level-tagged console lines.
type FindingPrinter struct {
	writer      io.Writer
	writerGuard sync.Mutex
}

// NewFindingPrinter constructs a printer writing to the provided writer.
func NewFindingPrinter(writer io.Writer) *FindingPrinter {
	return &FindingPrinter{writer: writer}
}

// EmitFinding writes one finding line.
func (printer *FindingPrinter) EmitFinding(level string, resourceID string, message string) {
	printer.writerGuard.Lock()
	defer printer.writerGuard.Unlock()
	fmt.Fprintf(printer.writer, findingLineTemplateConstant, level, resourceID, message)
}

// EmitStatus writes the final aggregate status line.
func (printer *FindingPrinter) EmitStatus(status string) {
	printer.writerGuard.Lock()
	defer printer.writerGuard.Unlock()
	fmt.Fprintf(printer.writer, statusLineTemplateConstant, status)
}
