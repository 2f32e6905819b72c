package utils

import (
	"io"
	"sync"
)

// flusher is the optional surface a wrapped writer may expose.
type flusher interface {
	Flush() error
}

// FlushingWriter forwards writes to an underlying writer and flushes it after
// every write. The checkup streams findings one line at a time; without the
// flush, a buffered stdout would hold findings back until the run completes,
// defeating the streaming output.
type FlushingWriter struct {
	writer io.Writer
	mutex  sync.Mutex
}

// NewFlushingWriter wraps the writer. Wrapping an existing FlushingWriter
// returns it unchanged so nested command plumbing cannot stack wrappers.
func NewFlushingWriter(writer io.Writer) io.Writer {
	if writer == nil {
		return nil
	}
	if existingWrapper, isWrapped := writer.(*FlushingWriter); isWrapped {
		return existingWrapper
	}
	return &FlushingWriter{writer: writer}
}

// Write forwards the data and flushes the underlying writer when it exposes
// a Flush method. Writers without one pass through untouched.
func (flushingWriter *FlushingWriter) Write(data []byte) (int, error) {
	if flushingWriter == nil || flushingWriter.writer == nil {
		return 0, nil
	}

	flushingWriter.mutex.Lock()
	defer flushingWriter.mutex.Unlock()

	bytesWritten, writeError := flushingWriter.writer.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}

	if flushableWriter, canFlush := flushingWriter.writer.(flusher); canFlush {
		if flushError := flushableWriter.Flush(); flushError != nil {
			return bytesWritten, flushError
		}
	}

	return bytesWritten, nil
}
