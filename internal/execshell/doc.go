// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging and timeouts via ShellExecutor, exposes
// OSCommandRunner for default process execution, and defines abstractions used
// by oprt-sentinel to query the task scheduler and smoke-run the pipeline
// engine in a testable manner.
package execshell
