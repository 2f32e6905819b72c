// Package audit implements the pipeline health checkup.
//
// A run builds the resource registry for the configured pipeline root, routes
// every resource to its checker (freshness, schema, paired artifacts, log
// continuity, scheduler), rolls the findings up into one status, and persists
// a timestamped JSON report. Checker failures become findings; only a report
// that cannot be written aborts the run.
package audit
