// Package cli assembles the oprt-sentinel command-line application: the root
// command, configuration resolution, logger construction, and the checkup and
// lease subcommands.
package cli
