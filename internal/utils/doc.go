// Package utils carries the ambient plumbing shared by the sentinel
// commands: the viper-backed ConfigurationLoader with embedded defaults and
// environment overrides, the zap LoggerFactory behind the --log-level and
// --log-format flags, and the FlushingWriter that keeps the finding stream
// visible on buffered outputs.
package utils
