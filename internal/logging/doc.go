// Package logging provides file-based JSON logging with rotation for nexus.
// CLI commands write their logs to ~/.nexus/logs/server.log at info level,
// or at debug level when the --debug flag is set; they do not log to stderr.
package logging
