package logging

import (
	"log/slog"
)

// SetupDaemonMode initializes logging for long-running watch-mode operation.
// Watch mode typically runs detached from a terminal (under a service
// manager or nohup'd), so it logs only to file and always at debug level
// to make post-mortem diagnosis of a crashed watcher possible.
func SetupDaemonMode() (func(), error) {
	cfg := Config{
		Level:         "debug",
		FilePath:      WatchLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)

	slog.Info("daemon mode logging initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level),
		slog.Bool("stderr_disabled", true))

	return cleanup, nil
}

// SetupDaemonModeWithLevel initializes daemon-safe logging with a specific level.
func SetupDaemonModeWithLevel(level string) (func(), error) {
	cfg := Config{
		Level:         level,
		FilePath:      WatchLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	return cleanup, nil
}
