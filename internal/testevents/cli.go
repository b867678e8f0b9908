package testevents

import (
	"context"
	"fmt"
	"os"

	"github.com/okian/jetrates/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0o600
)

// SetupLogging initializes the logger and, when logFile is set, mirrors its
// output into that file. The returned func closes the file.
func SetupLogging(logFile string, verbose bool) (func(), error) {
	if err := logger.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	if logFile == "" {
		return func() {}, nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	logger.AddSink(file)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return func() { _ = logger.Sync() }, nil
}
