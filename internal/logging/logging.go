package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"linotpadm/internal/schema"
)

// SetupLogger configures a logger with the given verbosity and log path.
// Logs go to stderr so stdout only carries command output. If logPath is
// empty or the file cannot be opened, only stderr is used.
func SetupLogger(verbose bool, logPath string) *logrus.Logger {
	return NewLogger(os.Stderr, verbose, logPath)
}

// NewLogger is SetupLogger with an explicit console writer
func NewLogger(console io.Writer, verbose bool, logPath string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(console)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	// Set log level based on verbose flag
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	if logPath != "" {
		if logFile, err := openLogFile(logPath); err == nil {
			logger.SetOutput(io.MultiWriter(console, logFile))
			logger.WithField("log_file", logPath).Debug("Logging to file and stderr")
		} else {
			logger.WithError(err).WithField("log_path", logPath).Warn("Failed to open log file, using stderr only")
		}
	}

	return logger
}

// openLogFile opens a log file for writing, creating parent directories if needed
func openLogFile(logPath string) (*os.File, error) {
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// SetupLoggerFromParams creates a logger from the verbose and logfile parameters
func SetupLoggerFromParams(params schema.ParameterSet) *logrus.Logger {
	return SetupLogger(schema.IsTrue(params.Get("verbose")), params.Get("logfile"))
}
