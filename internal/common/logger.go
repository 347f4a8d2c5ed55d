package common

import (
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

var (
	globalLogger arbor.ILogger
	loggerMutex  sync.RWMutex
)

// GetLogger returns the global logger instance. If InitLogger hasn't been
// called yet, returns a fallback console logger so early-startup code
// paths never hit a nil logger.
func GetLogger() arbor.ILogger {
	loggerMutex.RLock()
	if globalLogger != nil {
		loggerMutex.RUnlock()
		return globalLogger
	}
	loggerMutex.RUnlock()

	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	if globalLogger == nil {
		globalLogger = arbor.NewLogger().WithConsoleWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeConsole,
			TimeFormat: "15:04:05.000",
			TextOutput: true,
		})
		globalLogger.Warn().Msg("using fallback logger - InitLogger should be called during startup")
	}
	return globalLogger
}

// InitLogger stores the provided logger as the global singleton; SetupLogger
// calls it once the configured logger is built.
func InitLogger(logger arbor.ILogger) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	globalLogger = logger
}

// SetupLogger builds a logger from LoggingConfig: console and/or file
// writers per Output, a memory writer for log-tail endpoints, and the
// configured level.
func SetupLogger(cfg LoggingConfig) arbor.ILogger {
	logger := arbor.NewLogger()

	hasFile, hasConsole := false, false
	for _, out := range cfg.Output {
		switch out {
		case "file":
			hasFile = true
		case "stdout", "console":
			hasConsole = true
		}
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = "15:04:05.000"
	}

	if hasFile && cfg.FilePath != "" {
		logger = logger.WithFileWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeFile,
			FileName:   cfg.FilePath,
			TimeFormat: timeFormat,
			MaxSize:    100 * 1024 * 1024,
			MaxBackups: 3,
			TextOutput: true,
		})
	}

	if hasConsole || (!hasFile && !hasConsole) {
		logger = logger.WithConsoleWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeConsole,
			TimeFormat: timeFormat,
			TextOutput: true,
		})
	}

	// Memory writer backs an in-process log-tail endpoint the way the
	// teacher's WebSocket log streaming does (SPEC_FULL.md Ambient Stack).
	logger = logger.WithMemoryWriter(models.WriterConfiguration{
		Type:       models.LogWriterTypeMemory,
		TimeFormat: timeFormat,
		TextOutput: true,
	})

	logger = logger.WithLevelFromString(cfg.Level)

	InitLogger(logger)
	return logger
}
