package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// SetupLogger installs the global slog default logger from the logging
// section of the configuration (WMS_LOGGING_FORMAT / WMS_LOGGING_LEVEL).
//
// The audit pipeline and the request logger both emit through slog.Default,
// so this must run before the router is built. JSON is the default format —
// floor deployments ship logs to the warehouse log aggregator, which indexes
// structured records; "text" is the opt-in for running the server on a
// laptop. AddSource is enabled only at debug level.
func SetupLogger(format, level string) {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
	slog.Info("structured logging configured", "format", format, "level", lvl.String())
}

// ParseLevel maps a configuration string to a slog.Level. Unknown values
// fall back to info rather than erroring: a typo in WMS_LOGGING_LEVEL should
// never keep the server from starting.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
