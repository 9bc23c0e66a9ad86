package logging

import (
	"log"
	"log/slog"
	"os"
	"strings"
)

const levelEnvKey = "OPENSHELF_LOG_LEVEL"

// Setup wires slog and the legacy standard logger to a single JSON stream on
// stdout. Field names follow the collector contract used by deployments
// (timestamp, severity, message); every line carries the service name and, when
// provided, the environment. The minimum level is read from OPENSHELF_LOG_LEVEL
// and defaults to info.
func Setup(service, env string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       levelFromEnv(os.Getenv(levelEnvKey)),
		ReplaceAttr: renameCoreFields,
	})

	args := []any{slog.String("service", strings.TrimSpace(service))}
	if env = strings.TrimSpace(env); env != "" {
		args = append(args, slog.String("env", env))
	}
	logger := slog.New(handler).With(args...)
	slog.SetDefault(logger)

	// Bridge the standard library logger so stray log.Printf calls from
	// dependencies land in the same stream with the same labels.
	bridge := slog.NewLogLogger(logger.Handler(), slog.LevelInfo)
	bridge.SetFlags(0)
	log.SetOutput(bridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return logger
}

func levelFromEnv(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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

func renameCoreFields(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "timestamp"
	case slog.LevelKey:
		return slog.String("severity", strings.ToUpper(attr.Value.String()))
	case slog.MessageKey:
		attr.Key = "message"
	}
	return attr
}
