package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger with configuration from environment variables.
// ESSENCE_LOG_LEVEL controls the log level: debug, info, warn, error (default: info).
// ESSENCE_LOG_FORMAT=json switches from the console writer to raw JSON lines,
// which is what CloudWatch wants when running under Lambda.
func Init() {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv("ESSENCE_LOG_LEVEL")))

	if os.Getenv("ESSENCE_LOG_FORMAT") == "json" || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
