package logger

import (
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

// Init initializes the global logger with the specified level.
// level can be: "debug", "info", "warn", "error", "fatal".
// At debug level output is human-friendly console format, JSON otherwise.
func Init(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var writer io.Writer = os.Stdout
	if lvl == zerolog.DebugLevel {
		writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	SetOutput(writer, lvl)
}

// SetOutput replaces the destination of the global logger. Tests use it to
// capture or silence output.
func SetOutput(w io.Writer, lvl zerolog.Level) {
	log = zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Caller().
		Str("service", "keeping-track-of-it").
		Logger()
}

func init() {
	Init("info")
}

func Debug() *zerolog.Event { return log.Debug() }
func Info() *zerolog.Event  { return log.Info() }
func Warn() *zerolog.Event  { return log.Warn() }
func Error() *zerolog.Event { return log.Error() }
func Fatal() *zerolog.Event { return log.Fatal() }

// Infof provides printf-style logging at info level.
func Infof(format string, v ...interface{}) {
	log.Info().Msgf(format, v...)
}

// Warnf provides printf-style logging at warn level.
func Warnf(format string, v ...interface{}) {
	log.Warn().Msgf(format, v...)
}

// Errorf provides printf-style logging at error level.
func Errorf(format string, v ...interface{}) {
	log.Error().Msgf(format, v...)
}

// Fatalf logs at fatal level and exits.
func Fatalf(format string, v ...interface{}) {
	log.Fatal().Msgf(format, v...)
}

// Component returns a child logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// GinLogger returns a Gin middleware that logs HTTP requests using zerolog.
// The matched route pattern is logged instead of the raw path so ids do not
// explode log cardinality.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		if status >= 500 {
			event = log.Error()
		} else if status >= 400 {
			event = log.Warn()
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		event.
			Int("status", status).
			Str("method", c.Request.Method).
			Str("route", route).
			Str("path", c.Request.URL.Path).
			Str("ip", c.ClientIP()).
			Dur("latency", time.Since(start)).
			Int("size", c.Writer.Size()).
			Msg("request")
	}
}

// GinRecovery returns a Gin recovery middleware that logs panics using zerolog.
func GinRecovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error().
			Interface("panic", recovered).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("ip", c.ClientIP()).
			Msg("panic recovered")
		c.AbortWithStatusJSON(500, gin.H{"code": 500, "message": "internal server error"})
	})
}
