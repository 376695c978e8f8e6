package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FormatPretty is accepted as a synonym for console output.
const FormatPretty = "pretty"

// Logger is a zerolog logger bound to one service.
type Logger struct {
	logger  zerolog.Logger
	service string
}

// Init builds the process-wide logger. Console formats also restyle
// zerolog's own global logger so third-party output matches.
func Init(cfg *Config) {
	cfg.ApplyDefaults()
	name := cfg.ServiceName
	if name == "" {
		name = "default"
	}
	globalLogger = New(cfg, name)
	if isConsole(cfg.Format) {
		log.Logger = consoleLogger(cfg, sink(cfg.Output), name)
	}
}

// New returns a logger writing to the configured output.
func New(cfg *Config, serviceName string) *Logger {
	return NewWithWriter(cfg, serviceName, sink(cfg.Output))
}

// NewWithWriter is New with an explicit destination, mostly for tests.
// The parsed level becomes zerolog's global level; unknown levels fall
// back to info.
func NewWithWriter(cfg *Config, serviceName string, w io.Writer) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	zl := zerolog.New(w)
	switch {
	case isConsole(cfg.Format):
		zl = consoleLogger(cfg, w, serviceName)
	case cfg.Timestamp:
		zl = zl.With().Timestamp().Logger()
	}
	if cfg.Caller {
		zl = zl.With().Caller().Logger()
	}
	return &Logger{logger: zl, service: serviceName}
}

// NewDefault returns an info-level console logger on stderr.
func NewDefault(serviceName string) *Logger {
	return New(&Config{Level: "info", Format: "console", Output: "stderr", Timestamp: true}, serviceName)
}

type ctxKey int

const (
	runIDKey ctxKey = iota
	requestIDKey
)

// ContextWithRunID stores a run id that WithContext picks up.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// ContextWithRequestID stores a request id that WithContext picks up.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithContext copies the run and request ids carried by ctx onto the logger.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zc := l.logger.With()
	if id, ok := ctx.Value(runIDKey).(string); ok && id != "" {
		zc = zc.Str(FieldRunID, id)
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		zc = zc.Str(FieldRequestID, id)
	}
	return l.derive(zc.Logger())
}

// WithComponent tags every line with the component name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.derive(l.logger.With().Str(FieldComponent, name).Logger())
}

func (l *Logger) derive(zl zerolog.Logger) *Logger {
	return &Logger{logger: zl, service: l.service}
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	emit(l.logger.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	emit(l.logger.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	emit(l.logger.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	emit(l.logger.Error(), msg, fields)
}

// emit is a no-op for events below the active level, where zerolog hands
// back a nil event.
func emit(ev *zerolog.Event, msg string, fields []map[string]interface{}) {
	if ev == nil {
		return
	}
	for _, fm := range fields {
		ev.Fields(fm)
	}
	ev.Msg(msg)
}

var globalLogger *Logger

// GetGlobalLogger returns the logger built by Init, or a default one.
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		globalLogger = NewDefault("default")
	}
	return globalLogger
}

// Get returns the global logger tagged with a component name. Call it at
// use time rather than caching it before Init runs.
func Get(component string) *Logger {
	return GetGlobalLogger().WithComponent(component)
}

func Debug(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Error(msg, fields...) }

func isConsole(format string) bool {
	switch strings.ToLower(format) {
	case "console", "text", FormatPretty:
		return true
	}
	return false
}

func sink(output string) io.Writer {
	if strings.EqualFold(output, "stdout") {
		return os.Stdout
	}
	return os.Stderr
}

const ansiReset = "\033[0m"

// levelStyle maps zerolog level names to a short tag and its color.
var levelStyle = map[string][2]string{
	"debug": {"DBG", "\033[36m"},
	"info":  {"INF", "\033[32m"},
	"warn":  {"WRN", "\033[33m"},
	"error": {"ERR", "\033[31m"},
	"fatal": {"FTL", "\033[35m"},
}

// consoleLogger renders "[SVC][LVL] msg key:value" lines, where SVC is the
// first three letters of the service name.
func consoleLogger(cfg *Config, out io.Writer, serviceName string) zerolog.Logger {
	prefix := ""
	if serviceName != "default" && len(serviceName) >= 3 {
		prefix = "[" + strings.ToUpper(serviceName[:3]) + "]"
		if !cfg.NoColor {
			prefix = "\033[34m" + prefix + ansiReset
		}
	}
	w := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		NoColor:    cfg.NoColor,
		FormatLevel: func(i interface{}) string {
			return prefix + levelLabel(fmt.Sprint(i), cfg.NoColor)
		},
		FormatFieldName: func(i interface{}) string { return fmt.Sprint(i) + ":" },
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

func levelLabel(level string, noColor bool) string {
	style, ok := levelStyle[strings.ToLower(level)]
	if !ok {
		return "[" + strings.ToUpper(level) + "]"
	}
	if noColor {
		return "[" + style[0] + "]"
	}
	return style[1] + "[" + style[0] + "]" + ansiReset
}
