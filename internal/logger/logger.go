package logger

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Rotation limits for the optional log file.
const (
	fileMaxSizeMB  = 50
	fileMaxBackups = 3
	fileMaxAgeDays = 30
)

var (
	// global is the logger returned by FromContext when the context carries none.
	//nolint:gochecknoglobals // Logger is used all over the project, so it's okay.
	global atomic.Pointer[zap.SugaredLogger]
	// level is shared by every logger built by New, so SetLevel applies everywhere.
	//nolint:gochecknoglobals // Without a level the application would have no logs.
	level = zap.NewAtomicLevelAt(zap.InfoLevel)
)

func init() { //nolint:gochecknoinits // Logging must work before configuration is read.
	SetLogger(New(os.Stdout))
}

// New creates a console-encoded sugared logger writing to out.
func New(out io.Writer, options ...zap.Option) *zap.SugaredLogger {
	//nolint:exhaustruct // Default values are fine for the rest of the encoder settings.
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "time",
		MessageKey:       "message",
		LevelKey:         "level",
		NameKey:          "logger",
		CallerKey:        "caller",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: ", ",
	})

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), level)

	return zap.New(core, options...).Sugar()
}

// Setup replaces the global logger according to the configured level and file.
// An empty file keeps output on stdout only; otherwise lines go to both stdout
// and a size-rotated file.
func Setup(levelName, file string) {
	if lvl, ok := ParseLogLevel(levelName); ok {
		SetLevel(lvl)
	}

	if file == "" {
		SetLogger(New(os.Stdout))

		return
	}

	rotating := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    fileMaxSizeMB,
		MaxBackups: fileMaxBackups,
		MaxAge:     fileMaxAgeDays,
	}

	SetLogger(New(io.MultiWriter(os.Stdout, rotating)))
}

// ParseLogLevel converts string input to zap log level.
func ParseLogLevel(s string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info", "":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	case "fatal":
		return zapcore.FatalLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// Level returns the current logging level.
func Level() zapcore.Level {
	return level.Level()
}

// SetLevel changes the level of every logger created by New.
func SetLevel(lvl zapcore.Level) {
	level.SetLevel(lvl)
}

// Logger returns the global logger.
func Logger() *zap.SugaredLogger {
	return global.Load()
}

// SetLogger sets the global logger.
func SetLogger(l *zap.SugaredLogger) {
	global.Store(l)
}

// Sync flushes the global logger.
func Sync() {
	_ = Logger().Sync() //nolint:errcheck // Sync on stdout fails on some platforms; nothing to do about it.
}
