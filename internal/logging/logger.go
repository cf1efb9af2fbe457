package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	Critical = 50
	Fatal    = Critical
	Error    = 40
	Warning  = 30
	Info     = 20
	Debug    = 10
	NotSet   = 0
)

var (
	LogLevel      int = Warning
	logLevelMutex sync.Mutex

	atomicLevel = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	base        = newBaseLogger()
)

func init() {
	localEnv := os.Getenv("LOCAL")
	if strings.ToLower(localEnv) == "true" || localEnv == "1" {
		SetLogLevel(Debug)
	}
}

func newBaseLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = atomicLevel
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func toZapLevel(level int) zapcore.Level {
	switch {
	case level >= Critical:
		return zapcore.DPanicLevel
	case level >= Error:
		return zapcore.ErrorLevel
	case level >= Warning:
		return zapcore.WarnLevel
	case level >= Info:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

func SetLogLevel(level int) {
	logLevelMutex.Lock()
	defer logLevelMutex.Unlock()
	LogLevel = level
	atomicLevel.SetLevel(toZapLevel(level))
}

// ParseLevel maps a config string ("debug", "info", ...) to a level constant.
// Unknown values map to Warning.
func ParseLevel(s string) int {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug
	case "info":
		return Info
	case "error":
		return Error
	case "critical", "fatal":
		return Critical
	default:
		return Warning
	}
}

// Named returns a structured logger for a component. It shares the global level.
func Named(component string) *zap.SugaredLogger {
	return base.WithOptions(zap.AddCallerSkip(-1)).Named(component).Sugar()
}

func Debugf(format string, v ...interface{}) {
	base.Sugar().Debugf(format, v...)
}

func Infof(format string, v ...interface{}) {
	base.Sugar().Infof(format, v...)
}

func Warningf(format string, v ...interface{}) {
	base.Sugar().Warnf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	base.Sugar().Errorf(format, v...)
}

func Criticalf(format string, v ...interface{}) {
	base.Sugar().DPanicf(format, v...)
}

func Fatalf(format string, v ...interface{}) {
	base.Sugar().Fatalf(format, v...)
}

// Sync flushes buffered log entries.
func Sync() {
	_ = base.Sync()
}
