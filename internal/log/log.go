package log

import (
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	logger     atomic.Pointer[zap.SugaredLogger]
	loggerOnce sync.Once
	atomLevel  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// current lazily builds a production logger so that package-level calls
// work before Setup is invoked.
func current() *zap.SugaredLogger {
	loggerOnce.Do(func() {
		logger.CompareAndSwap(nil, build(false))
	})
	return logger.Load()
}

func build(development bool) *zap.SugaredLogger {
	var conf zap.Config
	if development {
		conf = zap.NewDevelopmentConfig()
		conf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		conf = zap.NewProductionConfig()
		conf.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	}
	conf.Level = atomLevel

	l, err := conf.Build(zap.AddCallerSkip(2))
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// Setup replaces the global logger. development selects the console encoder.
func Setup(level Level, development bool) {
	SetLevel(level)
	logger.Store(build(development))
}

// ParseLevel maps a config string onto a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

func SetLevel(l Level) {
	switch l {
	case LevelDebug:
		atomLevel.SetLevel(zapcore.DebugLevel)
	case LevelError:
		atomLevel.SetLevel(zapcore.ErrorLevel)
	default:
		atomLevel.SetLevel(zapcore.InfoLevel)
	}
}

func Debug(msg string, kv ...any) {
	logWithLevel(LevelDebug, msg, kv...)
}

func Info(msg string, kv ...any) {
	logWithLevel(LevelInfo, msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	extended := append([]any{"err", err}, kv...)
	logWithLevel(LevelError, msg, extended...)
}

// Sync flushes buffered entries; bind it to shutdown.
func Sync() {
	_ = current().Sync()
}

func logWithLevel(level Level, msg string, kv ...any) {
	l := current()

	// Odd trailing key is dropped rather than reported as DPANIC by zap.
	if len(kv)%2 != 0 {
		kv = kv[:len(kv)-1]
	}

	switch level {
	case LevelDebug:
		l.Debugw(msg, kv...)
	case LevelError:
		l.Errorw(msg, kv...)
	default:
		l.Infow(msg, kv...)
	}
}

// Enabled reports whether entries at level are currently emitted.
func Enabled(level Level) bool {
	switch level {
	case LevelDebug:
		return atomLevel.Enabled(zapcore.DebugLevel)
	case LevelError:
		return atomLevel.Enabled(zapcore.ErrorLevel)
	default:
		return atomLevel.Enabled(zapcore.InfoLevel)
	}
}
