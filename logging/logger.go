package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var loggerMutex sync.RWMutex // guards access to global logger state

// loggers is the set of loggers in the system
var loggers = make(map[string]*zap.SugaredLogger)

var levels = make(map[string]zap.AtomicLevel)
var defaultLevel = zapcore.InfoLevel
var output = zapcore.AddSync(os.Stdout)

var logCore = newCore(ColorizedOutput, output, defaultLevel)

// StandardLogger is the subset of *zap.SugaredLogger that the throttled
// logger depends on.
type StandardLogger interface {
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
}

func newCore(format LogFormat, ws zapcore.WriteSyncer, level zapcore.Level) zapcore.Core {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch format {
	case JSONOutput:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		// ColorizedOutput and PlaintextOutput both use the console
		// encoder; colorization is left to the terminal.
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	return zapcore.NewCore(encoder, ws, zap.NewAtomicLevelAt(level))
}

var DefaultLogger = GetLogger("gateway")

// GetLogger returns the named, process-wide logger, creating it on first
// use. Every package in this module fetches its logger through here rather
// than constructing one directly.
func GetLogger(name string) *zap.SugaredLogger {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	log, ok := loggers[name]
	if !ok {
		levels[name] = zap.NewAtomicLevelAt(defaultLevel)

		log = zap.New(logCore, zap.AddCaller()).
			WithOptions(zap.IncreaseLevel(levels[name])).
			Named(name).
			Sugar()

		loggers[name] = log
	}

	return log
}

// SetLevel adjusts the level of a previously created logger. A no-op for
// unknown names.
func SetLevel(name string, level zapcore.Level) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	if lvl, ok := levels[name]; ok {
		lvl.SetLevel(level)
	}
}

// Sync flushes every named logger; call before process exit.
func Sync() {
	loggerMutex.RLock()
	defer loggerMutex.RUnlock()
	for _, l := range loggers {
		_ = l.Sync()
	}
}
