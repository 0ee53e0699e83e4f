package logger

import (
	"go.uber.org/zap"
)

var global = zap.NewNop().Sugar()

// Init replaces the global logger. Call once at startup, before any goroutine
// that logs is started.
func Init(development bool) error {
	var (
		l   *zap.Logger
		err error
	)
	if development {
		l, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		l, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return err
	}
	global = l.Sugar()
	return nil
}

// Sync flushes buffered entries. Call on shutdown.
func Sync() {
	_ = global.Sync()
}

func Info(format string, v ...interface{}) {
	global.Infof(format, v...)
}

func Error(format string, v ...interface{}) {
	global.Errorf(format, v...)
}

func Debug(format string, v ...interface{}) {
	global.Debugf(format, v...)
}

func Fatal(format string, v ...interface{}) {
	global.Fatalf(format, v...)
}
