package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide logger. It is a no-op until Init is called.
var Logger = zap.NewNop()

// Init builds a production JSON logger at the given level (info when unparsable).
func Init(logLevel string) error {
	config := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	config.Level.SetLevel(level)
	l, err := config.Build()
	if err != nil {
		return err
	}
	Logger = l
	return nil
}

// Sync flushes buffered entries; call on shutdown.
func Sync() {
	_ = Logger.Sync()
}
