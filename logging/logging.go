package logging

import (
	"os"

	"github.com/go-errors/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/spektr-org/cropyield/config"
)

// New builds the process logger from cfg. Records go to stderr, and also to
// a rotated file when cfg.File is set.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, errors.WrapPrefix(err, "log level", 0)
		}
		level = lvl
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
	if cfg.File != "" {
		sinks = append(sinks, zapcore.AddSync(Rotator(cfg)))
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), zapcore.NewMultiWriteSyncer(sinks...), level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// Rotator returns the lumberjack writer for cfg.File.
func Rotator(cfg config.LogConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
}

func newEncoder(format string) zapcore.Encoder {
	if format == "json" {
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(ec)
	}
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	return zapcore.NewConsoleEncoder(ec)
}
