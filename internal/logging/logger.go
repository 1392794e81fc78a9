package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var globalLogger = zap.NewNop().Sugar()

// Init builds the process logger. Output is JSON; production raises the level
// to info. When logFile is set, entries go to a rotating file instead of stderr.
func Init(appEnv, logFile string) (*zap.SugaredLogger, error) {
	var config zap.Config
	if appEnv == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Encoding = "json"

	var opts []zap.Option
	if logFile != "" {
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    32, // MB
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		})
		core := zapcore.NewCore(zapcore.NewJSONEncoder(config.EncoderConfig), w, config.Level)
		opts = append(opts, zap.WrapCore(func(zapcore.Core) zapcore.Core { return core }))
	}

	logger, err := config.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	globalLogger = logger.Sugar()
	return globalLogger, nil
}

// L returns the process logger, a no-op logger until Init is called.
func L() *zap.SugaredLogger {
	return globalLogger
}

// Close flushes any buffered logs.
func Close() error {
	return globalLogger.Sync()
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}

// WithRequest creates a logger carrying request scoped fields.
func WithRequest(l *zap.SugaredLogger, requestID, sessionID, endpoint string) *zap.SugaredLogger {
	return OrNop(l).With(
		"request_id", requestID,
		"session_id", sessionID,
		"endpoint", endpoint,
	)
}
