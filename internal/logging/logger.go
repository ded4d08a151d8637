// Package logging builds the proxy's structured request logger: zap with
// a lumberjack-rotated file sink when a log path is configured, console
// output otherwise.
package logging

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Oct4Pie/toolbridge/internal/config"
)

type requestIDKey struct{}

// WithRequestID attaches a request id to ctx for later retrieval by
// FromContext.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id stashed by WithRequestID,
// or "" if none was attached.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// New builds the process-wide *zap.Logger from cfg. When cfg.LogPath is
// empty, logs go to stderr; otherwise they rotate through lumberjack.
func New(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var sink zapcore.WriteSyncer
	if cfg.LogPath != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.LogPath,
			MaxSize:    100,
			MaxBackups: 10,
			MaxAge:     30,
			Compress:   true,
		})
	} else {
		sink = zapcore.Lock(zapcore.AddSync(os.Stderr))
	}

	encoder := zapcore.NewJSONEncoder(encoderConfig)
	if cfg.DebugMode && cfg.LogPath == "" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, sink, level)

	opts := []zap.Option{zap.AddCaller()}
	if cfg.DebugMode {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(core, opts...), nil
}

// RequestLogger returns logger scoped to a single request, annotated with
// its request id and the client/backend provider pair once known.
func RequestLogger(logger *zap.Logger, requestID string, clientFormat, backendFormat string) *zap.Logger {
	fields := []zap.Field{zap.String("request_id", requestID)}
	if clientFormat != "" {
		fields = append(fields, zap.String("client_format", clientFormat))
	}
	if backendFormat != "" {
		fields = append(fields, zap.String("backend_format", backendFormat))
	}
	return logger.With(fields...)
}
