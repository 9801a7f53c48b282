package logger

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Log is the global logger instance
	Log = zap.NewNop()
)

// RequestIDKey is the key used to store request ID in context
const RequestIDKey = "request_id"

type ctxKey struct{}

// Initialize sets up the logger with the specified environment
func Initialize(env string) *zap.Logger {
	return InitializeWithWriter(env, nil)
}

// InitializeWithWriter sets up the logger with the specified environment and an
// optional extra sink (the CloudWatch Logs client in deployed environments).
func InitializeWithWriter(env string, extra io.Writer) *zap.Logger {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if extra != nil {
		level := zap.NewAtomicLevelAt(config.Level.Level())
		consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(config.EncoderConfig), zapcore.AddSync(os.Stdout), level)

		jsonConfig := config.EncoderConfig
		jsonConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		extraCore := zapcore.NewCore(zapcore.NewJSONEncoder(jsonConfig), zapcore.AddSync(extra), level)

		Log = zap.New(zapcore.NewTee(consoleCore, extraCore), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	} else {
		built, err := config.Build()
		if err != nil {
			fmt.Printf("Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
		Log = built
	}

	zap.ReplaceGlobals(Log)
	return Log
}

// RequestID returns a gin middleware that propagates or creates the X-Request-ID header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Request = c.Request.WithContext(WithContext(c.Request.Context(), requestID))
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// Error logs an error with request ID and additional context
func Error(ctx context.Context, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String(RequestIDKey, getRequestID(ctx)))
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	Log.Error(msg, fields...)
}

// Info logs an info message with request ID and additional context
func Info(ctx context.Context, msg string, fields ...zap.Field) {
	fields = append(fields, zap.String(RequestIDKey, getRequestID(ctx)))
	Log.Info(msg, fields...)
}

// Warn logs a warning message with request ID and additional context
func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	fields = append(fields, zap.String(RequestIDKey, getRequestID(ctx)))
	Log.Warn(msg, fields...)
}

// RequestIDFrom returns the request id carried by ctx, or "unknown".
func RequestIDFrom(ctx context.Context) string {
	return getRequestID(ctx)
}

func getRequestID(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if ginCtx, ok := ctx.(*gin.Context); ok {
		if requestID := ginCtx.GetString(RequestIDKey); requestID != "" {
			return requestID
		}
		if ginCtx.Request == nil {
			return "unknown"
		}
		ctx = ginCtx.Request.Context()
	}
	if requestID, ok := ctx.Value(ctxKey{}).(string); ok && requestID != "" {
		return requestID
	}
	return "unknown"
}

// WithContext creates a new context with the given request ID
func WithContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}
