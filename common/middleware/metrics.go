package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	awspkg "github.com/gonzalo-olmedo/comicstore/pkg/aws"
)

// MetricsRecorder is satisfied by *awspkg.MetricsClient.
type MetricsRecorder interface {
	IsEnabled() bool
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
}

// MetricsMiddleware records request count, latency and error class per route.
func MetricsMiddleware(metrics MetricsRecorder, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil || !metrics.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)
		statusCode := c.Writer.Status()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		dimensions := map[string]string{
			"Service": serviceName,
			"Method":  c.Request.Method,
			"Path":    path,
			"Status":  statusCodeToRange(statusCode),
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_ = metrics.RecordCount(ctx, awspkg.MetricHTTPRequests, dimensions)
			_ = metrics.RecordLatency(ctx, awspkg.MetricHTTPLatency, duration, dimensions)

			switch {
			case statusCode >= 500:
				_ = metrics.RecordCount(ctx, awspkg.MetricHTTP5xx, dimensions)
			case statusCode >= 400:
				_ = metrics.RecordCount(ctx, awspkg.MetricHTTP4xx, dimensions)
			}
		}()
	}
}

func statusCodeToRange(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
