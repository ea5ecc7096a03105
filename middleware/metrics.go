package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	aws_pkg "github.com/yashrajoria/management-backend/pkg/aws"
)

// MetricsRecorder is the part of the CloudWatch client the HTTP metrics need.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, name string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, name string, d time.Duration, dimensions map[string]string) error
}

// HTTPMetrics reports request count, latency and errors per route. Data
// points are sent after the response so the client never waits on them.
func HTTPMetrics(recorder MetricsRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		dims := map[string]string{
			"Method": c.Request.Method,
			"Route":  route,
		}
		latency := time.Since(start)

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = recorder.RecordCount(ctx, aws_pkg.MetricHTTPRequests, dims)
			_ = recorder.RecordLatency(ctx, aws_pkg.MetricHTTPLatency, latency, dims)
			if status >= 400 {
				_ = recorder.RecordCount(ctx, aws_pkg.MetricHTTPErrors, map[string]string{
					"Route":  route,
					"Status": strconv.Itoa(status),
				})
			}
		}()
	}
}
