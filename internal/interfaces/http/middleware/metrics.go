package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/grocery/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// unmatchedRoute labels requests no route matched, keeping raw paths out of labels
const unmatchedRoute = "unmatched"

var (
	attrMethod = attribute.Key("http.request.method")
	attrRoute  = attribute.Key("http.route")
	attrStatus = attribute.Key("http.response.status_code")
	attrRole   = attribute.Key("user.role")
)

var (
	latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	// product pictures are the largest bodies the API sees
	bodyBuckets = []float64{128, 1 << 10, 8 << 10, 64 << 10, 512 << 10, 1 << 20, 4 << 20, 10 << 20}
)

// HTTPMetricsConfig configures HTTPMetrics. Meter wins over MeterProvider;
// with neither, or with a disabled provider, requests are not measured.
type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	Meter         metric.Meter
}

type httpInstruments struct {
	requests *telemetry.Counter
	latency  *telemetry.Histogram
	received *telemetry.Histogram
	sent     *telemetry.Histogram
	inFlight metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	var (
		in  httpInstruments
		err error
	)
	if in.requests, err = telemetry.NewCounter(meter,
		"http_server_request_total", "HTTP requests served", "{request}"); err != nil {
		return nil, err
	}
	if in.latency, err = telemetry.NewHistogram(meter,
		"http_server_request_duration_seconds", "Time to serve an HTTP request", "s",
		latencyBuckets...); err != nil {
		return nil, err
	}
	if in.received, err = telemetry.NewHistogram(meter,
		"http_server_request_size_bytes", "Declared HTTP request body size", "By",
		bodyBuckets...); err != nil {
		return nil, err
	}
	if in.sent, err = telemetry.NewHistogram(meter,
		"http_server_response_size_bytes", "HTTP response body size", "By",
		bodyBuckets...); err != nil {
		return nil, err
	}
	if in.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests being served"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	return &in, nil
}

// HTTPMetrics counts and times requests per route pattern. The request
// counter also carries the status code and, for authenticated callers, the role.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	meter := cfg.Meter
	if meter == nil && cfg.MeterProvider != nil && cfg.MeterProvider.IsEnabled() {
		meter = cfg.MeterProvider.Meter("http.server")
	}
	if meter == nil {
		return passthrough
	}

	in, err := newHTTPInstruments(meter)
	if err != nil {
		return passthrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		in.inFlight.Add(ctx, 1)
		defer in.inFlight.Add(ctx, -1)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		attrs := []attribute.KeyValue{attrMethod.String(c.Request.Method), attrRoute.String(route)}

		in.latency.Record(ctx, time.Since(start).Seconds(), attrs...)
		if n := c.Request.ContentLength; n > 0 {
			in.received.Record(ctx, float64(n), attrs...)
		}
		if n := c.Writer.Size(); n > 0 {
			in.sent.Record(ctx, float64(n), attrs...)
		}

		attrs = append(attrs, attrStatus.Int(c.Writer.Status()))
		if role := GetJWTRole(c); role != "" {
			attrs = append(attrs, attrRole.String(role))
		}
		in.requests.Inc(ctx, attrs...)
	}
}

func passthrough(c *gin.Context) {
	c.Next()
}
