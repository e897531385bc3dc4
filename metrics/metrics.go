package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// unmatchedPath labels requests no route matched, keeping the raw URL out of
// the label set.
const unmatchedPath = "unmatched"

type Metrics struct {
	requestDuration *prometheus.SummaryVec
	requestTotal    *prometheus.CounterVec
	transitions     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requestDuration: factory.NewSummaryVec(
			prometheus.SummaryOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request duration in seconds",
				Objectives: map[float64]float64{
					0.5:  0.05,
					0.9:  0.01,
					0.95: 0.005,
					0.99: 0.001,
				},
			},
			[]string{"method", "path", "status_code"},
		),
		requestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_transitions_total",
				Help: "Checkout lifecycle transitions by outcome",
			},
			[]string{"transition", "result"},
		),
	}
}

// Middleware records duration and count per route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let the error handler write the status before we read it
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = unmatchedPath
			}
			status := strconv.Itoa(c.Response().Status)
			method := c.Request().Method

			m.requestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
			m.requestTotal.WithLabelValues(method, path, status).Inc()
			return nil
		}
	}
}

// Transition counts one checkout state change attempt. result is "ok" or the
// error kind that stopped it.
func (m *Metrics) Transition(transition, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(transition, result).Inc()
}
