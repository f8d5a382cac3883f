// Package metrics exposes Prometheus collectors for HTTP traffic and the
// checkout and payment flows.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "platform_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	checkoutOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_checkout_operations_total",
			Help: "Checkout attempts by kind and result",
		},
		[]string{"kind", "result"},
	)

	paymentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_payment_transitions_total",
			Help: "Status transitions applied from gateway outcomes and admin actions",
		},
		[]string{"kind", "to"},
	)

	shippingLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_shipping_rate_lookups_total",
			Help: "Courier rate lookups by whether any option came back",
		},
		[]string{"result"},
	)
)

// Middleware records every request under its route pattern.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		labels := []string{c.Method(), path, strconv.Itoa(status)}
		httpRequestsTotal.WithLabelValues(labels...).Inc()
		httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		return err
	}
}

func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

func RecordCheckout(kind string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	checkoutOperations.WithLabelValues(kind, result).Inc()
}

func RecordTransition(kind, to string) {
	paymentTransitions.WithLabelValues(kind, to).Inc()
}

func RecordShippingLookup(options int) {
	result := "options"
	if options == 0 {
		result = "empty"
	}
	shippingLookups.WithLabelValues(result).Inc()
}
