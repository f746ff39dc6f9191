package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custapi_requests_total",
			Help: "Customer API requests by operation and status class",
		},
		[]string{"operation", "status"}, // list|create|get|update|delete|stats_record|stats_summary , 2xx|4xx|5xx
	)

	RateLimitRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custapi_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter, by bucket",
		},
		[]string{"caller_class", "op_class"}, // anon|auth , general|read|write|stats
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		RequestsTotal,
		RateLimitRejections,
	)
}
