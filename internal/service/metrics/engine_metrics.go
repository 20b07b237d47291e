package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    EngineLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "opspulse",
            Subsystem: "engine",
            Name:      "latency_seconds",
            Help:      "Latency of report endpoints",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"endpoint"},
    )

    EngineErrors = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "opspulse",
            Subsystem: "engine",
            Name:      "errors_total",
            Help:      "Errors by report endpoint",
        },
        []string{"endpoint"},
    )

    DegradedInputs = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "opspulse",
            Subsystem: "engine",
            Name:      "degraded_inputs_total",
            Help:      "Requests answered with an empty or neutral result",
        },
        []string{"endpoint"},
    )
)

func Register() {
    once.Do(func() {
        prometheus.MustRegister(EngineLatency, EngineErrors, DegradedInputs)
    })
}
