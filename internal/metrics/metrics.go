// Copyright 2010-2024 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics holds the Prometheus collectors of mipkit on a dedicated registry.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the registry every mipkit collector is registered on.
	Registry = prometheus.NewRegistry()

	// Solves counts finished solves by problem kind and status. Solver failures are counted
	// with status "error".
	Solves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mipkit_solves_total", Help: "Solves by problem kind and status."},
		[]string{"kind", "status"},
	)
	// SolveSeconds records the wall time of solves.
	SolveSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mipkit_solve_seconds",
			Help:    "Solve wall time in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"kind"},
	)
	// ModelSize is the size of the last model built for a kind; dim is "variables" or
	// "constraints".
	ModelSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "mipkit_model_size", Help: "Size of the last model built."},
		[]string{"kind", "dim"},
	)
	// HTTPRequests counts API requests by method, route and status code.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mipkit_http_requests_total", Help: "HTTP requests."},
		[]string{"method", "route", "code"},
	)
)

var regOnce sync.Once

// Register registers the collectors, with the Go and process collectors, on Registry. Calls
// after the first do nothing.
func Register() {
	regOnce.Do(func() {
		Registry.MustRegister(Solves, SolveSeconds, ModelSize, HTTPRequests)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves Registry in the Prometheus exposition format.
func Handler() http.Handler {
	Register()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// ObserveSolve records a finished solve.
func ObserveSolve(kind, status string, elapsed time.Duration) {
	Solves.WithLabelValues(kind, status).Inc()
	SolveSeconds.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveModel records the size of a built model.
func ObserveModel(kind string, variables, constraints int) {
	ModelSize.WithLabelValues(kind, "variables").Set(float64(variables))
	ModelSize.WithLabelValues(kind, "constraints").Set(float64(constraints))
}
