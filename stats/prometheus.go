/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package stats

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// PrometheusExporter scrapes the Registry on an interval and republishes
// it as gauges, grounded on ptp/sptp/stats/prom_exporter.go's
// scrape-then-serve loop.
type PrometheusExporter struct {
	registry *prometheus.Registry
	reg      *Registry
	interval time.Duration
	port     int
}

// NewPrometheusExporter builds an exporter for reg, scraping at interval
// and serving on port.
func NewPrometheusExporter(reg *Registry, port int, interval time.Duration) *PrometheusExporter {
	return &PrometheusExporter{
		registry: prometheus.NewRegistry(),
		reg:      reg,
		interval: interval,
		port:     port,
	}
}

// Start runs the scrape loop and http listener. Blocks.
func (e *PrometheusExporter) Start() {
	go func() {
		for {
			e.scrape()
			time.Sleep(e.interval)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	addr := fmt.Sprintf(":%d", e.port)
	log.Infof("stats: starting prometheus exporter on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func (e *PrometheusExporter) scrape() {
	snap := e.reg.Snapshot()
	for _, name := range Names() {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mlagd",
			Name:      name,
			Help:      fmt.Sprintf("mlagd counter: %s", name),
		})
		if err := e.registry.Register(g); err != nil {
			are := &prometheus.AlreadyRegisteredError{}
			if errors.As(err, are) {
				g = are.ExistingCollector.(prometheus.Gauge)
			} else {
				log.Errorf("stats: failed to register metric %s: %v", name, err)
				continue
			}
		}
		g.Set(float64(*ptrFor(&snap, name)))
	}
}
