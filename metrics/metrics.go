// Package metrics instruments the poll loop with prometheus counters and gauges.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "climbsplit"

type Collector struct {
	registry *prometheus.Registry

	ticks        prometheus.Counter
	skipped      prometheus.Counter
	attaches     prometheus.Counter
	rescans      *prometheus.CounterVec
	hits         *prometheus.CounterVec
	commands     *prometheus.CounterVec
	commandFails *prometheus.CounterVec
	resolved     *prometheus.GaugeVec
	zones        prometheus.Gauge
}

// New creates a collector on its own registry so several can coexist in tests
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Poll loop ticks while attached.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_unresolved_total",
			Help:      "Ticks skipped because an object could not be resolved.",
		}),
		attaches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attaches_total",
			Help:      "Times the game process was attached.",
		}),
		rescans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rescans_total",
			Help:      "Full candidate table scans, by object and outcome.",
		}, []string{"object", "found"}),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Ticks served by a cached resolution, by object.",
		}, []string{"object"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timer_commands_total",
			Help:      "Timer commands issued, by command.",
		}, []string{"command"}),
		commandFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timer_command_errors_total",
			Help:      "Timer commands that failed to reach the timer, by command.",
		}, []string{"command"}),
		resolved: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "object_resolved",
			Help:      "1 while the object has a validated resolution.",
		}, []string{"object"}),
		zones: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "zones_reached",
			Help:      "Zones credited in the current run.",
		}),
	}

	c.registry.MustRegister(
		c.ticks, c.skipped, c.attaches,
		c.rescans, c.hits, c.commands, c.commandFails,
		c.resolved, c.zones,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) Tick() {
	if c == nil {
		return
	}
	c.ticks.Inc()
}

func (c *Collector) Unresolved() {
	if c == nil {
		return
	}
	c.skipped.Inc()
}

func (c *Collector) Attached() {
	if c == nil {
		return
	}
	c.attaches.Inc()
}

// Detached clears the per-attach gauges
func (c *Collector) Detached() {
	if c == nil {
		return
	}
	c.resolved.Reset()
	c.zones.Set(0)
}

func (c *Collector) Rescan(object string, found bool) {
	if c == nil {
		return
	}
	outcome := "false"
	if found {
		outcome = "true"
	}
	c.rescans.WithLabelValues(object, outcome).Inc()
}

func (c *Collector) Hit(object string) {
	if c == nil {
		return
	}
	c.hits.WithLabelValues(object).Inc()
}

func (c *Collector) Resolved(object string, ok bool) {
	if c == nil {
		return
	}
	v := 0.0
	if ok {
		v = 1
	}
	c.resolved.WithLabelValues(object).Set(v)
}

func (c *Collector) Command(command string, err error) {
	if c == nil {
		return
	}
	c.commands.WithLabelValues(command).Inc()
	if err != nil {
		c.commandFails.WithLabelValues(command).Inc()
	}
}

func (c *Collector) Zones(n int) {
	if c == nil {
		return
	}
	c.zones.Set(float64(n))
}

// Handler serves the collector's registry in the prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on address until ctx is done
func (c *Collector) Serve(ctx context.Context, address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
