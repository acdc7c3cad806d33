// Package metrics exports the muxer's state as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"libdb.so/luxmux/internal/muxer"
)

// Collector subscribes to a Muxer's event bus and mirrors its state into
// Prometheus gauges and counters. Construct with New, wire it into a
// registry, and call Run to start updating.
type Collector struct {
	mux *muxer.Muxer

	visiblePriority prometheus.Gauge
	activeInputs    prometheus.Gauge
	triggerFires    prometheus.Counter
	priorityChanges *prometheus.CounterVec
}

// New creates a Collector and registers its metrics on reg.
func New(mux *muxer.Muxer, reg *prometheus.Registry) *Collector {
	c := &Collector{
		mux: mux,
		visiblePriority: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "luxmux_visible_priority",
			Help: "The priority currently selected for output; 255 is the reserved background priority.",
		}),
		activeInputs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "luxmux_active_inputs",
			Help: "Number of registered priorities with a non-inactive deadline.",
		}),
		triggerFires: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "luxmux_trigger_fires_total",
			Help: "Number of times the rate-limited trigger (time_runner) has fired.",
		}),
		priorityChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "luxmux_priority_changes_total",
			Help: "Number of times a priority was registered or removed, labeled by present.",
		}, []string{"present"}),
	}
	reg.MustRegister(c.visiblePriority, c.activeInputs, c.triggerFires, c.priorityChanges)
	return c
}

// Run subscribes to the muxer's bus and updates metrics until ctx is
// canceled.
func (c *Collector) Run(ctx context.Context) error {
	unsubs := []func(){
		c.mux.Bus().OnVisiblePriorityChanged(func(e muxer.VisiblePriorityChangedEvent) {
			c.visiblePriority.Set(float64(e.Priority))
		}),
		c.mux.Bus().OnPriorityChanged(func(e muxer.PriorityChangedEvent) {
			c.priorityChanges.WithLabelValues(strconv.FormatBool(e.Present)).Inc()
		}),
		c.mux.Bus().OnTriggerFired(func(e muxer.TriggerFiredEvent) {
			c.triggerFires.Inc()
		}),
		c.mux.Bus().OnPrioritiesChanged(func(e muxer.PrioritiesChangedEvent) {
			c.activeInputs.Set(float64(c.countActive()))
		}),
	}
	defer func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}()

	c.activeInputs.Set(float64(c.countActive()))
	c.visiblePriority.Set(float64(c.mux.GetVisible().Priority))

	<-ctx.Done()
	return ctx.Err()
}

func (c *Collector) countActive() int {
	n := 0
	for _, p := range c.mux.GetPriorities() {
		if c.mux.GetInputInfo(p).Deadline.Active() {
			n++
		}
	}
	return n
}

// Serve starts an HTTP server exposing reg's metrics at /metrics and blocks
// until ctx is canceled.
func Serve(ctx context.Context, reg *prometheus.Registry, listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: listen, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
