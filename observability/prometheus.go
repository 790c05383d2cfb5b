package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusFactory is a MetricFactory backed by prometheus/client_golang.
// Metric names are namespaced with dots replaced by underscores. Asking
// for the same name twice returns the same collector.
type PrometheusFactory struct {
	mu         sync.Mutex
	registerer prometheus.Registerer
	buckets    []float64
	counters   map[string]prometheus.Counter
	histograms map[string]prometheus.Histogram
}

// DefaultAmountBuckets span smallest-unit amounts from 1 to 1e19.
var DefaultAmountBuckets = prometheus.ExponentialBuckets(1, 10, 20)

// NewPrometheusFactory registers collectors with reg. A nil reg uses the
// default registerer.
func NewPrometheusFactory(reg prometheus.Registerer) *PrometheusFactory {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PrometheusFactory{
		registerer: reg,
		buckets:    DefaultAmountBuckets,
		counters:   make(map[string]prometheus.Counter),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// WithBuckets overrides the histogram buckets used for new histograms.
func (f *PrometheusFactory) WithBuckets(buckets []float64) *PrometheusFactory {
	f.buckets = buckets
	return f
}

// Counter implements MetricFactory.
func (f *PrometheusFactory) Counter(name string) Counter {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: metricName(name),
		Help: "streamfee counter " + name,
	})
	f.counters[name] = register(f.registerer, c)
	return f.counters[name]
}

// Histogram implements MetricFactory.
func (f *PrometheusFactory) Histogram(name string) Histogram {
	f.mu.Lock()
	defer f.mu.Unlock()

	if h, ok := f.histograms[name]; ok {
		return h
	}
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    metricName(name),
		Help:    "streamfee histogram " + name,
		Buckets: f.buckets,
	})
	f.histograms[name] = register(f.registerer, h)
	return f.histograms[name]
}

// register adds c to reg, reusing an identical collector that is already
// registered (e.g. by a second factory on the same registry).
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

func metricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}
