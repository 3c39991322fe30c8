// Package metrics is a small in-process registry rendered in the Prometheus
// text exposition format. Label sets are baked into the series name with
// WithLabels, so every label combination is its own series under a shared
// family header.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBuckets are the histogram buckets used when none are given, in seconds.
var DefaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Counter only goes up.
type Counter struct{ n atomic.Int64 }

func (c *Counter) Inc()         { c.n.Add(1) }
func (c *Counter) Add(d int64)  { c.n.Add(d) }
func (c *Counter) Value() int64 { return c.n.Load() }

// Gauge goes both ways.
type Gauge struct{ n atomic.Int64 }

func (g *Gauge) Set(v int64)  { g.n.Store(v) }
func (g *Gauge) Inc()         { g.n.Add(1) }
func (g *Gauge) Dec()         { g.n.Add(-1) }
func (g *Gauge) Value() int64 { return g.n.Load() }

// Histogram tracks a value distribution over fixed upper bounds. Bucket
// counts are kept cumulative, matching the exposition format directly.
type Histogram struct {
	mu     sync.Mutex
	bounds []float64
	cum    []uint64
	sum    float64
	total  uint64
}

// Observe records one value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	h.sum += v
	h.total++
	for i, ub := range h.bounds {
		if v <= ub {
			h.cum[i]++
		}
	}
	h.mu.Unlock()
}

// Since observes the elapsed time from t in seconds.
func (h *Histogram) Since(t time.Time) { h.Observe(time.Since(t).Seconds()) }

func (h *Histogram) snapshot() (bounds []float64, cum []uint64, sum float64, total uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cum = append([]uint64(nil), h.cum...)
	return h.bounds, cum, h.sum, h.total
}

type kind uint8

const (
	kindCounter kind = iota
	kindGauge
	kindHistogram
)

func (k kind) String() string {
	switch k {
	case kindGauge:
		return "gauge"
	case kindHistogram:
		return "histogram"
	default:
		return "counter"
	}
}

// family groups every labeled series sharing one base name.
type family struct {
	kind kind
	help string
}

// Registry holds named series. All methods are safe for concurrent use.
type Registry struct {
	mu         sync.Mutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	families   map[string]family
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
		families:   make(map[string]family),
	}
}

// Counter returns the counter for name, creating it on first use. The help
// text sticks from whichever call first supplies it.
func (r *Registry) Counter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c
	}
	c := &Counter{}
	r.counters[name] = c
	r.register(name, kindCounter, help)
	return c
}

// Gauge returns the gauge for name, creating it on first use.
func (r *Registry) Gauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gauges[name]; ok {
		return g
	}
	g := &Gauge{}
	r.gauges[name] = g
	r.register(name, kindGauge, help)
	return g
}

// Histogram returns the histogram for name, creating it on first use with the
// given upper bounds (DefaultBuckets when nil).
func (r *Registry) Histogram(name, help string, bounds []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.histograms[name]; ok {
		return h
	}
	if bounds == nil {
		bounds = DefaultBuckets
	}
	ub := append([]float64(nil), bounds...)
	sort.Float64s(ub)
	h := &Histogram{bounds: ub, cum: make([]uint64, len(ub))}
	r.histograms[name] = h
	r.register(name, kindHistogram, help)
	return h
}

// register must be called with r.mu held.
func (r *Registry) register(name string, k kind, help string) {
	base := baseName(name)
	f, ok := r.families[base]
	if !ok {
		f = family{kind: k}
	}
	if f.help == "" {
		f.help = help
	}
	r.families[base] = f
}

// WithLabels appends a label set to a series name:
// WithLabels("hits", "path", "/x") yields `hits{path="/x"}`.
func WithLabels(name string, kv ...string) string {
	if len(kv) < 2 || len(kv)%2 != 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i := 0; i < len(kv); i += 2 {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%q", kv[i], kv[i+1])
	}
	b.WriteByte('}')
	return b.String()
}

func baseName(series string) string {
	if i := strings.IndexByte(series, '{'); i >= 0 {
		return series[:i]
	}
	return series
}

// labelSuffix returns the label portion of a series name, with a leading
// comma for splicing into a bucket label set, e.g. `,path="/x"`.
func labelSuffix(series string) string {
	i := strings.IndexByte(series, '{')
	if i < 0 || len(series)-i <= 2 {
		return ""
	}
	return "," + series[i+1:len(series)-1]
}

// Render produces the full exposition text, families sorted by name and
// series sorted within each family.
func (r *Registry) Render() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	bases := make([]string, 0, len(r.families))
	for base := range r.families {
		bases = append(bases, base)
	}
	sort.Strings(bases)

	var b strings.Builder
	for _, base := range bases {
		f := r.families[base]
		if f.help != "" {
			fmt.Fprintf(&b, "# HELP %s %s\n", base, f.help)
		}
		fmt.Fprintf(&b, "# TYPE %s %s\n", base, f.kind)

		switch f.kind {
		case kindCounter:
			for _, name := range seriesOf(r.counters, base) {
				fmt.Fprintf(&b, "%s %d\n", name, r.counters[name].Value())
			}
		case kindGauge:
			for _, name := range seriesOf(r.gauges, base) {
				fmt.Fprintf(&b, "%s %d\n", name, r.gauges[name].Value())
			}
		case kindHistogram:
			for _, name := range seriesOf(r.histograms, base) {
				bounds, cum, sum, total := r.histograms[name].snapshot()
				labels := labelSuffix(name)
				for i, ub := range bounds {
					fmt.Fprintf(&b, "%s_bucket{le=\"%g\"%s} %d\n", base, ub, labels, cum[i])
				}
				fmt.Fprintf(&b, "%s_bucket{le=\"+Inf\"%s} %d\n", base, labels, total)
				fmt.Fprintf(&b, "%s_sum%s %g\n", base, rewrap(labels), sum)
				fmt.Fprintf(&b, "%s_count%s %d\n", base, rewrap(labels), total)
			}
		}
	}
	return b.String()
}

// seriesOf returns the sorted series names in m belonging to base.
func seriesOf[T any](m map[string]*T, base string) []string {
	var out []string
	for name := range m {
		if baseName(name) == base {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// rewrap turns a label suffix like `,k="v"` back into `{k="v"}`.
func rewrap(labels string) string {
	if labels == "" {
		return ""
	}
	return "{" + labels[1:] + "}"
}

// Handler serves the registry in exposition format.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(r.Render()))
	})
}
