package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/arena/internal/event"
)

// Collector bundles the Prometheus metrics for a battle host. It
// satisfies engine.Metrics, so one Collector can be shared by every
// Controller and Peer in a battle.
type Collector struct {
	gatherer prometheus.Gatherer

	EventsDispatched  *prometheus.CounterVec
	EventsDropped     *prometheus.CounterVec
	HandlerInterrupts prometheus.Counter
	SkippedTurns      prometheus.Counter
	AgentsRemoved     *prometheus.CounterVec
	TickDuration      prometheus.Histogram
	LiveAgents        prometheus.Gauge
}

// NewCollector registers arena metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	dispatched, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_events_dispatched_total",
		Help: "Events handed to agent handlers, labeled by event kind.",
	}, []string{"kind"}), "arena_events_dispatched_total")
	if err != nil {
		return nil, err
	}

	dropped, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_events_dropped_total",
		Help: "Events discarded before delivery, labeled by reason.",
	}, []string{"reason"}), "arena_events_dropped_total")
	if err != nil {
		return nil, err
	}

	interrupts, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arena_handler_interrupts_total",
		Help: "Handlers abandoned because an interruptible class was preempted.",
	}), "arena_handler_interrupts_total")
	if err != nil {
		return nil, err
	}

	skipped, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arena_skipped_turns_total",
		Help: "Ticks on which an agent failed to commit within the turn budget.",
	}), "arena_skipped_turns_total")
	if err != nil {
		return nil, err
	}

	removed, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_agents_removed_total",
		Help: "Agents taken out of a round, labeled by reason.",
	}, []string{"reason"}), "arena_agents_removed_total")
	if err != nil {
		return nil, err
	}

	tick, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_tick_duration_seconds",
		Help:    "Wall time spent advancing one battle tick.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}), "arena_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	live, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arena_live_agents",
		Help: "Agents still alive in the current round.",
	}), "arena_live_agents")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:          gatherer,
		EventsDispatched:  dispatched,
		EventsDropped:     dropped,
		HandlerInterrupts: interrupts,
		SkippedTurns:      skipped,
		AgentsRemoved:     removed,
		TickDuration:      tick,
		LiveAgents:        live,
	}, nil
}

func (c *Collector) EventDispatched(kind event.Kind) {
	if c == nil || c.EventsDispatched == nil {
		return
	}
	c.EventsDispatched.WithLabelValues(kind.String()).Inc()
}

func (c *Collector) EventDropped(reason string) {
	if c == nil || c.EventsDropped == nil {
		return
	}
	c.EventsDropped.WithLabelValues(reason).Inc()
}

func (c *Collector) HandlerInterrupted() {
	if c == nil || c.HandlerInterrupts == nil {
		return
	}
	c.HandlerInterrupts.Inc()
}

func (c *Collector) TurnSkipped() {
	if c == nil || c.SkippedTurns == nil {
		return
	}
	c.SkippedTurns.Inc()
}

func (c *Collector) AgentRemoved(reason string) {
	if c == nil || c.AgentsRemoved == nil {
		return
	}
	c.AgentsRemoved.WithLabelValues(reason).Inc()
}

// ObserveTick records how long one host tick took.
func (c *Collector) ObserveTick(d time.Duration) {
	if c == nil || c.TickDuration == nil {
		return
	}
	c.TickDuration.Observe(d.Seconds())
}

// SetLiveAgents records the number of agents still in the round.
func (c *Collector) SetLiveAgents(n int) {
	if c == nil || c.LiveAgents == nil {
		return
	}
	c.LiveAgents.Set(float64(n))
}

// Handler exposes the collector's registry over HTTP.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
