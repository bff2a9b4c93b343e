package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CodeStranger-Fred/slither/mdp"
)

const namespace = "slither"

// Metrics records every finished episode. It is an mdp.Observer and can be
// shared by trainers running in parallel.
type Metrics struct {
	registry *prometheus.Registry

	episodes   prometheus.Counter
	endings    *prometheus.CounterVec
	reward     prometheus.Histogram
	steps      prometheus.Histogram
	length     prometheus.Gauge
	maxLength  prometheus.Gauge
	bestLength prometheus.Gauge
	epsilon    prometheus.Gauge
	states     prometheus.Gauge

	mu     sync.Mutex
	status Status
}

// Status is the last episode seen, served on /status.
type Status struct {
	Episodes   int     `json:"episodes"`
	Episode    int     `json:"episode"`
	Reward     float64 `json:"reward"`
	Steps      int     `json:"steps"`
	Length     int     `json:"length"`
	MaxLength  int     `json:"max_length"`
	BestLength int     `json:"best_length"`
	Epsilon    float64 `json:"epsilon"`
	States     int     `json:"states"`
}

// NewMetrics registers the training metrics on a fresh registry together
// with the Go runtime collector.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		episodes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "episodes_total",
			Help:      "Episodes played.",
		}),
		endings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "episode_endings_total",
			Help:      "How episodes ended: game over or step limit.",
		}, []string{"reason"}),
		reward: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "episode_reward",
			Help:      "Total reward of an episode.",
			Buckets:   prometheus.LinearBuckets(-100, 25, 13),
		}),
		steps: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "episode_steps",
			Help:      "Steps taken in an episode.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		length: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snake_length",
			Help:      "Length of the snake when the last episode ended.",
		}),
		maxLength: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snake_max_length",
			Help:      "Longest the snake got in the last episode.",
		}),
		bestLength: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snake_best_length",
			Help:      "Longest the snake got in any episode.",
		}),
		epsilon: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "epsilon",
			Help:      "Exploration rate after the last episode.",
		}),
		states: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "q_table_states",
			Help:      "States in the value table.",
		}),
	}
}

func (m *Metrics) ObserveEpisode(r mdp.EpisodeResult) error {
	m.episodes.Inc()
	if r.Stats.Done {
		m.endings.WithLabelValues("game_over").Inc()
	} else {
		m.endings.WithLabelValues("step_limit").Inc()
	}
	m.reward.Observe(r.Stats.Reward)
	m.steps.Observe(float64(r.Stats.Steps))
	m.length.Set(float64(r.Stats.Length))
	m.maxLength.Set(float64(r.Stats.MaxLength))
	m.epsilon.Set(r.Epsilon)
	m.states.Set(float64(r.States))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.Episodes++
	m.status.Episode = r.Episode
	m.status.Reward = r.Stats.Reward
	m.status.Steps = r.Stats.Steps
	m.status.Length = r.Stats.Length
	m.status.MaxLength = r.Stats.MaxLength
	m.status.Epsilon = r.Epsilon
	m.status.States = r.States
	if r.Stats.MaxLength > m.status.BestLength {
		m.status.BestLength = r.Stats.MaxLength
		m.bestLength.Set(float64(r.Stats.MaxLength))
	}
	return nil
}

func (m *Metrics) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
