// Package metrics exposes Prometheus metrics for clip playback.
package metrics

import (
	"context"
	"net/http"
	"sync"

	"github.com/glizzus/sound-clips/internal/playback"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the Prometheus registry for all sound-clips metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Handler serves Registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// PlaybackMetrics records playback events. It is a playback.EventHandler.
type PlaybackMetrics struct {
	Requests   prometheus.Counter
	Outcomes   *prometheus.CounterVec // labels: result
	QueueDepth *prometheus.GaugeVec   // labels: guild

	mu      sync.Mutex
	playing map[string]bool
}

func NewPlaybackMetrics(reg prometheus.Registerer) *PlaybackMetrics {
	return &PlaybackMetrics{
		Requests: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "soundclips_play_requests_total",
			Help: "Total clips queued for playback",
		}),
		Outcomes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "soundclips_play_outcomes_total",
			Help: "Total playback attempts by result",
		}, []string{"result"}),
		QueueDepth: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "soundclips_queue_depth",
			Help: "Clips waiting or playing per guild",
		}, []string{"guild"}),
		playing: make(map[string]bool),
	}
}

func (m *PlaybackMetrics) HandleEvent(_ context.Context, event playback.Event) {
	guild := event.Request.GuildID

	switch event.Kind {
	case playback.EventEnqueued:
		m.Requests.Inc()
	case playback.EventStarted:
		m.mu.Lock()
		m.playing[guild] = true
		m.mu.Unlock()
		return
	case playback.EventFinished, playback.EventSkipped, playback.EventFailed:
		m.Outcomes.WithLabelValues(string(event.Kind)).Inc()
		m.mu.Lock()
		m.playing[guild] = false
		m.mu.Unlock()
	}

	m.mu.Lock()
	depth := event.Pending
	if m.playing[guild] {
		depth++
	}
	m.mu.Unlock()
	m.QueueDepth.WithLabelValues(guild).Set(float64(depth))
}

var _ playback.EventHandler = (*PlaybackMetrics)(nil)
