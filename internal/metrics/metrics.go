package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dbehnke/jjyd/internal/protocol/jjy"
	"github.com/dbehnke/jjyd/internal/transmitter"
)

// Metrics holds the transmitter's Prometheus collectors
type Metrics struct {
	registry *prometheus.Registry

	slotsTransmitted  *prometheus.CounterVec // Slots sent (by value: M, 0, 1)
	framesTransmitted *prometheus.CounterVec // Minutes handed to sinks (by complete: true/false)
	encodeErrors      prometheus.Counter     // Slots that could not be encoded
	scheduleLag       prometheus.Gauge       // Wake-up delay after the whole second
	scheduleLagHist   prometheus.Histogram   // Distribution of the wake-up delay
	lastFrame         prometheus.Gauge       // Unix time of the last minute sent
}

// New creates the collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		slotsTransmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jjyd_slots_transmitted_total",
			Help: "Number of one-second slots transmitted, by signal value",
		}, []string{"value"}),
		framesTransmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jjyd_frames_transmitted_total",
			Help: "Number of minute frames transmitted",
		}, []string{"complete"}),
		encodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "jjyd_encode_errors_total",
			Help: "Number of slots that could not be encoded",
		}),
		scheduleLag: factory.NewGauge(prometheus.GaugeOpts{
			Name: "jjyd_schedule_lag_seconds",
			Help: "Delay between the whole second and the start of the last pulse",
		}),
		scheduleLagHist: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "jjyd_schedule_lag_distribution_seconds",
			Help:    "Distribution of the delay between the whole second and the pulse start",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.05, 0.1},
		}),
		lastFrame: factory.NewGauge(prometheus.GaugeOpts{
			Name: "jjyd_last_frame_timestamp_seconds",
			Help: "Start of the last transmitted minute as a Unix timestamp",
		}),
	}
}

// SlotSent implements transmitter.Observer
func (m *Metrics) SlotSent(sig jjy.Signal, lag time.Duration) {
	m.slotsTransmitted.WithLabelValues(sig.Value.String()).Inc()
	m.scheduleLag.Set(lag.Seconds())
	m.scheduleLagHist.Observe(lag.Seconds())
}

// EncodeFailed implements transmitter.Observer
func (m *Metrics) EncodeFailed(err error) {
	m.encodeErrors.Inc()
}

// FrameSent implements transmitter.Sink
func (m *Metrics) FrameSent(ctx context.Context, minute transmitter.Minute) error {
	complete := "false"
	if minute.Complete() {
		complete = "true"
	}
	m.framesTransmitted.WithLabelValues(complete).Inc()
	m.lastFrame.Set(float64(minute.Frame.Start.Unix()))
	return nil
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs the metrics endpoint on bind until ctx is done
func (m *Metrics) Serve(ctx context.Context, bind string, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              bind,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("bind", bind).Msg("metrics endpoint listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
