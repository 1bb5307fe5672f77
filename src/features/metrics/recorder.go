package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the Prometheus collectors fed by the scan coordinator and
// the playback engine. A nil *Recorder is a valid no-op.
type Recorder struct {
	ScansTotal        *prometheus.CounterVec
	ScanDuration      prometheus.Histogram
	TracksAdded       prometheus.Counter
	TracksUpdated     prometheus.Counter
	TracksGhosted     prometheus.Counter
	LibraryTracks     *prometheus.GaugeVec
	TrackTransitions  *prometheus.CounterVec
	DecoderFaults     *prometheus.CounterVec
	FocusInterrupts   *prometheus.CounterVec
	PlaybackErrors    *prometheus.CounterVec
	PreloadsTriggered prometheus.Counter
}

// NewRecorder registers the collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		ScansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stackd_scans_total",
			Help: "Library scans by result.",
		}, []string{"result"}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stackd_scan_duration_seconds",
			Help:    "Wall time of completed library scans.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		TracksAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "stackd_scan_tracks_added_total",
			Help: "Tracks added across all scans.",
		}),
		TracksUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "stackd_scan_tracks_updated_total",
			Help: "Tracks updated across all scans.",
		}),
		TracksGhosted: factory.NewCounter(prometheus.CounterOpts{
			Name: "stackd_scan_tracks_ghosted_total",
			Help: "Tracks soft-deleted across all scans.",
		}),
		LibraryTracks: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stackd_library_tracks",
			Help: "Current catalog size by lifecycle status.",
		}, []string{"status"}),
		TrackTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stackd_playback_transitions_total",
			Help: "Track transitions by kind (manual, auto, gapless).",
		}, []string{"kind"}),
		DecoderFaults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stackd_decoder_faults_total",
			Help: "Decoder faults by role (active, warm).",
		}, []string{"role"}),
		FocusInterrupts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stackd_focus_interrupts_total",
			Help: "Audio focus events by kind.",
		}, []string{"kind"}),
		PlaybackErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stackd_playback_errors_total",
			Help: "Playback errors surfaced to clients, by category.",
		}, []string{"category"}),
		PreloadsTriggered: factory.NewCounter(prometheus.CounterOpts{
			Name: "stackd_preloads_triggered_total",
			Help: "Warm decoder preloads started.",
		}),
	}
}

// ObserveScan records one finished scan.
func (r *Recorder) ObserveScan(result string, seconds float64, added, updated, ghosted int) {
	if r == nil {
		return
	}
	r.ScansTotal.WithLabelValues(result).Inc()
	if result == "completed" {
		r.ScanDuration.Observe(seconds)
		r.TracksAdded.Add(float64(added))
		r.TracksUpdated.Add(float64(updated))
		r.TracksGhosted.Add(float64(ghosted))
	}
}

// SetLibrarySize updates the per-status catalog gauges.
func (r *Recorder) SetLibrarySize(status string, count int) {
	if r == nil {
		return
	}
	r.LibraryTracks.WithLabelValues(status).Set(float64(count))
}

// ObserveTransition records a track transition.
func (r *Recorder) ObserveTransition(kind string) {
	if r == nil {
		return
	}
	r.TrackTransitions.WithLabelValues(kind).Inc()
}

// ObserveDecoderFault records a decoder fault by role.
func (r *Recorder) ObserveDecoderFault(role string) {
	if r == nil {
		return
	}
	r.DecoderFaults.WithLabelValues(role).Inc()
}

// ObserveFocusEvent records an audio focus arbitration event.
func (r *Recorder) ObserveFocusEvent(kind string) {
	if r == nil {
		return
	}
	r.FocusInterrupts.WithLabelValues(kind).Inc()
}

// ObservePlaybackError records a surfaced playback error.
func (r *Recorder) ObservePlaybackError(category string) {
	if r == nil {
		return
	}
	r.PlaybackErrors.WithLabelValues(category).Inc()
}

// ObservePreload records a warm decoder preload start.
func (r *Recorder) ObservePreload() {
	if r == nil {
		return
	}
	r.PreloadsTriggered.Inc()
}
