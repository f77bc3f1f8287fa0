package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sells-group/dse-bonds/internal/model"
)

// Metrics holds the process-level pipeline counters exposed at /metrics.
type Metrics struct {
	Uploads          *prometheus.CounterVec
	RecordsExtracted prometheus.Counter
	RowsInserted     prometheus.Counter
	BatchesSkipped   prometheus.Counter
	Duration         prometheus.Histogram
}

// NewMetrics registers the pipeline metrics with reg. A nil reg registers
// nothing, which is what tests and one-shot CLI runs use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Uploads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dse",
			Name:      "uploads_total",
			Help:      "Processed report uploads by outcome.",
		}, []string{"status"}),
		RecordsExtracted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "dse",
			Name:      "records_extracted_total",
			Help:      "Bond trade records extracted from reports.",
		}),
		RowsInserted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "dse",
			Name:      "rows_inserted_total",
			Help:      "Bond trade rows written to the store.",
		}),
		BatchesSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "dse",
			Name:      "batches_skipped_total",
			Help:      "Batches dropped because a trade date was already stored.",
		}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dse",
			Name:      "pipeline_duration_seconds",
			Help:      "Time from upload receipt to export.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Observe records one finished pipeline run.
func (m *Metrics) Observe(u *model.Upload, elapsed time.Duration) {
	if m == nil || u == nil {
		return
	}
	m.Uploads.WithLabelValues(string(u.Status)).Inc()
	m.RecordsExtracted.Add(float64(u.Records))
	m.RowsInserted.Add(float64(u.Inserted))
	if u.Status == model.UploadStatusSkipped {
		m.BatchesSkipped.Inc()
	}
	m.Duration.Observe(elapsed.Seconds())
}
