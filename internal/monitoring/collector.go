package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dse-bonds/internal/model"
	"github.com/sells-group/dse-bonds/internal/store"
)

// MetricsSnapshot holds a point-in-time view of upload health.
type MetricsSnapshot struct {
	// Upload outcomes (within lookback window).
	UploadsTotal    int `json:"uploads_total" yaml:"uploads_total"`
	UploadsInserted int `json:"uploads_inserted" yaml:"uploads_inserted"`
	UploadsSkipped  int `json:"uploads_skipped" yaml:"uploads_skipped"`
	UploadsNoMarker int `json:"uploads_no_marker" yaml:"uploads_no_marker"`
	UploadsNoData   int `json:"uploads_no_data" yaml:"uploads_no_data"`
	UploadsFailed   int `json:"uploads_failed" yaml:"uploads_failed"`
	// Rejected counts uploads that never reached the store.
	UploadsRejected int `json:"uploads_rejected" yaml:"uploads_rejected"`

	// FailRate is failed / (inserted + skipped + failed).
	FailRate float64 `json:"fail_rate" yaml:"fail_rate"`

	RecordsExtracted int   `json:"records_extracted" yaml:"records_extracted"`
	RowsInserted     int64 `json:"rows_inserted" yaml:"rows_inserted"`

	// LatestTradeDate is the trade date of the most recent inserted upload.
	LatestTradeDate string `json:"latest_trade_date,omitempty" yaml:"latest_trade_date,omitempty"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours" yaml:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at" yaml:"collected_at"`
}

// UploadLister is the slice of store.Store the collector reads.
type UploadLister interface {
	ListUploads(ctx context.Context, filter store.UploadFilter) ([]model.Upload, error)
}

// Collector summarises the upload log.
type Collector struct {
	store UploadLister
}

// NewCollector creates a new metrics collector.
func NewCollector(st UploadLister) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of upload metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := time.Now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	uploads, err := c.store.ListUploads(ctx, store.UploadFilter{
		Since: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit: 10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list uploads")
	}

	snap.UploadsTotal = len(uploads)
	var latest time.Time
	for _, u := range uploads {
		snap.RecordsExtracted += u.Records
		snap.RowsInserted += u.Inserted

		switch u.Status {
		case model.UploadStatusInserted:
			snap.UploadsInserted++
			if u.CreatedAt.After(latest) && len(u.TradeDates) > 0 {
				latest = u.CreatedAt
				snap.LatestTradeDate = u.TradeDates[len(u.TradeDates)-1]
			}
		case model.UploadStatusSkipped:
			snap.UploadsSkipped++
		case model.UploadStatusNoMarker:
			snap.UploadsNoMarker++
		case model.UploadStatusNoData:
			snap.UploadsNoData++
		case model.UploadStatusFailed:
			snap.UploadsFailed++
		}
	}
	snap.UploadsRejected = snap.UploadsNoMarker + snap.UploadsNoData

	reachedStore := snap.UploadsInserted + snap.UploadsSkipped + snap.UploadsFailed
	if reachedStore > 0 {
		snap.FailRate = float64(snap.UploadsFailed) / float64(reachedStore)
	}

	return snap, nil
}
