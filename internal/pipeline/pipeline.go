// Package pipeline runs an uploaded report through extraction, the batch
// load and the spreadsheet export.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dse-bonds/internal/config"
	"github.com/sells-group/dse-bonds/internal/export"
	"github.com/sells-group/dse-bonds/internal/extract"
	"github.com/sells-group/dse-bonds/internal/model"
	"github.com/sells-group/dse-bonds/internal/monitoring"
	"github.com/sells-group/dse-bonds/internal/store"
)

// Document is one report handed to the pipeline.
type Document struct {
	Name        string
	Source      model.UploadSource
	Content     []byte
	ContentType string // used to detect the charset
	Charset     string // overrides detection when set
}

// Result is what a successful run produced.
type Result struct {
	Upload   *model.Upload
	Trades   []model.BondTrade
	Load     *store.LoadResult // nil when no store is configured
	Workbook []byte
	Filename string
}

// Pipeline orchestrates extract → load → export for a single document.
type Pipeline struct {
	store   store.Store
	metrics *monitoring.Metrics
	export  config.ExportConfig
}

// New creates a Pipeline. A nil store runs extraction and export only.
func New(st store.Store, metrics *monitoring.Metrics, exp config.ExportConfig) *Pipeline {
	if exp.Filename == "" {
		exp.Filename = export.DefaultFilename
	}
	if exp.SheetName == "" {
		exp.SheetName = export.DefaultSheetName
	}
	return &Pipeline{store: st, metrics: metrics, export: exp}
}

// Process runs doc through the pipeline. Extraction errors are returned
// unwrapped so callers can show extract.Message to the user; store errors
// abort the run before any workbook is produced.
func (p *Pipeline) Process(ctx context.Context, doc Document) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.String("filename", doc.Name), zap.String("source", string(doc.Source)))
	log.Info("pipeline: processing report", zap.Int("bytes", len(doc.Content)))

	upload := &model.Upload{Filename: doc.Name, Source: doc.Source}
	fail := func(status model.UploadStatus, err error) {
		upload.Status = status
		upload.Error = err.Error()
		p.finish(ctx, log, upload, start)
	}

	text, err := p.decode(doc)
	if err != nil {
		fail(model.UploadStatusFailed, err)
		return nil, err
	}

	trades, err := extract.Extract(text)
	if err != nil {
		switch {
		case eris.Is(err, extract.ErrMarkerNotFound):
			fail(model.UploadStatusNoMarker, err)
		case eris.Is(err, extract.ErrNoDataFound):
			fail(model.UploadStatusNoData, err)
		default:
			fail(model.UploadStatusFailed, err)
		}
		log.Info("pipeline: report rejected", zap.String("reason", extract.Message(err)))
		return nil, err
	}
	upload.Records = len(trades)
	upload.TradeDates = model.TradeDates(trades)
	log.Info("pipeline: records extracted",
		zap.Int("records", len(trades)),
		zap.Strings("trade_dates", upload.TradeDates),
	)

	res := &Result{Upload: upload, Trades: trades, Filename: p.export.Filename}

	upload.Status = model.UploadStatusExtracted
	if p.store != nil {
		load, err := p.store.LoadBatch(ctx, trades)
		if err != nil {
			log.Error("pipeline: load failed", zap.Error(err))
			fail(model.UploadStatusFailed, err)
			return nil, eris.Wrap(err, "pipeline: load batch")
		}
		res.Load = load
		upload.Inserted = load.Inserted
		if load.Skipped {
			upload.Status = model.UploadStatusSkipped
			log.Info("pipeline: batch skipped, trade dates already stored",
				zap.Strings("existing_dates", load.ExistingDates),
			)
		} else {
			upload.Status = model.UploadStatusInserted
			log.Info("pipeline: batch inserted", zap.Int64("rows", load.Inserted))
		}
	}

	wb, err := export.XLSX(trades, export.Options{SheetName: p.export.SheetName})
	if err != nil {
		fail(model.UploadStatusFailed, err)
		return nil, eris.Wrap(err, "pipeline: export")
	}
	res.Workbook = wb

	p.finish(ctx, log, upload, start)
	return res, nil
}

func (p *Pipeline) decode(doc Document) (string, error) {
	if doc.Charset != "" {
		return extract.DecodeAs(doc.Content, doc.Charset)
	}
	text, _, err := extract.Decode(doc.Content, doc.ContentType)
	return text, err
}

// finish records the run in the upload log and the process metrics.
// Upload log failures are logged, never returned.
func (p *Pipeline) finish(ctx context.Context, log *zap.Logger, upload *model.Upload, start time.Time) {
	elapsed := time.Since(start)
	p.metrics.Observe(upload, elapsed)

	if p.store != nil {
		if err := p.store.RecordUpload(ctx, upload); err != nil {
			log.Warn("pipeline: failed to record upload", zap.Error(err))
		}
	}

	log.Info("pipeline: finished",
		zap.String("upload_id", upload.ID),
		zap.String("status", string(upload.Status)),
		zap.Int64("inserted", upload.Inserted),
		zap.Duration("elapsed", elapsed),
	)
}
