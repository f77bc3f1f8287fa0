package model

import "time"

// UploadStatus is the outcome of one pipeline run over a document.
type UploadStatus string

const (
	UploadStatusInserted  UploadStatus = "inserted"
	UploadStatusSkipped   UploadStatus = "skipped"
	UploadStatusNoMarker  UploadStatus = "no_marker"
	UploadStatusNoData    UploadStatus = "no_data"
	UploadStatusFailed    UploadStatus = "failed"
	UploadStatusExtracted UploadStatus = "extracted"
)

// UploadSource identifies where a document came from.
type UploadSource string

const (
	UploadSourceHTTP UploadSource = "http"
	UploadSourceFile UploadSource = "file"
	UploadSourceURL  UploadSource = "url"
)

// Upload is one entry of the upload log.
type Upload struct {
	ID         string       `json:"id"`
	Filename   string       `json:"filename"`
	Source     UploadSource `json:"source"`
	Status     UploadStatus `json:"status"`
	Records    int          `json:"records"`
	Inserted   int64        `json:"inserted"`
	TradeDates []string     `json:"trade_dates,omitempty"`
	Error      string       `json:"error,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}
