package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dse-bonds/internal/model"
)

var (
	// ErrConnectivity classifies failures to reach the database.
	ErrConnectivity = eris.New("store: connectivity failure")
	// ErrQuery classifies failures of a statement once connected.
	ErrQuery = eris.New("store: query failure")
)

// Error carries a failure kind (ErrConnectivity or ErrQuery) alongside the
// driver error. errors.Is and eris.Is match both.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is this error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func connErr(err error, msg string) error {
	return eris.Wrap(&Error{Kind: ErrConnectivity, Err: err}, msg)
}

func queryErr(err error, msg string) error {
	return eris.Wrap(&Error{Kind: ErrQuery, Err: err}, msg)
}

// LoadResult reports what LoadBatch did with a batch.
type LoadResult struct {
	TradeDates    []string `json:"trade_dates"`
	ExistingDates []string `json:"existing_dates,omitempty"`
	Inserted      int64    `json:"inserted"`
	Skipped       bool     `json:"skipped"`
}

// UploadFilter specifies criteria for listing upload log entries.
type UploadFilter struct {
	Since  time.Time          `json:"since,omitempty"`
	Status model.UploadStatus `json:"status,omitempty"`
	Limit  int                `json:"limit,omitempty"`
}

// Store defines persistence for bond trades and the upload log.
type Store interface {
	// ExistingTradeDates returns which of dates already have a stored trade.
	ExistingTradeDates(ctx context.Context, dates []string) ([]string, error)

	// LoadBatch inserts every trade of the batch, or none of them when any
	// of the batch's trade dates is already stored. The check and the insert
	// share one transaction.
	LoadBatch(ctx context.Context, trades []model.BondTrade) (*LoadResult, error)

	// Upload log
	RecordUpload(ctx context.Context, u *model.Upload) error
	ListUploads(ctx context.Context, filter UploadFilter) ([]model.Upload, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
