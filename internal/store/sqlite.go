package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/dse-bonds/internal/model"
)

// sqliteTimeLayout is fixed width so created_at compares correctly as text.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000"

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, connErr(err, "sqlite: open")
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, connErr(err, "sqlite: exec "+pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS bond_data (
	"Bond_No."     TEXT NOT NULL,
	"Term"         TEXT NOT NULL,
	"Coupon"       TEXT NOT NULL,
	"IssueDate"    TEXT NOT NULL,
	"MaturityDate" TEXT NOT NULL,
	"Deals"        TEXT NOT NULL,
	"TradeDate"    TEXT NOT NULL,
	"Amount"       TEXT NOT NULL,
	"Price"        TEXT NOT NULL,
	"Yield"        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bond_data_trade_date ON bond_data("TradeDate");

CREATE TABLE IF NOT EXISTS upload_log (
	id          TEXT PRIMARY KEY,
	filename    TEXT NOT NULL,
	source      TEXT NOT NULL,
	status      TEXT NOT NULL,
	records     INTEGER NOT NULL DEFAULT 0,
	inserted    INTEGER NOT NULL DEFAULT 0,
	trade_dates TEXT NOT NULL DEFAULT '[]',
	error       TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_upload_log_created_at ON upload_log(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return queryErr(err, "sqlite: migrate")
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return connErr(err, "sqlite: ping")
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// sqlQuerier is satisfied by *sql.DB and *sql.Tx.
type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func sqliteExistingDates(ctx context.Context, q sqlQuerier, dates []string) ([]string, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(dates)), ", ")
	args := make([]any, len(dates))
	for i, d := range dates {
		args[i] = d
	}

	rows, err := q.QueryContext(ctx,
		`SELECT DISTINCT "TradeDate" FROM bond_data WHERE "TradeDate" IN (`+placeholders+`) ORDER BY "TradeDate"`,
		args...,
	)
	if err != nil {
		return nil, queryErr(err, "sqlite: query existing trade dates")
	}
	defer rows.Close()

	var existing []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, queryErr(err, "sqlite: scan existing trade date")
		}
		existing = append(existing, d)
	}
	if err := rows.Err(); err != nil {
		return nil, queryErr(err, "sqlite: existing trade dates iterate")
	}
	return existing, nil
}

func (s *SQLiteStore) ExistingTradeDates(ctx context.Context, dates []string) ([]string, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	return sqliteExistingDates(ctx, s.db, dates)
}

func (s *SQLiteStore) LoadBatch(ctx context.Context, trades []model.BondTrade) (*LoadResult, error) {
	res := &LoadResult{TradeDates: model.TradeDates(trades)}
	if len(trades) == 0 {
		return res, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, connErr(err, "sqlite: begin load")
	}
	defer tx.Rollback() //nolint:errcheck

	existing, err := sqliteExistingDates(ctx, tx, res.TradeDates)
	if err != nil {
		return nil, err
	}

	if len(existing) > 0 {
		res.Skipped = true
		res.ExistingDates = existing
	} else {
		cols := model.Columns()
		quoted := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = `"` + c + `"`
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO bond_data (`+strings.Join(quoted, ", ")+`) VALUES (`+
				strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")+`)`,
		)
		if err != nil {
			return nil, queryErr(err, "sqlite: prepare insert")
		}
		defer stmt.Close()

		for _, t := range trades {
			if _, err := stmt.ExecContext(ctx, t.Row()...); err != nil {
				return nil, queryErr(err, "sqlite: insert trade "+t.BondNo)
			}
			res.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, queryErr(err, "sqlite: commit load")
	}
	return res, nil
}

func (s *SQLiteStore) RecordUpload(ctx context.Context, u *model.Upload) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	dates := u.TradeDates
	if dates == nil {
		dates = []string{}
	}
	datesJSON, err := json.Marshal(dates)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal trade dates")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO upload_log (id, filename, source, status, records, inserted, trade_dates, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Filename, string(u.Source), string(u.Status),
		u.Records, u.Inserted, string(datesJSON), u.Error, u.CreatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return queryErr(err, "sqlite: insert upload")
	}
	return nil
}

func (s *SQLiteStore) ListUploads(ctx context.Context, filter UploadFilter) ([]model.Upload, error) {
	query := `SELECT id, filename, source, status, records, inserted, trade_dates, error, created_at
		FROM upload_log WHERE created_at >= ?`
	args := []any{filter.Since.UTC().Format(sqliteTimeLayout)}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryErr(err, "sqlite: list uploads")
	}
	defer rows.Close()

	var uploads []model.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, queryErr(err, "sqlite: list uploads iterate")
	}
	return uploads, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanUpload(row scannable) (*model.Upload, error) {
	var (
		u                           model.Upload
		source, status, dates, when string
	)
	if err := row.Scan(&u.ID, &u.Filename, &source, &status, &u.Records, &u.Inserted, &dates, &u.Error, &when); err != nil {
		return nil, queryErr(err, "sqlite: scan upload")
	}
	u.Source = model.UploadSource(source)
	u.Status = model.UploadStatus(status)

	if err := json.Unmarshal([]byte(dates), &u.TradeDates); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal trade dates")
	}
	created, err := time.Parse(sqliteTimeLayout, when)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: parse created_at %q", when)
	}
	u.CreatedAt = created
	return &u, nil
}
