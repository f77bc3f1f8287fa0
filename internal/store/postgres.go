package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dse-bonds/internal/db"
	"github.com/sells-group/dse-bonds/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	existingDatesSQL = `SELECT DISTINCT "TradeDate" FROM bond_data WHERE "TradeDate" = ANY($1) ORDER BY "TradeDate"`
	insertUploadSQL  = `INSERT INTO upload_log (id, filename, source, status, records, inserted, trade_dates, error, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	listUploadsSQL   = `SELECT id, filename, source, status, records, inserted, trade_dates, error, created_at FROM upload_log`
)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(0)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, connErr(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, connErr(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
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
	inserted    BIGINT NOT NULL DEFAULT 0,
	trade_dates TEXT[] NOT NULL DEFAULT '{}',
	error       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_upload_log_created_at ON upload_log(created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return connErr(err, "postgres: ping")
	}
	return nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return queryErr(err, "postgres: migrate")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func existingDates(ctx context.Context, q querier, dates []string) ([]string, error) {
	rows, err := q.Query(ctx, existingDatesSQL, dates)
	if err != nil {
		return nil, queryErr(err, "postgres: query existing trade dates")
	}
	existing, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, queryErr(err, "postgres: scan existing trade dates")
	}
	return existing, nil
}

func (s *PostgresStore) ExistingTradeDates(ctx context.Context, dates []string) ([]string, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	return existingDates(ctx, s.pool, dates)
}

func (s *PostgresStore) LoadBatch(ctx context.Context, trades []model.BondTrade) (*LoadResult, error) {
	res := &LoadResult{TradeDates: model.TradeDates(trades)}
	if len(trades) == 0 {
		return res, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, connErr(err, "postgres: begin load")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existing, err := existingDates(ctx, tx, res.TradeDates)
	if err != nil {
		return nil, err
	}

	if len(existing) > 0 {
		res.Skipped = true
		res.ExistingDates = existing
	} else {
		rows := make([][]any, len(trades))
		for i, t := range trades {
			rows[i] = t.Row()
		}
		n, err := db.CopyFrom(ctx, tx, model.BondTradeTable, model.Columns(), rows)
		if err != nil {
			return nil, queryErr(err, "postgres: insert trades")
		}
		res.Inserted = n
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, queryErr(err, "postgres: commit load")
	}
	return res, nil
}

func (s *PostgresStore) RecordUpload(ctx context.Context, u *model.Upload) error {
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

	_, err := s.pool.Exec(ctx, insertUploadSQL,
		u.ID, u.Filename, string(u.Source), string(u.Status),
		u.Records, u.Inserted, dates, u.Error, u.CreatedAt,
	)
	if err != nil {
		return queryErr(err, "postgres: insert upload")
	}
	return nil
}

func (s *PostgresStore) ListUploads(ctx context.Context, filter UploadFilter) ([]model.Upload, error) {
	query := listUploadsSQL + ` WHERE created_at >= $1`
	args := []any{filter.Since}

	if filter.Status != "" {
		query += ` AND status = $2`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, queryErr(err, "postgres: list uploads")
	}
	defer rows.Close()

	var uploads []model.Upload
	for rows.Next() {
		var (
			u              model.Upload
			source, status string
		)
		if err := rows.Scan(&u.ID, &u.Filename, &source, &status, &u.Records, &u.Inserted, &u.TradeDates, &u.Error, &u.CreatedAt); err != nil {
			return nil, queryErr(err, "postgres: scan upload")
		}
		u.Source = model.UploadSource(source)
		u.Status = model.UploadStatus(status)
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, queryErr(err, "postgres: list uploads iterate")
	}
	return uploads, nil
}
