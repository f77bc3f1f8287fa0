package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dse-bonds/internal/config"
	"github.com/sells-group/dse-bonds/internal/store"
)

const defaultSQLitePath = "dse_bonds.db"

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		st, err := store.NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore validates the store settings, connects and applies the schema.
// Callers should defer Close on the returned store.
func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate(config.ModeLoad); err != nil {
		return nil, err
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}
