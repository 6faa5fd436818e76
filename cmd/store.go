package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/wardrive-cli/internal/resilience"
	"github.com/sells-group/wardrive-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "wardrive.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "":
		return nil, eris.New("run store is disabled (set store.driver or WARDRIVE_STORE_DRIVER to sqlite or postgres)")
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func storePolicy(operation string) resilience.Policy {
	p := resilience.DefaultPolicy()
	p.Attempts = cfg.Store.RetryAttempts
	p.OnRetry = resilience.LogRetry(operation)
	return p
}

// openStore initializes and migrates the configured store, retrying
// transient connection failures.
func openStore(ctx context.Context) (store.Store, error) {
	return resilience.DoVal(ctx, storePolicy("open"), func(ctx context.Context) (store.Store, error) {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "migrate store")
		}
		return st, nil
	})
}
