package cli

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rl1809/ventures/internal/adapter/storage"
	"github.com/rl1809/ventures/internal/config"
	"github.com/rl1809/ventures/internal/port"
)

// ventureStore is everything the commands need from a storage backend.
type ventureStore interface {
	port.VentureRepository
	port.PostRepository
	port.Transactor
	Ping(ctx context.Context) error
	Migrate(ctx context.Context, applied func(file string)) error
}

// openStore connects to the backend named by cfg.Driver. The returned func
// releases the connection pool.
func openStore(ctx context.Context, cfg config.DBConfig) (ventureStore, func(), error) {
	dialect, err := storage.ParseDialect(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}

	switch dialect {
	case storage.DialectPostgres:
		poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("parse postgres dsn: %w", err)
		}
		if cfg.MaxOpenConns > 0 {
			poolCfg.MaxConns = int32(cfg.MaxOpenConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		return storage.NewPostgresAdapter(pool), pool.Close, nil

	case storage.DialectSQLite:
		db, err := storage.OpenSQLite(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewSQLiteAdapter(db), func() { db.Close() }, nil

	default:
		db, err := sql.Open("mysql", cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping mysql: %w", err)
		}
		return storage.NewMySQLAdapter(db), func() { db.Close() }, nil
	}
}
