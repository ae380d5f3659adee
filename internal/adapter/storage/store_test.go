package storage

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rl1809/ventures/internal/port"
)

type ventureStore interface {
	port.VentureRepository
	port.PostRepository
	port.Transactor
	Migrate(ctx context.Context, applied func(file string)) error
}

// storeEnv wraps one backend with the raw SQL the tests need for setup and
// verification.
type storeEnv struct {
	name  string
	store ventureStore
	exec  func(query string, args ...any) error
	count func(query string, args ...any) int
	// bind rewrites ? placeholders for the backend
	bind func(query string) string
}

func (e storeEnv) seedAgent(t *testing.T, name string, displayName *string) string {
	t.Helper()
	id := uuid.NewString()
	err := e.exec(e.bind(`INSERT INTO agents (id, name, display_name) VALUES (?, ?, ?)`),
		id, name+"-"+id[:8], displayName)
	if err != nil {
		t.Fatalf("seed agent failed: %v", err)
	}
	return id
}

func (e storeEnv) backdatePitch(t *testing.T, pitchID string, at time.Time) {
	t.Helper()
	if err := e.exec(e.bind(`UPDATE pitches SET created_at = ? WHERE id = ?`), at, pitchID); err != nil {
		t.Fatalf("backdate pitch failed: %v", err)
	}
}

func getSQLiteEnv(t *testing.T) storeEnv {
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	adapter := NewSQLiteAdapter(db)
	if err := adapter.Migrate(context.Background(), nil); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return sqlEnv("sqlite3", adapter, db)
}

func getMySQLEnv(t *testing.T) (storeEnv, bool) {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		return storeEnv{}, false
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return storeEnv{}, false
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return storeEnv{}, false
	}
	t.Cleanup(func() { db.Close() })

	adapter := NewMySQLAdapter(db)
	if err := adapter.Migrate(context.Background(), nil); err != nil {
		t.Fatalf("migrate mysql: %v", err)
	}
	return sqlEnv("mysql", adapter, db), true
}

func getPostgresEnv(t *testing.T) (storeEnv, bool) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		return storeEnv{}, false
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return storeEnv{}, false
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return storeEnv{}, false
	}
	t.Cleanup(pool.Close)

	adapter := NewPostgresAdapter(pool)
	if err := adapter.Migrate(ctx, nil); err != nil {
		t.Fatalf("migrate postgres: %v", err)
	}
	return storeEnv{
		name:  "postgres",
		store: adapter,
		exec: func(query string, args ...any) error {
			_, err := pool.Exec(ctx, query, args...)
			return err
		},
		count: func(query string, args ...any) int {
			var n int
			pool.QueryRow(ctx, query, args...).Scan(&n)
			return n
		},
		bind: rebindDollar,
	}, true
}

func sqlEnv(name string, adapter *SQLAdapter, db *sql.DB) storeEnv {
	return storeEnv{
		name:  name,
		store: adapter,
		exec: func(query string, args ...any) error {
			_, err := db.Exec(query, args...)
			return err
		},
		count: func(query string, args ...any) int {
			var n int
			db.QueryRow(query, args...).Scan(&n)
			return n
		},
		bind: func(q string) string { return q },
	}
}

// getStoreEnvs returns SQLite plus every external backend reachable through
// MYSQL_DSN / POSTGRES_DSN.
func getStoreEnvs(t *testing.T) []storeEnv {
	envs := []storeEnv{getSQLiteEnv(t)}
	if env, ok := getMySQLEnv(t); ok {
		envs = append(envs, env)
	}
	if env, ok := getPostgresEnv(t); ok {
		envs = append(envs, env)
	}
	return envs
}

func rebindDollar(query string) string {
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, '$')
			out = append(out, strconv.Itoa(n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}
