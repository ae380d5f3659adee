package storage

import (
	"context"
	"embed"
	"fmt"
	"path"
	"strings"
)

//go:embed schema
var schemaFS embed.FS

// SchemaFiles are applied in order; later files reference tables from earlier ones.
var SchemaFiles = []string{"schema.sql", "ventures_schema.sql"}

type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql":
		return DialectMySQL, nil
	case "sqlite3", "sqlite":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", s)
	}
}

// applySchema executes every schema file for dialect statement by statement.
// applied is called after each file completes.
func applySchema(ctx context.Context, dialect Dialect, exec func(ctx context.Context, stmt string) error, applied func(file string)) error {
	for _, file := range SchemaFiles {
		raw, err := schemaFS.ReadFile(path.Join("schema", string(dialect), file))
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		for _, stmt := range splitStatements(string(raw)) {
			if err := exec(ctx, stmt); err != nil {
				return fmt.Errorf("run %s: %w", file, err)
			}
		}
		if applied != nil {
			applied(file)
		}
	}
	return nil
}

func splitStatements(script string) []string {
	var lines []string
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		lines = append(lines, line)
	}

	var stmts []string
	for _, stmt := range strings.Split(strings.Join(lines, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
