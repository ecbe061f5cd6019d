package repository

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/*.up.sql
var schemaFS embed.FS

// SchemaMigrations は埋め込みの .up.sql 名をソート済みで返す
func SchemaMigrations() []string {
	entries, _ := fs.ReadDir(schemaFS, "schema")
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, strings.TrimSuffix(e.Name(), ".up.sql"))
		}
	}
	sort.Strings(names)
	return names
}

// EnsureSchema は未適用の DocumentStore スキーマを順番に適用し、適用数を返す。
// 適用済みの名前は schema_migrations に記録する。
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return 0, unavailable(err)
	}

	applied := 0
	for _, name := range SchemaMigrations() {
		var exists bool
		if err := pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE name=$1)", name).Scan(&exists); err != nil {
			return applied, unavailable(err)
		}
		if exists {
			continue
		}
		sql, err := schemaFS.ReadFile("schema/" + name + ".up.sql")
		if err != nil {
			return applied, err
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return applied, unavailable(err)
		}
		if _, err := pool.Exec(ctx, "INSERT INTO schema_migrations (name) VALUES ($1)", name); err != nil {
			return applied, unavailable(err)
		}
		applied++
		slog.Info("schema migration applied", "migration", name)
	}
	return applied, nil
}
