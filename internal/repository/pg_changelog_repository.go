package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kaizen-ngo/backend/internal/model"
)

// PgChangeLogStore は content_change_logs への追記専用ストア
type PgChangeLogStore struct {
	pool *pgxpool.Pool
}

func NewPgChangeLogStore(pool *pgxpool.Pool) *PgChangeLogStore {
	return &PgChangeLogStore{pool: pool}
}

func (r *PgChangeLogStore) Append(ctx context.Context, e *model.ChangeLogEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO content_change_logs (action, entity, title, timestamp) VALUES ($1, $2, $3, $4)`,
		string(e.Action), e.Entity, e.Title, e.Timestamp.UTC(),
	)
	return opErr("append", "changelog", "", pgErr(err))
}

// Recent は entity の履歴を新しい順に最大 limit 件返す。limit が 0 なら全件。
func (r *PgChangeLogStore) Recent(ctx context.Context, entity string, limit int) ([]*model.ChangeLogEntry, error) {
	if limit < 0 {
		limit = 0
	}
	rows, err := r.pool.Query(ctx,
		`SELECT action, entity, title, timestamp FROM content_change_logs
		 WHERE entity = $1 ORDER BY timestamp DESC, id DESC LIMIT NULLIF($2, 0)`,
		entity, limit,
	)
	if err != nil {
		return nil, opErr("recent", "changelog", "", pgErr(err))
	}
	defer rows.Close()

	entries := []*model.ChangeLogEntry{}
	for rows.Next() {
		var e model.ChangeLogEntry
		var action string
		if err := rows.Scan(&action, &e.Entity, &e.Title, &e.Timestamp); err != nil {
			return nil, opErr("recent", "changelog", "", pgErr(err))
		}
		e.Action = model.ChangeAction(action)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, opErr("recent", "changelog", "", pgErr(err))
	}
	return entries, nil
}
