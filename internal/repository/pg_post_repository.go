package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kaizen-ngo/backend/internal/model"
)

// PgPostStore は PostStore の PostgreSQL 実装
type PgPostStore struct {
	pool *pgxpool.Pool
}

func NewPgPostStore(pool *pgxpool.Pool) *PgPostStore {
	return &PgPostStore{pool: pool}
}

func decodePostDoc(raw []byte) (*model.Post, error) {
	var rec postRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

func (r *PgPostStore) ListAll(ctx context.Context) ([]*model.Post, error) {
	rows, err := r.pool.Query(ctx, `SELECT doc FROM content_posts ORDER BY date DESC NULLS LAST, post_id`)
	if err != nil {
		return nil, opErr("list", model.EntityPost, "", pgErr(err))
	}
	defer rows.Close()

	posts := []*model.Post{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, opErr("list", model.EntityPost, "", pgErr(err))
		}
		p, err := decodePostDoc(raw)
		if err != nil {
			return nil, opErr("list", model.EntityPost, "", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, opErr("list", model.EntityPost, "", pgErr(err))
	}
	return posts, nil
}

func (r *PgPostStore) FindByID(ctx context.Context, id string) (*model.Post, error) {
	var raw []byte
	if err := r.pool.QueryRow(ctx, `SELECT doc FROM content_posts WHERE post_id = $1`, id).Scan(&raw); err != nil {
		return nil, opErr("find", model.EntityPost, id, pgErr(err))
	}
	p, err := decodePostDoc(raw)
	if err != nil {
		return nil, opErr("find", model.EntityPost, id, err)
	}
	return p, nil
}

func (r *PgPostStore) Upsert(ctx context.Context, p *model.Post) error {
	rec := toPostRecord(p)
	doc, err := json.Marshal(rec)
	if err != nil {
		return opErr("upsert", model.EntityPost, p.ID, err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO content_posts (post_id, date, doc, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (post_id) DO UPDATE
		 SET date = EXCLUDED.date, doc = EXCLUDED.doc, updated_at = NOW()`,
		rec.PostID, nullableTime(rec.Date), doc,
	)
	return opErr("upsert", model.EntityPost, p.ID, pgErr(err))
}

func (r *PgPostStore) Remove(ctx context.Context, id string) (*model.Post, error) {
	var raw []byte
	if err := r.pool.QueryRow(ctx, `DELETE FROM content_posts WHERE post_id = $1 RETURNING doc`, id).Scan(&raw); err != nil {
		return nil, opErr("remove", model.EntityPost, id, pgErr(err))
	}
	p, err := decodePostDoc(raw)
	if err != nil {
		return nil, opErr("remove", model.EntityPost, id, err)
	}
	return p, nil
}

func (r *PgPostStore) Clear(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM content_posts`)
	return opErr("clear", model.EntityPost, "", pgErr(err))
}
