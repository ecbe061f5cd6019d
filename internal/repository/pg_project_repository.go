package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kaizen-ngo/backend/internal/model"
)

// PgProjectStore は ProjectStore の PostgreSQL 実装（JSONB の DocumentStore）。
// project_id が主キー、date は一覧のソート用に列として持つ。
type PgProjectStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPgProjectStore は PgProjectStore を生成する
func NewPgProjectStore(pool *pgxpool.Pool) *PgProjectStore {
	return &PgProjectStore{pool: pool, now: time.Now}
}

// pgErr は driver のエラーを分類する
func pgErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return unavailable(err)
}

// nullableTime はゼロ時刻を NULL として渡す
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func decodeProjectDoc(raw []byte) (*model.Project, error) {
	var rec projectRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// ListAll は date の降順で全件を返す
func (r *PgProjectStore) ListAll(ctx context.Context) ([]*model.Project, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT doc FROM content_projects ORDER BY date DESC NULLS LAST, project_id`)
	if err != nil {
		return nil, opErr("list", model.EntityProject, "", pgErr(err))
	}
	defer rows.Close()

	projects := []*model.Project{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, opErr("list", model.EntityProject, "", pgErr(err))
		}
		p, err := decodeProjectDoc(raw)
		if err != nil {
			return nil, opErr("list", model.EntityProject, "", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, opErr("list", model.EntityProject, "", pgErr(err))
	}
	return projects, nil
}

// FindByID は project_id でプロジェクトを取得する
func (r *PgProjectStore) FindByID(ctx context.Context, id string) (*model.Project, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT doc FROM content_projects WHERE project_id = $1`, id).Scan(&raw)
	if err != nil {
		return nil, opErr("find", model.EntityProject, id, pgErr(err))
	}
	p, err := decodeProjectDoc(raw)
	if err != nil {
		return nil, opErr("find", model.EntityProject, id, err)
	}
	return p, nil
}

// Upsert は project_id が既存なら全置換、なければ追加する
func (r *PgProjectStore) Upsert(ctx context.Context, p *model.Project) error {
	rec := toProjectRecord(p, r.now())
	doc, err := json.Marshal(rec)
	if err != nil {
		return opErr("upsert", model.EntityProject, p.ID, err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO content_projects (project_id, category, date, doc, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (project_id) DO UPDATE
		 SET category = EXCLUDED.category, date = EXCLUDED.date, doc = EXCLUDED.doc, updated_at = NOW()`,
		rec.ProjectID, rec.Category, nullableTime(rec.Date), doc,
	)
	return opErr("upsert", model.EntityProject, p.ID, pgErr(err))
}

// Remove は削除したプロジェクトを返す
func (r *PgProjectStore) Remove(ctx context.Context, id string) (*model.Project, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `DELETE FROM content_projects WHERE project_id = $1 RETURNING doc`, id).Scan(&raw)
	if err != nil {
		return nil, opErr("remove", model.EntityProject, id, pgErr(err))
	}
	p, err := decodeProjectDoc(raw)
	if err != nil {
		return nil, opErr("remove", model.EntityProject, id, err)
	}
	return p, nil
}

// Clear は全プロジェクトを削除する（移行先の初期化）
func (r *PgProjectStore) Clear(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM content_projects`)
	return opErr("clear", model.EntityProject, "", pgErr(err))
}
