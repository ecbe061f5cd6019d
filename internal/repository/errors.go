package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested record does not exist in the backend.
	ErrNotFound = errors.New("not found")
	// ErrConflict はリビジョン不一致による書き込み競合（RemoteFileStore のみ）。
	// 呼び出し側で再読み込みしてリトライする。
	ErrConflict = errors.New("conflict")
	// ErrUnavailable はディスク・ネットワーク・DB 障害などのバックエンド側の失敗。
	ErrUnavailable = errors.New("backend unavailable")
)

// OpError はアダプタのエラーに操作・entity・id を付与する
type OpError struct {
	Op     string // "list" | "find" | "upsert" | "remove" | "clear" | "append"
	Entity string // "project" | "post" | "changelog"
	ID     string
	Err    error
}

func (e *OpError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("repository: %s %s: %v", e.Op, e.Entity, e.Err)
	}
	return fmt.Sprintf("repository: %s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func opErr(op, entity, id string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Entity: entity, ID: id, Err: err}
}

// unavailable は原因を保持したまま ErrUnavailable として扱えるようにする
func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// conflict は原因を保持したまま ErrConflict として扱えるようにする
func conflict(err error) error {
	return fmt.Errorf("%w: %w", ErrConflict, err)
}
