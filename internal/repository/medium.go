package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/kaizen-ngo/backend/pkg/ghcontents"
)

// blobMedium は JSON ドキュメント 1 つを丸ごと読み書きする媒体。
// load は内容とリビジョン印を返し、存在しない場合は data=nil。
// save は load で得たリビジョン印を渡す（ローカルディスクでは無視される）。
type blobMedium interface {
	load(ctx context.Context) (data []byte, rev string, err error)
	save(ctx context.Context, data []byte, rev string) error
}

// diskMedium はローカルディスク上のファイル。ロックはせず最後の書き込みが勝つ。
type diskMedium struct {
	path string
}

func (m diskMedium) load(_ context.Context) ([]byte, string, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", unavailable(err)
	}
	return data, "", nil
}

// save は同じディレクトリの一時ファイルに書いてから rename する（途中状態を残さない）
func (m diskMedium) save(_ context.Context, data []byte, _ string) error {
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return unavailable(err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(m.path)+".*")
	if err != nil {
		return unavailable(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return unavailable(err)
	}
	if err := tmp.Close(); err != nil {
		return unavailable(err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return unavailable(err)
	}
	return nil
}

// remoteMedium はバージョン管理されたリモートのファイル。書き込みは 1 回 1 コミット。
// 読み込み時の sha と異なる場合は ErrConflict を返し、上書きはしない。
type remoteMedium struct {
	client  ghcontents.Client
	path    string
	message string
}

func (m remoteMedium) load(ctx context.Context) ([]byte, string, error) {
	f, err := m.client.GetFile(ctx, m.path)
	if errors.Is(err, ghcontents.ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", remoteError(err)
	}
	return f.Content, f.SHA, nil
}

func (m remoteMedium) save(ctx context.Context, data []byte, rev string) error {
	_, err := m.client.PutFile(ctx, m.path, data, rev, m.message)
	if errors.Is(err, ghcontents.ErrConflict) {
		return conflict(fmt.Errorf("%s changed since revision %q", m.path, rev))
	}
	if err != nil {
		return remoteError(err)
	}
	return nil
}

// remoteError は通信エラーと 5xx・429 だけを ErrUnavailable にする。
// 認証切れや権限不足などの 4xx はフォールバックさせずにそのまま返す。
func remoteError(err error) error {
	var apiErr *ghcontents.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
		apiErr.StatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("remote rejected request: %w", err)
	}
	return unavailable(err)
}
