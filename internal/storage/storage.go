package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrInvalidKey は空や親ディレクトリを含むキー
var ErrInvalidKey = errors.New("storage: invalid key")

// Storage は画像ファイルのアップローダ。
// ローカルファイルシステム実装の他、S3 / MinIO に差し替え可能。
type Storage interface {
	// Save はファイルを保存し、公開 URL を返す。
	// key はストレージ内の一意パス (例: "projects/images/camp.jpg")。
	// contentType が空なら内容から判定する。
	Save(ctx context.Context, key string, data io.Reader, contentType string) (url string, err error)

	// Delete は key に対応するファイルを削除する。
	Delete(ctx context.Context, key string) error

	// Exists は ref がすでにこのストレージ上のオブジェクトを指しているかを返す。
	// 移行済みの参照を再アップロードしないために使う。
	Exists(ctx context.Context, ref string) (bool, error)
}

// DetectContentType は先頭バイトから MIME type を判定し、判定できなければ拡張子を使う
func DetectContentType(data []byte, name string) string {
	if len(data) > 0 {
		if mt := mimetype.Detect(data); mt != nil && mt.String() != "application/octet-stream" && !strings.HasPrefix(mt.String(), "text/plain") {
			return mt.String()
		}
	}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// cleanKey は key をルート配下の相対パスに正規化する（".." はルートで止まる）
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.TrimSpace(key))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", ErrInvalidKey
	}
	return k, nil
}

// keyFromURL は base 配下の URL からキーを取り出す
func keyFromURL(base, ref string) (string, bool) {
	if base == "" {
		return "", false
	}
	prefix := strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(ref, prefix) {
		return "", false
	}
	k := strings.TrimPrefix(ref, prefix)
	if i := strings.IndexAny(k, "?#"); i >= 0 {
		k = k[:i]
	}
	return k, k != ""
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
