package ghcontents

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"sync"
)

// MemoryClient は Client のインメモリ実装（テスト・ローカル検証用）。
// sha は内容の SHA-1 で、GitHub と同じく古い sha での書き込みを拒否する。
type MemoryClient struct {
	mu    sync.Mutex
	files map[string]*File
	// Err がセットされていれば全呼び出しがそのエラーを返す
	Err error
	// Commits は成功した PutFile のメッセージ履歴
	Commits []string
}

// NewMemoryClient は空の MemoryClient を生成する
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{files: make(map[string]*File)}
}

func (m *MemoryClient) GetFile(_ context.Context, path string) (*File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	f, ok := m.files[path]
	if !ok {
		return nil, ErrNotFound
	}
	return &File{Content: append([]byte(nil), f.Content...), SHA: f.SHA}, nil
}

func (m *MemoryClient) PutFile(_ context.Context, path string, content []byte, sha, message string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	cur, ok := m.files[path]
	if ok && cur.SHA != sha {
		return "", ErrConflict
	}
	if !ok && sha != "" {
		return "", ErrConflict
	}
	sum := sha1.Sum(content)
	next := &File{Content: append([]byte(nil), content...), SHA: hex.EncodeToString(sum[:])}
	m.files[path] = next
	m.Commits = append(m.Commits, message)
	return next.SHA, nil
}
