// Package ghcontents は GitHub contents API を使ってリポジトリ上の
// JSON ファイルを読み書きする軽量クライアント。
// SDK は使わず raw HTTP で呼び出す。書き込みは 1 回ごとにコミットになる。
package ghcontents

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL は GitHub REST API のエンドポイント
const DefaultBaseURL = "https://api.github.com"

var (
	// ErrNotConfigured はトークンまたはリポジトリ未設定
	ErrNotConfigured = errors.New("ghcontents: not configured")
	// ErrNotFound はファイルが存在しない
	ErrNotFound = errors.New("ghcontents: file not found")
	// ErrConflict は渡した sha が最新ではない（他の書き込みに追い越された）
	ErrConflict = errors.New("ghcontents: sha does not match")
)

// APIError は 2xx 以外の応答
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ghcontents: api error %d: %s", e.StatusCode, e.Message)
}

// File はファイル内容とそのリビジョン（blob sha）
type File struct {
	Content []byte
	SHA     string
}

// Committer はコミットに記録する作者情報
type Committer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Client は contents API のインターフェース
type Client interface {
	// GetFile は path の内容と sha を返す。存在しなければ ErrNotFound。
	GetFile(ctx context.Context, path string) (*File, error)
	// PutFile は sha を前提に path を書き換え、新しい sha を返す。
	// sha が空なら新規作成。sha が古ければ ErrConflict。
	PutFile(ctx context.Context, path string, content []byte, sha, message string) (string, error)
}

// RealClient は GitHub への raw HTTP クライアント実装
type RealClient struct {
	Token     string
	Owner     string
	Repo      string
	Branch    string // 空ならデフォルトブランチ
	BaseURL   string
	Committer Committer

	httpClient *http.Client
}

// NewClient は "owner/repo" 形式の repo から RealClient を生成する
func NewClient(token, repo, branch string) (*RealClient, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if token == "" || !ok || owner == "" || name == "" {
		return nil, ErrNotConfigured
	}
	return &RealClient{
		Token:      token,
		Owner:      owner,
		Repo:       name,
		Branch:     branch,
		BaseURL:    DefaultBaseURL,
		Committer:  Committer{Name: "Kaizen Admin", Email: "admin@kaizen.org"},
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *RealClient) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		strings.TrimRight(c.BaseURL, "/"), url.PathEscape(c.Owner), url.PathEscape(c.Repo), strings.TrimLeft(path, "/"))
}

func (c *RealClient) newRequest(ctx context.Context, method, endpoint string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "token "+c.Token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// GetFile は path の内容と sha を取得する
func (c *RealClient) GetFile(ctx context.Context, path string) (*File, error) {
	endpoint := c.contentsURL(path)
	if c.Branch != "" {
		endpoint += "?ref=" + url.QueryEscape(c.Branch)
	}
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode/100 != 2 {
		return nil, readAPIError(resp)
	}

	var result struct {
		SHA      string `json:"sha"`
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	// 1MB を超えるファイルは encoding "none" で中身が返らない
	if result.Encoding == "none" {
		data, err := c.getRaw(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		return &File{Content: data, SHA: result.SHA}, nil
	}
	if result.Encoding != "" && result.Encoding != "base64" {
		return nil, fmt.Errorf("ghcontents: unsupported encoding %q", result.Encoding)
	}
	// GitHub は 60 文字ごとに改行を入れて返す
	raw := strings.NewReplacer("\n", "", "\r", "").Replace(result.Content)
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("ghcontents: decode content: %w", err)
	}
	return &File{Content: data, SHA: result.SHA}, nil
}

// getRaw は raw メディアタイプで本文だけを取得する（100MB まで）
func (c *RealClient) getRaw(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.raw")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode/100 != 2 {
		return nil, readAPIError(resp)
	}
	return io.ReadAll(resp.Body)
}

// PutFile は path を書き換えるコミットを作成する
func (c *RealClient) PutFile(ctx context.Context, path string, content []byte, sha, message string) (string, error) {
	body := map[string]any{
		"message":   message,
		"content":   base64.StdEncoding.EncodeToString(content),
		"committer": c.Committer,
	}
	if sha != "" {
		body["sha"] = sha
	}
	if c.Branch != "" {
		body["branch"] = c.Branch
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPut, c.contentsURL(path), jsonBody)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return "", ErrConflict
	case resp.StatusCode == http.StatusUnprocessableEntity && sha == "":
		// 既存ファイルに対して sha なしで書き込もうとした = 読み込み後に作成された
		return "", ErrConflict
	case resp.StatusCode/100 != 2:
		return "", readAPIError(resp)
	}

	var result struct {
		Content struct {
			SHA string `json:"sha"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Content.SHA, nil
}

func readAPIError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Message == "" {
		body.Message = resp.Status
	}
	return &APIError{StatusCode: resp.StatusCode, Message: body.Message}
}
