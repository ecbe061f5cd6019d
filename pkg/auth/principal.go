package auth

import (
	"context"
	"errors"
)

// ErrUnauthenticated は資格情報が無い・不正な場合に返す
var ErrUnauthenticated = errors.New("unauthenticated")

// Principal は認証済みの操作者
type Principal struct {
	Subject string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role,omitempty"`
}

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal は context に Principal をセットする
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext は context から Principal を取得する
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// RequirePrincipal は書き込み操作の前提条件。Principal が無ければ ErrUnauthenticated。
func RequirePrincipal(ctx context.Context) (*Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return p, nil
}
