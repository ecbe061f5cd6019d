package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator は資格情報から Principal を得る外部ケーパビリティ
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (*Principal, error)
}

// Claims は管理画面のセッション JWT に載るクレーム
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuthenticator は HS256 署名の JWT を検証する Authenticator
type JWTAuthenticator struct {
	secret []byte
}

const minSecretLen = 32

// SecretBytes は文字列から署名用のバイト列を生成する（最低32バイト）
func SecretBytes(s string) []byte {
	b := []byte(s)
	if len(b) < minSecretLen {
		out := make([]byte, minSecretLen)
		copy(out, b)
		return out
	}
	return b
}

// NewJWTAuthenticator は secret で検証する JWTAuthenticator を生成する
func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: SecretBytes(secret)}
}

// Authenticate は署名・有効期限・subject を検証し Principal を返す。
// 失敗はすべて ErrUnauthenticated にまとめる。
func (a *JWTAuthenticator) Authenticate(_ context.Context, credential string) (*Principal, error) {
	if credential == "" {
		return nil, ErrUnauthenticated
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrUnauthenticated)
	}
	return &Principal{Subject: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}
