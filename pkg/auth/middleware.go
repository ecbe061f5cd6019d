package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// BearerToken は Authorization ヘッダから Bearer トークンを取り出す
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func writeUnauthorized(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

// RequireAuth は認証必須ミドルウェア。Bearer トークンを検証し、Principal を context にセットする
func RequireAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				writeUnauthorized(w, "unauthorized")
				return
			}

			p, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				slog.Debug("authentication failed", "path", r.URL.Path, "error", err)
				writeUnauthorized(w, "invalid_token")
				return
			}

			ctx := WithPrincipal(r.Context(), p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DevPrincipal は開発用のダミー操作者（AUTH_REQUIRED=false 時に使用）
var DevPrincipal = Principal{Subject: "dev-admin", Email: "dev@localhost", Role: "admin"}

// DevAuth は開発用ミドルウェア。ダミー Principal を context にセットする
func DevAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := DevPrincipal
		ctx := WithPrincipal(r.Context(), &p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
