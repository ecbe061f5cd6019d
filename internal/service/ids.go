package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kaizen-ngo/backend/internal/repository"
)

// maxIDAttempts はミリ秒を進めて空き id を探す上限
const maxIDAttempts = 20

// nextID は "<prefix>-<unix millis>" 形式の id を返す。
// 既存 id と衝突した場合はミリ秒を 1 ずつ進めて再試行する。
func nextID(ctx context.Context, prefix string, now time.Time, exists func(ctx context.Context, id string) error) (string, error) {
	ms := now.UnixMilli()
	for i := 0; i < maxIDAttempts; i++ {
		id := prefix + "-" + strconv.FormatInt(ms+int64(i), 10)
		err := exists(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("service: no free id for prefix %q after %d attempts", prefix, maxIDAttempts)
}
