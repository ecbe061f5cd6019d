// Package migration は JSON ファイルから DocumentStore への移行と、
// 画像参照のオブジェクトストレージへの移設を行う。
package migration

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kaizen-ngo/backend/internal/repository"
)

// AdminConfigFile は管理画面設定。移行対象ではないがバックアップには含める。
const AdminConfigFile = "admin-config.json"

// BackupFiles はバックアップ対象のファイル名
var BackupFiles = []string{repository.ProjectsFile, repository.PostsFile, AdminConfigFile}

// ErrBackupMismatch はコピー後のサイズが元ファイルと一致しない
var ErrBackupMismatch = errors.New("migration: backup size mismatch")

// BackedUpFile はバックアップしたファイル 1 件
type BackedUpFile struct {
	Name string
	Size int64
}

// BackupResult はバックアップ先ディレクトリとコピーしたファイル
type BackupResult struct {
	Dir   string
	Files []BackedUpFile
}

// BackupDirName は時刻からディレクトリ名を作る。
// ISO 8601 表記の ":" と "." を "-" に置き換える。
func BackupDirName(now time.Time) string {
	s := now.UTC().Format("2006-01-02T15:04:05.000Z")
	return strings.NewReplacer(":", "-", ".", "-").Replace(s)
}

// Backup は srcDir の JSON ファイルを backupRoot/<timestamp> にコピーし、
// バイト長が一致することを確認する。存在しないファイルは警告して飛ばす。
func Backup(srcDir, backupRoot string, now time.Time) (*BackupResult, error) {
	dir := filepath.Join(backupRoot, BackupDirName(now))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	res := &BackupResult{Dir: dir}
	for _, name := range BackupFiles {
		src := filepath.Join(srcDir, name)
		size, err := copyFile(src, filepath.Join(dir, name))
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("backup: source file not found, skipping", "path", src)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("backup %s: %w", name, err)
		}
		res.Files = append(res.Files, BackedUpFile{Name: name, Size: size})
		slog.Info("backup: copied", "file", name, "bytes", size)
	}
	return res, nil
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return 0, err
	}
	if err := out.Close(); err != nil {
		return 0, err
	}

	copied, err := os.Stat(dst)
	if err != nil {
		return 0, err
	}
	if copied.Size() != info.Size() {
		return 0, fmt.Errorf("%w: %s (%d != %d)", ErrBackupMismatch, filepath.Base(src), copied.Size(), info.Size())
	}
	return copied.Size(), nil
}
