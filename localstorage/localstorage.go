package localstorage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var ErrNotInitialized = errors.New("localstorage: not initialized")

// 导出文件的根目录
var baseStorageDir string

// 与用户路径计算相关，建议不要修改
var usernameSalt string

// 前端访问文件的公共路径
var frontendPublicPath string

// 用于检查文件系统权限的测试文件名
var testFileName = "access_check.tmp"

// Init prepares storageDir for exports and checks it is writable.
// publicPathPrefix is the URL path (or absolute URL) that serves storageDir.
func Init(storageDir string, sha1Key string, publicPathPrefix string) (err error) {
	slog.Info("init local export", "dir", storageDir, "publicPath", publicPathPrefix)
	if _, err = os.Stat(storageDir); os.IsNotExist(err) {
		if err = os.MkdirAll(storageDir, 0755); err != nil {
			slog.Error("create export dir failed", "dir", storageDir, "error", err)
			return
		}
	}

	// 写入再读回一个临时文件，确认目录可读写
	testFilePath := filepath.Join(storageDir, testFileName)
	testContent := time.Now().String()
	if err = os.WriteFile(testFilePath, []byte(testContent), 0644); err != nil {
		return fmt.Errorf("export dir %s is not writable: %w", storageDir, err)
	}
	readContent, err := os.ReadFile(testFilePath)
	if err != nil {
		return fmt.Errorf("export dir %s is not readable: %w", storageDir, err)
	}
	if string(readContent) != testContent {
		return fmt.Errorf("export dir %s returned different content", storageDir)
	}
	if err = os.Remove(testFilePath); err != nil {
		slog.Warn("remove access check file failed", "error", err)
	}

	baseStorageDir = storageDir
	usernameSalt = sha1Key
	frontendPublicPath = normalizePublicPath(publicPathPrefix)

	slog.Info("local export ready", "dir", storageDir)
	return nil
}

// 确保协议后有双斜杠，末尾没有斜杠
func normalizePublicPath(prefix string) string {
	if strings.HasPrefix(prefix, "http:") && !strings.HasPrefix(prefix, "http://") {
		prefix = "http://" + strings.TrimPrefix(prefix, "http:/")
	} else if strings.HasPrefix(prefix, "https:") && !strings.HasPrefix(prefix, "https://") {
		prefix = "https://" + strings.TrimPrefix(prefix, "https:/")
	}
	return strings.TrimSuffix(prefix, "/")
}

// CalcPath is the per-user directory name: a salted sha1 prefix.
func CalcPath(userIdentifier string) string {
	hasher := sha1.New()
	hasher.Write([]byte(userIdentifier + usernameSalt))
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

// GetStoragePath places a file under the user directory and a random bucket.
func GetStoragePath(targetFileName string, userIdentifier string) string {
	userPath := CalcPath(userIdentifier)
	timePath := CalcPath(time.Now().String())[:8]
	return filepath.Join(baseStorageDir, userPath, timePath, targetFileName)
}

// UploadRawContent writes converted text to the storage location and returns its public URL
func UploadRawContent(ctx context.Context, plainText string, targetFileName string, userIdentifier string) (publicURL string, err error) {
	if baseStorageDir == "" {
		return "", ErrNotInitialized
	}
	if err = ctx.Err(); err != nil {
		return "", err
	}

	destPath := GetStoragePath(targetFileName, userIdentifier)
	destDir := filepath.Dir(destPath)
	if err = os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", destDir, err)
	}
	if err = os.WriteFile(destPath, []byte(plainText), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", destPath, err)
	}

	rel, err := filepath.Rel(baseStorageDir, destPath)
	if err != nil {
		return "", err
	}
	publicURL = frontendPublicPath + "/" + filepath.ToSlash(rel)

	slog.Info("exported text", "user", userIdentifier, "path", destPath, "url", publicURL)
	return publicURL, nil
}

// Prune removes exported files older than maxAge and the directories left empty.
func Prune(maxAge time.Duration) (removed int, err error) {
	if baseStorageDir == "" {
		return 0, ErrNotInitialized
	}
	cutoff := time.Now().Add(-maxAge)
	var dirs []string
	err = filepath.WalkDir(baseStorageDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != baseStorageDir {
				dirs = append(dirs, path)
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to prune %s: %w", baseStorageDir, err)
	}

	// 先删深层目录；非空目录删除失败直接忽略
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		_ = os.Remove(dir)
	}
	return removed, nil
}

// PruneJob periodically enforces the export retention. It never reports done.
type PruneJob struct {
	MaxAge time.Duration
}

func (j PruneJob) Execute() (done bool) {
	removed, err := Prune(j.MaxAge)
	if err != nil {
		slog.Error("prune exports failed", "error", err)
		return false
	}
	if removed > 0 {
		slog.Info("pruned expired exports", "removed", removed, "maxAge", j.MaxAge)
	}
	return false
}

func (j PruneJob) Identifier() string {
	return "localstorage.prune"
}
