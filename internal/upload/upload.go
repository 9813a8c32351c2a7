package upload

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fachebot/doc-summary/internal/logger"
)

// DefaultMIMEType 无法推断媒体类型时的默认值
const DefaultMIMEType = "application/pdf"

// tempPrefix 临时文件前缀，Sweep 只清理带此前缀的文件
const tempPrefix = "doc-summary-"

// ErrUnsupportedType 上传文件的扩展名不在允许列表内
var ErrUnsupportedType = errors.New("仅支持 PDF/PNG/JPG/JPEG 文件")

// AllowedExtensions 允许上传的文件扩展名
var AllowedExtensions = []string{".pdf", ".png", ".jpg", ".jpeg"}

// CheckExtension 返回小写扩展名，不在允许列表内时返回 ErrUnsupportedType
func CheckExtension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return ext, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedType, filename)
}

// GuessMIME 依次按扩展名、文件内容推断媒体类型，都失败时返回 application/pdf
func GuessMIME(path string, data []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}

	if len(data) > 0 {
		detected := mimetype.Detect(data)
		if !detected.Is("application/octet-stream") {
			if mediaType, _, err := mime.ParseMediaType(detected.String()); err == nil {
				return mediaType
			}
		}
	}

	return DefaultMIMEType
}

// Store 上传内容的临时副本目录
type Store struct {
	dir string
}

// NewStore dir 为空时使用系统临时目录
func NewStore(dir string) *Store {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Store{dir: dir}
}

func (s *Store) Dir() string {
	return s.dir
}

// WithTempCopy 把 r 写入带 ext 后缀的临时文件后调用 fn
// fn 返回后（包括 panic）临时文件一定会被删除
func (s *Store) WithTempCopy(ext string, r io.Reader, fn func(path string)) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("创建临时目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*"+ext)
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	path := tmp.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warnf("[Upload] 删除临时文件失败 %s: %v", path, err)
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("关闭临时文件失败: %w", err)
	}

	fn(path)
	return nil
}

// Sweep 删除修改时间早于 maxAge 的残留临时文件，返回删除数量
func (s *Store) Sweep(maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("读取临时目录失败: %w", err)
	}

	removed := 0
	cutoff := now.Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.Warnf("[Upload] 清理临时文件失败 %s: %v", path, err)
			continue
		}
		removed++
	}
	return removed, nil
}
