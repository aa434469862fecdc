package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStorage keeps uploads on local disk and serves them from BaseURL/uploads.
type FileStorage struct {
	BaseDir string // e.g. "./uploads"
	BaseURL string
}

func NewFileStorage(baseDir, baseURL string) *FileStorage {
	return &FileStorage{BaseDir: baseDir, BaseURL: strings.TrimRight(baseURL, "/")}
}

// SaveFile writes reader to <BaseDir>/<subDir>/<unique name> and returns the
// path relative to BaseDir. subDir examples: "trainer-documents/<trainer id>".
func (fs *FileStorage) SaveFile(ctx context.Context, subDir, originalFilename string, reader io.Reader) (string, error) {
	dir := filepath.Join(fs.BaseDir, subDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	key := objectKey(subDir, originalFilename)
	fullPath := filepath.Join(fs.BaseDir, filepath.FromSlash(key))

	out, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", fullPath, err)
	}
	return key, nil
}

// DeleteFile is a no-op for files that do not exist.
func (fs *FileStorage) DeleteFile(ctx context.Context, key string) error {
	fullPath := filepath.Join(fs.BaseDir, filepath.FromSlash(key))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", fullPath, err)
	}
	return nil
}

func (fs *FileStorage) URL(ctx context.Context, key string) (string, error) {
	return fmt.Sprintf("%s/uploads/%s", fs.BaseURL, key), nil
}
