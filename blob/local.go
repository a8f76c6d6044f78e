package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tradedesk/logging"

	"go.uber.org/zap"
)

type LocalStorage struct {
	basePath  string
	publicURL string
}

func NewLocalStorage(basePath, publicURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStorage{basePath: basePath, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (s *LocalStorage) resolve(bucket, key string) (string, error) {
	full := filepath.Join(s.basePath, filepath.FromSlash(objectPath(bucket, key)))
	base := filepath.Clean(s.basePath) + string(os.PathSeparator)
	if !strings.HasPrefix(full, base) {
		return "", fmt.Errorf("key escapes storage root: %q", key)
	}
	return full, nil
}

func (s *LocalStorage) Put(_ context.Context, bucket, key string, r io.Reader, _ int64, _ string) (string, error) {
	fullPath, err := s.resolve(bucket, key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}
	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err = io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	logging.Logger.Debug("file stored", zap.String("fullPath", fullPath))
	return s.URL(bucket, key), nil
}

func (s *LocalStorage) Delete(_ context.Context, bucket, key string) error {
	fullPath, err := s.resolve(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *LocalStorage) URL(bucket, key string) string {
	return s.publicURL + "/" + objectPath(bucket, key)
}
