package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"luxscaler/internal/config"
)

// ObjectStorage stores generation outputs in a single bucket.
type ObjectStorage interface {
	Upload(ctx context.Context, path, contentType string, data []byte) error
	// Delete removes paths and returns how many objects the backend reported removed.
	Delete(ctx context.Context, paths []string) (int, error)
}

var ErrStorageNotConfigured = errors.New("object storage is not configured")

type storageClient struct {
	baseURL string
	key     string
	bucket  string
	http    *http.Client
	log     *zap.Logger
}

func NewObjectStorage(cfg *config.Config, log *zap.Logger) ObjectStorage {
	if cfg.Storage.URL == "" {
		log.Warn("STORAGE_URL not set, uploads and deletions will fail")
	}
	return &storageClient{
		baseURL: cfg.Storage.URL,
		key:     cfg.Storage.ServiceKey,
		bucket:  cfg.Storage.Bucket,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

func (s *storageClient) Upload(ctx context.Context, path, contentType string, data []byte) error {
	if s.baseURL == "" {
		return ErrStorageNotConfigured
	}
	endpoint := fmt.Sprintf("%s/object/%s/%s", s.baseURL, url.PathEscape(s.bucket), escapePath(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	_, err = s.do(req)
	return err
}

func (s *storageClient) Delete(ctx context.Context, paths []string) (int, error) {
	if len(paths) == 0 {
		return 0, nil
	}
	if s.baseURL == "" {
		return 0, ErrStorageNotConfigured
	}
	body, err := json.Marshal(map[string][]string{"prefixes": paths})
	if err != nil {
		return 0, err
	}
	endpoint := fmt.Sprintf("%s/object/%s", s.baseURL, url.PathEscape(s.bucket))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := s.do(req)
	if err != nil {
		return 0, err
	}

	var removed []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &removed); err != nil {
		s.log.Warn("storage delete returned an unexpected body", zap.Error(err))
		return len(paths), nil
	}
	return len(removed), nil
}

func (s *storageClient) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("apikey", s.key)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage %s: %w", req.Method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("storage %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
