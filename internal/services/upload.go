package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/oultic/oultic-backend/internal/logger"
)

var (
	ErrUploadTooLarge    = errors.New("upload exceeds the size limit")
	ErrUploadUnsupported = errors.New("unsupported file type")
)

var allowedVideoExtensions = map[string]struct{}{
	".mp4":  {},
	".webm": {},
	".mov":  {},
	".mkv":  {},
}

var allowedImageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// BlobStore persists raw upload bytes and hands back a servable URL.
type BlobStore interface {
	Save(ctx context.Context, key string, r io.Reader, maxBytes int64) (string, error)
	Remove(ctx context.Context, key string) error
}

type UploadResult struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type UploadService interface {
	SaveVideoFile(ctx context.Context, ownerID uuid.UUID, filename string, r io.Reader) (*UploadResult, error)
	SaveThumbnail(ctx context.Context, ownerID uuid.UUID, filename string, r io.Reader) (*UploadResult, error)
}

type uploadService struct {
	log           *logger.Logger
	store         BlobStore
	maxVideoBytes int64
	maxImageBytes int64
}

func NewUploadService(log *logger.Logger, store BlobStore, maxVideoBytes, maxImageBytes int64) UploadService {
	return &uploadService{
		log:           log.With("service", "UploadService"),
		store:         store,
		maxVideoBytes: maxVideoBytes,
		maxImageBytes: maxImageBytes,
	}
}

func (us *uploadService) SaveVideoFile(ctx context.Context, ownerID uuid.UUID, filename string, r io.Reader) (*UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedVideoExtensions[ext]; !ok {
		return nil, ErrUploadUnsupported
	}
	key := fmt.Sprintf("videos/%s/%s%s", ownerID.String(), uuid.New().String(), ext)
	url, err := us.store.Save(ctx, key, r, us.maxVideoBytes)
	if err != nil {
		return nil, err
	}
	us.log.Info("video file stored", "key", key)
	return &UploadResult{Key: key, URL: url}, nil
}

func (us *uploadService) SaveThumbnail(ctx context.Context, ownerID uuid.UUID, filename string, r io.Reader) (*UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedImageExtensions[ext]; !ok {
		return nil, ErrUploadUnsupported
	}
	key := fmt.Sprintf("thumbnails/%s/%s%s", ownerID.String(), uuid.New().String(), ext)
	url, err := us.store.Save(ctx, key, r, us.maxImageBytes)
	if err != nil {
		return nil, err
	}
	return &UploadResult{Key: key, URL: url}, nil
}

// localBlobStore keeps uploads on the local disk under a base directory and
// serves them from a static mount.
type localBlobStore struct {
	baseDir string
	baseURL string
}

func NewLocalBlobStore(baseDir, baseURL string) BlobStore {
	return &localBlobStore{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *localBlobStore) Save(ctx context.Context, key string, r io.Reader, maxBytes int64) (string, error) {
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, io.LimitReader(r, maxBytes+1))
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if written > maxBytes {
		os.Remove(path)
		return "", ErrUploadTooLarge
	}
	return s.baseURL + "/" + key, nil
}

func (s *localBlobStore) Remove(ctx context.Context, key string) error {
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}
