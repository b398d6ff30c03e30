package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"quiz_master_backend/internal/config"
	"quiz_master_backend/internal/util"
	"quiz_master_backend/pkg/logger"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// 统计图每次生成都覆盖同一个 key，不允许中间缓存
const artifactCacheControl = "no-cache"

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

// LocalStorage 写入本地目录，由 /static 路由对外提供
type LocalStorage struct {
	Root    string
	BaseURL string
}

func NewLocalStorage(cfg *config.StorageConfig) *LocalStorage {
	base := cfg.PublicURL
	if base == "" {
		base = "/static"
	}
	return &LocalStorage{Root: cfg.LocalPath, BaseURL: base}
}

func (s *LocalStorage) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: object key %q escapes storage root", util.ErrValidation, key)
	}
	return filepath.Join(s.Root, clean), nil
}

// Upload 先写临时文件再重命名，并发写同一 key 时后写入者生效，读者不会看到半个文件
func (s *LocalStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	dst, err := s.path(key)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", err
	}
	return joinURL(s.BaseURL, filepath.ToSlash(key)), nil
}

// MinioStorage 启动时确保 bucket 存在
type MinioStorage struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

func NewMinioStorage(ctx context.Context, cfg *config.StorageConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Log.Info("Created minio bucket", zap.String("bucket", cfg.MinioBucket))
	}

	base := cfg.PublicURL
	if base == "" {
		base = client.EndpointURL().String() + "/" + cfg.MinioBucket
	}
	return &MinioStorage{client: client, bucket: cfg.MinioBucket, baseURL: base}, nil
}

func (s *MinioStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: artifactCacheControl,
	})
	if err != nil {
		return "", err
	}
	return joinURL(s.baseURL, key), nil
}

// OSSStorage 阿里云 OSS
type OSSStorage struct {
	bucket  *oss.Bucket
	baseURL string
}

func NewOSSStorage(cfg *config.StorageConfig) (*OSSStorage, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(cfg.OSSBucket)
	if err != nil {
		return nil, err
	}

	base := cfg.PublicURL
	if base == "" {
		host := strings.TrimPrefix(strings.TrimPrefix(cfg.OSSEndpoint, "https://"), "http://")
		base = fmt.Sprintf("https://%s.%s", cfg.OSSBucket, host)
	}
	return &OSSStorage{bucket: bucket, baseURL: base}, nil
}

func (s *OSSStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	err := s.bucket.PutObject(key, reader,
		oss.WithContext(ctx),
		oss.ContentType(contentType),
		oss.CacheControl(artifactCacheControl),
	)
	if err != nil {
		return "", err
	}
	return joinURL(s.baseURL, key), nil
}

// NewArtifactStore 按配置选择存储，远端存储初始化失败时退回本地目录
func NewArtifactStore(ctx context.Context, cfg *config.StorageConfig) ArtifactStore {
	switch cfg.Type {
	case util.StorageMinio:
		s, err := NewMinioStorage(ctx, cfg)
		if err == nil {
			return s
		}
		logger.Log.Error("Failed to init minio storage, falling back to local", zap.Error(err))
	case util.StorageOSS:
		s, err := NewOSSStorage(cfg)
		if err == nil {
			return s
		}
		logger.Log.Error("Failed to init oss storage, falling back to local", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.LocalPath, 0755); err != nil {
		logger.Log.Error("Failed to create local storage dir", zap.String("path", cfg.LocalPath), zap.Error(err))
	}
	return NewLocalStorage(cfg)
}
