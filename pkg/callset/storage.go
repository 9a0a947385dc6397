package callset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Storage reads and writes the files of a call set.
// Supports both local filesystem and S3
type Storage interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	// List returns the relative paths of all files under prefix.
	List(prefix string) ([]string, error)
	Exists(path string) (bool, error)
	BasePath() string
	IsS3() bool
}

// LocalStorage implements Storage on the local filesystem.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a local storage backend rooted at basePath.
func NewLocalStorage(basePath string) *LocalStorage {
	return &LocalStorage{basePath: basePath}
}

func (s *LocalStorage) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.basePath, path))
}

func (s *LocalStorage) WriteFile(path string, data []byte) error {
	fullPath := filepath.Join(s.basePath, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, data, 0644)
}

func (s *LocalStorage) List(prefix string) ([]string, error) {
	var files []string
	err := filepath.Walk(filepath.Join(s.basePath, prefix), func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return files, err
}

func (s *LocalStorage) Exists(path string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.basePath, path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *LocalStorage) BasePath() string {
	return s.basePath
}

func (s *LocalStorage) IsS3() bool {
	return false
}

// S3URI is a parsed s3://bucket/prefix location.
type S3URI struct {
	Bucket string
	Prefix string
}

// ParseS3URI parses an S3 URI like s3://bucket/path/to/dataset.
func ParseS3URI(uri string) (S3URI, error) {
	if !IsS3URI(uri) {
		return S3URI{}, fmt.Errorf("invalid S3 URI %s: must start with s3://", uri)
	}
	bucket, prefix, _ := strings.Cut(strings.TrimPrefix(uri, "s3://"), "/")
	if bucket == "" {
		return S3URI{}, fmt.Errorf("invalid S3 URI %s: missing bucket name", uri)
	}
	return S3URI{Bucket: bucket, Prefix: strings.TrimSuffix(prefix, "/")}, nil
}

// IsS3URI reports whether p names an S3 location.
func IsS3URI(p string) bool {
	return strings.HasPrefix(p, "s3://")
}

// S3Options tunes the S3 backend. Zero values select the defaults.
type S3Options struct {
	Region      string
	PartSize    int64 // Multipart upload part size (default: 10MB)
	Concurrency int   // Parts uploaded at once (default: 3)
}

// S3Storage implements Storage on AWS S3.
type S3Storage struct {
	uri        S3URI
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	ctx        context.Context
	uploaded   atomic.Int64
}

// NewS3Storage creates an S3 backend for an s3://bucket/prefix path.
func NewS3Storage(ctx context.Context, p string, opts S3Options) (*S3Storage, error) {
	uri, err := ParseS3URI(p)
	if err != nil {
		return nil, err
	}

	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024
		if opts.PartSize > 0 {
			u.PartSize = opts.PartSize
		}
		u.Concurrency = 3
		if opts.Concurrency > 0 {
			u.Concurrency = opts.Concurrency
		}
	})
	return &S3Storage{
		uri:        uri,
		client:     client,
		uploader:   uploader,
		downloader: manager.NewDownloader(client),
		ctx:        ctx,
	}, nil
}

func (s *S3Storage) key(p string) string {
	if s.uri.Prefix == "" {
		return p
	}
	return path.Join(s.uri.Prefix, filepath.ToSlash(p))
}

func (s *S3Storage) ReadFile(p string) ([]byte, error) {
	key := s.key(p)
	buf := manager.NewWriteAtBuffer(nil)
	_, err := s.downloader.Download(s.ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.uri.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download s3://%s/%s: %w", s.uri.Bucket, key, err)
	}
	return buf.Bytes(), nil
}

func (s *S3Storage) WriteFile(p string, data []byte) error {
	key := s.key(p)
	_, err := s.uploader.Upload(s.ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.uri.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to s3://%s/%s: %w", s.uri.Bucket, key, err)
	}
	s.uploaded.Add(int64(len(data)))
	return nil
}

func (s *S3Storage) List(prefix string) ([]string, error) {
	var files []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.uri.Bucket),
		Prefix: aws.String(s.key(prefix)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(s.ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if s.uri.Prefix != "" {
				key = strings.TrimPrefix(key, s.uri.Prefix+"/")
			}
			files = append(files, key)
		}
	}
	return files, nil
}

func (s *S3Storage) Exists(p string) (bool, error) {
	_, err := s.client.HeadObject(s.ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.uri.Bucket),
		Key:    aws.String(s.key(p)),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, err
}

func (s *S3Storage) BasePath() string {
	if s.uri.Prefix == "" {
		return fmt.Sprintf("s3://%s", s.uri.Bucket)
	}
	return fmt.Sprintf("s3://%s/%s", s.uri.Bucket, s.uri.Prefix)
}

func (s *S3Storage) IsS3() bool {
	return true
}

// Uploaded returns the number of bytes written so far.
func (s *S3Storage) Uploaded() int64 {
	return s.uploaded.Load()
}

// NewStorage picks the backend from the path: s3:// or local.
func NewStorage(ctx context.Context, p string) (Storage, error) {
	if IsS3URI(p) {
		return NewS3Storage(ctx, p, S3Options{})
	}
	return NewLocalStorage(p), nil
}
