package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"hls-downloader/internal/domain/repositories"
	"hls-downloader/pkg/file"
	"hls-downloader/pkg/helper"
)

// S3API is the slice of the S3 client the mirror needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage mirrors finished artifacts to a bucket, keeping the local layout
// relative to BasePath under Prefix.
type S3Storage struct {
	client     S3API
	bucketName string
	prefix     string
	basePath   string
	log        *zap.Logger
}

var _ repositories.ArtifactPublisher = (*S3Storage)(nil)

func NewS3Storage(ctx context.Context, bucketName, region, prefix, basePath string, log *zap.Logger) (*S3Storage, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("AWS config yüklenemedi: %w", err)
	}
	return NewS3StorageWithClient(s3.NewFromConfig(cfg), bucketName, prefix, basePath, log), nil
}

func NewS3StorageWithClient(client S3API, bucketName, prefix, basePath string, log *zap.Logger) *S3Storage {
	return &S3Storage{
		client:     client,
		bucketName: bucketName,
		prefix:     prefix,
		basePath:   basePath,
		log:        log,
	}
}

// Publish uploads every finished file under destDir. Leftover .part files
// are skipped.
func (s *S3Storage) Publish(ctx context.Context, destDir string) (int, error) {
	uploaded := 0
	err := filepath.WalkDir(destDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || file.IsPartFile(path) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		key := file.MakeKey(s.prefix, filepath.ToSlash(rel))

		if err := s.put(ctx, path, key); err != nil {
			return err
		}
		uploaded++
		return nil
	})
	if err != nil {
		return uploaded, fmt.Errorf("S3 upload hatası: %w", err)
	}
	s.log.Info("artifact mirrored to s3",
		zap.String("bucket", s.bucketName),
		zap.String("dir", destDir),
		zap.Int("objects", uploaded))
	return uploaded, nil
}

func (s *S3Storage) put(ctx context.Context, path, key string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(helper.GetMimeTypeFromExtension(path)),
	})
	return err
}
