// Package storage keeps copies of exported workbooks in S3-compatible object
// storage (AWS S3, MinIO, RustFS and the like).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	personapp "github.com/erp/personportal/internal/application/person"
	infraconfig "github.com/erp/personportal/internal/infrastructure/config"
)

var _ personapp.ExportArchive = (*S3ExportArchive)(nil)

// S3ExportArchive uploads exported workbooks under a key prefix.
type S3ExportArchive struct {
	client *s3.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// S3ExportArchiveOption is a functional option for S3ExportArchive
type S3ExportArchiveOption func(*S3ExportArchive)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3ExportArchiveOption {
	return func(s *S3ExportArchive) {
		s.logger = logger
	}
}

// WithPrefix overrides the key prefix, "exports/" by default.
func WithPrefix(prefix string) S3ExportArchiveOption {
	return func(s *S3ExportArchive) {
		s.prefix = prefix
	}
}

// NewS3ExportArchive creates an archive from configuration. Without static
// keys the default AWS credential chain is used.
func NewS3ExportArchive(ctx context.Context, cfg *infraconfig.StorageConfig, opts ...S3ExportArchiveOption) (*S3ExportArchive, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if (cfg.AccessKey == "") != (cfg.SecretKey == "") {
		return nil, errors.New("storage access key and secret key must be set together")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	archive := &S3ExportArchive{
		client: client,
		bucket: cfg.Bucket,
		prefix: "exports/",
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(archive)
	}
	return archive, nil
}

// normalizeEndpoint adds a scheme to bare host:port endpoints. An empty
// endpoint keeps the SDK's regional default.
func normalizeEndpoint(endpoint string, useSSL bool) string {
	if endpoint == "" {
		return ""
	}
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *S3ExportArchive) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating export bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Key returns the object key a workbook named fileName is stored under.
func (s *S3ExportArchive) Key(fileName string) string {
	return strings.TrimLeft(path.Join(s.prefix, path.Base(fileName)), "/")
}

// Store uploads one workbook and returns its object key.
func (s *S3ExportArchive) Store(ctx context.Context, fileName string, content []byte) (string, error) {
	if fileName == "" {
		return "", errors.New("file name is required")
	}

	key := s.Key(fileName)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(personapp.XLSXContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	s.logger.Info("Export archived",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int("size", len(content)),
	)
	return key, nil
}

// Bucket returns the bucket name
func (s *S3ExportArchive) Bucket() string {
	return s.bucket
}
