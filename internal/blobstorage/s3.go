package blobstorage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// ErrNotFound is returned when the bucket or object does not exist.
var ErrNotFound = errors.New("object not found")

// Config describes where the domain map object lives
type Config struct {
	Endpoint     string `yaml:"endpoint"`
	Region       string `yaml:"region"`
	Bucket       string `yaml:"bucket"`
	Key          string `yaml:"key"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
	// MaxSize caps the object size in bytes.
	MaxSize int64 `yaml:"max_size"`
}

// Validate checks the fields needed to fetch the object
func (c Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket cannot be empty")
	}
	if c.Key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return fmt.Errorf("access_key and secret_key must be set together")
	}
	if c.MaxSize < 0 {
		return fmt.Errorf("max_size cannot be negative")
	}
	return nil
}

const defaultMaxSize = 4 << 20

// objectGetter is the part of the S3 client we use. Tests substitute it.
type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3BlobStorage reads a single configuration object from S3 or an
// S3-compatible store.
type S3BlobStorage struct {
	client objectGetter
	cfg    Config
}

// NewS3BlobStorage creates a client from cfg. Static credentials are used
// when given, otherwise the default AWS credential chain.
func NewS3BlobStorage(ctx context.Context, cfg Config) (*S3BlobStorage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid blob storage config: %w", err)
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3BlobStorage{client: client, cfg: cfg}, nil
}

// Fetch downloads the configured object.
func (s *S3BlobStorage) Fetch(ctx context.Context) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.cfg.Key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3://%s/%s: %w", s.cfg.Bucket, s.cfg.Key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", s.cfg.Bucket, s.cfg.Key, err)
	}
	defer func() { _ = out.Body.Close() }()

	limit := s.cfg.MaxSize
	if limit == 0 {
		limit = defaultMaxSize
	}

	data, err := io.ReadAll(io.LimitReader(out.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", s.cfg.Bucket, s.cfg.Key, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("s3://%s/%s exceeds %d bytes", s.cfg.Bucket, s.cfg.Key, limit)
	}
	return data, nil
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noBucket) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}
	return false
}
