// Package blob publishes the county table to an S3-compatible bucket and fetches it back.
package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Store is a single bucket. Keys map to object keys directly.
type Store struct {
	client *s3.Client
	bucket string
}

// Config holds explicit construction parameters. Empty credentials fall back to the default chain.
type Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool

	// HTTPClient replaces the SDK transport; used by tests.
	HTTPClient *http.Client
}

// New creates a store from cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}

		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
	})

	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// OpenFromEnv builds a store from COUNTY_S3_BUCKET, COUNTY_S3_REGION, COUNTY_S3_ENDPOINT and
// COUNTY_S3_PATH_STYLE. Credentials come from the usual AWS variables.
func OpenFromEnv(ctx context.Context) (*Store, error) {
	bucket := os.Getenv("COUNTY_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("COUNTY_S3_BUCKET required")
	}

	return New(ctx, Config{
		Bucket:    bucket,
		Region:    os.Getenv("COUNTY_S3_REGION"),
		Endpoint:  os.Getenv("COUNTY_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("COUNTY_S3_PATH_STYLE"), "true"),
	})
}

func (s *Store) Bucket() string {
	return s.bucket
}

// Put writes r to key, replacing any existing object.
func (s *Store) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	input := &s3.PutObjectInput{Bucket: &s.bucket, Key: &key, Body: r}
	if contentType != "" {
		input.ContentType = &contentType
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put %s/%s: %w", s.bucket, key, err)
	}

	return nil
}

// Get opens the object at key. The caller closes the reader.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", s.bucket, key, err)
	}

	return out.Body, nil
}

// PublishFile uploads the file at path to key.
func (s *Store) PublishFile(ctx context.Context, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return s.Put(ctx, key, "text/csv", f)
}

// FetchFile downloads key to path. The file at path is replaced only once the download completes.
func (s *Store) FetchFile(ctx context.Context, key, path string) error {
	body, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}

	if _, err = io.Copy(tmp, body); err == nil {
		err = tmp.Sync()
	}

	if e := tmp.Close(); err == nil {
		err = e
	}

	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}

	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("fetch %s to %s: %w", key, path, err)
	}

	return nil
}
