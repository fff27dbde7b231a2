package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "StoryBuilder/internal/config"
	"StoryBuilder/internal/ports"
)

// S3Store implements ports.ObjectStore over an S3 bucket. Display URLs point
// directly at stored objects through the configured base: artifacts are
// resized before storage, not at request time.
type S3Store struct {
	client      *s3.Client
	bucket      string
	displayBase string
}

var _ ports.ObjectStore = (*S3Store)(nil)

// NewS3Store builds the S3 client from static credentials in configuration.
func NewS3Store(ctx context.Context, cfg appconfig.StorageConfig) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3Store{
		client:      s3.NewFromConfig(awsCfg),
		bucket:      cfg.Bucket,
		displayBase: strings.TrimSuffix(cfg.DisplayBase, "/"),
	}, nil
}

// Put uploads the artifact bytes under key with the given content type.
func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// URL derives the externally consumable display address of a stored object.
func (s *S3Store) URL(key string) string {
	return s.displayBase + "/" + key
}
