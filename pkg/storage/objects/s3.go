// Package objects stores user avatar images in an S3-compatible bucket.
package objects

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/platinummonkey/tenancy/pkg/storage/objects")

// MaxImageSize bounds an avatar upload
const MaxImageSize = 5 << 20

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ErrUnsupportedImage is returned for content types that are not images
var ErrUnsupportedImage = errors.New("unsupported image type")

// ErrImageTooLarge is returned when an upload exceeds MaxImageSize
var ErrImageTooLarge = errors.New("image too large")

// ImageStore persists avatar images
type ImageStore interface {
	// PutImage stores the image and returns the key it was written under
	PutImage(ctx context.Context, ownerID string, content io.Reader, contentType string) (string, error)
	DeleteImage(ctx context.Context, key string) error
	HealthCheck(ctx context.Context) error
}

// Config holds the bucket settings
type Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// s3API is the subset of *s3.Client the store calls
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3Store implements ImageStore on S3 or MinIO
type S3Store struct {
	client s3API
	bucket string
}

// NewS3Store loads AWS configuration and makes sure the bucket exists.
// Static keys are used when both are set, otherwise the default chain.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	store := newS3Store(client, cfg.Bucket)
	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func newS3Store(client s3API, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

// AvatarKey is the object key of an owner's avatar
func AvatarKey(ownerID, contentType string) (string, error) {
	ext, ok := allowedImageTypes[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, contentType)
	}
	return path.Join("avatars", ownerID+ext), nil
}

func (s *S3Store) PutImage(ctx context.Context, ownerID string, content io.Reader, contentType string) (string, error) {
	key, err := AvatarKey(ownerID, contentType)
	if err != nil {
		return "", err
	}

	ctx, span := tracer.Start(ctx, "S3.PutImage",
		trace.WithAttributes(
			attribute.String("s3.bucket", s.bucket),
			attribute.String("s3.key", key),
			attribute.String("content.type", contentType),
		),
	)
	defer span.End()

	data, err := io.ReadAll(io.LimitReader(content, MaxImageSize+1))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read content")
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxImageSize {
		span.SetStatus(codes.Error, "image too large")
		return "", fmt.Errorf("%w: exceeds %d bytes", ErrImageTooLarge, MaxImageSize)
	}
	span.SetAttributes(attribute.Int("content.size", len(data)))

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload to s3")
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	span.SetStatus(codes.Ok, "image uploaded")
	return key, nil
}

// DeleteImage removes the object; an empty key is a no-op
func (s *S3Store) DeleteImage(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	ctx, span := tracer.Start(ctx, "S3.DeleteImage",
		trace.WithAttributes(attribute.String("s3.bucket", s.bucket), attribute.String("s3.key", key)),
	)
	defer span.End()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete object")
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

func (s *S3Store) HealthCheck(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("s3 health check failed: %w", err)
	}
	return nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	if err := s.HealthCheck(ctx); err == nil {
		return nil
	}

	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil && !isBucketOwned(err) {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func isBucketOwned(err error) bool {
	var owned *types.BucketAlreadyOwnedByYou
	var exists *types.BucketAlreadyExists
	return errors.As(err, &owned) || errors.As(err, &exists)
}
