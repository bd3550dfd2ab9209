package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Config holds connection settings for an S3-compatible service.
type S3Config struct {
	// Endpoint overrides the service URL (e.g. "http://127.0.0.1:9000" for MinIO).
	Endpoint string
	// Region defaults to us-east-1.
	Region string
	// AccessKeyID and SecretAccessKey select static credentials; when empty
	// the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// UsePathStyle forces path-style addressing (required for MinIO).
	UsePathStyle bool
}

// S3Client reads object metadata from an S3-compatible service.
type S3Client struct {
	client  *s3.Client
	presign *s3.PresignClient
}

// NewS3Client builds a client from cfg.
func NewS3Client(ctx context.Context, cfg S3Config) (*S3Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return nil, errors.New("remote: access key and secret key must be set together")
		}
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("remote: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Client{client: client, presign: s3.NewPresignClient(client)}, nil
}

// HeadObject returns the ETag and size of bucket/key.
func (c *S3Client) HeadObject(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	if bucket == "" || key == "" {
		return ObjectInfo{}, errors.New("remote: bucket and key required")
	}
	out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return ObjectInfo{}, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, bucket, key)
		}
		return ObjectInfo{}, err
	}
	info := ObjectInfo{
		Bucket: bucket,
		Key:    key,
		ETag:   aws.ToString(out.ETag),
		Size:   aws.ToInt64(out.ContentLength),
	}
	if out.PartsCount != nil {
		info.Parts = int(*out.PartsCount)
	}
	return info, nil
}

// PresignGet returns a time-limited download URL for bucket/key.
func (c *S3Client) PresignGet(ctx context.Context, bucket, key string, lifetime time.Duration) (string, error) {
	if bucket == "" || key == "" {
		return "", errors.New("remote: bucket and key required")
	}
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = lifetime
	})
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}
	return false
}
