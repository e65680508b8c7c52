package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/OFFIS-RIT/stakegraph/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore is the part of S3 the report pipeline needs.
type ObjectStore interface {
	PutJSON(ctx context.Context, key string, v any) error
	GetFile(ctx context.Context, key string) ([]byte, error)
	GenerateDownloadLink(ctx context.Context, key string) (string, error)
}

const downloadLinkTTL = 15 * time.Minute

// ReportKey is the object key of a finished report.
func ReportKey(companyID, jobID string) string {
	return path.Join("reports", url.PathEscape(companyID), jobID+".json")
}

func NewS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(util.GetEnv("AWS_REGION")),
		config.WithBaseEndpoint(util.GetEnv("AWS_ENDPOINT")),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			util.GetEnv("AWS_ACCESS_KEY"),
			util.GetEnv("AWS_SECRET_KEY"),
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client, nil
}

// S3Store implements ObjectStore on a single bucket.
type S3Store struct {
	client         *s3.Client
	bucket         string
	publicEndpoint string
}

func NewS3Store(client *s3.Client, bucket, publicEndpoint string) *S3Store {
	return &S3Store{client: client, bucket: bucket, publicEndpoint: publicEndpoint}
}

// NewS3StoreFromEnv reads AWS_BUCKET and AWS_PUBLIC_ENDPOINT.
func NewS3StoreFromEnv(client *s3.Client) *S3Store {
	return NewS3Store(client, util.GetEnv("AWS_BUCKET"), util.GetEnv("AWS_PUBLIC_ENDPOINT"))
}

func (s *S3Store) PutJSON(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload file to S3: %w", err)
	}
	return nil
}

func (s *S3Store) GetFile(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get file from S3: %w", err)
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, result.Body); err != nil {
		return nil, fmt.Errorf("failed to read file contents: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateDownloadLink presigns a GET against the public endpoint so the
// signature matches the Host header the browser sends. A path prefix on the
// public endpoint (a reverse proxy mount) is prepended to the signed path.
func (s *S3Store) GenerateDownloadLink(ctx context.Context, key string) (string, error) {
	publicURL, err := url.Parse(s.publicEndpoint)
	if err != nil || publicURL.Scheme == "" || publicURL.Host == "" {
		return "", fmt.Errorf("invalid AWS_PUBLIC_ENDPOINT: %s", s.publicEndpoint)
	}
	prefix := strings.TrimSuffix(publicURL.Path, "/")
	publicBaseEndpoint := fmt.Sprintf("%s://%s", publicURL.Scheme, publicURL.Host)

	opts := s.client.Options()
	presignClient := s3.NewFromConfig(
		aws.Config{
			Region:      opts.Region,
			Credentials: opts.Credentials,
			HTTPClient:  opts.HTTPClient,
		},
		func(o *s3.Options) {
			o.BaseEndpoint = aws.String(publicBaseEndpoint)
			o.UsePathStyle = true
		},
	)

	out, err := s3.NewPresignClient(presignClient).PresignGetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		},
		s3.WithPresignExpires(downloadLinkTTL),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate download link: %w", err)
	}

	if prefix == "" {
		return out.URL, nil
	}
	signedURL, err := url.Parse(out.URL)
	if err != nil {
		return "", fmt.Errorf("failed to parse presigned url: %w", err)
	}
	signedURL.Path = prefix + signedURL.Path
	return signedURL.String(), nil
}
