package tokenstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Store keeps the token hash as a single object in an S3 or S3-compatible
// bucket. The object body is the bare hex digest.
type S3Store struct {
	client      *s3.S3
	bucket      string
	key         string
	log         *slog.Logger
	locationURI string
}

// NewS3Store creates an S3-backed store. When accessKey and secretKey are
// empty the SDK's default credential chain (environment, shared config,
// instance profile) is used.
func NewS3Store(bucket, key, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Store, error) {
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 store requires both bucket and object key")
	}

	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucket, key, region)
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}

	return &S3Store{
		client:      s3.New(sess),
		bucket:      bucket,
		key:         key,
		log:         log,
		locationURI: uri,
	}, nil
}

// LoadHash reads the stored digest. A missing object means no token has
// been configured and is not an error.
func (s *S3Store) LoadHash(ctx context.Context) (string, error) {
	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "404") {
			return "", nil
		}
		s.log.Error("Failed to read token hash from S3",
			slog.String("bucket", s.bucket),
			slog.String("key", s.key),
			"err", err)
		return "", fmt.Errorf("failed to read from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read S3 object body: %w", err)
	}

	s.log.Debug("Loaded token hash from S3",
		slog.String("bucket", s.bucket),
		slog.String("key", s.key))
	return strings.TrimSpace(string(data)), nil
}

// SaveHash writes the digest, overwriting any previous object.
func (s *S3Store) SaveHash(ctx context.Context, digest string) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader([]byte(digest)),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		s.log.Error("Failed to write token hash to S3",
			slog.String("bucket", s.bucket),
			slog.String("key", s.key),
			"err", err)
		return fmt.Errorf("failed to write to S3: %w", err)
	}

	s.log.Debug("Stored token hash in S3",
		slog.String("bucket", s.bucket),
		slog.String("key", s.key))
	return nil
}

// LocationURI returns the URI that identifies this store.
func (s *S3Store) LocationURI() string {
	return s.locationURI
}
