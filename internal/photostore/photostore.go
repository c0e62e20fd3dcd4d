// Package photostore stores issue photos in S3 and hands out presigned URLs
// for viewing them.
package photostore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store wraps the S3 client pair used for photo storage.
type Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	expiry    time.Duration
}

// New builds a Store from the default AWS credential chain.
func New(ctx context.Context, bucket, region string, presignExpiry time.Duration) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		expiry:    presignExpiry,
	}, nil
}

// photoKey builds the object key for one photo of an issue.
func photoKey(issueID uuid.UUID, index int) string {
	return fmt.Sprintf("issues/%s/photo-%d.jpg", issueID, index)
}

// Upload stores one JPEG photo for an issue and returns its object key.
func (s *Store) Upload(ctx context.Context, issueID uuid.UUID, index int, jpeg []byte) (string, error) {
	key := photoKey(issueID, index)
	contentType := "image/jpeg"

	log.Debug().
		Str("key", key).
		Int("bytes", len(jpeg)).
		Msg("Uploading issue photo to S3")

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(jpeg),
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload photo to S3: %w", err)
	}

	log.Info().Str("key", key).Msg("Issue photo uploaded")
	return key, nil
}

// PresignURL creates a pre-signed GET URL for a stored photo.
func (s *Store) PresignURL(ctx context.Context, key string) (string, error) {
	result, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket, Key: &key,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign GetObject: %w", err)
	}
	return result.URL, nil
}

// Delete removes a stored photo.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket, Key: &key,
	})
	if err != nil {
		return fmt.Errorf("delete photo %s: %w", key, err)
	}

	log.Info().Str("key", key).Msg("Issue photo deleted")
	return nil
}
