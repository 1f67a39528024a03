package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"whiteboard-backend/internal/config"
)

// S3Service durable object storage for preview rasters.
type S3Service struct {
	client        *s3.Client
	bucket        string
	region        string
	publicBaseURL string
}

// NewS3Service builds an S3 client from static credentials.
func NewS3Service(cfg *config.S3Config) (*S3Service, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Service{
		client:        s3.NewFromConfig(awsCfg),
		bucket:        cfg.BucketName,
		region:        cfg.Region,
		publicBaseURL: cfg.PublicBaseURL,
	}, nil
}

// Put uploads bytes under key and returns the public URL.
func (s *S3Service) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s", s.publicBaseURL, key), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

// PreviewKey builds the storage key for a preview raster. The course id
// is zero-padded and reversed so keys spread across storage partitions
// instead of piling onto one hot prefix.
func PreviewKey(courseID int64, objectType, filename string) string {
	return fmt.Sprintf("%s/%s/%s", reverseCourseID(courseID), objectType, filename)
}

func reverseCourseID(courseID int64) string {
	padded := fmt.Sprintf("%010d", courseID)
	runes := []byte(padded)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
