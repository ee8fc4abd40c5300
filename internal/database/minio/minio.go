package minio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"claims-service/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient wraps the MinIO client with claims service specific functionality
type MinioClient struct {
	client *minio.Client
	config config.MinioConfig
}

// Storage defines bucket names used by the claims service
var Storage = struct {
	ClaimEvidence string
}{
	ClaimEvidence: "claim-evidence",
}

var BucketNames = []string{
	Storage.ClaimEvidence,
}

// NewMinioClient initializes a new MinIO client with the provided configuration
func NewMinioClient(cfg config.MinioConfig) (*MinioClient, error) {
	endpoint := strings.TrimPrefix(cfg.MinioURL, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	isSecure, err := strconv.ParseBool(cfg.MinioSecure)
	if err != nil {
		slog.Warn("Invalid value for MinIO secure flag, defaulting to false", "value", cfg.MinioSecure)
		isSecure = false
	}

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: isSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err = minioClient.ListBuckets(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO server: %w", err)
	}

	mc := &MinioClient{
		client: minioClient,
		config: cfg,
	}

	for _, bucketName := range BucketNames {
		if err := mc.ensureBucket(ctx, bucketName); err != nil {
			return nil, fmt.Errorf("failed to ensure bucket %s: %w", bucketName, err)
		}
	}

	slog.Info("MinIO client initialized", "endpoint", cfg.MinioURL, "buckets", len(BucketNames))
	return mc, nil
}

// ensureBucket creates a bucket if it doesn't exist
func (mc *MinioClient) ensureBucket(ctx context.Context, bucketName string) error {
	exists, err := mc.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("error checking bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	err = mc.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{
		Region: mc.config.MinioLocation,
	})
	if err != nil {
		return fmt.Errorf("error creating bucket %s: %w", bucketName, err)
	}
	slog.Info("Created bucket", "bucket", bucketName)
	return nil
}

// UploadBytes uploads byte data to the specified bucket
func (mc *MinioClient) UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error {
	reader := bytes.NewReader(data)
	_, err := mc.client.PutObject(ctx, bucketName, objectName, reader, int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload bytes to %s in bucket %s: %w", objectName, bucketName, err)
	}
	return nil
}

// GetPresignedURL generates a presigned URL for temporary file access
func (mc *MinioClient) GetPresignedURL(ctx context.Context, bucketName, objectName string, expiry time.Duration) (string, error) {
	url, err := mc.client.PresignedGetObject(ctx, bucketName, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL for %s in bucket %s: %w", objectName, bucketName, err)
	}
	return url.String(), nil
}

// FileExists checks if a file exists in the specified bucket
func (mc *MinioClient) FileExists(ctx context.Context, bucketName, objectName string) (bool, error) {
	_, err := mc.client.StatObject(ctx, bucketName, objectName, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence %s in bucket %s: %w", objectName, bucketName, err)
	}
	return true, nil
}
