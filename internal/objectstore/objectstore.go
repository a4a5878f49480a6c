// Package objectstore uploads generated documents to S3-compatible object
// storage and hands back a retrievable URL.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/jonathan/transaction-desk/internal/config"
)

const contentTypePDF = "application/pdf"

// objectAPI is the subset of *minio.Client the uploader uses.
type objectAPI interface {
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucket, key string, expiry time.Duration, params url.Values) (*url.URL, error)
}

// MinioUploader stores documents in a single bucket.
type MinioUploader struct {
	api           objectAPI
	bucket        string
	publicBaseURL string
	presignExpiry time.Duration
	logger        *zap.Logger
}

// NewMinioUploader connects to the configured endpoint. No network call is
// made until the first upload.
func NewMinioUploader(cfg config.StorageConfig, logger *zap.Logger) (*MinioUploader, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	expiry := time.Duration(cfg.PresignExpiryMinutes) * time.Minute
	return newUploader(client, cfg.Bucket, cfg.PublicBaseURL, expiry, logger), nil
}

func newUploader(api objectAPI, bucket, publicBaseURL string, expiry time.Duration, logger *zap.Logger) *MinioUploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if expiry <= 0 {
		expiry = time.Duration(config.DefaultPresignMinutes) * time.Minute
	}
	return &MinioUploader{
		api:           api,
		bucket:        bucket,
		publicBaseURL: publicBaseURL,
		presignExpiry: expiry,
		logger:        logger,
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Key returns the object key for a transaction document:
// <record-id>/transaction-<listing-id-or-unknown>.pdf. The record id prefix
// is omitted when empty.
func Key(recordID, listingID string) string {
	listing := strings.Trim(unsafeKeyChars.ReplaceAllString(strings.TrimSpace(listingID), "-"), "-")
	if listing == "" {
		listing = "unknown"
	}
	name := "transaction-" + listing + ".pdf"

	recordID = strings.Trim(unsafeKeyChars.ReplaceAllString(recordID, "-"), "-")
	if recordID == "" {
		return name
	}
	return recordID + "/" + name
}

// Upload writes doc under key and returns its URL.
func (u *MinioUploader) Upload(ctx context.Context, key string, doc []byte) (string, error) {
	info, err := u.api.PutObject(ctx, u.bucket, key, bytes.NewReader(doc), int64(len(doc)),
		minio.PutObjectOptions{ContentType: contentTypePDF})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	u.logger.Debug("uploaded document",
		zap.String("bucket", u.bucket),
		zap.String("key", key),
		zap.Int64("size", info.Size))

	return u.URL(ctx, key)
}

// URL returns the public URL for key when a public base URL is configured,
// and a presigned GET URL otherwise.
func (u *MinioUploader) URL(ctx context.Context, key string) (string, error) {
	if u.publicBaseURL != "" {
		out, err := url.JoinPath(u.publicBaseURL, key)
		if err != nil {
			return "", fmt.Errorf("invalid public base url: %w", err)
		}
		return out, nil
	}

	signed, err := u.api.PresignedGetObject(ctx, u.bucket, key, u.presignExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return signed.String(), nil
}
