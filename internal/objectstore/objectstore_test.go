package objectstore

import (
	"context"
	"errors"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/transaction-desk/internal/config"
)

type fakeAPI struct {
	putErr     error
	presignErr error
	bucket     string
	key        string
	body       []byte
	opts       minio.PutObjectOptions
	expiry     time.Duration
}

func (f *fakeAPI) PutObject(_ context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.bucket, f.key, f.body, f.opts = bucket, key, body, opts
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func (f *fakeAPI) PresignedGetObject(_ context.Context, bucket, key string, expiry time.Duration, _ url.Values) (*url.URL, error) {
	if f.presignErr != nil {
		return nil, f.presignErr
	}
	f.expiry = expiry
	return url.Parse("https://s3.example.com/" + bucket + "/" + key + "?X-Amz-Signature=abc")
}

func TestKey(t *testing.T) {
	tests := []struct {
		name      string
		recordID  string
		listingID string
		want      string
	}{
		{"listing and record", "rec123", "MLS-4471", "rec123/transaction-MLS-4471.pdf"},
		{"missing listing", "rec123", "", "rec123/transaction-unknown.pdf"},
		{"missing record", "", "MLS-1", "transaction-MLS-1.pdf"},
		{"unsafe characters", "rec/1", " A 12/B ", "rec-1/transaction-A-12-B.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.recordID, tt.listingID))
		})
	}
}

func TestUpload_Presigned(t *testing.T) {
	api := &fakeAPI{}
	u := newUploader(api, "docs", "", 15*time.Minute, nil)

	got, err := u.Upload(context.Background(), "rec1/transaction-unknown.pdf", []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, "https://s3.example.com/docs/rec1/transaction-unknown.pdf?X-Amz-Signature=abc", got)
	assert.Equal(t, "docs", api.bucket)
	assert.Equal(t, []byte("%PDF"), api.body)
	assert.Equal(t, "application/pdf", api.opts.ContentType)
	assert.Equal(t, 15*time.Minute, api.expiry)
}

func TestUpload_PublicBaseURL(t *testing.T) {
	u := newUploader(&fakeAPI{presignErr: errors.New("must not presign")}, "docs", "https://cdn.example.com/tx/", 0, nil)

	got, err := u.Upload(context.Background(), "rec1/transaction-MLS-1.pdf", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/tx/rec1/transaction-MLS-1.pdf", got)
}

func TestUpload_PutFailure(t *testing.T) {
	u := newUploader(&fakeAPI{putErr: errors.New("access denied")}, "docs", "", 0, nil)

	_, err := u.Upload(context.Background(), "k.pdf", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload k.pdf")
	assert.Contains(t, err.Error(), "access denied")
}

func TestNewMinioUploader_RequiresBucket(t *testing.T) {
	_, err := NewMinioUploader(config.StorageConfig{Endpoint: "localhost:9000"}, nil)
	require.Error(t, err)

	u, err := NewMinioUploader(config.StorageConfig{Endpoint: "localhost:9000", Bucket: "docs"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, u)
}
