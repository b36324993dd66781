package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const avatarPrefix = "profile-pictures/"

// ObjectStore is the subset of object storage the services need.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	PublicURL(key string) string
}

// MinioStore keeps uploads in a single S3-compatible bucket.
type MinioStore struct {
	client   *minio.Client
	bucket   string
	endpoint string
	secure   bool
}

var _ ObjectStore = (*MinioStore)(nil)

// NewMinio connects to MinIO and creates the bucket when it is missing.
func NewMinio(ctx context.Context, endpoint, accessKey, secretKey, bucket string, secure bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	if err := client.SetBucketPolicy(ctx, bucket, publicAvatarPolicy(bucket)); err != nil {
		return nil, fmt.Errorf("set bucket policy: %w", err)
	}

	return &MinioStore{client: client, bucket: bucket, endpoint: endpoint, secure: secure}, nil
}

// publicAvatarPolicy allows anonymous reads of profile pictures only.
// Application documents stay private and are served through presigned URLs.
func publicAvatarPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/%s*"]}]}`,
		bucket, avatarPrefix)
}

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func (s *MinioStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

// PublicURL is the direct object address, used for avatars served from a public-read prefix.
func (s *MinioStore) PublicURL(key string) string {
	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, key)
}

// Ping checks the bucket is reachable.
func (s *MinioStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

// ApplicationDocumentKey is where a credential file for an applicant is stored.
func ApplicationDocumentKey(userID, filename string) string {
	return fmt.Sprintf("trusted-applications/%s/%s", userID, filename)
}

// AvatarKey is where a user's profile picture is stored.
func AvatarKey(userID string) string {
	return avatarPrefix + userID
}
