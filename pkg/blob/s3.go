package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/xhad/verdict/internal/types"
	"github.com/xhad/verdict/pkg/config"
)

// S3Store maps one container to one bucket.
type S3Store struct {
	api    *minio.Client
	bucket string
	region string
}

var _ types.BlobStore = (*S3Store)(nil)

func NewS3(cfg config.StorageConfig, bucket string) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return &S3Store{api: client, bucket: bucket, region: cfg.Region}, nil
}

// EnsureContainer creates the bucket when it does not exist yet.
func (s *S3Store) EnsureContainer(ctx context.Context) error {
	ok, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket %s: %w", s.bucket, err)
	}
	if ok {
		return nil
	}
	if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *S3Store) List(ctx context.Context) ([]types.BlobInfo, error) {
	var blobs []types.BlobInfo
	for obj := range s.api.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", s.bucket, obj.Err)
		}
		blobs = append(blobs, types.BlobInfo{
			Name:         obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}
	return blobs, nil
}

func (s *S3Store) Get(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.api.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrap(name, err)
	}
	defer obj.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, obj); err != nil {
		return nil, s.wrap(name, err)
	}
	return buf.Bytes(), nil
}

func (s *S3Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.api.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, s.wrap(name, err)
}

func (s *S3Store) Put(ctx context.Context, name string, data []byte, metadata map[string]string, overwrite bool) error {
	if !overwrite {
		exists, err := s.Exists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%s/%s: %w", s.bucket, name, ErrExists)
		}
	}
	_, err := s.api.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType(name),
		UserMetadata: metadata,
	})
	if err != nil {
		return s.wrap(name, err)
	}
	return nil
}

func (s *S3Store) wrap(name string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%s/%s: %w", s.bucket, name, ErrNotFound)
	}
	return fmt.Errorf("%s/%s: %w", s.bucket, name, err)
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
