package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"cloudstore/internal/drive"
)

// S3Options configures the S3 client behind an S3Store.
type S3Options struct {
	Region          string
	Endpoint        string // custom endpoint for S3-compatible servers (MinIO, Localstack)
	AccessKeyID     string
	SecretAccessKey string
}

// S3Store stores blobs as objects named <prefix><namespace path>, so the
// bucket mirrors the namespace. Renames are a copy followed by a delete.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Client builds an S3 client. Static credentials are used when both
// keys are set, otherwise the default credential chain applies.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var configOptions []func(*awsConfig.LoadOptions) error
	if opts.Region != "" {
		configOptions = append(configOptions, awsConfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3Store wraps an S3 client. The bucket must already exist.
func NewS3Store(client *s3.Client, bucket, prefix string) *S3Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
	}
}

func (s *S3Store) key(path string) (string, error) {
	if err := checkKey(path); err != nil {
		return "", err
	}
	return s.prefix + path, nil
}

func (s *S3Store) Put(ctx context.Context, path string, r io.Reader) (int64, error) {
	key, err := s.key(path)
	if err != nil {
		return 0, err
	}

	cr := &countingReader{r: r}
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   cr,
	})
	if err != nil {
		return 0, fmt.Errorf("uploading %s: %w", path, err)
	}
	return cr.n, nil
}

func (s *S3Store) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	key, err := s.key(path)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", drive.ErrBlobNotFound, path)
		}
		return nil, fmt.Errorf("getting %s: %w", path, err)
	}
	return out.Body, nil
}

func (s *S3Store) Exists(ctx context.Context, path string) (bool, error) {
	if _, err := s.Size(ctx, path); err != nil {
		if errors.Is(err, drive.ErrBlobNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3Store) Size(ctx context.Context, path string) (int64, error) {
	key, err := s.key(path)
	if err != nil {
		return 0, err
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("%w: %s", drive.ErrBlobNotFound, path)
		}
		return 0, fmt.Errorf("head %s: %w", path, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (s *S3Store) Rename(ctx context.Context, oldPath, newPath string) error {
	oldKey, err := s.key(oldPath)
	if err != nil {
		return err
	}
	newKey, err := s.key(newPath)
	if err != nil {
		return err
	}

	if ok, err := s.Exists(ctx, oldPath); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", drive.ErrBlobNotFound, oldPath)
	}
	if ok, err := s.Exists(ctx, newPath); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s", drive.ErrBlobExists, newPath)
	}

	_, err = s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(newKey),
		CopySource: aws.String(copySource(s.bucket, oldKey)),
	})
	if err != nil {
		return fmt.Errorf("copying %s to %s: %w", oldPath, newPath, err)
	}
	if err := s.deleteKey(ctx, oldKey); err != nil {
		return fmt.Errorf("removing %s after copy: %w", oldPath, err)
	}
	return nil
}

// Delete removes the object. S3 deletes of absent keys succeed.
func (s *S3Store) Delete(ctx context.Context, path string) error {
	key, err := s.key(path)
	if err != nil {
		return err
	}
	if err := s.deleteKey(ctx, key); err != nil {
		return fmt.Errorf("deleting %s: %w", path, err)
	}
	return nil
}

func (s *S3Store) deleteKey(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// MoveIn uploads localPath and removes it.
func (s *S3Store) MoveIn(ctx context.Context, path, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening staged file: %w", err)
	}
	defer f.Close()

	if _, err := s.Put(ctx, path, f); err != nil {
		return err
	}
	f.Close()
	return os.Remove(localPath)
}

func (s *S3Store) Walk(ctx context.Context, fn func(path string, size int64) error) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("listing objects: %w", err)
		}
		for _, obj := range page.Contents {
			path := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if path == "" || strings.HasSuffix(path, "/") {
				continue
			}
			if err := fn(path, aws.ToInt64(obj.Size)); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateSetup verifies that the bucket is reachable.
func (s *S3Store) ValidateSetup(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to access bucket %q: %w", s.bucket, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// copySource renders the x-amz-copy-source value, escaping each key segment.
func copySource(bucket, key string) string {
	segs := strings.Split(key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return bucket + "/" + strings.Join(segs, "/")
}

// Compile-time check that S3Store implements drive.BlobStore interface
var _ drive.BlobStore = (*S3Store)(nil)
