// Package s3 stores checkpoints as S3 objects, <prefix><stream>.ckpt.
package s3

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ajitpratap0/partsync/pkg/checkpoint"
	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/errors"
)

func init() {
	checkpoint.RegisterStore(config.StoreS3, func(ctx context.Context, cfg *config.CheckpointConfig) (checkpoint.Store, error) {
		return Open(ctx, cfg.S3)
	})
}

// Store is an S3-backed checkpoint store. Credentials come from the default
// AWS chain.
type Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// Open loads the AWS configuration and verifies access to the bucket.
// Endpoint and UsePathStyle support S3-compatible services such as MinIO.
func Open(ctx context.Context, cfg config.S3StoreConfig) (*Store, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load aws configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return New(ctx, client, cfg.Bucket, cfg.Prefix)
}

// New wraps an existing client.
func New(ctx context.Context, client *s3.Client, bucket, prefix string) (*Store, error) {
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "cannot access checkpoint bucket").
			WithDetail("bucket", bucket)
	}
	return &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
	}, nil
}

func (s *Store) Name() string { return config.StoreS3 }

func (s *Store) key(stream string) string {
	return s.prefix + stream + checkpoint.FileSuffix
}

func (s *Store) Save(ctx context.Context, stream string, data []byte) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(stream)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to upload checkpoint").WithDetail("stream", stream)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, stream string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(stream)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, checkpoint.NewNotFoundError(s.Name(), stream)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to download checkpoint").WithDetail("stream", stream)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read checkpoint").WithDetail("stream", stream)
	}
	return data, nil
}

// Delete removes the object; S3 reports success for missing keys.
func (s *Store) Delete(ctx context.Context, stream string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(stream)),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to delete checkpoint").WithDetail("stream", stream)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	var streams []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to list checkpoints")
		}
		for _, obj := range page.Contents {
			if stream, ok := streamFromKey(aws.ToString(obj.Key), s.prefix); ok {
				streams = append(streams, stream)
			}
		}
	}
	sort.Strings(streams)
	return streams, nil
}

// Close is a no-op; the SDK client holds no resources needing release.
func (s *Store) Close() error { return nil }

// streamFromKey returns the stream of an object key directly under prefix.
func streamFromKey(key, prefix string) (string, bool) {
	name, ok := strings.CutPrefix(key, prefix)
	if !ok || strings.Contains(name, "/") {
		return "", false
	}
	stream, ok := strings.CutSuffix(name, checkpoint.FileSuffix)
	return stream, ok && stream != ""
}
