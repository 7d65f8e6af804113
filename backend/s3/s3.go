// Package s3 keeps the whole document as a single YAML or JSON object in an S3 bucket.
// The object is loaded on open and uploaded on Complete.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Borislavv/go-ash-storage/backend/codec"
	"github.com/Borislavv/go-ash-storage/backend/memory"
	"github.com/Borislavv/go-ash-storage/config"
)

// Client is the part of *s3.Client the backend uses.
type Client interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Backend struct {
	*memory.Backend

	cfg    *config.S3Cfg
	client Client
	codec  codec.Codec
	logger *slog.Logger
}

// NewClient builds an S3 client with static credentials. A custom endpoint (MinIO, R2)
// honours PathStyle.
func NewClient(cfg *config.S3Cfg) *s3.Client {
	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		},
	}
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		})
	}
	return s3.New(s3.Options{}, opts...)
}

func Open(ctx context.Context, cfg *config.S3Cfg, logger *slog.Logger) (*Backend, error) {
	cfg.AdjustConfig()
	return OpenWithClient(ctx, cfg, NewClient(cfg), logger)
}

// OpenWithClient loads the document through client. A missing object is an empty document.
func OpenWithClient(ctx context.Context, cfg *config.S3Cfg, client Client, logger *slog.Logger) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required", ErrInvalidConfig)
	}
	cfg.AdjustConfig()

	b := &Backend{
		Backend: memory.New(),
		cfg:     cfg,
		client:  client,
		codec:   codec.For(cfg.Format),
		logger:  logger,
	}
	if err := b.Reload(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// Reload replaces the in-memory document with the stored object.
func (b *Backend) Reload(ctx context.Context) error {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(b.cfg.Key),
	})
	if err != nil {
		err = wrapS3Error(err, ErrDownloadFailed)
		if errors.Is(err, ErrNotFound) {
			b.Replace(make(map[string]any))
			b.logger.Info("storage object not found, starting empty", "bucket", b.cfg.Bucket, "key", b.cfg.Key)
			return nil
		}
		return err
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrDownloadFailed, err)
	}
	doc, err := b.codec.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("load s3://%s/%s: %w", b.cfg.Bucket, b.cfg.Key, err)
	}
	b.Replace(doc)
	return nil
}

// Complete uploads the document.
func (b *Backend) Complete(ctx context.Context) error {
	data, err := b.codec.Marshal(b.Snapshot())
	if err != nil {
		return err
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.cfg.Bucket),
		Key:           aws.String(b.cfg.Key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(b.codec.ContentType()),
	})
	if err != nil {
		return wrapS3Error(err, ErrUploadFailed)
	}
	return b.Backend.Complete(ctx)
}
