package minio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"clipstream/internal/config"
	"clipstream/pkg/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

var (
	// ErrUploadNotFound means storage no longer knows the multipart upload id.
	ErrUploadNotFound = errors.New("multipart upload not found")
	// ErrPartsMismatch means the supplied part list does not match what storage holds.
	ErrPartsMismatch = errors.New("multipart parts mismatch")
)

// Part is one uploaded part as reported back by the client.
type Part struct {
	Number int
	ETag   string
}

// ObjectRef identifies a finalized object.
type ObjectRef struct {
	Bucket string
	Key    string
	ETag   string
	Size   int64
}

// Gateway wraps the multipart and presign primitives of an S3 compatible store.
type Gateway struct {
	core *minio.Core
}

// NewGateway builds a gateway. Setting cfg.Region lets presigning run without
// a bucket-location round trip.
func NewGateway(cfg *config.MinIOConfig) (*Gateway, error) {
	core, err := minio.NewCore(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &Gateway{core: core}, nil
}

// EnsureBuckets creates any missing bucket.
func (g *Gateway) EnsureBuckets(ctx context.Context, buckets ...string) error {
	for _, bucket := range buckets {
		exists, err := g.core.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
		}
		if exists {
			continue
		}
		if err := g.core.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
		logger.Info("MinIO bucket created", zap.String("bucket", bucket))
	}
	return nil
}

func (g *Gateway) CreateMultipartUpload(ctx context.Context, bucket, key, contentType string) (string, error) {
	uploadID, err := g.core.NewMultipartUpload(ctx, bucket, key, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("create multipart upload: %w", err)
	}
	return uploadID, nil
}

// SignPartURL presigns a PUT for a single part of an open multipart upload.
func (g *Gateway) SignPartURL(ctx context.Context, bucket, key, uploadID string, partNumber int, ttl time.Duration) (string, error) {
	params := url.Values{}
	params.Set("uploadId", uploadID)
	params.Set("partNumber", strconv.Itoa(partNumber))

	u, err := g.core.Presign(ctx, http.MethodPut, bucket, key, ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign part url: %w", err)
	}
	return u.String(), nil
}

func (g *Gateway) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []Part) (*ObjectRef, error) {
	completed := make([]minio.CompletePart, 0, len(parts))
	for _, p := range parts {
		completed = append(completed, minio.CompletePart{PartNumber: p.Number, ETag: p.ETag})
	}

	info, err := g.core.CompleteMultipartUpload(ctx, bucket, key, uploadID, completed, minio.PutObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("complete multipart upload: %w", translate(err))
	}
	return &ObjectRef{Bucket: info.Bucket, Key: info.Key, ETag: info.ETag, Size: info.Size}, nil
}

func (g *Gateway) AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	if err := g.core.AbortMultipartUpload(ctx, bucket, key, uploadID); err != nil {
		return fmt.Errorf("abort multipart upload: %w", translate(err))
	}
	return nil
}

func (g *Gateway) SignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := g.core.PresignedGetObject(ctx, bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign get url: %w", err)
	}
	return u.String(), nil
}

func (g *Gateway) SignPutURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := g.core.PresignedPutObject(ctx, bucket, key, ttl)
	if err != nil {
		return "", fmt.Errorf("presign put url: %w", err)
	}
	return u.String(), nil
}

func (g *Gateway) RemoveObject(ctx context.Context, bucket, key string) error {
	if err := g.core.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// translate maps S3 error codes that carry domain meaning onto sentinels.
func translate(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchUpload":
		return fmt.Errorf("%w: %v", ErrUploadNotFound, err)
	case "InvalidPart", "InvalidPartOrder", "EntityTooSmall":
		return fmt.Errorf("%w: %v", ErrPartsMismatch, err)
	}
	return err
}
