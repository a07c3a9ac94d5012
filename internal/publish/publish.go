// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package publish uploads a mission's combined dataset to an S3-compatible object store.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/afero"
	"github.com/ucl-sgnl/myriad-utils/internal/ctxlog"
)

const contentType = "text/csv"

var (
	// ErrNoEndpoint is returned when no endpoint is configured.
	ErrNoEndpoint = errors.New("object store endpoint is required")
	// ErrNoBucket is returned when no bucket is configured.
	ErrNoBucket = errors.New("object store bucket is required")
	// ErrClient is returned when the client cannot be created.
	ErrClient = errors.New("failed to create object store client")
	// ErrBucket is returned when the bucket cannot be checked or created.
	ErrBucket = errors.New("failed to prepare bucket")
	// ErrUpload is returned when the upload fails.
	ErrUpload = errors.New("failed to upload dataset")
)

// ObjectStore is the part of *minio.Client the publisher uses.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Settings configures a Publisher.
type Settings struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Publisher uploads datasets into one bucket.
type Publisher struct {
	store  ObjectStore
	bucket string
	prefix string
}

// New connects a MinIO client. Without static keys, credentials come from
// the AWS_* or MINIO_* environment variables.
func New(s Settings) (*Publisher, error) {
	if s.Endpoint == "" {
		return nil, ErrNoEndpoint
	}

	creds := credentials.NewStaticV4(s.AccessKey, s.SecretKey, "")
	if s.AccessKey == "" {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
		})
	}

	mc, err := minio.New(s.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: s.UseSSL,
	})
	if err != nil {
		return nil, errors.Join(ErrClient, err)
	}

	return NewWithStore(mc, s.Bucket, s.Prefix)
}

// NewWithStore builds a Publisher on an existing store.
func NewWithStore(store ObjectStore, bucket, prefix string) (*Publisher, error) {
	if bucket == "" {
		return nil, ErrNoBucket
	}

	return &Publisher{store: store, bucket: bucket, prefix: prefix}, nil
}

// ObjectKey returns <prefix>/<mission>/<name>, without a leading slash.
func ObjectKey(prefix, mission, name string) string {
	return strings.TrimPrefix(path.Join(prefix, mission, name), "/")
}

// EnsureBucket creates the bucket if it does not exist.
func (p *Publisher) EnsureBucket(ctx context.Context) error {
	exists, err := p.store.BucketExists(ctx, p.bucket)
	if err != nil {
		return errors.Join(ErrBucket, err)
	}

	if exists {
		return nil
	}

	if err := p.store.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Join(ErrBucket, err)
	}

	ctxlog.Info(ctx, "created bucket", "bucket", p.bucket)

	return nil
}

// Upload streams the dataset at localPath, read through fs, under the mission's key and returns the key.
func (p *Publisher) Upload(ctx context.Context, fs afero.Fs, mission, localPath string) (string, error) {
	f, err := fs.Open(localPath)
	if err != nil {
		return "", errors.Join(ErrUpload, err)
	}

	defer f.Close() //nolint:errcheck

	st, err := f.Stat()
	if err != nil {
		return "", errors.Join(ErrUpload, err)
	}

	if st.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrUpload, localPath)
	}

	if err := p.EnsureBucket(ctx); err != nil {
		return "", err
	}

	key := ObjectKey(p.prefix, mission, filepath.Base(localPath))

	info, err := p.store.PutObject(ctx, p.bucket, key, f, st.Size(), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", errors.Join(ErrUpload, fmt.Errorf("%s: %w", key, err))
	}

	ctxlog.Info(ctx, "published dataset", "bucket", p.bucket, "key", key, "size", info.Size)

	return key, nil
}
