package minio

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	objectstorage "github.com/quka-ai/synthesis/pkg/object-storage"
	"github.com/quka-ai/synthesis/pkg/utils"
)

const NAME = "minio"

var _ objectstorage.Storage = (*Minio)(nil)

type Minio struct {
	Bucket string
	cli    *minio.Client
}

// New endpoint 不带协议头，如 127.0.0.1:9000
func New(endpoint, bucket, ak, sk string, useSSL bool) (*Minio, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(ak, sk, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client, %w", err)
	}
	return &Minio{Bucket: bucket, cli: cli}, nil
}

func (m *Minio) DefaultBucket() string {
	return m.Bucket
}

func (m *Minio) bucket(bucket string) string {
	if bucket == "" {
		return m.Bucket
	}
	return bucket
}

func (m *Minio) ObjectURL(bucket, key string) string {
	return utils.ObjectURL(m.bucket(bucket), key)
}

func (m *Minio) Upload(ctx context.Context, bucket, localPath, dest string) error {
	_, err := m.cli.FPutObject(ctx, m.bucket(bucket), strings.TrimPrefix(dest, "/"), localPath, minio.PutObjectOptions{
		ContentType: objectstorage.ContentTypeByName(dest),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to %s, %w", localPath, dest, err)
	}
	return nil
}

func (m *Minio) Download(ctx context.Context, bucket, key string) (*objectstorage.Object, error) {
	obj, err := m.cli.GetObject(ctx, m.bucket(bucket), strings.TrimPrefix(key, "/"), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, err
	}

	return &objectstorage.Object{
		Body:        body,
		ContentType: objectstorage.SniffContentType(info.ContentType, body),
	}, nil
}

func (m *Minio) Delete(ctx context.Context, bucket, key string) error {
	return m.cli.RemoveObject(ctx, m.bucket(bucket), strings.TrimPrefix(key, "/"), minio.RemoveObjectOptions{})
}
