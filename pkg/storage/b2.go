package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/kurin/blazer/b2"
)

// B2Store Backblaze B2 实现
type B2Store struct {
	client *b2.Client
	bucket *b2.Bucket
}

// NewB2Store 连接 B2 并打开目标 bucket
func NewB2Store(ctx context.Context, account, key, bucketName string) (*B2Store, error) {
	client, err := b2.NewClient(ctx, account, key)
	if err != nil {
		return nil, fmt.Errorf("创建 B2 客户端失败: %w", err)
	}

	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("打开 B2 bucket 失败: %w", err)
	}

	return &B2Store{client: client, bucket: bucket}, nil
}

func (s *B2Store) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	w := s.bucket.Object(key).NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{ContentType: contentType}))

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("写入对象失败: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("提交对象失败: %w", err)
	}

	return s.bucket.Object(key).URL(), nil
}

func (s *B2Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj := s.bucket.Object(key)
	if _, err := obj.Attrs(ctx); err != nil {
		if b2.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("读取对象属性失败: %w", err)
	}
	return obj.NewReader(ctx), nil
}
