package database

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"realtime_chat_service/pkg/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ObjectStorage 附件物件存取
type ObjectStorage interface {
	PutObject(ctx context.Context, objectName string, body io.Reader, size int64, contentType string) error
	RemoveObject(ctx context.Context, objectName string) error
	PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// MinIOClient ObjectStorage 的 minio 實作, 所有物件都放在同一個 bucket
type MinIOClient struct {
	Client     *minio.Client
	BucketName string
}

// NewMinIOConnection 建立 client 並確保 bucket 存在
func NewMinIOConnection(d MinIOConnection) (*MinIOClient, error) {
	client, err := minio.New(d.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(d.User, d.Password, ""),
		Secure: d.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	mc := &MinIOClient{Client: client, BucketName: d.BucketName}
	err = withRetry("minio["+d.Endpoint+"]", d.RetryCount, d.RetryInterval, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return mc.ensureBucket(ctx)
	})
	if err != nil {
		return nil, err
	}
	return mc, nil
}

func (m *MinIOClient) ensureBucket(ctx context.Context) error {
	exists, err := m.Client.BucketExists(ctx, m.BucketName)
	if err != nil {
		return fmt.Errorf("check bucket [%s]: %w", m.BucketName, err)
	}
	if exists {
		return nil
	}
	if err := m.Client.MakeBucket(ctx, m.BucketName, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket [%s]: %w", m.BucketName, err)
	}
	logger.Log.Info("bucket created", zap.String("bucket", m.BucketName))
	return nil
}

// PutObject upload body, size -1 when unknown
func (m *MinIOClient) PutObject(ctx context.Context, objectName string, body io.Reader, size int64, contentType string) error {
	_, err := m.Client.PutObject(ctx, m.BucketName, objectName, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object [%s]: %w", objectName, err)
	}
	return nil
}

// RemoveObject delete object
func (m *MinIOClient) RemoveObject(ctx context.Context, objectName string) error {
	return m.Client.RemoveObject(ctx, m.BucketName, objectName, minio.RemoveObjectOptions{})
}

// PresignGetURL 短期下載連結
func (m *MinIOClient) PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	reqParams := make(url.Values)
	presignedURL, err := m.Client.PresignedGetObject(ctx, m.BucketName, objectName, expiry, reqParams)
	if err != nil {
		return "", fmt.Errorf("presign [%s]: %w", objectName, err)
	}
	return presignedURL.String(), nil
}
