package minio

import (
	"Inkstone/internal/api/config"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
)

// GetPublicURL 拼接正式桶对象的公网访问地址
func GetPublicURL(objectName string) string {
	cfg := config.Cfg.MinIO

	endpoint := cfg.ExternalEndpoint
	if endpoint == "" {
		endpoint = cfg.InternalEndpoint
	}

	protocol := "https"
	if cfg.ExternalEndpoint == "" && !cfg.InternalUseSSL {
		protocol = "http"
	}

	return fmt.Sprintf("%s://%s/%s/%s", protocol, endpoint, MainBucket, objectName)
}

// PromoteObject 将暂存桶对象复制到正式桶，发布帖子时调用
func PromoteObject(ctx context.Context, objectName string) error {
	if Client == nil {
		return fmt.Errorf("minio client is not initialized")
	}

	_, err := Client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: MainBucket, Object: objectName},
		minio.CopySrcOptions{Bucket: TempBucket, Object: objectName},
	)
	if err != nil {
		return fmt.Errorf("failed to promote object: %w", err)
	}

	// 暂存副本删不掉也无妨，生命周期策略会清
	_ = Client.RemoveObject(ctx, TempBucket, objectName, minio.RemoveObjectOptions{})

	return nil
}

// StatTempObject 确认暂存对象存在并返回大小
func StatTempObject(ctx context.Context, objectName string) (int64, error) {
	if Client == nil {
		return 0, fmt.Errorf("minio client is not initialized")
	}

	info, err := Client.StatObject(ctx, TempBucket, objectName, minio.StatObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to stat object: %w", err)
	}
	return info.Size, nil
}

// DeleteTempFile 删除暂存桶中的文件
func DeleteTempFile(ctx context.Context, objectName string) error {
	if Client == nil {
		return fmt.Errorf("minio client is not initialized")
	}

	err := Client.RemoveObject(ctx, TempBucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// DeleteFile 删除正式桶中的文件
func DeleteFile(ctx context.Context, objectName string) error {
	if Client == nil {
		return fmt.Errorf("minio client is not initialized")
	}

	err := Client.RemoveObject(ctx, MainBucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}
